package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Telegram   TelegramConfig
	Funnel     FunnelConfig
	Auth       AuthConfig
	Moderation ModerationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TelegramConfig holds Bot API credentials and group wiring.
type TelegramConfig struct {
	Token              string
	APIBaseURL         string
	WebhookSecret      string
	GroupChatID        int64
	QuestionsGroupLink string
}

// FunnelConfig controls the progression engine schedule and pacing.
type FunnelConfig struct {
	CheckIntervalMinutes   int
	SendIntervalSeconds    int
	DeliveryTimeoutSeconds int
	AdvanceRetries         int
	StageDwellHours        []int
}

// AuthConfig defines admin API authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	AdminPasswordHash     string
	BcryptCost            int
}

// ModerationConfig tunes spam and flood detection.
type ModerationConfig struct {
	SpamKeywords       []string
	FloodLimit         int
	FloodWindowSeconds int
	AllowedDomains     []string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	groupChatID, err := strconv.ParseInt(getEnv("TELEGRAM_GROUP_CHAT_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_GROUP_CHAT_ID: %w", err)
	}

	dwellHours, err := getEnvAsIntList("FUNNEL_STAGE_DWELL_HOURS", []int{24, 48, 72})
	if err != nil {
		return nil, fmt.Errorf("invalid FUNNEL_STAGE_DWELL_HOURS: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "community-funnel-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Telegram: TelegramConfig{
			Token:              os.Getenv("TELEGRAM_BOT_TOKEN"),
			APIBaseURL:         getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
			WebhookSecret:      os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
			GroupChatID:        groupChatID,
			QuestionsGroupLink: getEnv("QUESTIONS_GROUP_LINK", "https://t.me/community_questions"),
		},
		Funnel: FunnelConfig{
			CheckIntervalMinutes:   getEnvAsInt("FUNNEL_CHECK_INTERVAL_MINUTES", 30),
			SendIntervalSeconds:    getEnvAsInt("FUNNEL_SEND_INTERVAL_SECONDS", 2),
			DeliveryTimeoutSeconds: getEnvAsInt("FUNNEL_DELIVERY_TIMEOUT_SECONDS", 15),
			AdvanceRetries:         getEnvAsInt("FUNNEL_ADVANCE_RETRIES", 3),
			StageDwellHours:        dwellHours,
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			AdminPasswordHash:     os.Getenv("AUTH_ADMIN_PASSWORD_HASH"),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Moderation: ModerationConfig{
			SpamKeywords:       getEnvAsList("MODERATION_SPAM_KEYWORDS", defaultSpamKeywords),
			FloodLimit:         getEnvAsInt("MODERATION_FLOOD_LIMIT", 8),
			FloodWindowSeconds: getEnvAsInt("MODERATION_FLOOD_WINDOW_SECONDS", 60),
			AllowedDomains:     getEnvAsList("MODERATION_ALLOWED_DOMAINS", defaultAllowedDomains),
		},
	}

	return cfg, nil
}

var defaultSpamKeywords = []string{
	"free money", "guaranteed profit", "click here", "limited offer", "dm me for signals",
}

var defaultAllowedDomains = []string{
	"t.me", "telegram.org", "meet.google.com", "youtube.com",
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// CheckInterval returns the period between funnel engine runs.
func (f FunnelConfig) CheckInterval() time.Duration {
	if f.CheckIntervalMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(f.CheckIntervalMinutes) * time.Minute
}

// SendInterval returns the minimum delay between consecutive outbound sends.
func (f FunnelConfig) SendInterval() time.Duration {
	if f.SendIntervalSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(f.SendIntervalSeconds) * time.Second
}

// DeliveryTimeout bounds a single outbound send.
func (f FunnelConfig) DeliveryTimeout() time.Duration {
	if f.DeliveryTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(f.DeliveryTimeoutSeconds) * time.Second
}

// FloodWindow returns the sliding window used by flood detection.
func (m ModerationConfig) FloodWindow() time.Duration {
	if m.FloodWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(m.FloodWindowSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsIntList(key string, fallback []int) ([]int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parts := strings.Split(val, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		parsed, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}
