package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "community-funnel-bot", cfg.App.Name)
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	require.Equal(t, 30*time.Minute, cfg.Funnel.CheckInterval())
	require.Equal(t, 2*time.Second, cfg.Funnel.SendInterval())
	require.Equal(t, 15*time.Second, cfg.Funnel.DeliveryTimeout())
	require.Equal(t, []int{24, 48, 72}, cfg.Funnel.StageDwellHours)
	require.Equal(t, time.Minute, cfg.Moderation.FloodWindow())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FUNNEL_CHECK_INTERVAL_MINUTES", "5")
	t.Setenv("FUNNEL_STAGE_DWELL_HOURS", "1, 2, 4")
	t.Setenv("MODERATION_ALLOWED_DOMAINS", "t.me , example.com")
	t.Setenv("TELEGRAM_GROUP_CHAT_ID", "-100123")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 5*time.Minute, cfg.Funnel.CheckInterval())
	require.Equal(t, []int{1, 2, 4}, cfg.Funnel.StageDwellHours)
	require.Equal(t, []string{"t.me", "example.com"}, cfg.Moderation.AllowedDomains)
	require.Equal(t, int64(-100123), cfg.Telegram.GroupChatID)
}

func TestLoadRejectsBadDwellHours(t *testing.T) {
	t.Setenv("FUNNEL_STAGE_DWELL_HOURS", "24,soon")

	_, err := Load()
	require.Error(t, err)
}

func TestDurationFallbacks(t *testing.T) {
	f := FunnelConfig{CheckIntervalMinutes: -1, SendIntervalSeconds: 0, DeliveryTimeoutSeconds: 0}
	require.Equal(t, 30*time.Minute, f.CheckInterval())
	require.Equal(t, 2*time.Second, f.SendInterval())
	require.Equal(t, 15*time.Second, f.DeliveryTimeout())
}
