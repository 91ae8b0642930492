package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/funnel-bot/internal/config"
	"github.com/spec-kit/funnel-bot/internal/domain"
	"github.com/spec-kit/funnel-bot/internal/funnel"
	"github.com/spec-kit/funnel-bot/internal/service"
	"github.com/spec-kit/funnel-bot/internal/telegram"
)

type stubSubscribers struct {
	mu   sync.Mutex
	subs map[int64]*domain.Subscriber
}

func newStubSubscribers() *stubSubscribers {
	return &stubSubscribers{subs: make(map[int64]*domain.Subscriber)}
}

func (r *stubSubscribers) Upsert(ctx context.Context, sub *domain.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.subs[sub.UserID]; ok {
		existing.Username = sub.Username
		existing.FirstName = sub.FirstName
		existing.LastName = sub.LastName
		*sub = *existing
		return nil
	}
	sub.Active = true
	sub.LastTransitionAt = sub.JoinedAt
	copied := *sub
	r.subs[sub.UserID] = &copied
	return nil
}

func (r *stubSubscribers) GetByID(ctx context.Context, userID int64) (*domain.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *sub
	return &copied, nil
}

func (r *stubSubscribers) FindDue(ctx context.Context, stage int, minDwell time.Duration) ([]domain.Subscriber, error) {
	return nil, nil
}

func (r *stubSubscribers) AdvanceStage(ctx context.Context, userID int64, fromStage int) (bool, error) {
	return false, nil
}

func (r *stubSubscribers) Deactivate(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subs[userID]; ok {
		sub.Active = false
	}
	return nil
}

func (r *stubSubscribers) Reactivate(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subs[userID]; ok {
		sub.Active = true
	}
	return nil
}

func (r *stubSubscribers) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	return nil, nil
}

func (r *stubSubscribers) Recent(ctx context.Context, limit int) ([]domain.Subscriber, error) {
	return nil, nil
}

func (r *stubSubscribers) Stats(ctx context.Context) (*domain.SubscriberStats, error) {
	return &domain.SubscriberStats{PerStage: map[int]int64{}}, nil
}

type stubLinks struct{}

func (stubLinks) Record(ctx context.Context, click *domain.LinkClick) error { return nil }
func (stubLinks) StatsSince(ctx context.Context, since time.Time) ([]domain.LinkClickStat, error) {
	return nil, nil
}

type stubTransport struct {
	mu   sync.Mutex
	sent []struct {
		chatID int64
		text   string
	}
}

func (t *stubTransport) SendMessage(ctx context.Context, chatID int64, msg telegram.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, struct {
		chatID int64
		text   string
	}{chatID, msg.Text})
	return nil
}

func (t *stubTransport) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return nil
}

func newWebhookApp(t *testing.T) (*fiber.App, *stubSubscribers, *stubTransport) {
	t.Helper()
	repo := newStubSubscribers()
	transport := &stubTransport{}

	welcome := service.NewWelcomeService(config.TelegramConfig{}, service.WelcomeDependencies{
		Subscribers: repo,
		Transport:   transport,
		Limiter:     funnel.NopLimiter{},
	}, zap.NewNop())
	moderation := service.NewModerationService(config.ModerationConfig{}, service.ModerationDependencies{
		Transport:   transport,
		Links:       stubLinks{},
		Subscribers: repo,
	}, zap.NewNop())

	handler := NewWebhookHandler(config.TelegramConfig{}, welcome, moderation, nil, zap.NewNop())
	app := fiber.New()
	app.Post("/telegram/webhook", handler.Handle)
	return app, repo, transport
}

func postUpdate(t *testing.T, app *fiber.App, update telegram.Update) int {
	t.Helper()
	body, err := json.Marshal(update)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/telegram/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestWebhookStartCommandRegistersAndReplies(t *testing.T) {
	app, repo, transport := newWebhookApp(t)

	status := postUpdate(t, app, telegram.Update{
		UpdateID: 1,
		Message: &telegram.IncomingMessage{
			MessageID: 5,
			From:      &telegram.User{ID: 42, FirstName: "Ana"},
			Chat:      telegram.Chat{ID: 42, Type: "private"},
			Date:      time.Now().Unix(),
			Text:      "/start",
		},
	})
	require.Equal(t, fiber.StatusOK, status)

	sub, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, 0, sub.Stage)
	require.True(t, sub.Active)

	require.Len(t, transport.sent, 1)
	require.Equal(t, int64(42), transport.sent[0].chatID)
	require.Contains(t, transport.sent[0].text, "Ana")
}

func TestWebhookStartInGroupIsNotACommand(t *testing.T) {
	app, _, transport := newWebhookApp(t)

	status := postUpdate(t, app, telegram.Update{
		UpdateID: 2,
		Message: &telegram.IncomingMessage{
			MessageID: 6,
			From:      &telegram.User{ID: 42, FirstName: "Ana"},
			Chat:      telegram.Chat{ID: -100123, Type: "supergroup"},
			Date:      time.Now().Unix(),
			Text:      "/start",
		},
	})
	require.Equal(t, fiber.StatusOK, status)
	require.Empty(t, transport.sent)
}
