package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/funnel-bot/internal/domain"
	"github.com/spec-kit/funnel-bot/internal/telegram"
)

// fakeSubscriberRepo is an in-memory repository.SubscriberRepository.
type fakeSubscriberRepo struct {
	mu   sync.Mutex
	subs map[int64]*domain.Subscriber
}

func newFakeSubscriberRepo() *fakeSubscriberRepo {
	return &fakeSubscriberRepo{subs: make(map[int64]*domain.Subscriber)}
}

func (r *fakeSubscriberRepo) Upsert(ctx context.Context, sub *domain.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.subs[sub.UserID]; ok {
		existing.Username = sub.Username
		existing.FirstName = sub.FirstName
		existing.LastName = sub.LastName
		*sub = *existing
		return nil
	}
	if sub.JoinedAt.IsZero() {
		sub.JoinedAt = time.Now().UTC()
	}
	sub.LastTransitionAt = sub.JoinedAt
	sub.Active = true
	copied := *sub
	r.subs[sub.UserID] = &copied
	return nil
}

func (r *fakeSubscriberRepo) GetByID(ctx context.Context, userID int64) (*domain.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeSubscriberRepo) FindDue(ctx context.Context, stage int, minDwell time.Duration) ([]domain.Subscriber, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeSubscriberRepo) AdvanceStage(ctx context.Context, userID int64, fromStage int) (bool, error) {
	return false, errors.New("not implemented")
}

func (r *fakeSubscriberRepo) Deactivate(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	sub.Active = false
	return nil
}

func (r *fakeSubscriberRepo) Reactivate(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	sub.Active = true
	return nil
}

func (r *fakeSubscriberRepo) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Subscriber
	for _, sub := range r.subs {
		if sub.Active {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeSubscriberRepo) Recent(ctx context.Context, limit int) ([]domain.Subscriber, error) {
	return r.ListActive(ctx)
}

func (r *fakeSubscriberRepo) Stats(ctx context.Context) (*domain.SubscriberStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.SubscriberStats{PerStage: make(map[int]int64)}
	for _, sub := range r.subs {
		if !sub.Active {
			stats.Deactivated++
			continue
		}
		stats.TotalActive++
		stats.PerStage[sub.Stage]++
	}
	return stats, nil
}

// fakeLinkRepo is an in-memory repository.LinkClickRepository.
type fakeLinkRepo struct {
	mu     sync.Mutex
	clicks []domain.LinkClick
}

func (r *fakeLinkRepo) Record(ctx context.Context, click *domain.LinkClick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	click.ID = int64(len(r.clicks) + 1)
	click.ClickedAt = time.Now().UTC()
	r.clicks = append(r.clicks, *click)
	return nil
}

func (r *fakeLinkRepo) StatsSince(ctx context.Context, since time.Time) ([]domain.LinkClickStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byType := make(map[domain.LinkType]*domain.LinkClickStat)
	for _, click := range r.clicks {
		if click.ClickedAt.Before(since) {
			continue
		}
		stat, ok := byType[click.LinkType]
		if !ok {
			stat = &domain.LinkClickStat{LinkType: click.LinkType}
			byType[click.LinkType] = stat
		}
		stat.Clicks++
	}
	var out []domain.LinkClickStat
	for _, stat := range byType {
		out = append(out, *stat)
	}
	return out, nil
}

// fakeMessenger records outbound calls and can fail specific recipients.
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []fakeSent
	deleted []int64
	errs    map[int64]error
}

type fakeSent struct {
	chatID int64
	text   string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{errs: make(map[int64]error)}
}

func (m *fakeMessenger) SendMessage(ctx context.Context, chatID int64, msg telegram.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs[chatID]; err != nil {
		return err
	}
	m.sent = append(m.sent, fakeSent{chatID: chatID, text: msg.Text})
	return nil
}

func (m *fakeMessenger) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}
