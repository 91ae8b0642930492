package service

import (
	"context"
	"time"

	"github.com/spec-kit/funnel-bot/internal/domain"
	"github.com/spec-kit/funnel-bot/internal/funnel"
	"github.com/spec-kit/funnel-bot/internal/repository"
)

// FunnelStageCount pairs a stage with its label and subscriber count.
type FunnelStageCount struct {
	Stage int
	Name  string
	Count int64
}

// Overview is the admin stats aggregate.
type Overview struct {
	TotalActive int64
	NewToday    int64
	NewThisWeek int64
	Deactivated int64
	Funnel      []FunnelStageCount
}

// ReportService aggregates read-only reporting for the admin API.
type ReportService struct {
	subscribers repository.SubscriberRepository
	links       repository.LinkClickRepository
	settings    repository.SettingsRepository
	catalog     funnel.Catalog
}

// NewReportService creates the service.
func NewReportService(subscribers repository.SubscriberRepository, links repository.LinkClickRepository, settings repository.SettingsRepository, catalog funnel.Catalog) *ReportService {
	return &ReportService{
		subscribers: subscribers,
		links:       links,
		settings:    settings,
		catalog:     catalog,
	}
}

// OverviewStats returns totals and the per-stage funnel breakdown. Every
// catalog stage appears in the result even when empty.
func (s *ReportService) OverviewStats(ctx context.Context) (*Overview, error) {
	stats, err := s.subscribers.Stats(ctx)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		TotalActive: stats.TotalActive,
		NewToday:    stats.NewToday,
		NewThisWeek: stats.NewThisWeek,
		Deactivated: stats.Deactivated,
	}
	for i := 0; i < s.catalog.Len(); i++ {
		overview.Funnel = append(overview.Funnel, FunnelStageCount{
			Stage: i,
			Name:  s.catalog.StageName(i),
			Count: stats.PerStage[i],
		})
	}
	return overview, nil
}

// RecentSubscribers returns the newest active subscribers.
func (s *ReportService) RecentSubscribers(ctx context.Context, limit int) ([]domain.Subscriber, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.subscribers.Recent(ctx, limit)
}

// LinkStats aggregates link clicks over the past days.
func (s *ReportService) LinkStats(ctx context.Context, days int) ([]domain.LinkClickStat, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.links.StatsSince(ctx, since)
}

// MeetingLink returns the configured weekly meeting link.
func (s *ReportService) MeetingLink(ctx context.Context) (string, error) {
	return s.settings.MeetingLink(ctx)
}

// SetMeetingLink updates the weekly meeting link.
func (s *ReportService) SetMeetingLink(ctx context.Context, link string) error {
	return s.settings.SetMeetingLink(ctx, link)
}
