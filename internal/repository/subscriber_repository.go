package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/funnel-bot/internal/domain"
)

// SubscriberRepository defines persistence access for funnel subscribers.
type SubscriberRepository interface {
	Upsert(ctx context.Context, sub *domain.Subscriber) error
	GetByID(ctx context.Context, userID int64) (*domain.Subscriber, error)
	FindDue(ctx context.Context, stage int, minDwell time.Duration) ([]domain.Subscriber, error)
	AdvanceStage(ctx context.Context, userID int64, fromStage int) (bool, error)
	Deactivate(ctx context.Context, userID int64) error
	Reactivate(ctx context.Context, userID int64) error
	ListActive(ctx context.Context) ([]domain.Subscriber, error)
	Recent(ctx context.Context, limit int) ([]domain.Subscriber, error)
	Stats(ctx context.Context) (*domain.SubscriberStats, error)
}

type subscriberRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriberRepository returns a Postgres-backed implementation.
func NewSubscriberRepository(pool *pgxpool.Pool) SubscriberRepository {
	return &subscriberRepository{pool: pool}
}

const subscriberColumns = `
        user_id, username, first_name, last_name, funnel_stage,
        joined_at, last_transition_at, is_active, created_at, updated_at`

// Upsert creates the subscriber at stage 0 or refreshes profile fields.
// Rejoin keeps the existing join time, stage and active flag, so neither the
// funnel position nor a deactivation is lost to a profile refresh. Bringing
// a deactivated subscriber back is a separate, deliberate Reactivate call.
func (r *subscriberRepository) Upsert(ctx context.Context, sub *domain.Subscriber) error {
	const query = `
        INSERT INTO subscribers (user_id, username, first_name, last_name, joined_at, last_transition_at)
        VALUES ($1, $2, $3, $4, $5, $5)
        ON CONFLICT (user_id) DO UPDATE SET
            username   = EXCLUDED.username,
            first_name = EXCLUDED.first_name,
            last_name  = EXCLUDED.last_name,
            updated_at = NOW()
        RETURNING funnel_stage, joined_at, last_transition_at, is_active, created_at, updated_at`

	joinedAt := sub.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}

	return r.pool.QueryRow(ctx, query,
		sub.UserID,
		sub.Username,
		sub.FirstName,
		sub.LastName,
		joinedAt,
	).Scan(&sub.Stage, &sub.JoinedAt, &sub.LastTransitionAt, &sub.Active, &sub.CreatedAt, &sub.UpdatedAt)
}

func (r *subscriberRepository) GetByID(ctx context.Context, userID int64) (*domain.Subscriber, error) {
	const query = `SELECT` + subscriberColumns + `
        FROM subscribers WHERE user_id=$1`

	var sub domain.Subscriber
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&sub.UserID,
		&sub.Username,
		&sub.FirstName,
		&sub.LastName,
		&sub.Stage,
		&sub.JoinedAt,
		&sub.LastTransitionAt,
		&sub.Active,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindDue returns active subscribers at the given stage whose time since the
// last transition is at least minDwell. The comparison is inclusive and the
// result is ordered by user id so repeated runs see a stable order.
func (r *subscriberRepository) FindDue(ctx context.Context, stage int, minDwell time.Duration) ([]domain.Subscriber, error) {
	const query = `SELECT` + subscriberColumns + `
        FROM subscribers
        WHERE funnel_stage = $1
          AND is_active
          AND last_transition_at <= NOW() - $2::interval
        ORDER BY user_id`

	rows, err := r.pool.Query(ctx, query, stage, minDwell)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscribers(rows)
}

// AdvanceStage moves the subscriber forward by exactly one stage, guarded by
// the expected current stage. A false return means another run already
// advanced the subscriber; callers treat that as a no-op.
func (r *subscriberRepository) AdvanceStage(ctx context.Context, userID int64, fromStage int) (bool, error) {
	const query = `
        UPDATE subscribers
        SET funnel_stage = funnel_stage + 1, last_transition_at = NOW(), updated_at = NOW()
        WHERE user_id = $1 AND funnel_stage = $2 AND is_active`

	cmd, err := r.pool.Exec(ctx, query, userID, fromStage)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *subscriberRepository) Deactivate(ctx context.Context, userID int64) error {
	const query = `
        UPDATE subscribers SET is_active = FALSE, updated_at = NOW()
        WHERE user_id = $1`

	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Reactivate flips the subscriber back to active. Only called on an explicit
// rejoin or a direct /start; ordinary chat activity never resurrects a
// recipient the platform reported gone.
func (r *subscriberRepository) Reactivate(ctx context.Context, userID int64) error {
	const query = `
        UPDATE subscribers SET is_active = TRUE, updated_at = NOW()
        WHERE user_id = $1`

	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *subscriberRepository) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	const query = `SELECT` + subscriberColumns + `
        FROM subscribers WHERE is_active ORDER BY user_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscribers(rows)
}

func (r *subscriberRepository) Recent(ctx context.Context, limit int) ([]domain.Subscriber, error) {
	const query = `SELECT` + subscriberColumns + `
        FROM subscribers WHERE is_active
        ORDER BY joined_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSubscribers(rows)
}

func (r *subscriberRepository) Stats(ctx context.Context) (*domain.SubscriberStats, error) {
	stats := &domain.SubscriberStats{PerStage: make(map[int]int64)}

	const totals = `
        SELECT
            COUNT(*) FILTER (WHERE is_active),
            COUNT(*) FILTER (WHERE NOT is_active),
            COUNT(*) FILTER (WHERE is_active AND joined_at >= date_trunc('day', NOW())),
            COUNT(*) FILTER (WHERE is_active AND joined_at >= NOW() - INTERVAL '7 days')
        FROM subscribers`

	if err := r.pool.QueryRow(ctx, totals).Scan(
		&stats.TotalActive,
		&stats.Deactivated,
		&stats.NewToday,
		&stats.NewThisWeek,
	); err != nil {
		return nil, err
	}

	const perStage = `
        SELECT funnel_stage, COUNT(*)
        FROM subscribers WHERE is_active
        GROUP BY funnel_stage ORDER BY funnel_stage`

	rows, err := r.pool.Query(ctx, perStage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var stage int
		var count int64
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		stats.PerStage[stage] = count
	}
	return stats, rows.Err()
}

func scanSubscribers(rows pgx.Rows) ([]domain.Subscriber, error) {
	var subs []domain.Subscriber
	for rows.Next() {
		var sub domain.Subscriber
		if err := rows.Scan(
			&sub.UserID,
			&sub.Username,
			&sub.FirstName,
			&sub.LastName,
			&sub.Stage,
			&sub.JoinedAt,
			&sub.LastTransitionAt,
			&sub.Active,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
