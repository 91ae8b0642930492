package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/funnel-bot/internal/domain"
)

// LinkClickRepository defines persistence access for link tracking.
type LinkClickRepository interface {
	Record(ctx context.Context, click *domain.LinkClick) error
	StatsSince(ctx context.Context, since time.Time) ([]domain.LinkClickStat, error)
}

type linkClickRepository struct {
	pool *pgxpool.Pool
}

// NewLinkClickRepository returns a Postgres-backed implementation.
func NewLinkClickRepository(pool *pgxpool.Pool) LinkClickRepository {
	return &linkClickRepository{pool: pool}
}

func (r *linkClickRepository) Record(ctx context.Context, click *domain.LinkClick) error {
	const query = `
        INSERT INTO link_clicks (user_id, link_type, domain, url)
        VALUES ($1, $2, $3, $4)
        RETURNING id, clicked_at`

	return r.pool.QueryRow(ctx, query,
		click.UserID,
		click.LinkType,
		click.Domain,
		click.URL,
	).Scan(&click.ID, &click.ClickedAt)
}

func (r *linkClickRepository) StatsSince(ctx context.Context, since time.Time) ([]domain.LinkClickStat, error) {
	const query = `
        SELECT link_type, COUNT(*), COUNT(DISTINCT user_id)
        FROM link_clicks
        WHERE clicked_at >= $1
        GROUP BY link_type
        ORDER BY link_type`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.LinkClickStat
	for rows.Next() {
		var stat domain.LinkClickStat
		if err := rows.Scan(&stat.LinkType, &stat.Clicks, &stat.UniqueUsers); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
