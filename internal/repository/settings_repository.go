package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const meetingLinkKey = "meeting_link"

// SettingsRepository stores key/value bot settings.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	MeetingLink(ctx context.Context) (string, error)
	SetMeetingLink(ctx context.Context, link string) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a Postgres-backed implementation.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT setting_value FROM bot_settings WHERE setting_key=$1`

	var value string
	if err := r.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		return "", err
	}
	return value, nil
}

func (r *settingsRepository) Set(ctx context.Context, key, value string) error {
	const query = `
        INSERT INTO bot_settings (setting_key, setting_value)
        VALUES ($1, $2)
        ON CONFLICT (setting_key) DO UPDATE SET
            setting_value = EXCLUDED.setting_value,
            updated_at    = NOW()`

	_, err := r.pool.Exec(ctx, query, key, value)
	return err
}

func (r *settingsRepository) MeetingLink(ctx context.Context) (string, error) {
	link, err := r.Get(ctx, meetingLinkKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return link, err
}

func (r *settingsRepository) SetMeetingLink(ctx context.Context, link string) error {
	return r.Set(ctx, meetingLinkKey, link)
}
