package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vidiooh/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversionRepository persists and queries transcode event records.
type ConversionRepository interface {
	Insert(ctx context.Context, log *model.ConversionLog) error
	// CountSince counts non-soft-deleted conversions created at or after
	// the given boundary.
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	ListActive(ctx context.Context, userID string, limit, offset int) ([]model.ConversionLog, error)
	GetByID(ctx context.Context, id string) (*model.ConversionLog, error)
	MarkDeleted(ctx context.Context, id string, at time.Time) error
	// Aggregate totals run over all rows including soft-deleted ones.
	Aggregate(ctx context.Context, userID string) (totalVideos int, totalBytes int64, storedVideos int, err error)
	// SweepBefore returns persisted logs older than the cutoff whose owning
	// account's plan has no durable history.
	SweepBefore(ctx context.Context, cutoff time.Time, ephemeralPlans []string) ([]model.ConversionLog, error)
	HardDelete(ctx context.Context, ids []string) error
}

type conversionRepo struct {
	pool *pgxpool.Pool
}

func NewConversionRepo(pool *pgxpool.Pool) ConversionRepository {
	return &conversionRepo{pool: pool}
}

func (r *conversionRepo) Insert(ctx context.Context, log *model.ConversionLog) error {
	const q = `
        INSERT INTO conversion_logs (user_id, original_name, output_format, duration, file_size, file_path)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := r.pool.QueryRow(ctx, q,
		log.UserID, log.OriginalName, log.OutputFormat, log.Duration, log.FileSize, log.FilePath,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversion log for user %s: %w", log.UserID, err)
	}
	return nil
}

func (r *conversionRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const q = `
        SELECT COUNT(*)
        FROM conversion_logs
        WHERE user_id = $1
          AND deleted_at IS NULL
          AND created_at >= $2
    `
	var count int
	if err := r.pool.QueryRow(ctx, q, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count conversions for user %s: %w", userID, err)
	}
	return count, nil
}

func (r *conversionRepo) ListActive(ctx context.Context, userID string, limit, offset int) ([]model.ConversionLog, error) {
	const q = `
        SELECT id, user_id, original_name, output_format, duration, file_size, file_path, created_at, deleted_at
        FROM conversion_logs
        WHERE user_id = $1
          AND deleted_at IS NULL
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list conversions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var logs []model.ConversionLog
	for rows.Next() {
		var l model.ConversionLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.OriginalName, &l.OutputFormat, &l.Duration, &l.FileSize, &l.FilePath, &l.CreatedAt, &l.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan conversion log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *conversionRepo) GetByID(ctx context.Context, id string) (*model.ConversionLog, error) {
	const q = `
        SELECT id, user_id, original_name, output_format, duration, file_size, file_path, created_at, deleted_at
        FROM conversion_logs
        WHERE id = $1
    `
	var l model.ConversionLog
	err := r.pool.QueryRow(ctx, q, id).Scan(&l.ID, &l.UserID, &l.OriginalName, &l.OutputFormat, &l.Duration, &l.FileSize, &l.FilePath, &l.CreatedAt, &l.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch conversion log %s: %w", id, err)
	}
	return &l, nil
}

func (r *conversionRepo) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE conversion_logs SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, id, at)
	if err != nil {
		return fmt.Errorf("soft-delete conversion log %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *conversionRepo) Aggregate(ctx context.Context, userID string) (int, int64, int, error) {
	const q = `
        SELECT COUNT(*),
               COALESCE(SUM(file_size), 0),
               COUNT(*) FILTER (WHERE file_path IS NOT NULL)
        FROM conversion_logs
        WHERE user_id = $1
    `
	var videos, stored int
	var bytes int64
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&videos, &bytes, &stored); err != nil {
		return 0, 0, 0, fmt.Errorf("aggregate conversions for user %s: %w", userID, err)
	}
	return videos, bytes, stored, nil
}

func (r *conversionRepo) SweepBefore(ctx context.Context, cutoff time.Time, ephemeralPlans []string) ([]model.ConversionLog, error) {
	const q = `
        SELECT cl.id, cl.user_id, cl.original_name, cl.output_format, cl.duration, cl.file_size, cl.file_path, cl.created_at, cl.deleted_at
        FROM conversion_logs cl
        JOIN accounts a ON a.id = cl.user_id
        LEFT JOIN teams t ON t.id = a.team_id
        WHERE cl.created_at < $1
          AND cl.file_path IS NOT NULL
          AND COALESCE(t.plan_type, a.plan_type) = ANY($2)
    `
	rows, err := r.pool.Query(ctx, q, cutoff, ephemeralPlans)
	if err != nil {
		return nil, fmt.Errorf("sweep conversions before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var logs []model.ConversionLog
	for rows.Next() {
		var l model.ConversionLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.OriginalName, &l.OutputFormat, &l.Duration, &l.FileSize, &l.FilePath, &l.CreatedAt, &l.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan sweep row: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *conversionRepo) HardDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `DELETE FROM conversion_logs WHERE id = ANY($1)`
	if _, err := r.pool.Exec(ctx, q, ids); err != nil {
		return fmt.Errorf("hard-delete %d conversion logs: %w", len(ids), err)
	}
	return nil
}
