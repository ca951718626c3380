package repository

import (
	"context"
	"errors"
	"fmt"

	"vidiooh/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FormatRepository persists user-defined output geometries.
type FormatRepository interface {
	Create(ctx context.Context, f *model.CustomFormat) error
	ListByUser(ctx context.Context, userID string) ([]model.CustomFormat, error)
	GetByID(ctx context.Context, id string) (*model.CustomFormat, error)
	Update(ctx context.Context, f *model.CustomFormat) error
	Delete(ctx context.Context, id string) error
	CountByUser(ctx context.Context, userID string) (int, error)
}

type formatRepo struct {
	pool *pgxpool.Pool
}

func NewFormatRepo(pool *pgxpool.Pool) FormatRepository {
	return &formatRepo{pool: pool}
}

func (r *formatRepo) Create(ctx context.Context, f *model.CustomFormat) error {
	const q = `
        INSERT INTO custom_formats (user_id, label, width, height)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	if err := r.pool.QueryRow(ctx, q, f.UserID, f.Label, f.Width, f.Height).Scan(&f.ID, &f.CreatedAt); err != nil {
		return fmt.Errorf("create custom format for user %s: %w", f.UserID, err)
	}
	return nil
}

func (r *formatRepo) ListByUser(ctx context.Context, userID string) ([]model.CustomFormat, error) {
	const q = `
        SELECT id, user_id, label, width, height, created_at
        FROM custom_formats
        WHERE user_id = $1
        ORDER BY created_at ASC
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list custom formats for user %s: %w", userID, err)
	}
	defer rows.Close()

	var formats []model.CustomFormat
	for rows.Next() {
		var f model.CustomFormat
		if err := rows.Scan(&f.ID, &f.UserID, &f.Label, &f.Width, &f.Height, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan custom format: %w", err)
		}
		formats = append(formats, f)
	}
	return formats, rows.Err()
}

func (r *formatRepo) GetByID(ctx context.Context, id string) (*model.CustomFormat, error) {
	const q = `
        SELECT id, user_id, label, width, height, created_at
        FROM custom_formats
        WHERE id = $1
    `
	var f model.CustomFormat
	err := r.pool.QueryRow(ctx, q, id).Scan(&f.ID, &f.UserID, &f.Label, &f.Width, &f.Height, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch custom format %s: %w", id, err)
	}
	return &f, nil
}

func (r *formatRepo) Update(ctx context.Context, f *model.CustomFormat) error {
	const q = `
        UPDATE custom_formats
        SET label = $2, width = $3, height = $4
        WHERE id = $1
    `
	tag, err := r.pool.Exec(ctx, q, f.ID, f.Label, f.Width, f.Height)
	if err != nil {
		return fmt.Errorf("update custom format %s: %w", f.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *formatRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM custom_formats WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete custom format %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *formatRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM custom_formats WHERE user_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count custom formats for user %s: %w", userID, err)
	}
	return count, nil
}
