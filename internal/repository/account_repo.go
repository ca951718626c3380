package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vidiooh/internal/model"
)

// ErrNotFound is returned when a directory row does not exist.
var ErrNotFound = errors.New("not_found")

// AccountRepository reads the account/team directory and applies the
// expiry downgrade.
type AccountRepository interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetTeam(ctx context.Context, id string) (*model.Team, error)
	// DowngradeToFree resets the account's plan fields to FREE and clears
	// both expiration dates in a single statement.
	DowngradeToFree(ctx context.Context, accountID string) error
}

type accountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	const q = `
        SELECT id, email, role, status, plan_type, trial_ends_at, plan_expires_at, team_id, created_at, updated_at
        FROM accounts
        WHERE id = $1
    `
	var a model.Account
	row := r.db.QueryRowContext(ctx, q, id)
	if err := row.Scan(&a.ID, &a.Email, &a.Role, &a.Status, &a.PlanType, &a.TrialEndsAt, &a.PlanExpiresAt, &a.TeamID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch account %s: %w", id, err)
	}
	return &a, nil
}

func (r *accountRepo) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	const q = `
        SELECT id, name, plan_type, max_users, trial_ends_at, plan_expires_at, created_at
        FROM teams
        WHERE id = $1
    `
	var t model.Team
	row := r.db.QueryRowContext(ctx, q, id)
	if err := row.Scan(&t.ID, &t.Name, &t.PlanType, &t.MaxUsers, &t.TrialEndsAt, &t.PlanExpiresAt, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch team %s: %w", id, err)
	}
	return &t, nil
}

// DowngradeToFree clears the plan fields so the expiry check does not loop
// on the same account.
func (r *accountRepo) DowngradeToFree(ctx context.Context, accountID string) error {
	const q = `
        UPDATE accounts
        SET plan_type = 'FREE',
            trial_ends_at = NULL,
            plan_expires_at = NULL,
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.db.ExecContext(ctx, q, accountID); err != nil {
		return fmt.Errorf("downgrade account %s to free plan: %w", accountID, err)
	}
	return nil
}
