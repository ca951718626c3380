package model

import "time"

// AccountStatus is the moderation state of an account.
type AccountStatus string

const (
	StatusActive AccountStatus = "active"
	StatusBanned AccountStatus = "banned"
)

// Account represents a user profile row. When TeamID is set the effective
// plan is inherited from the team and the individual plan fields are
// vestigial.
type Account struct {
	ID            string        `db:"id" json:"id"`
	Email         string        `db:"email" json:"email"`
	Role          string        `db:"role" json:"role"`
	Status        AccountStatus `db:"status" json:"status"`
	PlanType      PlanType      `db:"plan_type" json:"plan_type"`
	TrialEndsAt   *time.Time    `db:"trial_ends_at" json:"trial_ends_at,omitempty"`
	PlanExpiresAt *time.Time    `db:"plan_expires_at" json:"plan_expires_at,omitempty"`
	TeamID        *string       `db:"team_id" json:"team_id,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Banned reports whether the account is blocked from the service.
func (a *Account) Banned() bool {
	return a.Status == StatusBanned
}
