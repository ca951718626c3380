package model

import "time"

// Team is a billing entity grouping multiple accounts. MaxUsers is an
// advisory seat ceiling, not hard-enforced on membership writes.
type Team struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	PlanType      PlanType   `db:"plan_type" json:"plan_type"`
	MaxUsers      int        `db:"max_users" json:"max_users"`
	TrialEndsAt   *time.Time `db:"trial_ends_at" json:"trial_ends_at,omitempty"`
	PlanExpiresAt *time.Time `db:"plan_expires_at" json:"plan_expires_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
