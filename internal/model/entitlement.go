package model

import "time"

// Entitlement is the resolved plan/status/expiration snapshot governing
// what an account may do. It is derived, never persisted as its own row,
// and recomputed (or served from the snapshot cache) on every gating
// decision.
type Entitlement struct {
	AccountID  string        `json:"account_id"`
	Plan       PlanType      `json:"plan"`
	Status     AccountStatus `json:"status"`
	ExpiresAt  *time.Time    `json:"expires_at,omitempty"`
	TeamID     *string       `json:"team_id,omitempty"`
	Limits     PlanLimits    `json:"limits"`
	ResolvedAt time.Time     `json:"resolved_at"`
}

// Expired reports whether the entitlement's expiration boundary has passed.
func (e *Entitlement) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}
