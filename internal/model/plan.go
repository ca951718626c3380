package model

// PlanType identifies a billing tier. Teams may carry CORPORATE; individual
// accounts never do directly.
type PlanType string

const (
	PlanFree      PlanType = "FREE"
	PlanPro       PlanType = "PRO"
	PlanTrial     PlanType = "TRIAL"
	PlanCorporate PlanType = "CORPORATE"
)

// PlanLimits are the enforcement ceilings of a plan. A zero value for
// MonthlyConversions or MaxFormats means unlimited.
type PlanLimits struct {
	MonthlyConversions int   `json:"monthly_conversions"`
	MaxFileBytes       int64 `json:"max_file_bytes"`
	MaxFormats         int   `json:"max_formats"`
	HistoryDays        int   `json:"history_days"`
}

const mb = 1024 * 1024

var planLimits = map[PlanType]PlanLimits{
	PlanFree: {MonthlyConversions: 6, MaxFileBytes: 15 * mb, MaxFormats: 2, HistoryDays: 0},
	// TRIAL markets the paid tier: PRO ceilings until it expires.
	PlanTrial:     {MonthlyConversions: 45, MaxFileBytes: 30 * mb, MaxFormats: 8, HistoryDays: 7},
	PlanPro:       {MonthlyConversions: 45, MaxFileBytes: 30 * mb, MaxFormats: 8, HistoryDays: 7},
	PlanCorporate: {MonthlyConversions: 0, MaxFileBytes: 60 * mb, MaxFormats: 0, HistoryDays: 30},
}

// LimitsFor returns the enforcement limits for a plan. Unknown plan strings
// (legacy tier names such as CORPORATE_TIER_1) fall back to the base tier
// encoded in their prefix, and ultimately to FREE.
func LimitsFor(p PlanType) PlanLimits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	for base, l := range planLimits {
		if len(p) > len(base) && p[:len(base)] == base {
			return l
		}
	}
	return planLimits[PlanFree]
}

// Unlimited reports whether the plan has no monthly conversion ceiling.
func (l PlanLimits) Unlimited() bool {
	return l.MonthlyConversions == 0
}
