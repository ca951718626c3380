package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"vidiooh/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountFixture(id string, plan model.PlanType) *model.Account {
	return &model.Account{
		ID:       id,
		Status:   model.StatusActive,
		PlanType: plan,
	}
}

func TestResolveIndividualPlan(t *testing.T) {
	repo := &fakeAccountRepo{accounts: map[string]*model.Account{
		"u1": accountFixture("u1", model.PlanPro),
	}}
	svc := NewEntitlementService(repo, nil, zerolog.Nop())

	ent, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, ent.Plan)
	assert.Equal(t, model.LimitsFor(model.PlanPro), ent.Limits)
	assert.Nil(t, ent.ExpiresAt)
	assert.Nil(t, ent.TeamID)
}

func TestResolveTeamPlanWins(t *testing.T) {
	teamID := "t1"
	expires := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	acct := accountFixture("u1", model.PlanFree)
	acct.TeamID = &teamID
	repo := &fakeAccountRepo{
		accounts: map[string]*model.Account{"u1": acct},
		teams: map[string]*model.Team{
			"t1": {ID: "t1", Name: "Acme", PlanType: model.PlanCorporate, PlanExpiresAt: &expires},
		},
	}
	svc := NewEntitlementService(repo, nil, zerolog.Nop())

	ent, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanCorporate, ent.Plan)
	assert.Equal(t, &expires, ent.ExpiresAt)
	assert.True(t, ent.Limits.Unlimited())
}

func TestResolveDanglingTeamFallsBack(t *testing.T) {
	teamID := "gone"
	acct := accountFixture("u1", model.PlanPro)
	acct.TeamID = &teamID
	repo := &fakeAccountRepo{
		accounts: map[string]*model.Account{"u1": acct},
		teams:    map[string]*model.Team{},
	}
	svc := NewEntitlementService(repo, nil, zerolog.Nop())

	ent, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, ent.Plan)
	assert.Nil(t, ent.TeamID)
}

func TestResolveExpiredTeamFallsBack(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	teamID := "t1"
	lapsed := now.Add(-24 * time.Hour)
	acct := accountFixture("u1", model.PlanFree)
	acct.TeamID = &teamID
	repo := &fakeAccountRepo{
		accounts: map[string]*model.Account{"u1": acct},
		teams: map[string]*model.Team{
			"t1": {ID: "t1", Name: "Acme", PlanType: model.PlanCorporate, PlanExpiresAt: &lapsed},
		},
	}
	svc := NewEntitlementService(repo, nil, zerolog.Nop()).(*entitlementService)
	svc.now = func() time.Time { return now }

	// The lapsed CORPORATE grant confers nothing: the member resolves to
	// their individual FREE plan, not the team's unlimited limits.
	ent, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, ent.Plan)
	assert.False(t, ent.Limits.Unlimited())
	assert.Nil(t, ent.TeamID)
	assert.Nil(t, ent.ExpiresAt)
}

func TestResolveTeamExpiryBoundaryExactInstantStillGrants(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	teamID := "t1"
	at := now
	acct := accountFixture("u1", model.PlanFree)
	acct.TeamID = &teamID
	repo := &fakeAccountRepo{
		accounts: map[string]*model.Account{"u1": acct},
		teams: map[string]*model.Team{
			"t1": {ID: "t1", Name: "Acme", PlanType: model.PlanCorporate, PlanExpiresAt: &at},
		},
	}
	svc := NewEntitlementService(repo, nil, zerolog.Nop()).(*entitlementService)
	svc.now = func() time.Time { return now }

	// Expiry requires now strictly after the boundary.
	ent, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanCorporate, ent.Plan)
}

func TestResolveTrialExpiryField(t *testing.T) {
	trialEnd := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	planEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	// TRIAL without an explicit plan expiry uses trial_ends_at.
	trial := accountFixture("u1", model.PlanTrial)
	trial.TrialEndsAt = &trialEnd
	// An explicit plan expiry always wins, even on TRIAL.
	both := accountFixture("u2", model.PlanTrial)
	both.TrialEndsAt = &trialEnd
	both.PlanExpiresAt = &planEnd
	// Non-trial plans ignore trial_ends_at entirely.
	pro := accountFixture("u3", model.PlanPro)
	pro.TrialEndsAt = &trialEnd

	repo := &fakeAccountRepo{accounts: map[string]*model.Account{"u1": trial, "u2": both, "u3": pro}}
	svc := NewEntitlementService(repo, nil, zerolog.Nop())

	ent, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, &trialEnd, ent.ExpiresAt)

	ent, err = svc.Resolve(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, &planEnd, ent.ExpiresAt)

	ent, err = svc.Resolve(context.Background(), "u3")
	require.NoError(t, err)
	assert.Nil(t, ent.ExpiresAt)
}

func TestResolveFailsClosed(t *testing.T) {
	repo := &fakeAccountRepo{accountErr: errors.New("directory down")}
	svc := NewEntitlementService(repo, nil, zerolog.Nop())

	_, err := svc.Resolve(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrEntitlementUnavailable)

	// Team lookup failure (other than a missing row) also fails closed.
	teamID := "t1"
	acct := accountFixture("u2", model.PlanFree)
	acct.TeamID = &teamID
	repo = &fakeAccountRepo{
		accounts: map[string]*model.Account{"u2": acct},
		teamErr:  errors.New("directory down"),
	}
	svc = NewEntitlementService(repo, nil, zerolog.Nop())
	_, err = svc.Resolve(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrEntitlementUnavailable)
}

func TestResolveUsesSnapshotCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := &fakeAccountRepo{accounts: map[string]*model.Account{
		"u1": accountFixture("u1", model.PlanPro),
	}}
	svc := NewEntitlementService(repo, cache, zerolog.Nop())

	first, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)

	// The directory can go away entirely; the snapshot still serves.
	repo.accountErr = errors.New("directory down")
	second, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, first.Plan, second.Plan)
	assert.Equal(t, first.Limits, second.Limits)
}

func TestInvalidateDropsSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := &fakeAccountRepo{accounts: map[string]*model.Account{
		"u1": accountFixture("u1", model.PlanPro),
	}}
	svc := NewEntitlementService(repo, cache, zerolog.Nop())

	_, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)

	// Plan change becomes visible only after invalidation.
	repo.accounts["u1"].PlanType = model.PlanFree
	ent, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, ent.Plan)

	svc.Invalidate(context.Background(), "u1")
	ent, err = svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, ent.Plan)
}

func TestResolveIdempotent(t *testing.T) {
	repo := &fakeAccountRepo{accounts: map[string]*model.Account{
		"u1": accountFixture("u1", model.PlanFree),
	}}
	svc := NewEntitlementService(repo, nil, zerolog.Nop())

	a, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	b, err := svc.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, a.Plan, b.Plan)
	assert.Equal(t, a.Limits, b.Limits)
	assert.Equal(t, a.Status, b.Status)
}
