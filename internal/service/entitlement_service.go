package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"vidiooh/internal/model"
	"vidiooh/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// snapshotTTL bounds staleness between watcher invalidations. The watcher
// invalidates eagerly on every account-row change; the TTL only covers
// missed notifications.
const snapshotTTL = 5 * time.Minute

// EntitlementService resolves the effective plan/status/expiration for an
// account. An unexpired team plan wins over individual plan fields; a
// lapsed or dangling team grant falls back to them.
type EntitlementService interface {
	Resolve(ctx context.Context, accountID string) (*model.Entitlement, error)
	// Invalidate drops the cached snapshot so the next Resolve hits the
	// directory.
	Invalidate(ctx context.Context, accountID string)
}

type entitlementService struct {
	repo   repository.AccountRepository
	cache  *redis.Client
	now    func() time.Time
	logger zerolog.Logger
}

// NewEntitlementService creates an EntitlementService. The cache client is
// optional; with a nil client every Resolve reads the directory.
func NewEntitlementService(repo repository.AccountRepository, cache *redis.Client, logger zerolog.Logger) EntitlementService {
	return &entitlementService{
		repo:   repo,
		cache:  cache,
		now:    time.Now,
		logger: logger.With().Str("service", "EntitlementService").Logger(),
	}
}

func snapshotKey(accountID string) string {
	return "entitlement:" + accountID
}

// Resolve returns the entitlement snapshot for the account, from cache
// when fresh. Any directory failure fails closed with
// ErrEntitlementUnavailable.
func (s *entitlementService) Resolve(ctx context.Context, accountID string) (*model.Entitlement, error) {
	if ent := s.cached(ctx, accountID); ent != nil {
		return ent, nil
	}

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to fetch account, failing closed")
		return nil, ErrEntitlementUnavailable
	}

	ent := &model.Entitlement{
		AccountID:  account.ID,
		Plan:       account.PlanType,
		Status:     account.Status,
		TeamID:     account.TeamID,
		ResolvedAt: s.now(),
	}

	if account.TeamID != nil {
		team, err := s.repo.GetTeam(ctx, *account.TeamID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Team row gone (deleted by admin): member falls back to
				// individual plan fields.
				s.logger.Warn().Str("account_id", accountID).Str("team_id", *account.TeamID).Msg("Team reference is dangling, using individual plan")
				ent.TeamID = nil
				s.applyIndividualExpiry(ent, account)
			} else {
				s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to fetch team, failing closed")
				return nil, ErrEntitlementUnavailable
			}
		} else if team.PlanExpiresAt != nil && s.now().After(*team.PlanExpiresAt) {
			// A lapsed team grant confers nothing. The member falls back to
			// individual plan fields like a dangling team; carrying the
			// team's expired plan forward would keep granting its limits,
			// since an expiry downgrade only resets account columns.
			s.logger.Info().Str("account_id", accountID).Str("team_id", *account.TeamID).Time("expired_at", *team.PlanExpiresAt).Msg("Team plan expired, using individual plan")
			ent.TeamID = nil
			s.applyIndividualExpiry(ent, account)
		} else {
			ent.Plan = team.PlanType
			ent.ExpiresAt = team.PlanExpiresAt
		}
	} else {
		s.applyIndividualExpiry(ent, account)
	}

	ent.Limits = model.LimitsFor(ent.Plan)
	s.store(ctx, ent)
	return ent, nil
}

func (s *entitlementService) applyIndividualExpiry(ent *model.Entitlement, account *model.Account) {
	if account.PlanExpiresAt != nil {
		ent.ExpiresAt = account.PlanExpiresAt
	} else if account.PlanType == model.PlanTrial {
		ent.ExpiresAt = account.TrialEndsAt
	}
}

func (s *entitlementService) Invalidate(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, snapshotKey(accountID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("account_id", accountID).Msg("Failed to invalidate entitlement snapshot")
	}
}

func (s *entitlementService) cached(ctx context.Context, accountID string) *model.Entitlement {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, snapshotKey(accountID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("account_id", accountID).Msg("Snapshot cache read failed")
		}
		return nil
	}
	var ent model.Entitlement
	if err := json.Unmarshal(raw, &ent); err != nil {
		s.logger.Warn().Err(err).Str("account_id", accountID).Msg("Dropping malformed cached snapshot")
		return nil
	}
	return &ent
}

func (s *entitlementService) store(ctx context.Context, ent *model.Entitlement) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(ent)
	if err != nil {
		s.logger.Warn().Err(err).Str("account_id", ent.AccountID).Msg("Failed to marshal entitlement snapshot")
		return
	}
	if err := s.cache.Set(ctx, snapshotKey(ent.AccountID), raw, snapshotTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("account_id", ent.AccountID).Msg("Snapshot cache write failed")
	}
}
