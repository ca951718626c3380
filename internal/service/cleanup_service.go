package service

import (
	"context"
	"time"

	"vidiooh/internal/model"
	"vidiooh/internal/repository"
	"vidiooh/internal/storage"

	"github.com/rs/zerolog"
)

// CleanupService enforces the retention policy: persisted artifacts on
// plans without durable history are removed, objects first, after the
// retention window passes. Plans with a history entitlement keep their
// artifacts for the retention job of their own tier (out of scope here).
type CleanupService interface {
	// Sweep removes expired artifacts and their log rows. Returns the
	// number of rows removed.
	Sweep(ctx context.Context) (int, error)
}

type cleanupService struct {
	conversions repository.ConversionRepository
	store       storage.ObjectStore
	retention   time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

func NewCleanupService(conversions repository.ConversionRepository, store storage.ObjectStore, retention time.Duration, logger zerolog.Logger) CleanupService {
	return &cleanupService{
		conversions: conversions,
		store:       store,
		retention:   retention,
		now:         time.Now,
		logger:      logger.With().Str("service", "CleanupService").Logger(),
	}
}

// ephemeralPlans are the tiers whose plans carry no durable history
// (historyDays = 0); only their artifacts are swept.
func ephemeralPlans() []string {
	var plans []string
	for _, p := range []model.PlanType{model.PlanFree, model.PlanTrial, model.PlanPro, model.PlanCorporate} {
		if model.LimitsFor(p).HistoryDays == 0 {
			plans = append(plans, string(p))
		}
	}
	return plans
}

func (s *cleanupService) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)
	logs, err := s.conversions.SweepBefore(ctx, cutoff, ephemeralPlans())
	if err != nil {
		s.logger.Error().Err(err).Msg("Retention sweep query failed")
		return 0, err
	}
	if len(logs) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(logs))
	for _, log := range logs {
		if log.FilePath != nil {
			if err := s.store.Delete(ctx, *log.FilePath); err != nil {
				// Keep the row so the next sweep retries the object.
				s.logger.Warn().Err(err).Str("path", *log.FilePath).Msg("Failed to remove expired object, will retry")
				continue
			}
		}
		ids = append(ids, log.ID)
	}

	if err := s.conversions.HardDelete(ctx, ids); err != nil {
		return 0, err
	}
	s.logger.Info().Int("removed", len(ids)).Time("cutoff", cutoff).Msg("Retention sweep complete")
	return len(ids), nil
}
