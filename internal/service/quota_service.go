package service

import (
	"context"
	"time"

	"vidiooh/internal/model"
	"vidiooh/internal/repository"

	"github.com/rs/zerolog"
)

// QuotaService is the pre-flight gate deciding whether a conversion is
// permitted. Checks run strictly in order and the first failure wins:
// banned, file size, orientation, monthly count. The gate is a pure read;
// the log row is written only after a successful transcode, so two
// concurrent requests can both pass before either is logged. That
// transient over-quota window is accepted behavior for a monthly
// human-paced ceiling, not a defect.
type QuotaService interface {
	// CheckUpload gates what needs nothing from the file's content: ban
	// status and file size. It runs before the input is probed.
	CheckUpload(ctx context.Context, ent *model.Entitlement, fileSizeBytes int64) error
	// CheckMedia gates orientation and the monthly ceiling once the
	// input's metadata is known.
	CheckMedia(ctx context.Context, ent *model.Entitlement, source, target model.Orientation) error
	// Check runs the full gate at once for callers holding the complete
	// input.
	Check(ctx context.Context, ent *model.Entitlement, fileSizeBytes int64, source, target model.Orientation) error
	// Usage reports where the account stands in the current cycle.
	Usage(ctx context.Context, ent *model.Entitlement) (*model.UsageSummary, error)
}

type quotaService struct {
	conversions repository.ConversionRepository
	now         func() time.Time
	logger      zerolog.Logger
}

func NewQuotaService(conversions repository.ConversionRepository, logger zerolog.Logger) QuotaService {
	return &quotaService{
		conversions: conversions,
		now:         time.Now,
		logger:      logger.With().Str("service", "QuotaService").Logger(),
	}
}

// monthStart is the first calendar day of the current month at midnight.
// Server clock, UTC: quota resets do not follow the end-user's timezone.
func monthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (s *quotaService) CheckUpload(ctx context.Context, ent *model.Entitlement, fileSizeBytes int64) error {
	if ent.Status == model.StatusBanned {
		return ErrBanned
	}

	if fileSizeBytes > ent.Limits.MaxFileBytes {
		return ErrFileTooLarge
	}
	return nil
}

func (s *quotaService) CheckMedia(ctx context.Context, ent *model.Entitlement, source, target model.Orientation) error {
	if source.Conflicts(target) {
		return ErrOrientationMismatch
	}

	if ent.Limits.Unlimited() {
		return nil
	}

	used, err := s.conversions.CountSince(ctx, ent.AccountID, monthStart(s.now()))
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", ent.AccountID).Msg("Failed to count monthly conversions, failing closed")
		return ErrEntitlementUnavailable
	}
	if used >= ent.Limits.MonthlyConversions {
		return &MonthlyLimitError{Used: used, Limit: ent.Limits.MonthlyConversions}
	}
	return nil
}

func (s *quotaService) Check(ctx context.Context, ent *model.Entitlement, fileSizeBytes int64, source, target model.Orientation) error {
	if err := s.CheckUpload(ctx, ent, fileSizeBytes); err != nil {
		return err
	}
	return s.CheckMedia(ctx, ent, source, target)
}

func (s *quotaService) Usage(ctx context.Context, ent *model.Entitlement) (*model.UsageSummary, error) {
	used, err := s.conversions.CountSince(ctx, ent.AccountID, monthStart(s.now()))
	if err != nil {
		return nil, err
	}

	videos, bytes, stored, err := s.conversions.Aggregate(ctx, ent.AccountID)
	if err != nil {
		return nil, err
	}
	return &model.UsageSummary{
		MonthUsed:    used,
		MonthLimit:   ent.Limits.MonthlyConversions,
		TotalVideos:  videos,
		TotalBytes:   bytes,
		StoredVideos: stored,
	}, nil
}
