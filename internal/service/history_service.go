package service

import (
	"context"
	"time"

	"vidiooh/internal/model"
	"vidiooh/internal/repository"
	"vidiooh/internal/storage"

	"github.com/rs/zerolog"
)

// HistoryService serves the user-visible conversion history. Deletion is a
// soft-delete: the row is hidden from listings while the physical storage
// object is removed, so usage aggregates never shrink.
type HistoryService interface {
	List(ctx context.Context, accountID string, limit, offset int) ([]model.ConversionLog, error)
	Delete(ctx context.Context, accountID, logID string) error
}

type historyService struct {
	conversions repository.ConversionRepository
	store       storage.ObjectStore
	now         func() time.Time
	logger      zerolog.Logger
}

func NewHistoryService(conversions repository.ConversionRepository, store storage.ObjectStore, logger zerolog.Logger) HistoryService {
	return &historyService{
		conversions: conversions,
		store:       store,
		now:         time.Now,
		logger:      logger.With().Str("service", "HistoryService").Logger(),
	}
}

func (s *historyService) List(ctx context.Context, accountID string, limit, offset int) ([]model.ConversionLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.conversions.ListActive(ctx, accountID, limit, offset)
}

func (s *historyService) Delete(ctx context.Context, accountID, logID string) error {
	log, err := s.conversions.GetByID(ctx, logID)
	if err != nil {
		return err
	}
	if log.UserID != accountID {
		return ErrForbidden
	}

	// Physical object removal happens regardless of the logical
	// soft-delete; a failure here is logged but does not block hiding the
	// row, matching the original's best-effort storage cleanup.
	if log.FilePath != nil {
		if err := s.store.Delete(ctx, *log.FilePath); err != nil {
			s.logger.Warn().Err(err).Str("log_id", logID).Str("path", *log.FilePath).Msg("Failed to remove storage object")
		}
	}

	return s.conversions.MarkDeleted(ctx, logID, s.now())
}
