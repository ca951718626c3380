package service

import (
	"context"
	"errors"
	"fmt"

	"vidiooh/internal/model"
	"vidiooh/internal/repository"

	"github.com/rs/zerolog"
)

// FormatService manages user-defined output geometries. The plan's format
// limit is enforced at creation time only; a later downgrade does not
// retroactively delete formats.
type FormatService interface {
	// List returns the built-in defaults followed by the account's custom
	// formats.
	List(ctx context.Context, accountID string) ([]model.OutputFormat, error)
	Create(ctx context.Context, ent *model.Entitlement, label string, width, height int) (*model.CustomFormat, error)
	Update(ctx context.Context, accountID, formatID, label string, width, height int) (*model.CustomFormat, error)
	Delete(ctx context.Context, accountID, formatID string) error
	// ResolveOutput maps a format id (default or custom) to its geometry.
	ResolveOutput(ctx context.Context, accountID, formatID string) (*model.OutputFormat, error)
}

type formatService struct {
	repo   repository.FormatRepository
	logger zerolog.Logger
}

func NewFormatService(repo repository.FormatRepository, logger zerolog.Logger) FormatService {
	return &formatService{
		repo:   repo,
		logger: logger.With().Str("service", "FormatService").Logger(),
	}
}

func (s *formatService) List(ctx context.Context, accountID string) ([]model.OutputFormat, error) {
	out := model.DefaultFormats()
	custom, err := s.repo.ListByUser(ctx, accountID)
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to list custom formats")
		return nil, err
	}
	for _, f := range custom {
		out = append(out, model.OutputFormat{ID: f.ID, Label: f.Label, Width: f.Width, Height: f.Height})
	}
	return out, nil
}

func (s *formatService) Create(ctx context.Context, ent *model.Entitlement, label string, width, height int) (*model.CustomFormat, error) {
	if label == "" || width <= 0 || height <= 0 {
		return nil, ErrInvalidRequest
	}
	if ent.Limits.MaxFormats > 0 {
		count, err := s.repo.CountByUser(ctx, ent.AccountID)
		if err != nil {
			return nil, fmt.Errorf("count formats: %w", err)
		}
		if count >= ent.Limits.MaxFormats {
			return nil, ErrFormatLimit
		}
	}
	f := &model.CustomFormat{
		UserID: ent.AccountID,
		Label:  label,
		Width:  width,
		Height: height,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		s.logger.Error().Err(err).Str("account_id", ent.AccountID).Msg("Failed to create custom format")
		return nil, err
	}
	return f, nil
}

func (s *formatService) Update(ctx context.Context, accountID, formatID, label string, width, height int) (*model.CustomFormat, error) {
	if label == "" || width <= 0 || height <= 0 {
		return nil, ErrInvalidRequest
	}
	f, err := s.owned(ctx, accountID, formatID)
	if err != nil {
		return nil, err
	}
	f.Label = label
	f.Width = width
	f.Height = height
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *formatService) Delete(ctx context.Context, accountID, formatID string) error {
	if _, err := s.owned(ctx, accountID, formatID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, formatID)
}

func (s *formatService) owned(ctx context.Context, accountID, formatID string) (*model.CustomFormat, error) {
	f, err := s.repo.GetByID(ctx, formatID)
	if err != nil {
		return nil, err
	}
	if f.UserID != accountID {
		return nil, ErrForbidden
	}
	return f, nil
}

func (s *formatService) ResolveOutput(ctx context.Context, accountID, formatID string) (*model.OutputFormat, error) {
	for _, f := range model.DefaultFormats() {
		if f.ID == formatID {
			return &f, nil
		}
	}
	custom, err := s.owned(ctx, accountID, formatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRequest
		}
		return nil, err
	}
	return &model.OutputFormat{ID: custom.ID, Label: custom.Label, Width: custom.Width, Height: custom.Height}, nil
}
