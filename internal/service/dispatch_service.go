package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"vidiooh/internal/artifact"
	"vidiooh/internal/model"
	"vidiooh/internal/pubsub"
	"vidiooh/internal/repository"
	"vidiooh/internal/storage"

	"github.com/rs/zerolog"
)

// DispatchMeta carries the naming and logging inputs for a finished
// transcode.
type DispatchMeta struct {
	AccountID    string
	CampaignName string
	OriginalName string
	FormatLabel  string
	Duration     int
}

// DispatchResult is the outcome of finalizing an artifact.
type DispatchResult struct {
	LocalToken string
	FinalName  string
	Size       int64
	RemotePath *string
	LogID      string
}

// DispatchService finalizes a transcoded artifact: it always registers a
// local download handle, optionally persists a copy to object storage, and
// writes the conversion log row that counts against quota.
type DispatchService interface {
	Finalize(ctx context.Context, outputPath string, data []byte, meta DispatchMeta, persistRemote bool) (*DispatchResult, error)
}

type dispatchService struct {
	conversions repository.ConversionRepository
	store       storage.ObjectStore
	artifacts   *artifact.Store
	publisher   pubsub.Publisher
	eventTopic  string
	now         func() time.Time
	logger      zerolog.Logger
}

func NewDispatchService(
	conversions repository.ConversionRepository,
	store storage.ObjectStore,
	artifacts *artifact.Store,
	publisher pubsub.Publisher,
	eventTopic string,
	logger zerolog.Logger,
) DispatchService {
	return &dispatchService{
		conversions: conversions,
		store:       store,
		artifacts:   artifacts,
		publisher:   publisher,
		eventTopic:  eventTopic,
		now:         time.Now,
		logger:      logger.With().Str("service", "DispatchService").Logger(),
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// buildFileName constructs the canonical artifact name:
// {campaign-or-basename}_{duration}s_{label sans spaces}_{dd-mm-yyyy_hh-mm}.mp4.
// A supplied campaign name wins over the original filename; whitespace
// collapses to underscores.
func buildFileName(meta DispatchMeta, at time.Time) string {
	base := strings.TrimSpace(meta.CampaignName)
	if base == "" {
		base = strings.TrimSuffix(meta.OriginalName, filepath.Ext(meta.OriginalName))
	}
	base = whitespace.ReplaceAllString(base, "_")
	label := strings.ReplaceAll(meta.FormatLabel, " ", "")
	stamp := at.Format("02-01-2006_15-04")
	return fmt.Sprintf("%s_%ds_%s_%s.mp4", base, meta.Duration, label, stamp)
}

func (s *dispatchService) Finalize(ctx context.Context, outputPath string, data []byte, meta DispatchMeta, persistRemote bool) (*DispatchResult, error) {
	finalName := buildFileName(meta, s.now())
	size := int64(len(data))

	// The local handle exists regardless of persistence: download must
	// work with zero network round-trips.
	entry := s.artifacts.Register(outputPath, finalName, size)

	result := &DispatchResult{
		LocalToken: entry.Token,
		FinalName:  finalName,
		Size:       size,
	}

	var remotePath *string
	if persistRemote {
		key := fmt.Sprintf("%s/%d_%s", meta.AccountID, s.now().UnixMilli(), finalName)
		path, err := s.store.Upload(ctx, key, data, "video/mp4")
		if err != nil {
			// The user opted into durable history; a silent local-only
			// downgrade would violate that expectation.
			s.logger.Error().Err(err).Str("account_id", meta.AccountID).Str("key", key).Msg("Artifact upload failed")
			return nil, fmt.Errorf("%w: %v", ErrUploadFailure, err)
		}
		remotePath = &path
		result.RemotePath = remotePath
	}

	log := &model.ConversionLog{
		UserID:       meta.AccountID,
		OriginalName: finalName,
		OutputFormat: meta.FormatLabel,
		Duration:     meta.Duration,
		FileSize:     size,
		FilePath:     remotePath,
	}
	if err := s.conversions.Insert(ctx, log); err != nil {
		// The artifact is already produced and, when requested, uploaded.
		// A failed history record must not take the download away from
		// the user.
		s.logger.Error().Err(err).Str("account_id", meta.AccountID).Msg("Failed to write conversion log, artifact stays downloadable")
		return result, nil
	}
	result.LogID = log.ID

	s.publishCompleted(ctx, log)
	return result, nil
}

// publishCompleted emits a conversion.completed event for downstream
// consumers. Publish failures are logged, never surfaced: the conversion
// itself already succeeded.
func (s *dispatchService) publishCompleted(ctx context.Context, log *model.ConversionLog) {
	if s.publisher == nil || s.eventTopic == "" {
		return
	}
	payload := struct {
		Event     string    `json:"event"`
		LogID     string    `json:"log_id"`
		UserID    string    `json:"user_id"`
		Format    string    `json:"format"`
		Duration  int       `json:"duration"`
		FileSize  int64     `json:"file_size"`
		Persisted bool      `json:"persisted"`
		At        time.Time `json:"at"`
	}{
		Event:     "conversion.completed",
		LogID:     log.ID,
		UserID:    log.UserID,
		Format:    log.OutputFormat,
		Duration:  log.Duration,
		FileSize:  log.FileSize,
		Persisted: log.FilePath != nil,
		At:        log.CreatedAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("log_id", log.ID).Msg("Failed to marshal conversion event")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.eventTopic, data); err != nil {
		s.logger.Error().Err(err).Str("topic", s.eventTopic).Msg("Failed to publish conversion event")
	}
}
