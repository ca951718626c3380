package service

import (
	"context"
	"os"
	"time"

	"vidiooh/internal/artifact"
	"vidiooh/internal/metrics"
	"vidiooh/internal/model"

	"github.com/rs/zerolog"
)

// ConvertInput is one conversion request after the upload has been spooled
// to local disk.
type ConvertInput struct {
	InputPath     string
	OriginalName  string
	FileSize      int64
	FormatID      string
	Duration      int
	CampaignName  string
	PersistRemote bool
}

// ConvertResult is what the caller gets back on success.
type ConvertResult struct {
	LocalToken string  `json:"local_token"`
	FinalName  string  `json:"final_name"`
	Size       int64   `json:"size"`
	RemotePath *string `json:"remote_path,omitempty"`
}

// ConversionService runs the full pipeline for one request, strictly in
// order: ban/size gate, metadata probe, orientation/monthly gate,
// transcode, dispatch. Gating denials are returned before any encode
// work starts and never reach the codec.
type ConversionService interface {
	Convert(ctx context.Context, ent *model.Entitlement, in ConvertInput) (*ConvertResult, error)
}

type conversionService struct {
	quota     QuotaService
	formats   FormatService
	transcode TranscodeService
	dispatch  DispatchService
	artifacts *artifact.Store
	logger    zerolog.Logger
}

func NewConversionService(
	quota QuotaService,
	formats FormatService,
	transcode TranscodeService,
	dispatch DispatchService,
	artifacts *artifact.Store,
	logger zerolog.Logger,
) ConversionService {
	return &conversionService{
		quota:     quota,
		formats:   formats,
		transcode: transcode,
		dispatch:  dispatch,
		artifacts: artifacts,
		logger:    logger.With().Str("service", "ConversionService").Logger(),
	}
}

func (s *conversionService) Convert(ctx context.Context, ent *model.Entitlement, in ConvertInput) (*ConvertResult, error) {
	format, err := s.formats.ResolveOutput(ctx, ent.AccountID, in.FormatID)
	if err != nil {
		return nil, err
	}

	// Ban and size gating need nothing from the file, so an unreadable
	// upload still surfaces those denials instead of a probe failure.
	if err := s.quota.CheckUpload(ctx, ent, in.FileSize); err != nil {
		metrics.GateDenialsTotal.WithLabelValues(DenialReason(err)).Inc()
		return nil, err
	}

	info, err := s.transcode.Probe(ctx, in.InputPath)
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues("probe_failure").Inc()
		return nil, err
	}

	target := model.OrientationOf(format.Width, format.Height)
	if err := s.quota.CheckMedia(ctx, ent, info.Orientation(), target); err != nil {
		metrics.GateDenialsTotal.WithLabelValues(DenialReason(err)).Inc()
		return nil, err
	}

	outputPath := s.artifacts.NewWorkPath(".mp4")
	start := time.Now()
	err = s.transcode.Transcode(ctx, TranscodeRequest{
		InputPath:      in.InputPath,
		OutputPath:     outputPath,
		TargetWidth:    format.Width,
		TargetHeight:   format.Height,
		TargetDuration: in.Duration,
		ProbedDuration: info.Duration,
	})
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues("codec_failure").Inc()
		return nil, err
	}
	metrics.TranscodeDuration.Observe(time.Since(start).Seconds())

	data, err := os.ReadFile(outputPath)
	if err != nil {
		s.logger.Error().Err(err).Str("path", outputPath).Msg("Failed to read encoded artifact")
		metrics.ConversionsTotal.WithLabelValues("codec_failure").Inc()
		return nil, ErrCodecFailure
	}

	res, err := s.dispatch.Finalize(ctx, outputPath, data, DispatchMeta{
		AccountID:    ent.AccountID,
		CampaignName: in.CampaignName,
		OriginalName: in.OriginalName,
		FormatLabel:  format.Label,
		Duration:     in.Duration,
	}, in.PersistRemote)
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues("upload_failure").Inc()
		return nil, err
	}

	metrics.ConversionsTotal.WithLabelValues("success").Inc()
	s.logger.Info().
		Str("account_id", ent.AccountID).
		Str("format", format.Label).
		Int("duration", in.Duration).
		Int64("size", res.Size).
		Bool("persisted", in.PersistRemote).
		Msg("Conversion complete")

	return &ConvertResult{
		LocalToken: res.LocalToken,
		FinalName:  res.FinalName,
		Size:       res.Size,
		RemotePath: res.RemotePath,
	}, nil
}
