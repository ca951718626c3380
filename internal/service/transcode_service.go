package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"vidiooh/internal/model"

	"github.com/rs/zerolog"
)

// MediaInfo is the probed metadata of an input clip.
type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
	Codec    string
}

// Orientation classifies the probed frame.
func (m *MediaInfo) Orientation() model.Orientation {
	return model.OrientationOf(m.Width, m.Height)
}

// TranscodeRequest describes one scale/re-encode operation.
type TranscodeRequest struct {
	InputPath      string
	OutputPath     string
	TargetWidth    int
	TargetHeight   int
	TargetDuration int
	ProbedDuration float64
}

// TranscodeService drives the codec runtime: probes input metadata,
// normalizes duration via a presentation-timestamp factor, and re-encodes
// to the target geometry with audio stripped. The runtime is a managed
// resource: a slot semaphore serializes access since only a bounded number
// of encodes should run at once.
type TranscodeService interface {
	// Verify checks codec availability. Called once at startup; safe to
	// call again.
	Verify() error
	Probe(ctx context.Context, inputPath string) (*MediaInfo, error)
	Transcode(ctx context.Context, req TranscodeRequest) error
}

type transcodeService struct {
	ffmpegPath  string
	ffprobePath string
	slots       chan struct{}
	logger      zerolog.Logger
}

// NewTranscodeService creates a TranscodeService with the given number of
// concurrent encode slots (minimum 1).
func NewTranscodeService(ffmpegPath, ffprobePath string, slots int, logger zerolog.Logger) TranscodeService {
	if slots < 1 {
		slots = 1
	}
	return &transcodeService{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		slots:       make(chan struct{}, slots),
		logger:      logger.With().Str("service", "TranscodeService").Logger(),
	}
}

func (s *transcodeService) Verify() error {
	for _, bin := range []string{s.ffmpegPath, s.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("codec runtime unavailable: %s: %w", bin, err)
		}
	}
	return nil
}

// ffprobe JSON output shape, limited to the fields we read.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads duration, dimensions and codec from the input. Unreadable
// metadata or a zero duration is a ProbeFailure: the codec must never run
// with a zero-duration timestamp factor.
func (s *transcodeService) Probe(ctx context.Context, inputPath string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		s.logger.Error().Err(err).Str("stderr", stderr.String()).Msg("ffprobe failed")
		return nil, fmt.Errorf("%w: %v", ErrProbeFailure, err)
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("%w: unparseable probe output: %v", ErrProbeFailure, err)
	}

	info := &MediaInfo{}
	info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	for _, st := range out.Streams {
		if st.CodecType == "video" {
			info.Width = st.Width
			info.Height = st.Height
			info.Codec = st.CodecName
			break
		}
	}

	if info.Duration <= 0 || info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("%w: no readable video stream in %s", ErrProbeFailure, inputPath)
	}
	return info, nil
}

// evenDim clamps a dimension to the next lower even integer, minimum 2.
// The scale filter rejects odd dimensions with libx264 and treats 0 as
// "keep the input dimension"; user-supplied custom formats are silently
// adjusted rather than rejected.
func evenDim(d int) int {
	if d < 2 {
		return 2
	}
	return d &^ 1
}

// encodeArgs builds the ffmpeg argument list: scale to target geometry,
// 1:1 sample aspect, timestamp rescale for duration normalization, audio
// stripped, fast low-latency preset.
func encodeArgs(req TranscodeRequest, ptsFactor float64) []string {
	w := evenDim(req.TargetWidth)
	h := evenDim(req.TargetHeight)
	filter := fmt.Sprintf("scale=%d:%d,setsar=1:1,setpts=%s*PTS", w, h, strconv.FormatFloat(ptsFactor, 'f', -1, 64))
	return []string{
		"-y",
		"-i", req.InputPath,
		"-vf", filter,
		"-an",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		req.OutputPath,
	}
}

// Transcode acquires an encode slot, then runs the codec. The command runs
// under the caller's context, so cancellation kills an in-flight encode.
func (s *transcodeService) Transcode(ctx context.Context, req TranscodeRequest) error {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return ctx.Err()
	}

	if req.ProbedDuration <= 0 {
		return fmt.Errorf("%w: probed duration must be positive", ErrProbeFailure)
	}
	ptsFactor := float64(req.TargetDuration) / req.ProbedDuration

	args := encodeArgs(req, ptsFactor)
	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.logger.Debug().
		Str("input", req.InputPath).
		Int("width", req.TargetWidth).
		Int("height", req.TargetHeight).
		Float64("pts_factor", ptsFactor).
		Msg("Starting encode")

	if err := cmd.Run(); err != nil {
		s.logger.Error().Err(err).Str("stderr", tail(stderr.String(), 512)).Msg("ffmpeg failed")
		return fmt.Errorf("%w: %v", ErrCodecFailure, err)
	}

	st, err := os.Stat(req.OutputPath)
	if err != nil || st.Size() == 0 {
		return fmt.Errorf("%w: encode produced no output", ErrCodecFailure)
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
