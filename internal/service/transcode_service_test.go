package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestEvenDim(t *testing.T) {
	assert.Equal(t, 1280, evenDim(1280))
	assert.Equal(t, 616, evenDim(617))
	assert.Equal(t, 654, evenDim(655))
	// Rounding down to zero would make the scale filter keep the input
	// dimension instead of resizing.
	assert.Equal(t, 2, evenDim(1))
	assert.Equal(t, 2, evenDim(0))
}

func TestEncodeArgs(t *testing.T) {
	req := TranscodeRequest{
		InputPath:      "/tmp/in.mov",
		OutputPath:     "/tmp/out.mp4",
		TargetWidth:    1280,
		TargetHeight:   720,
		TargetDuration: 10,
		ProbedDuration: 20,
	}
	args := encodeArgs(req, 0.5)

	assert.Equal(t, []string{
		"-y",
		"-i", "/tmp/in.mov",
		"-vf", "scale=1280:720,setsar=1:1,setpts=0.5*PTS",
		"-an",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"/tmp/out.mp4",
	}, args)
}

func TestEncodeArgsOddDimensionsClamped(t *testing.T) {
	req := TranscodeRequest{TargetWidth: 1281, TargetHeight: 655}
	args := encodeArgs(req, 1)
	assert.Contains(t, args, "scale=1280:654,setsar=1:1,setpts=1*PTS")
}

func TestEncodeArgsPtsFactorFormatting(t *testing.T) {
	// The factor renders without exponent notation or trailing zeros.
	args := encodeArgs(TranscodeRequest{TargetWidth: 640, TargetHeight: 480}, 0.7777777777777778)
	assert.Contains(t, args[4], "setpts=0.7777777777777778*PTS")

	args = encodeArgs(TranscodeRequest{TargetWidth: 640, TargetHeight: 480}, 2)
	assert.Contains(t, args[4], "setpts=2*PTS")
}

func TestTranscodeRejectsZeroProbedDuration(t *testing.T) {
	svc := NewTranscodeService("ffmpeg", "ffprobe", 1, zerolog.Nop())
	err := svc.Transcode(context.Background(), TranscodeRequest{ProbedDuration: 0})
	assert.ErrorIs(t, err, ErrProbeFailure)
}

func TestTranscodeSlotHonorsContext(t *testing.T) {
	svc := NewTranscodeService("ffmpeg", "ffprobe", 1, zerolog.Nop()).(*transcodeService)

	// Occupy the only slot.
	svc.slots <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := svc.Transcode(ctx, TranscodeRequest{ProbedDuration: 10})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMediaInfoOrientation(t *testing.T) {
	info := &MediaInfo{Width: 1920, Height: 1080}
	assert.Equal(t, "horizontal", string(info.Orientation()))
	info = &MediaInfo{Width: 608, Height: 1080}
	assert.Equal(t, "vertical", string(info.Orientation()))
}
