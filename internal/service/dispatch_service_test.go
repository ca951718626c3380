package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vidiooh/internal/artifact"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatchForTest(t *testing.T, repo *fakeConversionRepo, store *fakeObjectStore, pub *fakePublisher) (DispatchService, *artifact.Store) {
	t.Helper()
	artifacts, err := artifact.NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)
	svc := NewDispatchService(repo, store, artifacts, pub, "conversion-events", zerolog.Nop()).(*dispatchService)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC) }
	return svc, artifacts
}

func writeArtifactFile(t *testing.T, artifacts *artifact.Store) (string, []byte) {
	t.Helper()
	path := artifacts.NewWorkPath(".mp4")
	data := []byte("encoded-video-bytes")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}

func TestBuildFileName(t *testing.T) {
	at := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		meta DispatchMeta
		want string
	}{
		{
			name: "campaign name wins over original filename",
			meta: DispatchMeta{CampaignName: "Spring Sale", OriginalName: "raw.mov", FormatLabel: "1280 x 720", Duration: 10},
			want: "Spring_Sale_10s_1280x720_15-03-2026_14-30.mp4",
		},
		{
			name: "falls back to original basename without extension",
			meta: DispatchMeta{OriginalName: "my clip.mov", FormatLabel: "1280 x 616", Duration: 7},
			want: "my_clip_7s_1280x616_15-03-2026_14-30.mp4",
		},
		{
			name: "whitespace runs collapse to one underscore",
			meta: DispatchMeta{CampaignName: "big   summer\tsale", OriginalName: "x.mp4", FormatLabel: "1280 x 720", Duration: 14},
			want: "big_summer_sale_14s_1280x720_15-03-2026_14-30.mp4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFileName(tt.meta, at))
		})
	}
}

func TestFinalizeLocalOnly(t *testing.T) {
	repo := &fakeConversionRepo{}
	store := newFakeObjectStore()
	pub := &fakePublisher{}
	svc, artifacts := newDispatchForTest(t, repo, store, pub)

	path, data := writeArtifactFile(t, artifacts)
	res, err := svc.Finalize(context.Background(), path, data, DispatchMeta{
		AccountID:    "u1",
		OriginalName: "clip.mov",
		FormatLabel:  "1280 x 720",
		Duration:     10,
	}, false)
	require.NoError(t, err)

	// The artifact is downloadable by token.
	entry, err := artifacts.Get(res.LocalToken)
	require.NoError(t, err)
	assert.Equal(t, res.FinalName, entry.Name)

	// Exactly one log row, no remote path, zero uploads.
	require.Len(t, repo.logs, 1)
	assert.Nil(t, repo.logs[0].FilePath)
	assert.Empty(t, store.uploads)
	assert.Nil(t, res.RemotePath)
}

func TestFinalizePersistRemote(t *testing.T) {
	repo := &fakeConversionRepo{}
	store := newFakeObjectStore()
	svc, artifacts := newDispatchForTest(t, repo, store, &fakePublisher{})

	path, data := writeArtifactFile(t, artifacts)
	res, err := svc.Finalize(context.Background(), path, data, DispatchMeta{
		AccountID:    "u1",
		CampaignName: "launch",
		OriginalName: "clip.mov",
		FormatLabel:  "1280 x 720",
		Duration:     10,
	}, true)
	require.NoError(t, err)

	require.NotNil(t, res.RemotePath)
	// Key is namespaced by account and stamped with upload millis.
	assert.Equal(t, "u1", filepath.Dir(*res.RemotePath))
	assert.Contains(t, *res.RemotePath, res.FinalName)
	assert.Contains(t, store.uploads, *res.RemotePath)

	require.Len(t, repo.logs, 1)
	assert.Equal(t, res.RemotePath, repo.logs[0].FilePath)
}

func TestFinalizeUploadFailureFailsOperation(t *testing.T) {
	repo := &fakeConversionRepo{}
	store := newFakeObjectStore()
	store.uploadErr = errors.New("bucket gone")
	svc, artifacts := newDispatchForTest(t, repo, store, &fakePublisher{})

	path, data := writeArtifactFile(t, artifacts)
	_, err := svc.Finalize(context.Background(), path, data, DispatchMeta{
		AccountID:    "u1",
		OriginalName: "clip.mov",
		FormatLabel:  "1280 x 720",
		Duration:     10,
	}, true)
	assert.ErrorIs(t, err, ErrUploadFailure)
	// No log row for a failed persistence request.
	assert.Empty(t, repo.logs)
}

func TestFinalizeLogFailureKeepsArtifact(t *testing.T) {
	repo := &fakeConversionRepo{insertErr: errors.New("db down")}
	store := newFakeObjectStore()
	svc, artifacts := newDispatchForTest(t, repo, store, &fakePublisher{})

	path, data := writeArtifactFile(t, artifacts)
	res, err := svc.Finalize(context.Background(), path, data, DispatchMeta{
		AccountID:    "u1",
		OriginalName: "clip.mov",
		FormatLabel:  "1280 x 720",
		Duration:     10,
	}, false)
	// The download must survive a failed history write.
	require.NoError(t, err)
	_, err = artifacts.Get(res.LocalToken)
	assert.NoError(t, err)
	assert.Empty(t, res.LogID)
}

func TestFinalizePublishesCompletionEvent(t *testing.T) {
	repo := &fakeConversionRepo{}
	pub := &fakePublisher{}
	svc, artifacts := newDispatchForTest(t, repo, newFakeObjectStore(), pub)

	path, data := writeArtifactFile(t, artifacts)
	_, err := svc.Finalize(context.Background(), path, data, DispatchMeta{
		AccountID:    "u1",
		OriginalName: "clip.mov",
		FormatLabel:  "1280 x 720",
		Duration:     10,
	}, false)
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.Equal(t, []string{"conversion-events"}, pub.topics)

	var event map[string]any
	require.NoError(t, json.Unmarshal(pub.published[0], &event))
	assert.Equal(t, "conversion.completed", event["event"])
	assert.Equal(t, "u1", event["user_id"])
}

func TestFinalizePublishFailureIsSilent(t *testing.T) {
	repo := &fakeConversionRepo{}
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, artifacts := newDispatchForTest(t, repo, newFakeObjectStore(), pub)

	path, data := writeArtifactFile(t, artifacts)
	_, err := svc.Finalize(context.Background(), path, data, DispatchMeta{
		AccountID:    "u1",
		OriginalName: "clip.mov",
		FormatLabel:  "1280 x 720",
		Duration:     10,
	}, false)
	assert.NoError(t, err)
}
