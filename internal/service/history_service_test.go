package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"vidiooh/internal/model"
	"vidiooh/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryListHidesDeleted(t *testing.T) {
	now := time.Now()
	deletedAt := now.Add(-time.Minute)
	repo := &fakeConversionRepo{logs: []model.ConversionLog{
		{ID: "a", UserID: "u1", CreatedAt: now},
		{ID: "b", UserID: "u1", CreatedAt: now, DeletedAt: &deletedAt},
		{ID: "c", UserID: "u2", CreatedAt: now},
	}}
	svc := NewHistoryService(repo, newFakeObjectStore(), zerolog.Nop())

	logs, err := svc.List(context.Background(), "u1", 50, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "a", logs[0].ID)
}

func TestHistoryDeleteSoftDeletesAndRemovesObject(t *testing.T) {
	path := "u1/123_ad.mp4"
	repo := &fakeConversionRepo{logs: []model.ConversionLog{
		{ID: "a", UserID: "u1", FilePath: &path, CreatedAt: time.Now()},
	}}
	store := newFakeObjectStore()
	store.uploads[path] = []byte("x")
	svc := NewHistoryService(repo, store, zerolog.Nop())

	require.NoError(t, svc.Delete(context.Background(), "u1", "a"))

	assert.Equal(t, []string{path}, store.deletes)
	assert.NotNil(t, repo.logs[0].DeletedAt)
}

func TestHistoryDeleteStorageFailureStillHidesRow(t *testing.T) {
	path := "u1/123_ad.mp4"
	repo := &fakeConversionRepo{logs: []model.ConversionLog{
		{ID: "a", UserID: "u1", FilePath: &path, CreatedAt: time.Now()},
	}}
	store := newFakeObjectStore()
	store.deleteErr = errors.New("bucket down")
	svc := NewHistoryService(repo, store, zerolog.Nop())

	require.NoError(t, svc.Delete(context.Background(), "u1", "a"))
	assert.NotNil(t, repo.logs[0].DeletedAt)
}

func TestHistoryDeleteOwnershipAndMissing(t *testing.T) {
	repo := &fakeConversionRepo{logs: []model.ConversionLog{
		{ID: "a", UserID: "u1", CreatedAt: time.Now()},
	}}
	svc := NewHistoryService(repo, newFakeObjectStore(), zerolog.Nop())

	assert.ErrorIs(t, svc.Delete(context.Background(), "u2", "a"), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), "u1", "nope"), repository.ErrNotFound)
}

func TestHistoryListClampsPaging(t *testing.T) {
	repo := &fakeConversionRepo{}
	for i := 0; i < 120; i++ {
		repo.logs = append(repo.logs, model.ConversionLog{ID: string(rune(i)), UserID: "u1", CreatedAt: time.Now()})
	}
	svc := NewHistoryService(repo, newFakeObjectStore(), zerolog.Nop())

	logs, err := svc.List(context.Background(), "u1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 50)

	logs, err = svc.List(context.Background(), "u1", 1000, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 50)
}
