package service

import (
	"context"
	"testing"

	"vidiooh/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatListIncludesDefaultsAndCustom(t *testing.T) {
	repo := newFakeFormatRepo()
	svc := NewFormatService(repo, zerolog.Nop())
	ent := entFor("u1", model.PlanPro)

	created, err := svc.Create(context.Background(), ent, "Tower", 608, 1080)
	require.NoError(t, err)

	formats, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, formats, 5)
	assert.Equal(t, "default_1", formats[0].ID)
	assert.Equal(t, created.ID, formats[4].ID)
}

func TestFormatCreateEnforcesPlanCeiling(t *testing.T) {
	repo := newFakeFormatRepo()
	svc := NewFormatService(repo, zerolog.Nop())
	ent := entFor("u1", model.PlanFree) // 2 custom formats max

	_, err := svc.Create(context.Background(), ent, "A", 100, 100)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), ent, "B", 200, 200)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), ent, "C", 300, 300)
	assert.ErrorIs(t, err, ErrFormatLimit)
}

func TestFormatCreateUnlimitedForCorporate(t *testing.T) {
	repo := newFakeFormatRepo()
	svc := NewFormatService(repo, zerolog.Nop())
	ent := entFor("u1", model.PlanCorporate)

	for i := 0; i < 20; i++ {
		_, err := svc.Create(context.Background(), ent, "F", 100+i, 100)
		require.NoError(t, err)
	}
}

func TestFormatCreateValidatesGeometry(t *testing.T) {
	svc := NewFormatService(newFakeFormatRepo(), zerolog.Nop())
	ent := entFor("u1", model.PlanPro)

	_, err := svc.Create(context.Background(), ent, "", 100, 100)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.Create(context.Background(), ent, "X", 0, 100)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.Create(context.Background(), ent, "X", 100, -1)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestFormatUpdateAndDeleteOwnership(t *testing.T) {
	repo := newFakeFormatRepo()
	svc := NewFormatService(repo, zerolog.Nop())

	created, err := svc.Create(context.Background(), entFor("u1", model.PlanPro), "Mine", 100, 100)
	require.NoError(t, err)

	// Another account can neither update nor delete it.
	_, err = svc.Update(context.Background(), "u2", created.ID, "Stolen", 50, 50)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.Delete(context.Background(), "u2", created.ID), ErrForbidden)

	// The owner can.
	updated, err := svc.Update(context.Background(), "u1", created.ID, "Renamed", 120, 120)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Label)
	assert.NoError(t, svc.Delete(context.Background(), "u1", created.ID))
}

func TestResolveOutput(t *testing.T) {
	repo := newFakeFormatRepo()
	svc := NewFormatService(repo, zerolog.Nop())

	// Built-in by id.
	out, err := svc.ResolveOutput(context.Background(), "u1", "default_1")
	require.NoError(t, err)
	assert.Equal(t, 1280, out.Width)
	assert.Equal(t, 720, out.Height)

	// Custom by id, owner only.
	created, err := svc.Create(context.Background(), entFor("u1", model.PlanPro), "Tower", 608, 1080)
	require.NoError(t, err)
	out, err = svc.ResolveOutput(context.Background(), "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, 608, out.Width)

	_, err = svc.ResolveOutput(context.Background(), "u2", created.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// Unknown id is a client error, not a 500.
	_, err = svc.ResolveOutput(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
