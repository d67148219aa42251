package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

func TestSharedTemplateStore_GetMissing(t *testing.T) {
	store := NewSharedTemplateStore()
	ctx := context.Background()

	_, _, err := store.Get(ctx, "team")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Status(ctx, "team")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSharedTemplateStore_SaveBumpsMarker(t *testing.T) {
	store := NewSharedTemplateStore()
	ctx := context.Background()

	m1, err := store.Save(ctx, "team", testTemplate("v1"))
	require.NoError(t, err)
	m2, err := store.Save(ctx, "team", testTemplate("v2"))
	require.NoError(t, err)
	assert.NotEqual(t, m1, m2)

	got, marker, err := store.Get(ctx, "team")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Name)
	assert.Equal(t, m2, marker)

	status, err := store.Status(ctx, "team")
	require.NoError(t, err)
	assert.Equal(t, m2, status)
}

func TestSharedTemplateStore_ContextsAreIndependent(t *testing.T) {
	store := NewSharedTemplateStore()
	ctx := context.Background()

	_, err := store.Save(ctx, "a", testTemplate("A"))
	require.NoError(t, err)

	_, _, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSharedTemplateStore_SetFailure(t *testing.T) {
	store := NewSharedTemplateStore()
	ctx := context.Background()
	boom := errors.New("network down")
	_, err := store.Save(ctx, "team", testTemplate("A"))
	require.NoError(t, err)

	store.SetFailure(boom)
	_, _, err = store.Get(ctx, "team")
	assert.ErrorIs(t, err, boom)
	_, err = store.Status(ctx, "team")
	assert.ErrorIs(t, err, boom)

	store.SetFailure(nil)
	_, _, err = store.Get(ctx, "team")
	assert.NoError(t, err)
}
