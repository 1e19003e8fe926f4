package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolmaps/drivelink/internal/model"
	"github.com/schoolmaps/drivelink/internal/store"
)

func TestLinkLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetLinkState(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveLink(ctx, "u1", "enc-token", now))

	state, err := s.GetLinkState(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, state.Linked)
	assert.Equal(t, "enc-token", state.RefreshToken)
	assert.Equal(t, now, state.LastLinkedAt)

	require.NoError(t, s.ClearLink(ctx, "u1"))
	require.NoError(t, s.ClearLink(ctx, "u1"))

	state, err = s.GetLinkState(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, state.Linked)
	assert.Empty(t, state.RefreshToken)
	assert.Equal(t, now, state.LastLinkedAt)
}

func TestClearLink_NeverLinkedCreatesNothing(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.ClearLink(ctx, "ghost"))
	_, err := s.GetLinkState(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveLink_PreservesUnrelatedAttributes(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.setUserAttribute("u1", "displayName", "Ada")

	require.NoError(t, s.SaveLink(ctx, "u1", "enc", time.Now()))
	require.NoError(t, s.ClearLink(ctx, "u1"))

	v, ok := s.userAttribute("u1", "displayName")
	require.True(t, ok)
	assert.Equal(t, "Ada", v)
}

func TestFileRecords(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.PutFileRecord(ctx, &model.UploadedFileRecord{
			ID: id, OwnerID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.PutFileRecord(ctx, &model.UploadedFileRecord{ID: "x", OwnerID: "u2", CreatedAt: base}))

	recs, err := s.ListFileRecords(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c", recs[0].ID)
	assert.Equal(t, "a", recs[2].ID)

	rec, err := s.GetFileRecord(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "u2", rec.OwnerID)

	require.NoError(t, s.DeleteFileRecord(ctx, "x"))
	require.NoError(t, s.DeleteFileRecord(ctx, "x"))
	_, err = s.GetFileRecord(ctx, "x")
	assert.ErrorIs(t, err, store.ErrNotFound)

	empty, err := s.ListFileRecords(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = s.SaveLink(ctx, "u1", "enc", time.Now())
			} else {
				_ = s.ClearLink(ctx, "u1")
			}
			_, _ = s.GetLinkState(ctx, "u1")
		}(i)
	}
	wg.Wait()

	state, err := s.GetLinkState(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, state.Linked, state.RefreshToken != "")
}
