package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerSaveLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	data := []byte(`{"replica_id":"alice"}`)
	require.NoError(t, s.SaveSnapshot(ctx, "novel-1", data))

	got, err := s.LoadSnapshot(ctx, "novel-1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestBadgerOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, "doc", []byte("v1")))
	require.NoError(t, s.SaveSnapshot(ctx, "doc", []byte("v2")))

	got, err := s.LoadSnapshot(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestBadgerMissingSnapshot(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), "never-saved")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestBadgerCancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.SaveSnapshot(ctx, "doc", []byte("x")))
	_, err := s.LoadSnapshot(ctx, "doc")
	assert.Error(t, err)
}
