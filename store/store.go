// Package store persists document snapshots between sessions. The engine
// only ever sees whole snapshots; incremental operation storage is the
// transport's concern.
package store

import (
	"context"
	"errors"
)

// ErrNoSnapshot is returned when no snapshot exists for a document id.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore loads and saves opaque snapshot bytes keyed by document id.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, docID string) ([]byte, error)
	SaveSnapshot(ctx context.Context, docID string, data []byte) error
	Close() error
}
