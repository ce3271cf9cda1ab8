package store

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

const snapshotPrefix = "snapshot/"

// BadgerStore keeps snapshots in a local badger database, one key per
// document.
type BadgerStore struct {
	db *badger.DB
}

var _ SnapshotStore = (*BadgerStore)(nil)

// OpenBadger opens (or creates) a badger-backed store at path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func snapshotKey(docID string) []byte {
	return []byte(snapshotPrefix + docID)
}

// LoadSnapshot returns the stored snapshot for docID, or ErrNoSnapshot.
func (s *BadgerStore) LoadSnapshot(ctx context.Context, docID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(docID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", docID, err)
	}
	return data, nil
}

// SaveSnapshot overwrites the stored snapshot for docID.
func (s *BadgerStore) SaveSnapshot(ctx context.Context, docID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(docID), data)
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", docID, err)
	}
	return nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
