// Package badgerdb implements store.Store on an embedded Badger key-value database.
//
// Key layout:
//
//	tag:{id}                                   → Tag JSON
//	idx:tags:slug:{slug}                       → tagID
//	asg:{tagID}:{itemType}:{itemID}            → TagAssignment JSON
//	idx:items:tags:{itemType}:{itemID}:{tagID} → assignment seq (uint64, big endian)
//	otype:{id}                                 → ObjectType JSON
//	idx:otypes:slug:{slug}                     → typeID
//	obj:{id}                                   → Object JSON
//	idx:objects:type:{typeID}:{objectID}       → empty
//	rel:out:{sourceID}:{relType}:{targetID}    → ObjectRelationship JSON
//	rel:in:{targetID}:{relType}:{sourceID}     → ObjectRelationship JSON
//
// IDs, item types and relationship types never contain ':'.
package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kaziapp/taggraph/internal/store"
)

var _ store.Store = (*Store)(nil)

// maxTxnRetries bounds how often a conflicting transaction is replayed.
const maxTxnRetries = 128

// defaultDeleteBatch is how many assignments DeleteTag removes per transaction.
const defaultDeleteBatch = 10_000

// Store wraps a Badger database instance.
type Store struct {
	db          *badger.DB
	seq         *badger.Sequence
	logger      *slog.Logger
	deleteBatch int
}

// Options configures Open.
type Options struct {
	// Path is the database directory. Empty opens an in-memory database.
	Path   string
	Logger *slog.Logger
	// DeleteBatchSize caps the assignments one DeleteTag transaction removes.
	// Zero uses defaultDeleteBatch.
	DeleteBatchSize int
}

// Open creates a new Store.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		bopts = bopts.WithInMemory(true)
	}
	bopts.Logger = nil            // Disable Badger's internal logging
	bopts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	bopts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	seq, err := db.GetSequence([]byte("seq:assignments"), 256)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open assignment sequence: %w", err)
	}

	if opts.Logger != nil {
		opts.Logger.Info("Badger database opened successfully", "path", opts.Path)
	}

	batch := opts.DeleteBatchSize
	if batch <= 0 {
		batch = defaultDeleteBatch
	}

	return &Store{db: db, seq: seq, logger: opts.Logger, deleteBatch: batch}, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	if err := s.seq.Release(); err != nil && s.logger != nil {
		s.logger.Warn("failed to release sequence", "error", err)
	}
	return s.db.Close()
}

// Ping reports whether the database is open.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// RunGC reclaims space in the value log. Safe to call periodically.
func (s *Store) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return err
}

// nextSeq returns the next assignment sequence number, starting at 1.
func (s *Store) nextSeq() (uint64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n + 1, nil
}

// update runs fn in a read-write transaction, replaying it when Badger reports
// a conflict with a concurrently committed transaction. fn must be safe to rerun.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= maxTxnRetries {
			return fmt.Errorf("transaction retries exhausted: %w", err)
		}
		time.Sleep(time.Duration(rand.IntN(attempt+1)+1) * 100 * time.Microsecond)
	}
}

// view runs fn in a read-only transaction.
func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// getJSON loads key into dest. Returns badger.ErrKeyNotFound when absent.
func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// setJSON stores value under key.
func setJSON(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// exists checks if a key exists inside txn.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// getString loads a raw string value.
func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// scanPrefix calls fn with the key and value of every entry under prefix.
func scanPrefix(txn *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return err
		}
	}
	return nil
}

// errStopScan ends a scanPrefix walk early without reporting an error.
var errStopScan = errors.New("stop scan")

// scanKeys calls fn with every key under prefix without fetching values.
func scanKeys(txn *badger.Txn, prefix []byte, fn func(key []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := fn(it.Item().KeyCopy(nil)); err != nil {
			return err
		}
	}
	return nil
}

// notFound maps badger.ErrKeyNotFound to store.ErrNotFound with msg.
func notFound(err error, msg string) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound.WithMessage(msg)
	}
	return err
}
