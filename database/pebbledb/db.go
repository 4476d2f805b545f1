// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebbledb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/utils/logging"
	"github.com/emostov/substrate/utils/units"
)

const (
	// Name is the name of this database for database switches
	Name = "pebbledb"

	// pebbleByteOverHead is the number of bytes of constant overhead that
	// should be added to a batch size per operation.
	pebbleByteOverHead = 8
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)

	ErrInvalidOperation = errors.New("invalid operation")

	DefaultConfig = Config{
		CacheSize:                   512 * units.MiB,
		BytesPerSync:                units.MiB,
		WALBytesPerSync:             units.MiB,
		MemTableStopWritesThreshold: 8,
		MemTableSize:                16 * units.MiB,
		MaxOpenFiles:                4 * units.KiB,
		Sync:                        true,
	}
)

type Config struct {
	CacheSize                   int  `json:"cacheSize"`                   // Byte
	BytesPerSync                int  `json:"bytesPerSync"`                // Byte
	WALBytesPerSync             int  `json:"walBytesPerSync"`             // Byte (0 disables)
	MemTableStopWritesThreshold int  `json:"memTableStopWritesThreshold"` // num tables
	MemTableSize                int  `json:"memTableSize"`                // Byte
	MaxOpenFiles                int  `json:"maxOpenFiles"`
	Sync                        bool `json:"sync"` // fsync the WAL on every write
}

type Database struct {
	pebbleDB  *pebble.DB
	closed    atomic.Bool
	writeOpts *pebble.WriteOptions
}

// New opens the pebble database in [file]. [configBytes] is an optional JSON
// encoded Config overriding DefaultConfig.
func New(file string, configBytes []byte, log logging.Logger, registerer prometheus.Registerer) (database.Database, error) {
	cfg := DefaultConfig
	if len(configBytes) > 0 {
		if err := json.Unmarshal(configBytes, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse db config: %w", err)
		}
	}

	opts := &pebble.Options{
		Cache:                       pebble.NewCache(int64(cfg.CacheSize)),
		BytesPerSync:                cfg.BytesPerSync,
		WALBytesPerSync:             cfg.WALBytesPerSync,
		MemTableStopWritesThreshold: cfg.MemTableStopWritesThreshold,
		MemTableSize:                cfg.MemTableSize,
		MaxOpenFiles:                cfg.MaxOpenFiles,
		MaxConcurrentCompactions:    runtime.NumCPU,
		Logger:                      pebbleLogger{log: log},
	}
	opts.Experimental.ReadSamplingMultiplier = -1 // explicitly disable seek compaction

	log.Info("opening pebble",
		zap.String("path", file),
		zap.Reflect("config", cfg),
	)

	db, err := pebble.Open(file, opts)
	if err != nil {
		return nil, err
	}

	writeOpts := pebble.NoSync
	if cfg.Sync {
		writeOpts = pebble.Sync
	}
	pdb := &Database{
		pebbleDB:  db,
		writeOpts: writeOpts,
	}
	if registerer != nil {
		if err := registerer.Register(newCollector(db)); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return pdb, nil
}

func (db *Database) Close() error {
	// close a db twice will trigger panic by pebble instead of error
	if !db.closed.CompareAndSwap(false, true) {
		return database.ErrClosed
	}
	return updateError(db.pebbleDB.Close())
}

func (db *Database) HealthCheck(context.Context) (interface{}, error) {
	if db.closed.Load() {
		return nil, database.ErrClosed
	}
	return nil, nil
}

func (db *Database) Has(key []byte) (bool, error) {
	if db.closed.Load() {
		return false, database.ErrClosed
	}

	_, closer, err := db.pebbleDB.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, updateError(err)
	}
	return true, closer.Close()
}

func (db *Database) Get(key []byte) ([]byte, error) {
	if db.closed.Load() {
		return nil, database.ErrClosed
	}

	data, closer, err := db.pebbleDB.Get(key)
	if err != nil {
		return nil, updateError(err)
	}
	ret := slices.Clone(data)
	return ret, closer.Close()
}

func (db *Database) Put(key []byte, value []byte) error {
	// Put causes panic if the db has already been closed
	if db.closed.Load() {
		return database.ErrClosed
	}
	return updateError(db.pebbleDB.Set(key, value, db.writeOpts))
}

func (db *Database) Delete(key []byte) error {
	if db.closed.Load() {
		return database.ErrClosed
	}
	return updateError(db.pebbleDB.Delete(key, db.writeOpts))
}

func (db *Database) Compact(start []byte, limit []byte) error {
	// Pebble Compact causes panic if the db has already been closed.
	if db.closed.Load() {
		return database.ErrClosed
	}

	if limit != nil {
		if bytes.Compare(start, limit) >= 0 {
			// pebble errors on an empty range, there is nothing to compact
			return nil
		}
		return updateError(db.pebbleDB.Compact(start, limit, true))
	}

	// A nil limit is treated as a key after all keys in the DB, but pebble
	// treats a nil as a key before all keys.
	it := db.pebbleDB.NewIter(&pebble.IterOptions{})
	if !it.Last() {
		// The database is empty
		return updateError(it.Close())
	}
	// Compact's limit is exclusive, so the last key must be extended.
	end := append(slices.Clone(it.Key()), 0)
	if err := it.Close(); err != nil {
		return updateError(err)
	}
	return updateError(db.pebbleDB.Compact(start, end, true))
}

// batch is a wrapper around a pebbleDB batch to contain sizes.
type batch struct {
	batch *pebble.Batch
	db    *Database
	size  int

	// True iff [batch] has been written to the database since the last time
	// [Reset] was called.
	written bool
}

func (db *Database) NewBatch() database.Batch {
	return &batch{
		db:    db,
		batch: db.pebbleDB.NewBatch(),
	}
}

func (b *batch) Put(key, value []byte) error {
	b.size += len(key) + len(value) + pebbleByteOverHead
	return b.batch.Set(key, value, nil)
}

func (b *batch) Delete(key []byte) error {
	b.size += len(key) + pebbleByteOverHead
	return b.batch.Delete(key, nil)
}

func (b *batch) Size() int {
	return b.size
}

// Write commits the batch atomically. Pebble batches can't be committed more
// than once, so a rewrite commits a copy.
func (b *batch) Write() error {
	if b.db.closed.Load() {
		return database.ErrClosed
	}

	if !b.written {
		b.written = true
		return updateError(b.batch.Commit(b.db.writeOpts))
	}

	newBatch := b.db.pebbleDB.NewBatch()
	if err := newBatch.Apply(b.batch, nil); err != nil {
		return err
	}
	return updateError(newBatch.Commit(b.db.writeOpts))
}

func (b *batch) Reset() {
	b.batch.Reset()
	b.written = false
	b.size = 0
}

func (b *batch) Replay(w database.KeyValueWriterDeleter) error {
	reader := b.batch.Reader()
	for {
		kind, k, v, ok := reader.Next()
		if !ok {
			return nil
		}
		switch kind {
		case pebble.InternalKeyKindSet:
			if err := w.Put(k, v); err != nil {
				return err
			}
		case pebble.InternalKeyKindDelete:
			if err := w.Delete(k); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %v", ErrInvalidOperation, kind)
		}
	}
}

func (b *batch) Inner() database.Batch {
	return b
}

// updateError casts pebble-specific errors to errors that callers expect to
// see (they do not know which type of db may be provided).
func updateError(err error) error {
	switch err {
	case pebble.ErrClosed:
		return database.ErrClosed
	case pebble.ErrNotFound:
		return database.ErrNotFound
	default:
		return err
	}
}

type pebbleLogger struct {
	log logging.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

// Fatalf must not return; pebble relies on it to stop after unrecoverable
// errors.
func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.log.Fatal(msg)
	panic(msg)
}
