// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meterdb

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/emostov/substrate/database"
)

const methodLabel = "method"

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)
	_ database.Iterator = (*iterator)(nil)

	methodLabels = []string{methodLabel}
	has          = prometheus.Labels{methodLabel: "has"}
	get          = prometheus.Labels{methodLabel: "get"}
	put          = prometheus.Labels{methodLabel: "put"}
	del          = prometheus.Labels{methodLabel: "delete"}
	newBatch     = prometheus.Labels{methodLabel: "new_batch"}
	newIterator  = prometheus.Labels{methodLabel: "new_iterator"}
	compact      = prometheus.Labels{methodLabel: "compact"}
	closeLabel   = prometheus.Labels{methodLabel: "close"}
	healthCheck  = prometheus.Labels{methodLabel: "health_check"}
	batchPut     = prometheus.Labels{methodLabel: "batch_put"}
	batchDelete  = prometheus.Labels{methodLabel: "batch_delete"}
	batchSize    = prometheus.Labels{methodLabel: "batch_size"}
	batchWrite   = prometheus.Labels{methodLabel: "batch_write"}
	batchReset   = prometheus.Labels{methodLabel: "batch_reset"}
	batchReplay  = prometheus.Labels{methodLabel: "batch_replay"}
	batchInner   = prometheus.Labels{methodLabel: "batch_inner"}
	iteratorNext = prometheus.Labels{methodLabel: "iterator_next"}
	iteratorErr  = prometheus.Labels{methodLabel: "iterator_error"}
	iteratorKey  = prometheus.Labels{methodLabel: "iterator_key"}
	iteratorVal  = prometheus.Labels{methodLabel: "iterator_value"}
	iteratorRel  = prometheus.Labels{methodLabel: "iterator_release"}

	// Buckets in nanoseconds, from 100ns to 10s.
	nanosecondsBuckets = []float64{
		100,
		1_000,
		10_000,
		100_000,
		1_000_000,
		10_000_000,
		100_000_000,
		1_000_000_000,
		10_000_000_000,
	}
)

// Database tracks the amount of time each operation takes and how many bytes
// are read/written to the underlying database instance.
type Database struct {
	db database.Database

	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     *prometheus.CounterVec
}

// New returns a new database with added metrics
func New(
	reg prometheus.Registerer,
	db database.Database,
) (*Database, error) {
	meterDB := &Database{
		db: db,
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calls",
				Help: "number of calls to the database",
			},
			methodLabels,
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "duration",
				Help:    "time spent in database calls (ns)",
				Buckets: nanosecondsBuckets,
			},
			methodLabels,
		),
		size: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "size",
				Help: "size of data passed in database calls",
			},
			methodLabels,
		),
	}
	for _, collector := range []prometheus.Collector{
		meterDB.calls,
		meterDB.duration,
		meterDB.size,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return meterDB, nil
}

func (db *Database) observe(labels prometheus.Labels, start time.Time, size int) {
	db.calls.With(labels).Inc()
	db.duration.With(labels).Observe(float64(time.Since(start)))
	if size > 0 {
		db.size.With(labels).Add(float64(size))
	}
}

func (db *Database) Has(key []byte) (bool, error) {
	start := time.Now()
	ok, err := db.db.Has(key)
	db.observe(has, start, len(key))
	return ok, err
}

func (db *Database) Get(key []byte) ([]byte, error) {
	start := time.Now()
	value, err := db.db.Get(key)
	db.observe(get, start, len(key)+len(value))
	return value, err
}

func (db *Database) Put(key, value []byte) error {
	start := time.Now()
	err := db.db.Put(key, value)
	db.observe(put, start, len(key)+len(value))
	return err
}

func (db *Database) Delete(key []byte) error {
	start := time.Now()
	err := db.db.Delete(key)
	db.observe(del, start, len(key))
	return err
}

func (db *Database) NewBatch() database.Batch {
	start := time.Now()
	b := &batch{
		batch: db.db.NewBatch(),
		db:    db,
	}
	db.observe(newBatch, start, 0)
	return b
}

func (db *Database) NewIterator() database.Iterator {
	return db.NewIteratorWithStartAndPrefix(nil, nil)
}

func (db *Database) NewIteratorWithStart(start []byte) database.Iterator {
	return db.NewIteratorWithStartAndPrefix(start, nil)
}

func (db *Database) NewIteratorWithPrefix(prefix []byte) database.Iterator {
	return db.NewIteratorWithStartAndPrefix(nil, prefix)
}

func (db *Database) NewIteratorWithStartAndPrefix(
	start,
	prefix []byte,
) database.Iterator {
	startTime := time.Now()
	it := &iterator{
		iterator: db.db.NewIteratorWithStartAndPrefix(start, prefix),
		db:       db,
	}
	db.observe(newIterator, startTime, len(start)+len(prefix))
	return it
}

func (db *Database) Compact(start, limit []byte) error {
	startTime := time.Now()
	err := db.db.Compact(start, limit)
	db.observe(compact, startTime, len(start)+len(limit))
	return err
}

func (db *Database) Close() error {
	start := time.Now()
	err := db.db.Close()
	db.observe(closeLabel, start, 0)
	return err
}

func (db *Database) HealthCheck(ctx context.Context) (interface{}, error) {
	start := time.Now()
	result, err := db.db.HealthCheck(ctx)
	db.observe(healthCheck, start, 0)
	return result, err
}

type batch struct {
	batch database.Batch
	db    *Database
}

func (b *batch) Put(key, value []byte) error {
	start := time.Now()
	err := b.batch.Put(key, value)
	b.db.observe(batchPut, start, len(key)+len(value))
	return err
}

func (b *batch) Delete(key []byte) error {
	start := time.Now()
	err := b.batch.Delete(key)
	b.db.observe(batchDelete, start, len(key))
	return err
}

func (b *batch) Size() int {
	start := time.Now()
	size := b.batch.Size()
	b.db.observe(batchSize, start, 0)
	return size
}

func (b *batch) Write() error {
	start := time.Now()
	size := b.batch.Size()
	err := b.batch.Write()
	b.db.observe(batchWrite, start, size)
	return err
}

func (b *batch) Reset() {
	start := time.Now()
	b.batch.Reset()
	b.db.observe(batchReset, start, 0)
}

func (b *batch) Replay(w database.KeyValueWriterDeleter) error {
	start := time.Now()
	err := b.batch.Replay(w)
	b.db.observe(batchReplay, start, 0)
	return err
}

func (b *batch) Inner() database.Batch {
	start := time.Now()
	inner := b.batch.Inner()
	b.db.observe(batchInner, start, 0)
	return inner
}

type iterator struct {
	iterator database.Iterator
	db       *Database
}

func (it *iterator) Next() bool {
	start := time.Now()
	next := it.iterator.Next()
	size := 0
	if next {
		size = len(it.iterator.Key()) + len(it.iterator.Value())
	}
	it.db.observe(iteratorNext, start, size)
	return next
}

func (it *iterator) Error() error {
	start := time.Now()
	err := it.iterator.Error()
	it.db.observe(iteratorErr, start, 0)
	return err
}

func (it *iterator) Key() []byte {
	start := time.Now()
	key := it.iterator.Key()
	it.db.observe(iteratorKey, start, 0)
	return key
}

func (it *iterator) Value() []byte {
	start := time.Now()
	value := it.iterator.Value()
	it.db.observe(iteratorVal, start, 0)
	return value
}

func (it *iterator) Release() {
	start := time.Now()
	it.iterator.Release()
	it.db.observe(iteratorRel, start, 0)
}
