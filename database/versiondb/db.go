// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package versiondb

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/memdb"
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)
)

type valueDelete struct {
	value  []byte
	delete bool
}

// Database implements the Database interface by living on top of another
// database, writing changes to the underlying database only when commit is
// called.
type Database struct {
	lock sync.RWMutex
	mem  map[string]valueDelete
	db   database.Database
}

// New returns a new versioned database
func New(db database.Database) *Database {
	return &Database{
		mem: make(map[string]valueDelete),
		db:  db,
	}
}

func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.mem == nil {
		return false, database.ErrClosed
	}
	if val, has := db.mem[string(key)]; has {
		return !val.delete, nil
	}
	return db.db.Has(key)
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.mem == nil {
		return nil, database.ErrClosed
	}
	if val, has := db.mem[string(key)]; has {
		if val.delete {
			return nil, database.ErrNotFound
		}
		return slices.Clone(val.value), nil
	}
	return db.db.Get(key)
}

func (db *Database) Put(key, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.mem == nil {
		return database.ErrClosed
	}
	db.mem[string(key)] = valueDelete{value: slices.Clone(value)}
	return nil
}

func (db *Database) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.mem == nil {
		return database.ErrClosed
	}
	db.mem[string(key)] = valueDelete{delete: true}
	return nil
}

func (db *Database) NewBatch() database.Batch {
	return &batch{db: db}
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

// NewIteratorWithStartAndPrefix merges the pending writes with a snapshot of
// the underlying database.
func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.mem == nil {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}

	snapshot := memdb.New()
	it := db.db.NewIteratorWithStartAndPrefix(start, prefix)
	defer it.Release()
	for it.Next() {
		if err := snapshot.Put(it.Key(), it.Value()); err != nil {
			return &database.IteratorError{Err: err}
		}
	}
	if err := it.Error(); err != nil {
		return &database.IteratorError{Err: err}
	}

	startString := string(start)
	prefixString := string(prefix)
	for key, val := range db.mem {
		if !strings.HasPrefix(key, prefixString) || key < startString {
			continue
		}
		var err error
		if val.delete {
			err = snapshot.Delete([]byte(key))
		} else {
			err = snapshot.Put([]byte(key), val.value)
		}
		if err != nil {
			return &database.IteratorError{Err: err}
		}
	}
	return &iterator{
		Iterator: snapshot.NewIterator(),
		db:       db,
	}
}

func (db *Database) Compact(start, limit []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.mem == nil {
		return database.ErrClosed
	}
	return db.db.Compact(start, limit)
}

// Abort drops every pending write.
func (db *Database) Abort() {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.mem != nil {
		clear(db.mem)
	}
}

// Close drops the pending writes and closes the underlying database.
func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.mem == nil {
		return database.ErrClosed
	}
	db.mem = nil
	return db.db.Close()
}

func (db *Database) HealthCheck(ctx context.Context) (interface{}, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.mem == nil {
		return nil, database.ErrClosed
	}
	return db.db.HealthCheck(ctx)
}

func (db *Database) isClosed() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.mem == nil
}

type batch struct {
	database.BatchOps

	db *Database
}

func (b *batch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	if b.db.mem == nil {
		return database.ErrClosed
	}
	for _, op := range b.Ops {
		b.db.mem[string(op.Key)] = valueDelete{
			value:  slices.Clone(op.Value),
			delete: op.Delete,
		}
	}
	return nil
}

func (b *batch) Inner() database.Batch {
	return b
}

// iterator reports ErrClosed once the version database is closed.
type iterator struct {
	database.Iterator

	db  *Database
	err error
}

func (it *iterator) Next() bool {
	if it.db.isClosed() {
		it.err = database.ErrClosed
		return false
	}
	return it.Iterator.Next()
}

func (it *iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.Iterator.Error()
}

func (it *iterator) Key() []byte {
	if it.err != nil {
		return nil
	}
	return it.Iterator.Key()
}

func (it *iterator) Value() []byte {
	if it.err != nil {
		return nil
	}
	return it.Iterator.Value()
}
