// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memdb

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/emostov/substrate/database"
)

// Name is the name of this database for database switches
const Name = "memdb"

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)
	_ database.Iterator = (*iterator)(nil)
)

// Database keeps every key in a map. It backs --db-type=memdb and the
// snapshots taken by versiondb iterators.
type Database struct {
	lock   sync.RWMutex
	closed bool
	data   map[string][]byte
}

func New() *Database {
	return &Database{data: make(map[string][]byte)}
}

func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	db.closed = true
	db.data = nil
	return nil
}

func (db *Database) isClosed() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.closed
}

func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return false, database.ErrClosed
	}
	_, ok := db.data[string(key)]
	return ok, nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	value, ok := db.data[string(key)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return slices.Clone(value), nil
}

func (db *Database) Put(key, value []byte) error {
	return db.apply(database.BatchOp{Key: key, Value: value})
}

func (db *Database) Delete(key []byte) error {
	return db.apply(database.BatchOp{Key: key, Delete: true})
}

// apply writes [ops] under one lock acquisition.
func (db *Database) apply(ops ...database.BatchOp) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	for _, op := range ops {
		if op.Delete {
			delete(db.data, string(op.Key))
			continue
		}
		db.data[string(op.Key)] = slices.Clone(op.Value)
	}
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

// NewIteratorWithStartAndPrefix iterates over a snapshot. Writes after this
// call are not observed.
func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}

	it := &iterator{
		db:    db,
		index: -1,
	}
	for key, value := range db.data {
		if strings.HasPrefix(key, string(prefix)) && key >= string(start) {
			it.entries = append(it.entries, entry{key: key, value: value})
		}
	}
	slices.SortFunc(it.entries, func(a, b entry) bool {
		return a.key < b.key
	})
	return it
}

func (db *Database) Compact([]byte, []byte) error {
	if db.isClosed() {
		return database.ErrClosed
	}
	return nil
}

func (db *Database) HealthCheck(context.Context) (interface{}, error) {
	if db.isClosed() {
		return nil, database.ErrClosed
	}
	return nil, nil
}

type batch struct {
	database.BatchOps

	db *Database
}

func (b *batch) Write() error {
	return b.db.apply(b.Ops...)
}

func (b *batch) Inner() database.Batch {
	return b
}

type entry struct {
	key   string
	value []byte
}

type iterator struct {
	db      *Database
	entries []entry
	index   int
	err     error
}

func (it *iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.db.isClosed() {
		it.entries = nil
		it.err = database.ErrClosed
		return false
	}
	if it.index < len(it.entries) {
		it.index++
	}
	return it.index < len(it.entries)
}

func (it *iterator) Error() error {
	return it.err
}

func (it *iterator) current() (entry, bool) {
	if it.index < 0 || it.index >= len(it.entries) {
		return entry{}, false
	}
	return it.entries[it.index], true
}

func (it *iterator) Key() []byte {
	e, ok := it.current()
	if !ok {
		return nil
	}
	return []byte(e.key)
}

func (it *iterator) Value() []byte {
	e, ok := it.current()
	if !ok {
		return nil
	}
	return slices.Clone(e.value)
}

func (it *iterator) Release() {
	it.entries = nil
}
