// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package prefixdb

import (
	"context"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/emostov/substrate/database"
)

var (
	_ database.Database = (*Database)(nil)
	_ database.Batch    = (*batch)(nil)
	_ database.Iterator = (*iterator)(nil)
)

// Database partitions a database into a sub-database by prefixing all keys with
// a unique value.
type Database struct {
	// All keys in this db begin with this byte slice
	dbPrefix []byte
	// Lexically one greater than dbPrefix, defining the end of this db's key
	// range. nil if no such key exists.
	dbLimit []byte

	// lock needs to be held during Close to guarantee db will not be set to nil
	// concurrently with another operation. All other operations can hold RLock.
	lock sync.RWMutex
	// The underlying storage
	db     database.Database
	closed bool
}

// New returns the partition of [db] holding the keys starting with [prefix].
func New(prefix []byte, db database.Database) *Database {
	return &Database{
		dbPrefix: slices.Clone(prefix),
		dbLimit:  incrementByteSlice(prefix),
		db:       db,
	}
}

// incrementByteSlice returns the smallest key greater than every key starting
// with [orig], or nil if [orig] is empty or all 0xFF.
func incrementByteSlice(orig []byte) []byte {
	for i := len(orig) - 1; i >= 0; i-- {
		if orig[i] == 0xFF {
			continue
		}
		buf := make([]byte, i+1)
		copy(buf, orig)
		buf[i]++
		return buf
	}
	return nil
}

// PrefixKey returns a new slice holding [prefix] followed by [key].
func PrefixKey(prefix, key []byte) []byte {
	prefixedKey := make([]byte, len(prefix)+len(key))
	copy(prefixedKey, prefix)
	copy(prefixedKey[len(prefix):], key)
	return prefixedKey
}

func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return false, database.ErrClosed
	}
	return db.db.Has(db.prefix(key))
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	return db.db.Get(db.prefix(key))
}

func (db *Database) Put(key, value []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return db.db.Put(db.prefix(key), value)
}

func (db *Database) Delete(key []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return db.db.Delete(db.prefix(key))
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

func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}

	return &iterator{
		Iterator: db.db.NewIteratorWithStartAndPrefix(db.prefix(start), db.prefix(prefix)),
		db:       db,
	}
}

func (db *Database) Compact(start, limit []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}

	if limit == nil {
		return db.db.Compact(db.prefix(start), db.dbLimit)
	}
	return db.db.Compact(db.prefix(start), db.prefix(limit))
}

// Close marks this partition closed. The underlying database is left open.
func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return database.ErrClosed
	}
	db.closed = true
	return nil
}

func (db *Database) isClosed() bool {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.closed
}

func (db *Database) HealthCheck(ctx context.Context) (interface{}, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	return db.db.HealthCheck(ctx)
}

func (db *Database) prefix(key []byte) []byte {
	return PrefixKey(db.dbPrefix, key)
}

// batch queues prefixed operations and hands them to a batch of the
// underlying database on Write.
type batch struct {
	database.BatchOps

	db *Database
}

func (b *batch) Put(key, value []byte) error {
	return b.BatchOps.Put(b.db.prefix(key), value)
}

func (b *batch) Delete(key []byte) error {
	return b.BatchOps.Delete(b.db.prefix(key))
}

func (b *batch) Write() error {
	b.db.lock.RLock()
	defer b.db.lock.RUnlock()

	if b.db.closed {
		return database.ErrClosed
	}
	return b.Inner().Write()
}

// Replay replays the operations with the prefix removed.
func (b *batch) Replay(w database.KeyValueWriterDeleter) error {
	for _, op := range b.Ops {
		key := op.Key[len(b.db.dbPrefix):]
		if op.Delete {
			if err := w.Delete(key); err != nil {
				return err
			}
		} else if err := w.Put(key, op.Value); err != nil {
			return err
		}
	}
	return nil
}

// Inner returns a batch of the underlying database holding the prefixed
// operations queued so far.
func (b *batch) Inner() database.Batch {
	inner := b.db.db.NewBatch()
	for _, op := range b.Ops {
		if op.Delete {
			_ = inner.Delete(op.Key)
		} else {
			_ = inner.Put(op.Key, op.Value)
		}
	}
	return inner
}

type iterator struct {
	database.Iterator

	db *Database

	key, val []byte
	err      error
}

// Next calls the inner iterators Next() function and strips the keys prefix
func (it *iterator) Next() bool {
	if it.db.isClosed() {
		it.key = nil
		it.val = nil
		it.err = database.ErrClosed
		return false
	}

	hasNext := it.Iterator.Next()
	if hasNext {
		key := it.Iterator.Key()
		if prefixLen := len(it.db.dbPrefix); len(key) >= prefixLen {
			key = key[prefixLen:]
		}
		it.key = key
		it.val = it.Iterator.Value()
	} else {
		it.key = nil
		it.val = nil
	}
	return hasNext
}

func (it *iterator) Key() []byte {
	return it.key
}

func (it *iterator) Value() []byte {
	return it.val
}

// Error returns [database.ErrClosed] if the underlying db was closed
// otherwise it returns the normal iterator error.
func (it *iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.Iterator.Error()
}
