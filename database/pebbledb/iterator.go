// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebbledb

import (
	"bytes"

	"github.com/cockroachdb/pebble"
	"golang.org/x/exp/slices"

	"github.com/emostov/substrate/database"
)

var _ database.Iterator = (*iter)(nil)

type iter struct {
	db   *Database
	iter *pebble.Iterator

	initialized bool
	released    bool
	valid       bool
	err         error
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

// NewIteratorWithStartAndPrefix creates a lexicographically ordered iterator
// over the database starting at start and ignoring keys that do not start with
// the provided prefix.
func (db *Database) NewIteratorWithStartAndPrefix(start, prefix []byte) database.Iterator {
	// Don't call NewIter of pebble after the db closed. It panics otherwise.
	if db.closed.Load() {
		return &database.IteratorError{
			Err: database.ErrClosed,
		}
	}

	opts := prefixBounds(prefix)
	if bytes.Compare(start, prefix) == 1 {
		opts.LowerBound = start
	}
	return &iter{
		db:   db,
		iter: db.pebbleDB.NewIter(opts),
	}
}

func (it *iter) Next() bool {
	if it.released {
		it.valid = false
		return false
	}
	if it.db.closed.Load() {
		it.valid = false
		it.err = database.ErrClosed
		return false
	}

	if !it.initialized {
		it.valid = it.iter.First()
		it.initialized = true
	} else {
		it.valid = it.iter.Next()
	}
	return it.valid
}

func (it *iter) Error() error {
	if it.err != nil || it.released {
		return it.err
	}
	return updateError(it.iter.Error())
}

func (it *iter) Key() []byte {
	if !it.valid {
		return nil
	}
	return slices.Clone(it.iter.Key())
}

func (it *iter) Value() []byte {
	if !it.valid {
		return nil
	}
	return slices.Clone(it.iter.Value())
}

func (it *iter) Release() {
	if it.released {
		return
	}
	it.released = true
	it.valid = false
	_ = it.iter.Close()
}

// prefixBounds returns key range that satisfy the given prefix.
// This only applicable for the standard 'bytes comparer'.
func prefixBounds(prefix []byte) *pebble.IterOptions {
	var upperBound []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] == 0xFF {
			continue
		}
		upperBound = make([]byte, i+1)
		copy(upperBound, prefix)
		upperBound[i]++
		break
	}
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound,
	}
}
