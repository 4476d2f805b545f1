// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"golang.org/x/exp/slices"

	"github.com/emostov/substrate/database/kvdb"
	"github.com/emostov/substrate/offchain/indexing"
)

// Column is where offchain indexed data is stored.
const Column = kvdb.ColumnOffchain

var (
	_ IndexingAPI = (*recordingAPI)(nil)
	_ IndexingAPI = noopAPI{}
)

// IndexingAPI is handed to block execution so it can write offchain data.
type IndexingAPI interface {
	// Set queues writing [value] under [key].
	Set(key, value []byte)
	// Clear queues removing [key].
	Clear(key []byte)
	// Flush moves every queued change into [tx] and returns how many changes
	// were moved.
	Flush(tx *kvdb.Transaction) int
}

// NewIndexingAPI returns an IndexingAPI for [state]. When indexing is disabled
// every write is dropped.
func NewIndexingAPI(state indexing.ResolvedState) IndexingAPI {
	if state.IsEnabled() {
		return &recordingAPI{}
	}
	return noopAPI{}
}

type change struct {
	key   []byte
	value []byte
	clear bool
}

type recordingAPI struct {
	changes []change
}

func (a *recordingAPI) Set(key, value []byte) {
	a.changes = append(a.changes, change{
		key:   slices.Clone(key),
		value: slices.Clone(value),
	})
}

func (a *recordingAPI) Clear(key []byte) {
	a.changes = append(a.changes, change{
		key:   slices.Clone(key),
		clear: true,
	})
}

func (a *recordingAPI) Flush(tx *kvdb.Transaction) int {
	for _, c := range a.changes {
		if c.clear {
			tx.Delete(Column, c.key)
		} else {
			tx.Put(Column, c.key, c.value)
		}
	}
	flushed := len(a.changes)
	a.changes = a.changes[:0]
	return flushed
}

type noopAPI struct{}

func (noopAPI) Set([]byte, []byte) {}

func (noopAPI) Clear([]byte) {}

func (noopAPI) Flush(*kvdb.Transaction) int {
	return 0
}

// Reader is the read side of the node database.
type Reader interface {
	Get(column kvdb.Column, key []byte) ([]byte, error)
}

// Store reads offchain indexed data.
type Store struct {
	db Reader
}

func NewStore(db Reader) *Store {
	return &Store{db: db}
}

// Get returns database.ErrNotFound if nothing was indexed under [key].
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.db.Get(Column, key)
}
