// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvdb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/memdb"
)

var errTest = errors.New("non-nil error")

func TestColumnsAreIsolated(t *testing.T) {
	require := require.New(t)

	db := New(memdb.New())

	tx := NewTransaction()
	tx.Put(ColumnMeta, []byte("key"), []byte("meta"))
	tx.Put(ColumnOffchain, []byte("key"), []byte("offchain"))
	require.NoError(db.Write(tx))

	value, err := db.Get(ColumnMeta, []byte("key"))
	require.NoError(err)
	require.Equal([]byte("meta"), value)

	value, err = db.Get(ColumnOffchain, []byte("key"))
	require.NoError(err)
	require.Equal([]byte("offchain"), value)

	_, err = db.Get(ColumnState, []byte("key"))
	require.ErrorIs(err, database.ErrNotFound)

	has, err := db.Has(ColumnBody, []byte("key"))
	require.NoError(err)
	require.False(has)
}

func TestWriteAppliesInOrder(t *testing.T) {
	require := require.New(t)

	db := New(memdb.New())

	tx := NewTransaction()
	tx.Put(ColumnState, []byte("key"), []byte("first"))
	tx.Delete(ColumnState, []byte("key"))
	tx.Put(ColumnState, []byte("other"), []byte("value"))
	require.Equal(3, tx.Len())
	require.NoError(db.Write(tx))

	has, err := db.Has(ColumnState, []byte("key"))
	require.NoError(err)
	require.False(has)

	has, err = db.Has(ColumnState, []byte("other"))
	require.NoError(err)
	require.True(has)
}

func TestWriteUnknownColumnIsAtomic(t *testing.T) {
	require := require.New(t)

	db := New(memdb.New())

	tx := NewTransaction()
	tx.Put(ColumnMeta, []byte("key"), []byte("value"))
	tx.Put(Column(numColumns), []byte("key"), []byte("value"))
	require.ErrorIs(db.Write(tx), ErrUnknownColumn)

	has, err := db.Has(ColumnMeta, []byte("key"))
	require.NoError(err)
	require.False(has)

	_, err = db.Get(Column(200), []byte("key"))
	require.ErrorIs(err, ErrUnknownColumn)
}

func TestTransactionCopiesArguments(t *testing.T) {
	require := require.New(t)

	key := []byte("key")
	value := []byte("value")
	tx := NewTransaction()
	tx.Put(ColumnMeta, key, value)
	key[0] = 'x'
	value[0] = 'x'

	var (
		gotKey   []byte
		gotValue []byte
	)
	require.NoError(tx.Replay(
		func(_ Column, key, value []byte) error {
			gotKey, gotValue = key, value
			return nil
		},
		func(Column, []byte) error {
			return errTest
		},
	))
	require.Equal([]byte("key"), gotKey)
	require.Equal([]byte("value"), gotValue)
}

func TestReplayStopsOnError(t *testing.T) {
	tx := NewTransaction()
	tx.Delete(ColumnMeta, []byte("a"))
	tx.Put(ColumnMeta, []byte("b"), nil)

	calls := 0
	err := tx.Replay(
		func(Column, []byte, []byte) error {
			calls++
			return nil
		},
		func(Column, []byte) error {
			return errTest
		},
	)
	require.ErrorIs(t, err, errTest)
	require.Zero(t, calls)
}

func TestColumnString(t *testing.T) {
	require := require.New(t)

	require.Equal("meta", ColumnMeta.String())
	require.Equal("offchain", ColumnOffchain.String())
	require.Equal("column(9)", Column(9).String())
	require.Len(Columns(), numColumns)
}
