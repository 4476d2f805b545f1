// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package versiondb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/memdb"
)

func TestInterface(t *testing.T) {
	for name, test := range database.Tests {
		t.Run(name, func(t *testing.T) {
			test(t, New(memdb.New()))
		})
	}
}

func TestWritesAreNotPersisted(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	require.NoError(base.Put([]byte("kept"), []byte("old")))

	db := New(base)
	require.NoError(db.Put([]byte("kept"), []byte("new")))
	require.NoError(db.Put([]byte("added"), []byte("value")))

	value, err := db.Get([]byte("kept"))
	require.NoError(err)
	require.Equal([]byte("new"), value)

	value, err = base.Get([]byte("kept"))
	require.NoError(err)
	require.Equal([]byte("old"), value)

	has, err := base.Has([]byte("added"))
	require.NoError(err)
	require.False(has)
}

func TestDeleteShadowsBase(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	require.NoError(base.Put([]byte("a"), []byte("1")))
	require.NoError(base.Put([]byte("b"), []byte("2")))

	db := New(base)
	require.NoError(db.Delete([]byte("a")))

	_, err := db.Get([]byte("a"))
	require.ErrorIs(err, database.ErrNotFound)

	it := db.NewIterator()
	defer it.Release()

	require.True(it.Next())
	require.Equal([]byte("b"), it.Key())
	require.False(it.Next())
	require.NoError(it.Error())
}

func TestAbort(t *testing.T) {
	require := require.New(t)

	db := New(memdb.New())
	require.NoError(db.Put([]byte("key"), []byte("value")))
	db.Abort()

	has, err := db.Has([]byte("key"))
	require.NoError(err)
	require.False(has)
}
