// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package corruptabledb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/memdb"
)

var errTest = errors.New("non-nil error")

func TestInterface(t *testing.T) {
	for name, test := range database.Tests {
		t.Run(name, func(t *testing.T) {
			test(t, New(memdb.New()))
		})
	}
}

// TestCorruption tests to make sure corruptabledb wrapper works as expected.
func TestCorruption(t *testing.T) {
	key := []byte("hello")
	value := []byte("world")
	tests := map[string]func(db database.Database) error{
		"corrupted has": func(db database.Database) error {
			_, err := db.Has(key)
			return err
		},
		"corrupted get": func(db database.Database) error {
			_, err := db.Get(key)
			return err
		},
		"corrupted put": func(db database.Database) error {
			return db.Put(key, value)
		},
		"corrupted delete": func(db database.Database) error {
			return db.Delete(key)
		},
		"corrupted batch": func(db database.Database) error {
			corruptableBatch := db.NewBatch()
			require.NotNil(t, corruptableBatch)
			require.NoError(t, corruptableBatch.Put(key, value))
			return corruptableBatch.Write()
		},
		"corrupted healthcheck": func(db database.Database) error {
			_, err := db.HealthCheck(context.Background())
			return err
		},
	}
	corruptableDB := New(memdb.New())
	_ = corruptableDB.handleError(errTest)
	for name, testFn := range tests {
		t.Run(name, func(t *testing.T) {
			err := testFn(corruptableDB)
			require.ErrorIs(t, err, errTest)
			require.ErrorIs(t, err, database.ErrAvoidCorruption)
		})
	}
}

func TestExpectedErrorsDoNotCorrupt(t *testing.T) {
	require := require.New(t)

	db := New(memdb.New())
	_, err := db.Get([]byte("missing"))
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(db.Put([]byte("key"), []byte("value")))
	require.NoError(db.corrupted())
}
