// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meterdb

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/memdb"
)

func TestInterface(t *testing.T) {
	for name, test := range database.Tests {
		t.Run(name, func(t *testing.T) {
			db, err := New(prometheus.NewRegistry(), memdb.New())
			require.NoError(t, err)

			test(t, db)
		})
	}
}

func TestCallsAreCounted(t *testing.T) {
	require := require.New(t)

	db, err := New(prometheus.NewRegistry(), memdb.New())
	require.NoError(err)

	require.NoError(db.Put([]byte("key"), []byte("value")))
	_, err = db.Get([]byte("key"))
	require.NoError(err)
	_, err = db.Get([]byte("key"))
	require.NoError(err)

	require.InDelta(1, testutil.ToFloat64(db.calls.With(put)), 0)
	require.InDelta(2, testutil.ToFloat64(db.calls.With(get)), 0)
	require.InDelta(len("key")+len("value"), testutil.ToFloat64(db.size.With(put)), 0)
}

func TestDuplicateRegistration(t *testing.T) {
	require := require.New(t)

	reg := prometheus.NewRegistry()
	_, err := New(reg, memdb.New())
	require.NoError(err)

	_, err = New(reg, memdb.New())
	var alreadyRegistered prometheus.AlreadyRegisteredError
	require.ErrorAs(err, &alreadyRegistered)
}
