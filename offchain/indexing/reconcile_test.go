// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zapcore"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/kvdb"
	"github.com/emostov/substrate/database/kvdb/kvdbmock"
	"github.com/emostov/substrate/database/memdb"
	"github.com/emostov/substrate/utils/logging"
)

const incompleteDataMsg = "historical offchain data may be incomplete"

var errTest = errors.New("non-nil error")

func newStore(t *testing.T, record []byte) *kvdb.Database {
	db := kvdb.New(memdb.New())
	if record != nil {
		tx := kvdb.NewTransaction()
		tx.Put(RecordColumn, RecordKey, record)
		require.NoError(t, db.Write(tx))
	}
	return db
}

func readStored(t *testing.T, db *kvdb.Database) []byte {
	recordBytes, err := db.Get(RecordColumn, RecordKey)
	require.NoError(t, err)
	return recordBytes
}

func TestReconcileFirstStart(t *testing.T) {
	tests := []struct {
		state       DesiredState
		isValidator bool
		expected    ResolvedState
	}{
		{state: Default, isValidator: true, expected: Enabled},
		{state: Default, isValidator: false, expected: Disabled},
		{state: Enable, isValidator: false, expected: Enabled},
		{state: ForceEnable, isValidator: false, expected: Enabled},
		{state: Disable, isValidator: true, expected: Disabled},
		{state: ForceDisable, isValidator: true, expected: Disabled},
	}
	for _, test := range tests {
		name := test.state.String()
		if test.isValidator {
			name += "/validator"
		}
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			db := newStore(t, nil)
			state, err := Reconcile(logging.NoLog{}, db, Config{
				State:       test.state,
				IsValidator: test.isValidator,
			})
			require.NoError(err)
			require.Equal(test.expected, state)
			require.Equal(
				Record{Enabled: test.expected.IsEnabled()}.Bytes(),
				readStored(t, db),
			)
		})
	}
}

func TestReconcileTransitions(t *testing.T) {
	tests := []struct {
		name        string
		prev        Record
		state       DesiredState
		expected    ResolvedState
		expectedRec Record
		expectedErr error
	}{
		{
			name:        "enabled then disable",
			prev:        Record{Enabled: true},
			state:       Disable,
			expectedErr: ErrResyncRequired,
		},
		{
			name:        "disabled then enable",
			prev:        Record{Enabled: false},
			state:       Enable,
			expectedErr: ErrResyncRequired,
		},
		{
			name:        "enabled with warning then disable",
			prev:        Record{Enabled: true, NeedsWarning: true},
			state:       Disable,
			expectedErr: ErrResyncRequired,
		},
		{
			name:        "enabled then enable",
			prev:        Record{Enabled: true},
			state:       Enable,
			expected:    Enabled,
			expectedRec: Record{Enabled: true},
		},
		{
			name:        "enabled then force enable",
			prev:        Record{Enabled: true},
			state:       ForceEnable,
			expected:    Enabled,
			expectedRec: Record{Enabled: true},
		},
		{
			name:        "disabled then disable",
			prev:        Record{Enabled: false},
			state:       Disable,
			expected:    Disabled,
			expectedRec: Record{Enabled: false},
		},
		{
			name:        "disabled then force disable",
			prev:        Record{Enabled: false},
			state:       ForceDisable,
			expected:    Disabled,
			expectedRec: Record{Enabled: false},
		},
		{
			name:        "enabled then force disable",
			prev:        Record{Enabled: true},
			state:       ForceDisable,
			expected:    Disabled,
			expectedRec: Record{Enabled: false, NeedsWarning: true},
		},
		{
			name:        "disabled then force enable",
			prev:        Record{Enabled: false},
			state:       ForceEnable,
			expected:    Enabled,
			expectedRec: Record{Enabled: true, NeedsWarning: true},
		},
		{
			name:        "enabled then default",
			prev:        Record{Enabled: true},
			state:       Default,
			expected:    Enabled,
			expectedRec: Record{Enabled: true},
		},
		{
			name:        "disabled with warning then default",
			prev:        Record{Enabled: false, NeedsWarning: true},
			state:       Default,
			expected:    Disabled,
			expectedRec: Record{Enabled: false, NeedsWarning: true},
		},
		{
			name:        "enabled with warning then enable",
			prev:        Record{Enabled: true, NeedsWarning: true},
			state:       Enable,
			expected:    Enabled,
			expectedRec: Record{Enabled: true, NeedsWarning: true},
		},
		{
			name:        "disabled with warning then force enable",
			prev:        Record{Enabled: false, NeedsWarning: true},
			state:       ForceEnable,
			expected:    Enabled,
			expectedRec: Record{Enabled: true, NeedsWarning: true},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			for _, isValidator := range []bool{false, true} {
				db := newStore(t, test.prev.Bytes())
				state, err := Reconcile(logging.NoLog{}, db, Config{
					State:       test.state,
					IsValidator: isValidator,
				})
				require.ErrorIs(err, test.expectedErr)
				if test.expectedErr != nil {
					// The persisted record must be left untouched.
					require.Equal(test.prev.Bytes(), readStored(t, db))
					continue
				}

				require.Equal(test.expected, state)
				require.Equal(test.expectedRec.Bytes(), readStored(t, db))
			}
		})
	}
}

func TestReconcileIdempotent(t *testing.T) {
	for _, state := range []DesiredState{Default, Enable, Disable, ForceEnable, ForceDisable} {
		t.Run(state.String(), func(t *testing.T) {
			require := require.New(t)

			db := newStore(t, nil)
			cfg := Config{State: state, IsValidator: true}

			first, err := Reconcile(logging.NoLog{}, db, cfg)
			require.NoError(err)
			firstRecord := readStored(t, db)

			second, err := Reconcile(logging.NoLog{}, db, cfg)
			require.NoError(err)
			require.Equal(first, second)
			require.Equal(firstRecord, readStored(t, db))
		})
	}
}

func TestReconcileWarnings(t *testing.T) {
	tests := []struct {
		name             string
		prev             []byte
		state            DesiredState
		expectedMessages []string
	}{
		{
			name:  "first start",
			state: Default,
		},
		{
			name:  "no change",
			prev:  Record{Enabled: true}.Bytes(),
			state: Enable,
		},
		{
			name:             "latch is reported",
			prev:             Record{Enabled: false, NeedsWarning: true}.Bytes(),
			state:            Default,
			expectedMessages: []string{incompleteDataMsg},
		},
		{
			name:             "forced override is reported",
			prev:             Record{Enabled: true}.Bytes(),
			state:            ForceDisable,
			expectedMessages: []string{"offchain indexing state overridden"},
		},
		{
			name:  "forced state matching the record is silent",
			prev:  Record{Enabled: true}.Bytes(),
			state: ForceEnable,
		},
		{
			name:  "latch and forced override are reported",
			prev:  Record{Enabled: false, NeedsWarning: true}.Bytes(),
			state: ForceEnable,
			expectedMessages: []string{
				incompleteDataMsg,
				"offchain indexing state overridden",
			},
		},
		{
			name:             "corrupt record is reported",
			prev:             []byte{0x01, 0x01, 0x01},
			state:            Disable,
			expectedMessages: []string{"ignoring corrupt offchain indexing record"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			log, logs := logging.NewObservedLogger(logging.Verbo)
			_, err := Reconcile(log, newStore(t, test.prev), Config{State: test.state})
			require.NoError(err)

			var messages []string
			for _, entry := range logs.FilterLevelExact(zapcore.Level(logging.Warn)).All() {
				messages = append(messages, entry.Message)
			}
			require.Equal(test.expectedMessages, messages)
		})
	}
}

func TestReconcileCorruptRecordTreatedAsAbsent(t *testing.T) {
	for _, corrupt := range [][]byte{
		{},
		{0x02},
		{0x01, 0x07},
		{0x00, 0x00, 0x00},
	} {
		require := require.New(t)

		db := newStore(t, corrupt)
		state, err := Reconcile(logging.NoLog{}, db, Config{
			State:       Default,
			IsValidator: true,
		})
		require.NoError(err)
		require.Equal(Enabled, state)
		require.Equal(Record{Enabled: true}.Bytes(), readStored(t, db))
	}
}

func TestReconcileLegacyRecord(t *testing.T) {
	require := require.New(t)

	db := newStore(t, []byte{database.BoolTrue})
	state, err := Reconcile(logging.NoLog{}, db, Config{State: Default})
	require.NoError(err)
	require.Equal(Enabled, state)
	require.Equal(Record{Enabled: true}.Bytes(), readStored(t, db))

	db = newStore(t, []byte{database.BoolFalse})
	_, err = Reconcile(logging.NoLog{}, db, Config{State: Enable})
	require.ErrorIs(err, ErrResyncRequired)
	require.Equal([]byte{database.BoolFalse}, readStored(t, db))
}

func TestReconcileUnknownState(t *testing.T) {
	require := require.New(t)

	db := newStore(t, nil)
	_, err := Reconcile(logging.NoLog{}, db, Config{State: DesiredState(42)})
	require.ErrorIs(err, ErrUnknownState)

	has, err := db.Has(RecordColumn, RecordKey)
	require.NoError(err)
	require.False(has)

	db = newStore(t, Record{Enabled: true}.Bytes())
	_, err = Reconcile(logging.NoLog{}, db, Config{State: DesiredState(42)})
	require.ErrorIs(err, ErrUnknownState)
}

func TestReconcileStoreErrors(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		require := require.New(t)
		ctrl := gomock.NewController(t)

		store := kvdbmock.NewDB(ctrl)
		store.EXPECT().Get(RecordColumn, RecordKey).Return(nil, errTest)

		_, err := Reconcile(logging.NoLog{}, store, Config{State: Default})
		require.ErrorIs(err, ErrStore)
		require.ErrorIs(err, errTest)
	})

	t.Run("write", func(t *testing.T) {
		require := require.New(t)
		ctrl := gomock.NewController(t)

		store := kvdbmock.NewDB(ctrl)
		store.EXPECT().Get(RecordColumn, RecordKey).Return(nil, database.ErrNotFound)
		store.EXPECT().Write(gomock.Any()).DoAndReturn(func(tx *kvdb.Transaction) error {
			require.Equal(1, tx.Len())
			return errTest
		})

		_, err := Reconcile(logging.NoLog{}, store, Config{State: Enable})
		require.ErrorIs(err, ErrStore)
		require.ErrorIs(err, errTest)
	})

	t.Run("closed", func(t *testing.T) {
		require := require.New(t)

		base := memdb.New()
		require.NoError(base.Close())

		_, err := Reconcile(logging.NoLog{}, kvdb.New(base), Config{State: Default})
		require.ErrorIs(err, ErrStore)
		require.ErrorIs(err, database.ErrClosed)
	})
}

func TestReconcileWritesOneRecord(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	store := kvdbmock.NewDB(ctrl)
	store.EXPECT().Get(RecordColumn, RecordKey).Return(Record{Enabled: true}.Bytes(), nil)
	store.EXPECT().Write(gomock.Any()).DoAndReturn(func(tx *kvdb.Transaction) error {
		var written [][]byte
		err := tx.Replay(
			func(column kvdb.Column, key, value []byte) error {
				require.Equal(RecordColumn, column)
				require.Equal(RecordKey, key)
				written = append(written, value)
				return nil
			},
			func(kvdb.Column, []byte) error {
				return errTest
			},
		)
		require.NoError(err)
		require.Equal([][]byte{{database.BoolFalse, database.BoolTrue}}, written)
		return nil
	})

	state, err := Reconcile(logging.NoLog{}, store, Config{State: ForceDisable})
	require.NoError(err)
	require.Equal(Disabled, state)
}
