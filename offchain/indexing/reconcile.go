// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package indexing decides, once per startup, whether block import may write
// to the offchain store.
//
// The decision is persisted so that a node which indexed offchain data never
// silently stops doing so, and a node which did not never silently starts.
// Either change leaves gaps in the historical offchain data and therefore
// requires a re-sync or an explicit Force override.
package indexing

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/kvdb"
	"github.com/emostov/substrate/utils/logging"
)

const (
	// RecordColumn is the column the Record is persisted in.
	RecordColumn = kvdb.ColumnMeta

	disableReason = "the database requires offchain indexing to be enabled. " +
		"Start a separate database or use ForceDisable, but be aware that " +
		"re-enabling will require a re-sync"
	enableReason = "re-sync required due to config change of offchain indexing"
)

var (
	// RecordKey is the metadata key the Record is persisted under.
	RecordKey = []byte("offchain_indexing")

	// ErrResyncRequired is returned when the desired state conflicts with the
	// persisted state. Startup must be aborted.
	ErrResyncRequired = errors.New("offchain indexing re-sync required")
	// ErrStore is returned when the record could not be read or written.
	ErrStore = errors.New("offchain indexing store failure")
)

// Store is the part of the node database the reconciliation uses.
type Store interface {
	// Get returns database.ErrNotFound if [key] is not present in [column].
	Get(column kvdb.Column, key []byte) ([]byte, error)
	// Write atomically applies [tx].
	Write(tx *kvdb.Transaction) error
}

// Reconcile resolves [cfg] against the record persisted in [store], persists
// the result and returns it. Reconcile must run before any block is imported.
//
// On error nothing is written and the returned state must be ignored.
func Reconcile(log logging.Logger, store Store, cfg Config) (ResolvedState, error) {
	prev, exists, err := readRecord(log, store)
	if err != nil {
		return Disabled, err
	}

	var next Record
	if exists {
		if prev.NeedsWarning {
			log.Warn("historical offchain data may be incomplete",
				zap.String("reason", "offchain indexing was previously changed by a forced override"),
			)
		}
		next, err = transition(prev, cfg.State)
		if err != nil {
			return Disabled, err
		}
		if cfg.State.IsForced() && next.Enabled != prev.Enabled {
			log.Warn("offchain indexing state overridden",
				zap.Stringer("desiredState", cfg.State),
				zap.Bool("previouslyEnabled", prev.Enabled),
				zap.Bool("enabled", next.Enabled),
			)
		}
	} else {
		next, err = firstStart(cfg)
		if err != nil {
			return Disabled, err
		}
	}

	tx := kvdb.NewTransaction()
	tx.Put(RecordColumn, RecordKey, next.Bytes())
	if err := store.Write(tx); err != nil {
		return Disabled, fmt.Errorf("%w: failed to write record: %w", ErrStore, err)
	}

	state := resolved(next.Enabled)
	log.Info("resolved offchain indexing",
		zap.Stringer("desiredState", cfg.State),
		zap.Bool("isValidator", cfg.IsValidator),
		zap.Bool("firstStart", !exists),
		zap.Stringer("state", state),
	)
	return state, nil
}

// readRecord returns the persisted record and whether one exists. A record that
// can't be parsed is reported and treated as absent.
func readRecord(log logging.Logger, store Store) (Record, bool, error) {
	recordBytes, err := store.Get(RecordColumn, RecordKey)
	if errors.Is(err, database.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: failed to read record: %w", ErrStore, err)
	}

	record, err := ParseRecord(recordBytes)
	if err != nil {
		log.Warn("ignoring corrupt offchain indexing record",
			zap.Binary("record", recordBytes),
			zap.Error(err),
		)
		return Record{}, false, nil
	}
	return record, true, nil
}

func firstStart(cfg Config) (Record, error) {
	switch cfg.State {
	case Default:
		return Record{Enabled: cfg.IsValidator}, nil
	case Enable, ForceEnable:
		return Record{Enabled: true}, nil
	case Disable, ForceDisable:
		return Record{Enabled: false}, nil
	default:
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownState, cfg.State)
	}
}

// transition applies [desired] to the persisted [prev]. Only a Force override
// that changes the value sets the warning latch.
func transition(prev Record, desired DesiredState) (Record, error) {
	switch desired {
	case Default:
		return prev, nil
	case Enable:
		if !prev.Enabled {
			return Record{}, fmt.Errorf("%w: %s", ErrResyncRequired, enableReason)
		}
		return prev, nil
	case Disable:
		if prev.Enabled {
			return Record{}, fmt.Errorf("%w: %s", ErrResyncRequired, disableReason)
		}
		return prev, nil
	case ForceEnable:
		return Record{
			Enabled:      true,
			NeedsWarning: prev.NeedsWarning || !prev.Enabled,
		}, nil
	case ForceDisable:
		return Record{
			Enabled:      false,
			NeedsWarning: prev.NeedsWarning || prev.Enabled,
		}, nil
	default:
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownState, desired)
	}
}
