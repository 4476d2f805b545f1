// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexing

import (
	"errors"
	"fmt"

	"github.com/emostov/substrate/database"
)

const (
	legacyRecordLen = database.BoolSize
	recordLen       = 2 * database.BoolSize
)

var ErrInvalidRecord = errors.New("invalid offchain indexing record")

// Record is the persisted outcome of the last reconciliation.
//
// NeedsWarning latches once a forced override changed the value. It is never
// cleared.
type Record struct {
	Enabled      bool
	NeedsWarning bool
}

// Bytes returns the canonical two byte encoding [enabled, needsWarning].
func (r Record) Bytes() []byte {
	return []byte{
		database.PackBool(r.Enabled),
		database.PackBool(r.NeedsWarning),
	}
}

// ParseRecord decodes [b]. A single byte is the legacy encoding without the
// warning latch.
func ParseRecord(b []byte) (Record, error) {
	switch len(b) {
	case legacyRecordLen:
		enabled, err := database.ParseBool(b[0])
		if err != nil {
			return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		return Record{Enabled: enabled}, nil
	case recordLen:
		enabled, err := database.ParseBool(b[0])
		if err != nil {
			return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		needsWarning, err := database.ParseBool(b[1])
		if err != nil {
			return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		return Record{
			Enabled:      enabled,
			NeedsWarning: needsWarning,
		}, nil
	default:
		return Record{}, fmt.Errorf("%w: expected %d or %d bytes but got %d",
			ErrInvalidRecord,
			legacyRecordLen,
			recordLen,
			len(b),
		)
	}
}
