// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package database

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	Uint64Size = 8 // bytes
	BoolSize   = 1 // bytes
	BoolFalse  = 0x00
	BoolTrue   = 0x01
)

var (
	errWrongSize   = errors.New("value has unexpected size")
	errInvalidBool = errors.New("invalid boolean byte")
)

func PackUInt64(val uint64) []byte {
	bytes := make([]byte, Uint64Size)
	binary.BigEndian.PutUint64(bytes, val)
	return bytes
}

func ParseUInt64(b []byte) (uint64, error) {
	if len(b) != Uint64Size {
		return 0, errWrongSize
	}
	return binary.BigEndian.Uint64(b), nil
}

// PackBool returns the single byte encoding of [b].
func PackBool(b bool) byte {
	if b {
		return BoolTrue
	}
	return BoolFalse
}

// ParseBool is the inverse of PackBool. Any byte other than BoolFalse or
// BoolTrue is rejected.
func ParseBool(b byte) (bool, error) {
	switch b {
	case BoolFalse:
		return false, nil
	case BoolTrue:
		return true, nil
	default:
		return false, fmt.Errorf("%w: should be %d or %d but is %d", errInvalidBool, BoolFalse, BoolTrue, b)
	}
}
