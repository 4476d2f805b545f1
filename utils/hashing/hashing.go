// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hashing

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const HashLen = blake2b.Size256

var ErrInvalidHashLen = errors.New("invalid hash length")

// Hash256 A 256 bit long hash value.
type Hash256 = [HashLen]byte

// ComputeHash256Array computes a 256 bit blake2b hash of the input byte slice.
func ComputeHash256Array(buf []byte) Hash256 {
	return blake2b.Sum256(buf)
}

// ComputeHash256 computes a 256 bit blake2b hash of the input byte slice.
func ComputeHash256(buf []byte) []byte {
	arr := ComputeHash256Array(buf)
	return arr[:]
}

// ToHash256 copies [bytes] into a Hash256. [bytes] must be HashLen long.
func ToHash256(bytes []byte) (Hash256, error) {
	hash := Hash256{}
	if bytesLen := len(bytes); bytesLen != HashLen {
		return hash, fmt.Errorf("%w: expected %d bytes but got %d", ErrInvalidHashLen, HashLen, bytesLen)
	}
	copy(hash[:], bytes)
	return hash, nil
}
