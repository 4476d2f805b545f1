// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockimport

import (
	"errors"
	"fmt"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/utils/hashing"
)

const blockRefLen = database.Uint64Size + hashing.HashLen

var errInvalidBlockRef = errors.New("invalid block reference")

// Write is an offchain index change produced while executing a block.
type Write struct {
	Key   []byte
	Value []byte
	// Clear removes Key instead of setting it.
	Clear bool
}

type Block struct {
	Number     uint64
	ParentHash hashing.Hash256
	Header     []byte
	Body       []byte

	OffchainWrites []Write
}

// Hash commits to the number, the parent and the header of the block.
func (b *Block) Hash() hashing.Hash256 {
	preimage := make([]byte, 0, blockRefLen+len(b.Header))
	preimage = append(preimage, database.PackUInt64(b.Number)...)
	preimage = append(preimage, b.ParentHash[:]...)
	preimage = append(preimage, b.Header...)
	return hashing.ComputeHash256Array(preimage)
}

// Ref identifies a block by number and hash.
type Ref struct {
	Number uint64          `json:"number"`
	Hash   hashing.Hash256 `json:"hash"`
}

// Bytes is also the key blocks are stored under, so blocks iterate in number
// order.
func (r Ref) Bytes() []byte {
	b := make([]byte, 0, blockRefLen)
	b = append(b, database.PackUInt64(r.Number)...)
	return append(b, r.Hash[:]...)
}

func parseRef(b []byte) (Ref, error) {
	if len(b) != blockRefLen {
		return Ref{}, fmt.Errorf("%w: expected %d bytes but got %d", errInvalidBlockRef, blockRefLen, len(b))
	}
	number, err := database.ParseUInt64(b[:database.Uint64Size])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %w", errInvalidBlockRef, err)
	}
	hash, err := hashing.ToHash256(b[database.Uint64Size:])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %w", errInvalidBlockRef, err)
	}
	return Ref{
		Number: number,
		Hash:   hash,
	}, nil
}
