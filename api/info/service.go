// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package info

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/rpc/v2"
	"go.uber.org/zap"

	"github.com/emostov/substrate/blockimport"
	"github.com/emostov/substrate/node/role"
	"github.com/emostov/substrate/offchain"
	"github.com/emostov/substrate/offchain/storage"
	"github.com/emostov/substrate/utils/logging"

	cjson "github.com/emostov/substrate/utils/json"
)

var errNoKey = errors.New("key must be given")

// Info is the API service for unprivileged info on a node
type Info struct {
	Parameters
	log      logging.Logger
	importer *blockimport.Importer
	offchain *storage.Store
}

type Parameters struct {
	Version  string
	Role     role.Role
	Offchain offchain.WorkerConfig
}

// NewService returns a new info API service
func NewService(
	parameters Parameters,
	log logging.Logger,
	importer *blockimport.Importer,
	offchain *storage.Store,
) (http.Handler, error) {
	server := rpc.NewServer()
	codec := cjson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	return server, server.RegisterService(
		&Info{
			Parameters: parameters,
			log:        log,
			importer:   importer,
			offchain:   offchain,
		},
		"info",
	)
}

// GetNodeVersionReply are the results from calling GetNodeVersion
type GetNodeVersionReply struct {
	Version string `json:"version"`
}

// GetNodeVersion returns the version this node is running
func (i *Info) GetNodeVersion(_ *http.Request, _ *struct{}, reply *GetNodeVersionReply) error {
	i.log.Debug("API called",
		zap.String("service", "info"),
		zap.String("method", "getNodeVersion"),
	)

	reply.Version = i.Version
	return nil
}

// GetOffchainConfigReply are the results from calling GetOffchainConfig
type GetOffchainConfigReply struct {
	Role            role.Role `json:"role"`
	WorkersEnabled  bool      `json:"workersEnabled"`
	IndexingEnabled bool      `json:"indexingEnabled"`
}

// GetOffchainConfig returns the resolved offchain configuration of this node
func (i *Info) GetOffchainConfig(_ *http.Request, _ *struct{}, reply *GetOffchainConfigReply) error {
	i.log.Debug("API called",
		zap.String("service", "info"),
		zap.String("method", "getOffchainConfig"),
	)

	reply.Role = i.Role
	reply.WorkersEnabled = i.Offchain.Enabled
	reply.IndexingEnabled = i.Offchain.Indexing.IsEnabled()
	return nil
}

// GetBestBlockReply are the results from calling GetBestBlock
type GetBestBlockReply struct {
	Number uint64 `json:"number"`
	Hash   string `json:"hash"`
}

// GetBestBlock returns the best imported block
func (i *Info) GetBestBlock(_ *http.Request, _ *struct{}, reply *GetBestBlockReply) error {
	i.log.Debug("API called",
		zap.String("service", "info"),
		zap.String("method", "getBestBlock"),
	)

	best := i.importer.Best()
	reply.Number = best.Number
	reply.Hash = fmt.Sprintf("0x%x", best.Hash)
	return nil
}

// GetOffchainValueArgs are the arguments for calling GetOffchainValue
type GetOffchainValueArgs struct {
	// Key is hex encoded, optionally prefixed with 0x
	Key string `json:"key"`
}

// GetOffchainValueReply are the results from calling GetOffchainValue
type GetOffchainValueReply struct {
	Value string `json:"value"`
}

// GetOffchainValue returns the value block import indexed under a key. Nothing
// is indexed while offchain indexing is disabled.
func (i *Info) GetOffchainValue(_ *http.Request, args *GetOffchainValueArgs, reply *GetOffchainValueReply) error {
	i.log.Debug("API called",
		zap.String("service", "info"),
		zap.String("method", "getOffchainValue"),
		zap.String("key", args.Key),
	)

	if args.Key == "" {
		return errNoKey
	}
	key, err := hex.DecodeString(strings.TrimPrefix(args.Key, "0x"))
	if err != nil {
		return fmt.Errorf("couldn't decode key %q: %w", args.Key, err)
	}
	value, err := i.offchain.Get(key)
	if err != nil {
		return err
	}
	reply.Value = "0x" + hex.EncodeToString(value)
	return nil
}
