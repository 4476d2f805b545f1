// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"time"

	"github.com/emostov/substrate/database/factory"
	"github.com/emostov/substrate/node/role"
	"github.com/emostov/substrate/offchain"
	"github.com/emostov/substrate/utils/logging"
)

type APIConfig struct {
	// Enable/Disable APIs
	InfoAPIEnabled    bool `json:"infoAPIEnabled"`
	MetricsAPIEnabled bool `json:"metricsAPIEnabled"`
}

type HTTPConfig struct {
	APIConfig `json:"apiConfig"`
	HTTPHost  string `json:"httpHost"`
	HTTPPort  uint16 `json:"httpPort"`

	APIAllowedOrigins []string `json:"apiAllowedOrigins"`

	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// Config contains all of the configurations of a node.
type Config struct {
	HTTPConfig `json:"httpConfig"`

	DatabaseConfig factory.DatabaseConfig `json:"databaseConfig"`

	// Genesis information. Its hash binds the database to one chain.
	GenesisBytes []byte `json:"-"`

	// Role the node runs as. Validators index offchain data by default.
	Role role.Role `json:"role"`

	// Offchain workers and indexing as requested by the operator. The
	// indexing state actually used is only known after Initialize.
	Offchain offchain.Params `json:"offchain"`

	LoggingConfig logging.Config `json:"loggingConfig"`
}
