// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/emostov/substrate/api/info"
	"github.com/emostov/substrate/api/metrics"
	"github.com/emostov/substrate/api/server"
	"github.com/emostov/substrate/blockimport"
	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/factory"
	"github.com/emostov/substrate/database/kvdb"
	"github.com/emostov/substrate/offchain"
	"github.com/emostov/substrate/offchain/storage"
	"github.com/emostov/substrate/utils/constants"
	"github.com/emostov/substrate/utils/hashing"
	"github.com/emostov/substrate/utils/logging"
	"github.com/emostov/substrate/utils/wrappers"
)

var (
	genesisHashKey = []byte("genesis_hash")

	errInvalidGenesis = errors.New("db contains invalid genesis hash")
)

// Node is an instance of a substrate node.
type Node struct {
	Log        logging.Logger
	LogFactory logging.Factory
	HTTPLog    logging.Logger

	Config *Config

	// Storage for this node
	DB   database.Database
	KVDB *kvdb.Database

	GenesisHash hashing.Hash256

	// Offchain configuration after the indexing state was reconciled with
	// the database
	Offchain offchain.WorkerConfig

	MetricsRegisterer *prometheus.Registry
	MetricsHandler    http.Handler

	Importer *blockimport.Importer

	// Handles HTTP API calls
	APIServer *server.Server

	shutdownOnce sync.Once
	shutdownErr  error
}

// Initialize this node
func (n *Node) Initialize(
	config *Config,
	logger logging.Logger,
	logFactory logging.Factory,
) error {
	n.Log = logger
	n.LogFactory = logFactory
	n.Config = config

	httpLog, err := logFactory.Make("http")
	if err != nil {
		return fmt.Errorf("problem initializing HTTP logger: %w", err)
	}
	n.HTTPLog = httpLog

	n.MetricsRegisterer, n.MetricsHandler, err = metrics.NewService()
	if err != nil {
		return fmt.Errorf("problem initializing metrics registry: %w", err)
	}

	if err := n.initDatabase(); err != nil { // Set up the node's database
		return fmt.Errorf("problem initializing database: %w", err)
	}

	// The database is closed if any later step fails.
	if err := n.initAfterDatabase(); err != nil {
		return errors.Join(err, n.DB.Close())
	}
	return nil
}

func (n *Node) initAfterDatabase() error {
	if err := n.initGenesis(); err != nil {
		return fmt.Errorf("problem initializing genesis: %w", err)
	}
	if err := n.initOffchain(); err != nil {
		return fmt.Errorf("problem initializing offchain indexing: %w", err)
	}
	if err := n.initMetrics(); err != nil {
		return fmt.Errorf("problem initializing metrics: %w", err)
	}
	if err := n.initBlockImport(); err != nil {
		return fmt.Errorf("problem initializing block import: %w", err)
	}
	if err := n.initAPIServer(); err != nil {
		return fmt.Errorf("problem initializing API server: %w", err)
	}
	return nil
}

func (n *Node) initDatabase() error {
	db, err := factory.NewDatabase(
		n.Config.DatabaseConfig,
		prometheus.WrapRegistererWithPrefix("db_", n.MetricsRegisterer),
		n.Log,
	)
	if err != nil {
		return err
	}
	n.DB = db
	n.KVDB = kvdb.New(db)

	n.Log.Info("initialized database",
		zap.String("type", n.Config.DatabaseConfig.Name),
		zap.String("path", n.Config.DatabaseConfig.Path),
		zap.Bool("readOnly", n.Config.DatabaseConfig.ReadOnly),
	)
	return nil
}

// initGenesis binds the database to the configured genesis. A database
// created for another genesis is never opened.
func (n *Node) initGenesis() error {
	expectedGenesisHash := hashing.ComputeHash256Array(n.Config.GenesisBytes)

	rawGenesisHash, err := n.KVDB.Get(kvdb.ColumnMeta, genesisHashKey)
	if errors.Is(err, database.ErrNotFound) {
		rawGenesisHash = expectedGenesisHash[:]

		tx := kvdb.NewTransaction()
		tx.Put(kvdb.ColumnMeta, genesisHashKey, rawGenesisHash)
		err = n.KVDB.Write(tx)
	}
	if err != nil {
		return err
	}

	if !bytes.Equal(rawGenesisHash, expectedGenesisHash[:]) {
		return fmt.Errorf("%w: DB genesis %x, generated genesis %x",
			errInvalidGenesis,
			rawGenesisHash,
			expectedGenesisHash,
		)
	}
	n.GenesisHash = expectedGenesisHash
	return nil
}

// initOffchain reconciles the requested offchain indexing state with the
// database. Nothing may read or write offchain data before this succeeded.
func (n *Node) initOffchain() error {
	config := n.Config.Offchain.Config(n.Config.Role)
	workerConfig, err := config.Resolve(n.Log, n.KVDB)
	if err != nil {
		return err
	}
	n.Offchain = workerConfig
	return nil
}

func (n *Node) initMetrics() error {
	indexingEnabled := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "offchain_indexing_enabled",
		Help: "1 if offchain indexing is enabled, 0 otherwise",
	})
	workersEnabled := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "offchain_workers_enabled",
		Help: "1 if offchain workers are enabled, 0 otherwise",
	})

	errs := wrappers.Errs{}
	errs.Add(
		n.MetricsRegisterer.Register(indexingEnabled),
		n.MetricsRegisterer.Register(workersEnabled),
	)
	if errs.Errored() {
		return errs.Err
	}

	if n.Offchain.Indexing.IsEnabled() {
		indexingEnabled.Set(1)
	}
	if n.Offchain.Enabled {
		workersEnabled.Set(1)
	}
	return nil
}

func (n *Node) initBlockImport() error {
	importer, err := blockimport.New(
		n.Log,
		n.KVDB,
		n.Offchain,
		n.GenesisHash,
		prometheus.WrapRegistererWithPrefix("block_import_", n.MetricsRegisterer),
	)
	if err != nil {
		return err
	}
	n.Importer = importer
	return nil
}

// initAPIServer creates the API server and registers the enabled APIs.
func (n *Node) initAPIServer() error {
	n.Log.Info("initializing API server")

	n.APIServer = server.New(
		n.HTTPLog,
		n.Config.HTTPHost,
		n.Config.HTTPPort,
		n.Config.APIAllowedOrigins,
		n.Config.ShutdownTimeout,
	)

	if n.Config.InfoAPIEnabled {
		service, err := info.NewService(
			info.Parameters{
				Version:  constants.Version,
				Role:     n.Config.Role,
				Offchain: n.Offchain,
			},
			n.Log,
			n.Importer,
			storage.NewStore(n.KVDB),
		)
		if err != nil {
			return err
		}
		if err := n.APIServer.AddRoute(service, "info", ""); err != nil {
			return err
		}
	} else {
		n.Log.Info("skipping info API initialization because it has been disabled")
	}

	if !n.Config.MetricsAPIEnabled {
		n.Log.Info("skipping metrics API initialization because it has been disabled")
		return nil
	}
	return n.APIServer.AddRoute(n.MetricsHandler, "metrics", "")
}

// Dispatch starts the node's servers.
// Returns when the node exits.
func (n *Node) Dispatch() error {
	err := n.APIServer.Dispatch()
	if err != nil {
		n.Log.Error("API server dispatch failed",
			zap.Error(err),
		)
	}
	return err
}

// DispatchOn is Dispatch serving the API on [listener].
func (n *Node) DispatchOn(listener net.Listener) error {
	err := n.APIServer.DispatchOn(listener)
	if err != nil {
		n.Log.Error("API server dispatch failed",
			zap.Error(err),
		)
	}
	return err
}

// Shutdown this node
// May be called multiple times
func (n *Node) Shutdown() error {
	n.shutdownOnce.Do(n.shutdown)
	return n.shutdownErr
}

func (n *Node) shutdown() {
	n.Log.Info("shutting down node")

	errs := wrappers.Errs{}
	if n.APIServer != nil {
		errs.Add(n.APIServer.Shutdown())
	}
	if n.DB != nil {
		errs.Add(n.DB.Close())
	}
	n.shutdownErr = errs.Err

	if errs.Errored() {
		n.Log.Warn("error during node shutdown",
			zap.Error(errs.Err),
		)
	}
	n.Log.Info("finished node shutdown")
}
