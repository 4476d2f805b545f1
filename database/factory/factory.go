// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package factory

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/emostov/substrate/database"
	"github.com/emostov/substrate/database/corruptabledb"
	"github.com/emostov/substrate/database/leveldb"
	"github.com/emostov/substrate/database/memdb"
	"github.com/emostov/substrate/database/meterdb"
	"github.com/emostov/substrate/database/pebbledb"
	"github.com/emostov/substrate/database/versiondb"
	"github.com/emostov/substrate/utils/logging"
)

var errUnknownDatabaseType = errors.New("unknown db-type")

type DatabaseConfig struct {
	// If true, all writes are to memory and are discarded at node shutdown.
	ReadOnly bool `json:"readOnly"`

	// Path to database
	Path string `json:"path"`

	// Name of the database type to use
	Name string `json:"name"`

	// If true, every call is measured by a meterdb.
	MeterEnabled bool `json:"meterEnabled"`

	// Engine specific configuration
	Config []byte `json:"-"`
}

type constructor func(cfg DatabaseConfig, registerer prometheus.Registerer, log logging.Logger) (database.Database, error)

var constructors = map[string]constructor{
	leveldb.Name: func(cfg DatabaseConfig, _ prometheus.Registerer, log logging.Logger) (database.Database, error) {
		return leveldb.New(filepath.Join(cfg.Path, leveldb.Name), cfg.Config, log)
	},
	memdb.Name: func(DatabaseConfig, prometheus.Registerer, logging.Logger) (database.Database, error) {
		return memdb.New(), nil
	},
	pebbledb.Name: func(cfg DatabaseConfig, registerer prometheus.Registerer, log logging.Logger) (database.Database, error) {
		return pebbledb.New(filepath.Join(cfg.Path, pebbledb.Name), cfg.Config, log, registerer)
	},
}

// Names returns the supported database types, sorted.
func Names() []string {
	names := maps.Keys(constructors)
	slices.Sort(names)
	return names
}

// NewDatabase creates a new database instance based on the provided
// configuration. It wraps the database with a corruptable DB, a version DB when
// read-only and, if enabled, a meter DB registered on [registerer].
func NewDatabase(
	cfg DatabaseConfig,
	registerer prometheus.Registerer,
	log logging.Logger,
) (database.Database, error) {
	newDB, ok := constructors[cfg.Name]
	if !ok {
		return nil, fmt.Errorf(
			"%w: %q should have been one of {%s}",
			errUnknownDatabaseType,
			cfg.Name,
			strings.Join(Names(), ", "),
		)
	}

	db, err := newDB(cfg, registerer, log)
	if err != nil {
		return nil, fmt.Errorf("couldn't create %s at %s: %w", cfg.Name, cfg.Path, err)
	}

	db = corruptabledb.New(db)

	if cfg.ReadOnly && cfg.Name != memdb.Name {
		db = versiondb.New(db)
	}

	if !cfg.MeterEnabled {
		return db, nil
	}

	meterDB, err := meterdb.New(prometheus.WrapRegistererWithPrefix("meterdb_", registerer), db)
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("failed to create meterdb: %w", err),
			db.Close(),
		)
	}
	return meterDB, nil
}
