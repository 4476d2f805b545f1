// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package offchain turns the operator's offchain flags into the configuration
// handed to block import.
package offchain

import (
	"encoding"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/emostov/substrate/node/role"
	"github.com/emostov/substrate/offchain/indexing"
	"github.com/emostov/substrate/utils/logging"
)

var (
	_ encoding.TextMarshaler   = WhenValidating
	_ encoding.TextUnmarshaler = (*WorkerMode)(nil)

	ErrUnknownWorkerMode = errors.New("unknown offchain worker mode")
)

// WorkerMode selects when offchain workers run.
type WorkerMode uint8

const (
	// WhenValidating runs offchain workers only on Authority nodes.
	WhenValidating WorkerMode = iota
	Always
	Never
)

var workerModeNames = map[WorkerMode]string{
	WhenValidating: "WhenValidating",
	Always:         "Always",
	Never:          "Never",
}

var separators = strings.NewReplacer("-", "", "_", "")

// ParseWorkerMode parses [s] case-insensitively. Dashes and underscores are
// ignored, so "when-validating" and "when_validating" are equal.
func ParseWorkerMode(s string) (WorkerMode, error) {
	normalized := separators.Replace(strings.TrimSpace(s))
	for mode, name := range workerModeNames {
		if strings.EqualFold(name, normalized) {
			return mode, nil
		}
	}
	return WhenValidating, fmt.Errorf("%w: %q", ErrUnknownWorkerMode, s)
}

// ShouldRun reports whether offchain workers run on a node with [r].
func (m WorkerMode) ShouldRun(r role.Role) bool {
	switch m {
	case Always:
		return true
	case Never:
		return false
	default:
		return r == role.Authority
	}
}

func (m WorkerMode) String() string {
	if name, ok := workerModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("WorkerMode(%d)", uint8(m))
}

func (m WorkerMode) MarshalText() ([]byte, error) {
	if _, ok := workerModeNames[m]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWorkerMode, uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *WorkerMode) UnmarshalText(text []byte) error {
	mode, err := ParseWorkerMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Params are the offchain flags as given by the operator.
type Params struct {
	WorkerMode WorkerMode            `json:"workerMode"`
	Indexing   indexing.DesiredState `json:"indexing"`
}

// Config combines [p] with the node's [r].
func (p Params) Config(r role.Role) Config {
	return Config{
		WorkersEnabled: p.WorkerMode.ShouldRun(r),
		Indexing: indexing.Config{
			State:       p.Indexing,
			IsValidator: r.IsValidator(),
		},
	}
}

// Config is the offchain configuration before the indexing state has been
// reconciled with the database.
type Config struct {
	WorkersEnabled bool            `json:"workersEnabled"`
	Indexing       indexing.Config `json:"indexing"`
}

// Resolve reconciles the indexing configuration with [store].
func (c Config) Resolve(log logging.Logger, store indexing.Store) (WorkerConfig, error) {
	state, err := indexing.Reconcile(log, store, c.Indexing)
	if err != nil {
		return WorkerConfig{}, err
	}

	log.Info("offchain workers configured",
		zap.Bool("workersEnabled", c.WorkersEnabled),
		zap.Stringer("indexing", state),
	)
	return WorkerConfig{
		Enabled:  c.WorkersEnabled,
		Indexing: state,
	}, nil
}

// WorkerConfig is the resolved offchain configuration.
type WorkerConfig struct {
	// Enabled is true if offchain workers run on every imported block.
	Enabled bool `json:"enabled"`
	// Indexing gates whether block import may write to the offchain store.
	Indexing indexing.ResolvedState `json:"indexing"`
}
