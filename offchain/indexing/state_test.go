// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexing

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/emostov/substrate/database/kvdb"
	"github.com/emostov/substrate/database/memdb"
	"github.com/emostov/substrate/utils/logging"
)

func TestParseDesiredState(t *testing.T) {
	tests := map[string]DesiredState{
		"default":        Default,
		"Default":        Default,
		"enable":         Enable,
		"ENABLED":        Enable,
		"disable":        Disable,
		"Disabled":       Disable,
		"force-enable":   ForceEnable,
		"ForceEnable":    ForceEnable,
		"force_enabled":  ForceEnable,
		"force-disable":  ForceDisable,
		"FORCEDISABLE":   ForceDisable,
		" forcedisable ": ForceDisable,
	}
	for input, expected := range tests {
		t.Run(input, func(t *testing.T) {
			state, err := ParseDesiredState(input)
			require.NoError(t, err)
			require.Equal(t, expected, state)
		})
	}

	_, err := ParseDesiredState("sometimes")
	require.ErrorIs(t, err, ErrUnknownState)
}

func TestDesiredStateText(t *testing.T) {
	require := require.New(t)

	var cfg struct {
		State DesiredState `json:"state"`
	}
	require.NoError(json.Unmarshal([]byte(`{"state":"force-disable"}`), &cfg))
	require.Equal(ForceDisable, cfg.State)

	b, err := json.Marshal(cfg)
	require.NoError(err)
	require.JSONEq(`{"state":"ForceDisable"}`, string(b))

	_, err = DesiredState(9).MarshalText()
	require.ErrorIs(err, ErrUnknownState)
	require.Equal("DesiredState(9)", DesiredState(9).String())
}

func TestResolvedState(t *testing.T) {
	require := require.New(t)

	require.True(Enabled.IsEnabled())
	require.False(Disabled.IsEnabled())
	require.Equal(Disabled, ResolvedState(0))
	require.Equal("Enabled", Enabled.String())
	require.Equal("Disabled", Disabled.String())
}

// TestReconcileSequenceProperties runs random sequences of restarts and checks
// that the persisted value only flips under a Force override, and that the
// warning latch is never cleared.
func TestReconcileSequenceProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("enabled only changes when forced and latch is sticky", prop.ForAll(
		func(rawStates []uint8, isValidator bool) string {
			db := kvdb.New(memdb.New())

			var (
				prev    Record
				started bool
			)
			for i, raw := range rawStates {
				state := DesiredState(raw)
				resolvedState, err := Reconcile(logging.NoLog{}, db, Config{
					State:       state,
					IsValidator: isValidator,
				})

				recordBytes, getErr := db.Get(RecordColumn, RecordKey)
				if started && getErr != nil {
					return fmt.Sprintf("step %d: record missing: %v", i, getErr)
				}

				if err != nil {
					if !started {
						return fmt.Sprintf("step %d: first start failed: %v", i, err)
					}
					if string(recordBytes) != string(prev.Bytes()) {
						return fmt.Sprintf("step %d: record changed on error", i)
					}
					continue
				}

				current, err := ParseRecord(recordBytes)
				if err != nil {
					return fmt.Sprintf("step %d: %v", i, err)
				}
				if current.Enabled != resolvedState.IsEnabled() {
					return fmt.Sprintf("step %d: returned %s but persisted %v", i, resolvedState, current.Enabled)
				}
				if started {
					if current.Enabled != prev.Enabled && !state.IsForced() {
						return fmt.Sprintf("step %d: %s changed enabled without force", i, state)
					}
					if prev.NeedsWarning && !current.NeedsWarning {
						return fmt.Sprintf("step %d: warning latch cleared", i)
					}
					if current.NeedsWarning != (prev.NeedsWarning || current.Enabled != prev.Enabled) {
						return fmt.Sprintf("step %d: unexpected warning latch %v", i, current.NeedsWarning)
					}
				} else if current.NeedsWarning {
					return fmt.Sprintf("step %d: first start set warning latch", i)
				}
				prev = current
				started = true
			}
			return ""
		},
		gen.SliceOf(gen.UInt8Range(uint8(Default), uint8(ForceDisable))),
		gen.Bool(),
	))
	properties.TestingRun(t)
}
