// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexing

import (
	"encoding"
	"errors"
	"fmt"
	"strings"
)

var (
	_ fmt.Stringer             = DesiredState(0)
	_ encoding.TextMarshaler   = DesiredState(0)
	_ encoding.TextUnmarshaler = (*DesiredState)(nil)
	_ fmt.Stringer             = ResolvedState(0)

	ErrUnknownState = errors.New("unknown offchain indexing state")
)

// DesiredState is the operator's requested offchain indexing behaviour.
type DesiredState uint8

const (
	// Default follows the validator role on the first start and keeps the
	// persisted value afterwards.
	Default DesiredState = iota
	Enable
	Disable
	// ForceEnable enables indexing even if it was previously disabled.
	ForceEnable
	// ForceDisable disables indexing even if it was previously enabled.
	ForceDisable
)

var desiredStateNames = map[DesiredState]string{
	Default:      "Default",
	Enable:       "Enable",
	Disable:      "Disable",
	ForceEnable:  "ForceEnable",
	ForceDisable: "ForceDisable",
}

var desiredStateAliases = map[string]DesiredState{
	"default":       Default,
	"enable":        Enable,
	"enabled":       Enable,
	"disable":       Disable,
	"disabled":      Disable,
	"forceenable":   ForceEnable,
	"forceenabled":  ForceEnable,
	"forcedisable":  ForceDisable,
	"forcedisabled": ForceDisable,
}

// ParseDesiredState parses [s] case-insensitively. Dashes and underscores are
// ignored, so "force-enable", "Force_Enable" and "ForceEnable" are equal.
func ParseDesiredState(s string) (DesiredState, error) {
	normalized := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(s)))
	state, ok := desiredStateAliases[normalized]
	if !ok {
		return Default, fmt.Errorf("%w: %q", ErrUnknownState, s)
	}
	return state, nil
}

func (s DesiredState) String() string {
	if name, ok := desiredStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DesiredState(%d)", uint8(s))
}

// IsForced reports whether [s] overrides a conflicting persisted value.
func (s DesiredState) IsForced() bool {
	return s == ForceEnable || s == ForceDisable
}

func (s DesiredState) MarshalText() ([]byte, error) {
	if _, ok := desiredStateNames[s]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *DesiredState) UnmarshalText(text []byte) error {
	state, err := ParseDesiredState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// Config is the offchain indexing configuration of this process.
type Config struct {
	State       DesiredState `json:"state"`
	IsValidator bool         `json:"isValidator"`
}

// ResolvedState is the outcome of reconciliation. Unlike DesiredState it can
// only be enabled or disabled.
type ResolvedState uint8

const (
	Disabled ResolvedState = iota
	Enabled
)

func resolved(enabled bool) ResolvedState {
	if enabled {
		return Enabled
	}
	return Disabled
}

func (s ResolvedState) IsEnabled() bool {
	return s == Enabled
}

func (s ResolvedState) String() string {
	if s.IsEnabled() {
		return "Enabled"
	}
	return "Disabled"
}

func (s ResolvedState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
