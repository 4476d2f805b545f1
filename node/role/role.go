// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package role

import (
	"encoding"
	"errors"
	"fmt"
	"strings"
)

var (
	_ fmt.Stringer             = Full
	_ encoding.TextMarshaler   = Full
	_ encoding.TextUnmarshaler = (*Role)(nil)

	ErrUnknownRole = errors.New("unknown node role")
)

// Role is the part a node plays in the network.
type Role uint8

const (
	// Full nodes import and serve blocks.
	Full Role = iota
	// Authority nodes author blocks and take part in consensus.
	Authority
	Light
	Sentry
)

var roleNames = map[Role]string{
	Full:      "Full",
	Authority: "Authority",
	Light:     "Light",
	Sentry:    "Sentry",
}

// Parse parses [s] case-insensitively.
func Parse(s string) (Role, error) {
	for role, name := range roleNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return role, nil
		}
	}
	return Full, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// IsValidator is true only for Authority nodes.
func (r Role) IsValidator() bool {
	return r == Authority
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

func (r Role) MarshalText() ([]byte, error) {
	if _, ok := roleNames[r]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}
