// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package constants

// Const variables to be exported
const (
	// AppName is the name of this application
	AppName = "substrate"

	// Version is the version of this application
	Version = "0.1.0"

	// DefaultHTTPPort is the port the node's API is served on by default
	DefaultHTTPPort = 9933
)
