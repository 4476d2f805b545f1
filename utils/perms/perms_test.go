// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package perms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRestrictDirs(t *testing.T) {
	require := require.New(t)

	root := t.TempDir()
	dir := filepath.Join(root, "db")
	require.NoError(os.MkdirAll(dir, 0o777))
	file := filepath.Join(dir, "CURRENT")
	require.NoError(os.WriteFile(file, nil, 0o644))

	require.NoError(RestrictDirs(dir, filepath.Join(root, "missing")))

	info, err := os.Stat(dir)
	require.NoError(err)
	require.Equal(os.FileMode(ReadWriteExecute), info.Mode().Perm())

	info, err = os.Stat(file)
	require.NoError(err)
	require.Equal(os.FileMode(0o644), info.Mode().Perm())
}
