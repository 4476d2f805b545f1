// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package perms

import (
	"errors"
	"os"
	"path/filepath"
)

const (
	ReadOnly         = 0o400
	ReadWrite        = 0o640
	ReadWriteExecute = 0o750
)

// RestrictDirs sets every directory below each of [dirs] to
// ReadWriteExecute. Missing directories are skipped, files are untouched.
func RestrictDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := ChmodR(dir, true, ReadWriteExecute); err != nil {
			return err
		}
	}
	return nil
}

// ChmodR sets the permissions of all directories and optionally files to [perm]
// permissions.
func ChmodR(dir string, dirOnly bool, perm os.FileMode) error {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(dir, func(name string, d os.DirEntry, err error) error {
		if err != nil || (dirOnly && !d.IsDir()) {
			return err
		}
		return os.Chmod(name, perm)
	})
}
