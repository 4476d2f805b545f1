// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/emostov/substrate/database/factory"
	"github.com/emostov/substrate/database/leveldb"
	"github.com/emostov/substrate/node/role"
	"github.com/emostov/substrate/offchain"
	"github.com/emostov/substrate/offchain/indexing"
	"github.com/emostov/substrate/utils/constants"
)

var (
	// [defaultDataDir] is expanded once the flags are read
	defaultDataDir = filepath.Join("$HOME", "."+constants.AppName)
	defaultDBDir   = filepath.Join(defaultDataDir, "db")
	defaultLogDir  = filepath.Join(defaultDataDir, "logs")
)

func addNodeFlags(fs *pflag.FlagSet) {
	// Version
	fs.Bool(VersionKey, false, "If true, print version and quit")

	// Genesis
	fs.String(GenesisFileKey, "", "Specifies a genesis config file. If empty, the built-in development genesis is used")

	// Database
	fs.String(DBTypeKey, leveldb.Name, fmt.Sprintf("Database type to use. Must be one of {%s}", strings.Join(factory.Names(), ", ")))
	fs.String(DBPathKey, defaultDBDir, "Path to database directory")
	fs.Bool(DBReadOnlyKey, false, "If true, database writes are to memory and never persisted. May still initialize database directory/files on disk if they don't exist")
	fs.String(DBConfigFileKey, "", "Path to the engine specific database config file")
	fs.Bool(MeterDBEnabledKey, false, "If true, every database call is measured")

	// Logging
	fs.String(LogsDirKey, defaultLogDir, "Logging directory")
	fs.String(LogLevelKey, "info", "The log level. Should be one of {verbo, debug, trace, info, warn, error, fatal, off}")
	fs.String(LogDisplayLevelKey, "", "The log display level. If left blank, will inherit the value of log-level. Otherwise, should be one of {verbo, debug, trace, info, warn, error, fatal, off}")
	fs.String(LogFormatKey, "auto", "The structure of log format. Defaults to 'auto' which formats terminal-like logs, when the output is a terminal. Otherwise, should be one of {auto, plain, colors, json}")
	fs.Bool(LogDisableDisplayKey, false, "If true, logs are only written to the log directory")
	fs.Uint(LogRotaterMaxSizeKey, 8, "The maximum file size in megabytes of the log file before it gets rotated")
	fs.Uint(LogRotaterMaxFilesKey, 7, "The maximum number of old log files to retain. 0 means retain all old log files")
	fs.Uint(LogRotaterMaxAgeKey, 0, "The maximum number of days to retain old log files based on the timestamp encoded in their filename. 0 means retain all old log files")
	fs.Bool(LogRotaterCompressEnabledKey, false, "Enables the compression of rotated log files through gzip")

	// Offchain
	fs.String(RoleKey, role.Full.String(), "The role of the node. Should be one of {full, authority, light, sentry}")
	fs.String(OffchainWorkerKey, offchain.WhenValidating.String(), "Should execute offchain workers on every block. Should be one of {when-validating, always, never}")
	fs.String(OffchainIndexingKey, indexing.Default.String(), "Offchain indexing state. Should be one of {default, enable, disable, force-enable, force-disable}. Changing the persisted state without force requires a re-sync")

	// HTTP APIs
	fs.String(HTTPHostKey, "127.0.0.1", "Address of the HTTP server")
	fs.Uint(HTTPPortKey, constants.DefaultHTTPPort, "Port of the HTTP server")
	fs.StringSlice(HTTPAllowedOriginsKey, []string{"*"}, "Origins to allow on the HTTP port. Defaults to * which allows all origins")
	fs.Duration(HTTPShutdownTimeoutKey, 10*time.Second, "Maximum duration to wait for existing connections to complete during node shutdown")

	// Enable/Disable APIs
	fs.Bool(InfoAPIEnabledKey, true, "If true, this node exposes the Info API")
	fs.Bool(MetricsAPIEnabledKey, true, "If true, this node exposes the Metrics API")
}

// BuildFlagSet returns a complete set of flags for the node
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(constants.AppName, pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", fmt.Sprintf("Specifies a config file. Ignored if %s is not specified", ConfigFileKey))
	addNodeFlags(fs)
	return fs
}

// BuildViper returns the viper environment from parsing [args] with [fs] and
// reading the config file, if any.
//
// Every flag may also be set by an environment variable prefixed with the
// application name, e.g. SUBSTRATE_DB_DIR.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(constants.AppName)
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if v.IsSet(ConfigFileKey) {
		filename := os.ExpandEnv(v.GetString(ConfigFileKey))
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", filename, err)
		}
	}
	return v, nil
}
