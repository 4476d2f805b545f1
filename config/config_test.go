// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emostov/substrate/database/leveldb"
	"github.com/emostov/substrate/database/pebbledb"
	"github.com/emostov/substrate/node/role"
	"github.com/emostov/substrate/offchain"
	"github.com/emostov/substrate/offchain/indexing"
	"github.com/emostov/substrate/utils/constants"
	"github.com/emostov/substrate/utils/logging"
)

func setupConfigJSON(t *testing.T, rootPath string, value string) string {
	configFilePath := filepath.Join(rootPath, "config.json")
	require.NoError(t, os.WriteFile(configFilePath, []byte(value), 0o600))
	return configFilePath
}

func TestGetNodeConfigDefaults(t *testing.T) {
	require := require.New(t)

	v, err := BuildViper(BuildFlagSet(), nil)
	require.NoError(err)

	config, err := GetNodeConfig(v)
	require.NoError(err)

	require.Equal(leveldb.Name, config.DatabaseConfig.Name)
	require.False(config.DatabaseConfig.ReadOnly)
	require.Equal(os.ExpandEnv(defaultDBDir), config.DatabaseConfig.Path)
	require.Equal(defaultGenesisBytes, config.GenesisBytes)

	require.Equal(role.Full, config.Role)
	require.Equal(offchain.Params{
		WorkerMode: offchain.WhenValidating,
		Indexing:   indexing.Default,
	}, config.Offchain)

	require.Equal("127.0.0.1", config.HTTPHost)
	require.Equal(uint16(constants.DefaultHTTPPort), config.HTTPPort)
	require.Equal([]string{"*"}, config.APIAllowedOrigins)
	require.True(config.InfoAPIEnabled)
	require.True(config.MetricsAPIEnabled)

	require.Equal(logging.Info, config.LoggingConfig.LogLevel)
	require.Equal(logging.Info, config.LoggingConfig.DisplayLevel)
}

func TestGetNodeConfigFromFlags(t *testing.T) {
	require := require.New(t)

	v, err := BuildViper(BuildFlagSet(), []string{
		"--" + RoleKey + "=authority",
		"--" + OffchainWorkerKey + "=never",
		"--" + OffchainIndexingKey + "=force-disable",
		"--" + DBTypeKey + "=" + pebbledb.Name,
		"--" + DBReadOnlyKey,
		"--" + LogDisplayLevelKey + "=debug",
		"--" + HTTPShutdownTimeoutKey + "=1s",
	})
	require.NoError(err)

	config, err := GetNodeConfig(v)
	require.NoError(err)

	require.Equal(role.Authority, config.Role)
	require.Equal(offchain.Params{
		WorkerMode: offchain.Never,
		Indexing:   indexing.ForceDisable,
	}, config.Offchain)
	require.Equal(pebbledb.Name, config.DatabaseConfig.Name)
	require.True(config.DatabaseConfig.ReadOnly)
	require.Equal(logging.Info, config.LoggingConfig.LogLevel)
	require.Equal(logging.Debug, config.LoggingConfig.DisplayLevel)
	require.Equal(time.Second, config.ShutdownTimeout)
}

func TestGetNodeConfigFromFile(t *testing.T) {
	require := require.New(t)
	root := t.TempDir()

	genesisPath := filepath.Join(root, "genesis.json")
	require.NoError(os.WriteFile(genesisPath, []byte(`{"chain":"test"}`), 0o600))

	configJSON := fmt.Sprintf(`{
		%q: %q,
		%q: "enable",
		%q: %q,
		%q: 8080,
		%q: false
	}`,
		RoleKey, "sentry",
		OffchainIndexingKey,
		GenesisFileKey, genesisPath,
		HTTPPortKey,
		InfoAPIEnabledKey,
	)
	configFile := setupConfigJSON(t, root, configJSON)

	v, err := BuildViper(BuildFlagSet(), []string{"--" + ConfigFileKey + "=" + configFile})
	require.NoError(err)

	config, err := GetNodeConfig(v)
	require.NoError(err)

	require.Equal(role.Sentry, config.Role)
	require.Equal(indexing.Enable, config.Offchain.Indexing)
	require.Equal([]byte(`{"chain":"test"}`), config.GenesisBytes)
	require.Equal(uint16(8080), config.HTTPPort)
	require.False(config.InfoAPIEnabled)
	require.True(config.MetricsAPIEnabled)
}

func TestGetNodeConfigInvalid(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectedErr error
	}{
		{
			name:        "unknown role",
			args:        []string{"--" + RoleKey + "=validator"},
			expectedErr: role.ErrUnknownRole,
		},
		{
			name:        "unknown worker mode",
			args:        []string{"--" + OffchainWorkerKey + "=sometimes"},
			expectedErr: offchain.ErrUnknownWorkerMode,
		},
		{
			name:        "unknown indexing state",
			args:        []string{"--" + OffchainIndexingKey + "=maybe"},
			expectedErr: indexing.ErrUnknownState,
		},
		{
			name:        "unknown log level",
			args:        []string{"--" + LogLevelKey + "=loud"},
			expectedErr: logging.ErrUnknownLevel,
		},
		{
			name:        "port out of range",
			args:        []string{"--" + HTTPPortKey + "=65536"},
			expectedErr: errInvalidPort,
		},
		{
			name:        "negative shutdown timeout",
			args:        []string{"--" + HTTPShutdownTimeoutKey + "=-1s"},
			expectedErr: errNegativeShutdownTimout,
		},
		{
			name:        "missing genesis file",
			args:        []string{"--" + GenesisFileKey + "=/does/not/exist"},
			expectedErr: os.ErrNotExist,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			v, err := BuildViper(BuildFlagSet(), test.args)
			require.NoError(err)

			_, err = GetNodeConfig(v)
			require.ErrorIs(err, test.expectedErr)
		})
	}
}

func TestBuildViperMissingConfigFile(t *testing.T) {
	_, err := BuildViper(BuildFlagSet(), []string{"--" + ConfigFileKey + "=" + filepath.Join(t.TempDir(), "missing.json")})
	require.ErrorIs(t, err, os.ErrNotExist)
}
