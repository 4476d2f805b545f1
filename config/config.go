// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/spf13/viper"

	"github.com/emostov/substrate/database/factory"
	"github.com/emostov/substrate/node"
	"github.com/emostov/substrate/node/role"
	"github.com/emostov/substrate/offchain"
	"github.com/emostov/substrate/offchain/indexing"
	"github.com/emostov/substrate/utils/constants"
	"github.com/emostov/substrate/utils/logging"
)

var (
	// Used when no genesis file is given. Any node started without a genesis
	// file joins the same development chain.
	defaultGenesisBytes = []byte(constants.AppName + " development chain")

	errInvalidPort            = errors.New("invalid port")
	errNegativeShutdownTimout = errors.New("shutdown timeout must be non-negative")
)

func getLoggingConfig(v *viper.Viper) (logging.Config, error) {
	loggingConfig := logging.Config{}
	loggingConfig.Directory = os.ExpandEnv(v.GetString(LogsDirKey))
	var err error
	loggingConfig.LogLevel, err = logging.ToLevel(v.GetString(LogLevelKey))
	if err != nil {
		return loggingConfig, err
	}
	logDisplayLevel := v.GetString(LogLevelKey)
	if v.IsSet(LogDisplayLevelKey) && v.GetString(LogDisplayLevelKey) != "" {
		logDisplayLevel = v.GetString(LogDisplayLevelKey)
	}
	loggingConfig.DisplayLevel, err = logging.ToLevel(logDisplayLevel)
	if err != nil {
		return loggingConfig, err
	}
	loggingConfig.LogFormat, err = logging.ToFormat(v.GetString(LogFormatKey), os.Stdout.Fd())
	if err != nil {
		return loggingConfig, err
	}
	loggingConfig.DisableWriterDisplaying = v.GetBool(LogDisableDisplayKey)
	loggingConfig.MaxSize = int(v.GetUint(LogRotaterMaxSizeKey))
	loggingConfig.MaxFiles = int(v.GetUint(LogRotaterMaxFilesKey))
	loggingConfig.MaxAge = int(v.GetUint(LogRotaterMaxAgeKey))
	loggingConfig.Compress = v.GetBool(LogRotaterCompressEnabledKey)
	return loggingConfig, nil
}

func getDatabaseConfig(v *viper.Viper) (factory.DatabaseConfig, error) {
	var (
		configBytes []byte
		err         error
	)
	if v.IsSet(DBConfigFileKey) && v.GetString(DBConfigFileKey) != "" {
		path := os.ExpandEnv(v.GetString(DBConfigFileKey))
		configBytes, err = os.ReadFile(path)
		if err != nil {
			return factory.DatabaseConfig{}, fmt.Errorf("couldn't read database config file %q: %w", path, err)
		}
	}

	return factory.DatabaseConfig{
		Name:         v.GetString(DBTypeKey),
		ReadOnly:     v.GetBool(DBReadOnlyKey),
		Path:         os.ExpandEnv(v.GetString(DBPathKey)),
		MeterEnabled: v.GetBool(MeterDBEnabledKey),
		Config:       configBytes,
	}, nil
}

func getGenesisBytes(v *viper.Viper) ([]byte, error) {
	if !v.IsSet(GenesisFileKey) || v.GetString(GenesisFileKey) == "" {
		return defaultGenesisBytes, nil
	}
	path := os.ExpandEnv(v.GetString(GenesisFileKey))
	genesisBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read genesis file %q: %w", path, err)
	}
	return genesisBytes, nil
}

func getOffchainConfig(v *viper.Viper) (role.Role, offchain.Params, error) {
	nodeRole, err := role.Parse(v.GetString(RoleKey))
	if err != nil {
		return role.Full, offchain.Params{}, err
	}
	workerMode, err := offchain.ParseWorkerMode(v.GetString(OffchainWorkerKey))
	if err != nil {
		return role.Full, offchain.Params{}, err
	}
	state, err := indexing.ParseDesiredState(v.GetString(OffchainIndexingKey))
	if err != nil {
		return role.Full, offchain.Params{}, err
	}
	return nodeRole, offchain.Params{
		WorkerMode: workerMode,
		Indexing:   state,
	}, nil
}

func getHTTPConfig(v *viper.Viper) (node.HTTPConfig, error) {
	port := v.GetUint(HTTPPortKey)
	if port > math.MaxUint16 {
		return node.HTTPConfig{}, fmt.Errorf("%w: %s=%d", errInvalidPort, HTTPPortKey, port)
	}
	shutdownTimeout := v.GetDuration(HTTPShutdownTimeoutKey)
	if shutdownTimeout < 0 {
		return node.HTTPConfig{}, fmt.Errorf("%w: %s=%s", errNegativeShutdownTimout, HTTPShutdownTimeoutKey, shutdownTimeout)
	}
	return node.HTTPConfig{
		APIConfig: node.APIConfig{
			InfoAPIEnabled:    v.GetBool(InfoAPIEnabledKey),
			MetricsAPIEnabled: v.GetBool(MetricsAPIEnabledKey),
		},
		HTTPHost:          v.GetString(HTTPHostKey),
		HTTPPort:          uint16(port),
		APIAllowedOrigins: v.GetStringSlice(HTTPAllowedOriginsKey),
		ShutdownTimeout:   shutdownTimeout,
	}, nil
}

// GetNodeConfig returns the node config defined in [v].
func GetNodeConfig(v *viper.Viper) (node.Config, error) {
	nodeConfig := node.Config{}

	var err error
	nodeConfig.LoggingConfig, err = getLoggingConfig(v)
	if err != nil {
		return node.Config{}, err
	}

	nodeConfig.DatabaseConfig, err = getDatabaseConfig(v)
	if err != nil {
		return node.Config{}, err
	}

	nodeConfig.GenesisBytes, err = getGenesisBytes(v)
	if err != nil {
		return node.Config{}, err
	}

	nodeConfig.Role, nodeConfig.Offchain, err = getOffchainConfig(v)
	if err != nil {
		return node.Config{}, err
	}

	nodeConfig.HTTPConfig, err = getHTTPConfig(v)
	if err != nil {
		return node.Config{}, err
	}
	return nodeConfig, nil
}
