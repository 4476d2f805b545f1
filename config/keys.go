// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	ConfigFileKey                = "config-file"
	VersionKey                   = "version"
	GenesisFileKey               = "genesis-file"
	DBTypeKey                    = "db-type"
	DBPathKey                    = "db-dir"
	DBReadOnlyKey                = "db-read-only"
	DBConfigFileKey              = "db-config-file"
	MeterDBEnabledKey            = "meter-db-enabled"
	LogsDirKey                   = "log-dir"
	LogLevelKey                  = "log-level"
	LogDisplayLevelKey           = "log-display-level"
	LogFormatKey                 = "log-format"
	LogDisableDisplayKey         = "log-disable-display"
	LogRotaterMaxSizeKey         = "log-rotater-max-size"
	LogRotaterMaxFilesKey        = "log-rotater-max-files"
	LogRotaterMaxAgeKey          = "log-rotater-max-age"
	LogRotaterCompressEnabledKey = "log-rotater-compress-enabled"
	RoleKey                      = "role"
	OffchainWorkerKey            = "offchain-worker"
	OffchainIndexingKey          = "enable-offchain-indexing"
	HTTPHostKey                  = "http-host"
	HTTPPortKey                  = "http-port"
	HTTPAllowedOriginsKey        = "http-allowed-origins"
	HTTPShutdownTimeoutKey       = "http-shutdown-timeout"
	InfoAPIEnabledKey            = "api-info-enabled"
	MetricsAPIEnabledKey         = "api-metrics-enabled"
)
