// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/emostov/substrate/database/factory"
	"github.com/emostov/substrate/database/leveldb"
	"github.com/emostov/substrate/node/role"
	"github.com/emostov/substrate/offchain"
	"github.com/emostov/substrate/offchain/indexing"
	"github.com/emostov/substrate/utils/logging"
)

func TestMain(m *testing.M) {
	opts := []goleak.Option{
		// No good way to shut down these goroutines:
		goleak.IgnoreTopFunction("github.com/syndtr/goleveldb/leveldb.(*DB).mpoolDrain"),
	}
	goleak.VerifyTestMain(m, opts...)
}

func newConfig(dir string, r role.Role, state indexing.DesiredState) *Config {
	return &Config{
		HTTPConfig: HTTPConfig{
			APIConfig: APIConfig{
				InfoAPIEnabled:    true,
				MetricsAPIEnabled: true,
			},
			HTTPHost:        "127.0.0.1",
			ShutdownTimeout: time.Second,
		},
		DatabaseConfig: factory.DatabaseConfig{
			Path: dir,
			Name: leveldb.Name,
		},
		GenesisBytes: []byte("genesis"),
		Role:         r,
		Offchain: offchain.Params{
			WorkerMode: offchain.WhenValidating,
			Indexing:   state,
		},
	}
}

func newFactory(t *testing.T) logging.Factory {
	f := logging.NewFactory(logging.Config{
		RotatingWriterConfig: logging.RotatingWriterConfig{
			Directory: t.TempDir(),
		},
		LogLevel:     logging.Off,
		DisplayLevel: logging.Off,
	})
	t.Cleanup(f.Close)
	return f
}

// start initializes a node and shuts it down at the end of the test.
func start(t *testing.T, config *Config) (*Node, error) {
	n := &Node{}
	if err := n.Initialize(config, logging.NoLog{}, newFactory(t)); err != nil {
		return nil, err
	}
	return n, nil
}

func gaugeValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	require.FailNow(t, "metric not found", name)
	return 0
}

func TestInitializeFirstStart(t *testing.T) {
	tests := []struct {
		role            role.Role
		expectedEnabled bool
	}{
		{role: role.Authority, expectedEnabled: true},
		{role: role.Full, expectedEnabled: false},
	}
	for _, test := range tests {
		t.Run(test.role.String(), func(t *testing.T) {
			require := require.New(t)

			n, err := start(t, newConfig(t.TempDir(), test.role, indexing.Default))
			require.NoError(err)

			require.Equal(test.expectedEnabled, n.Offchain.Indexing.IsEnabled())
			require.Equal(test.expectedEnabled, n.Offchain.Enabled)

			expectedGauge := 0.0
			if test.expectedEnabled {
				expectedGauge = 1
			}
			require.Equal(expectedGauge, gaugeValue(t, n.MetricsRegisterer, "offchain_indexing_enabled"))
			require.Equal(expectedGauge, gaugeValue(t, n.MetricsRegisterer, "offchain_workers_enabled"))

			require.NoError(n.Shutdown())
		})
	}
}

func TestInitializeOffchainIndexingRestarts(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	n, err := start(t, newConfig(dir, role.Full, indexing.Enable))
	require.NoError(err)
	require.Equal(indexing.Enabled, n.Offchain.Indexing)
	require.NoError(n.Shutdown())

	// Disabling an indexed database requires a re-sync.
	_, err = start(t, newConfig(dir, role.Full, indexing.Disable))
	require.ErrorIs(err, indexing.ErrResyncRequired)

	// The rejected start must not have changed the database.
	n, err = start(t, newConfig(dir, role.Full, indexing.Default))
	require.NoError(err)
	require.Equal(indexing.Enabled, n.Offchain.Indexing)
	require.NoError(n.Shutdown())

	n, err = start(t, newConfig(dir, role.Full, indexing.ForceDisable))
	require.NoError(err)
	require.Equal(indexing.Disabled, n.Offchain.Indexing)
	require.NoError(n.Shutdown())

	_, err = start(t, newConfig(dir, role.Full, indexing.Enable))
	require.ErrorIs(err, indexing.ErrResyncRequired)
}

func TestInitializeGenesisMismatch(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	n, err := start(t, newConfig(dir, role.Full, indexing.Default))
	require.NoError(err)
	require.NoError(n.Shutdown())

	config := newConfig(dir, role.Full, indexing.Default)
	config.GenesisBytes = []byte("other genesis")
	_, err = start(t, config)
	require.ErrorIs(err, errInvalidGenesis)
}

func TestShutdownIsIdempotent(t *testing.T) {
	require := require.New(t)

	n, err := start(t, newConfig(t.TempDir(), role.Full, indexing.Default))
	require.NoError(err)
	require.NoError(n.Shutdown())
	require.NoError(n.Shutdown())
}

func TestDispatchServesAPIs(t *testing.T) {
	require := require.New(t)

	n, err := start(t, newConfig(t.TempDir(), role.Authority, indexing.Default))
	require.NoError(err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	url := "http://" + listener.Addr().String()

	done := make(chan error, 1)
	go func() {
		done <- n.DispatchOn(listener)
	}()

	client := &http.Client{}
	defer client.CloseIdleConnections()

	var body string
	require.Eventually(func() bool {
		resp, err := client.Post(
			url+"/ext/info",
			"application/json",
			strings.NewReader(`{"jsonrpc":"2.0","method":"info.getOffchainConfig","params":{},"id":1}`),
		)
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		buf := new(strings.Builder)
		if _, err := io.Copy(buf, resp.Body); err != nil {
			return false
		}
		body = buf.String()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)
	require.Contains(body, `"indexingEnabled":true`)
	require.Contains(body, `"role":"Authority"`)

	resp, err := client.Get(url + "/ext/metrics")
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusOK, resp.StatusCode)

	require.NoError(n.Shutdown())
	require.NoError(<-done)
}
