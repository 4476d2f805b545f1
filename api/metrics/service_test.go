// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestServiceExposesRegisteredMetrics(t *testing.T) {
	require := require.New(t)

	registry, handler, err := NewService()
	require.NoError(err)

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "gauge used in tests",
	})
	require.NoError(registry.Register(gauge))
	gauge.Set(1)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(http.StatusOK, recorder.Code)
	require.Contains(recorder.Body.String(), "test_gauge 1")
	require.Contains(recorder.Body.String(), "promhttp_metric_handler_requests_total")
}
