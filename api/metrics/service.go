// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewService returns a new prometheus registry and the handler serving it. The
// registry already exposes process and go runtime metrics.
func NewService() (*prometheus.Registry, http.Handler, error) {
	registry := prometheus.NewRegistry()
	for _, collector := range []prometheus.Collector{
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	} {
		if err := registry.Register(collector); err != nil {
			return nil, nil, err
		}
	}

	handler := promhttp.InstrumentMetricHandler(
		registry,
		promhttp.HandlerFor(
			registry,
			promhttp.HandlerOpts{},
		),
	)
	return registry, handler, nil
}
