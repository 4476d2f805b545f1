// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebbledb

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

var _ prometheus.Collector = (*collector)(nil)

// collector exposes a snapshot of pebble's internal metrics on every scrape.
type collector struct {
	db *pebble.DB

	diskUsage    *prometheus.Desc
	compactions  *prometheus.Desc
	memTableSize *prometheus.Desc
	cacheHits    *prometheus.Desc
	cacheMisses  *prometheus.Desc
}

func newCollector(db *pebble.DB) *collector {
	return &collector{
		db: db,
		diskUsage: prometheus.NewDesc(
			"pebble_disk_usage_bytes",
			"total disk space used by the database",
			nil, nil,
		),
		compactions: prometheus.NewDesc(
			"pebble_compactions",
			"number of compactions performed",
			nil, nil,
		),
		memTableSize: prometheus.NewDesc(
			"pebble_memtable_size_bytes",
			"size of the current memtables",
			nil, nil,
		),
		cacheHits: prometheus.NewDesc(
			"pebble_block_cache_hits",
			"number of block cache hits",
			nil, nil,
		),
		cacheMisses: prometheus.NewDesc(
			"pebble_block_cache_misses",
			"number of block cache misses",
			nil, nil,
		),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.diskUsage
	ch <- c.compactions
	ch <- c.memTableSize
	ch <- c.cacheHits
	ch <- c.cacheMisses
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	m := c.db.Metrics()
	ch <- prometheus.MustNewConstMetric(c.diskUsage, prometheus.GaugeValue, float64(m.DiskSpaceUsage()))
	ch <- prometheus.MustNewConstMetric(c.compactions, prometheus.CounterValue, float64(m.Compact.Count))
	ch <- prometheus.MustNewConstMetric(c.memTableSize, prometheus.GaugeValue, float64(m.MemTable.Size))
	ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue, float64(m.BlockCache.Hits))
	ch <- prometheus.MustNewConstMetric(c.cacheMisses, prometheus.CounterValue, float64(m.BlockCache.Misses))
}
