/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package rcstats exposes Prometheus counters and gauges for pool
// activity, labeled by pool id. A Collector is safe to share across
// pools; Default is registered against the global Prometheus registry
// the first time this package is imported.
package rcstats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus series for one or more pools,
// distinguished by the "pool" label.
type Collector struct {
	allocateTotal        *prometheus.CounterVec
	freeTotal            *prometheus.CounterVec
	reallocTotal         *prometheus.CounterVec
	reallocFallbackTotal *prometheus.CounterVec
	blockRetiredTotal    *prometheus.CounterVec
	freeBytes            *prometheus.GaugeVec
	liveBytes            *prometheus.GaugeVec
	blockCount           *prometheus.GaugeVec
}

// NewCollector registers a fresh set of series against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		allocateTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rcmalloc_allocate_total",
			Help: "Total number of successful allocate calls.",
		}, []string{"pool"}),
		freeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rcmalloc_free_total",
			Help: "Total number of free calls.",
		}, []string{"pool"}),
		reallocTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rcmalloc_realloc_total",
			Help: "Total number of reallocate calls satisfied in place.",
		}, []string{"pool"}),
		reallocFallbackTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rcmalloc_realloc_fallback_total",
			Help: "Total number of reallocate calls that required a fresh block.",
		}, []string{"pool"}),
		blockRetiredTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rcmalloc_block_retired_total",
			Help: "Total number of blocks released back to the system.",
		}, []string{"pool"}),
		freeBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rcmalloc_pool_free_bytes",
			Help: "Free bytes currently held by the pool's blocks.",
		}, []string{"pool"}),
		liveBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rcmalloc_pool_live_bytes",
			Help: "Live (allocated) bytes currently held by the pool's blocks.",
		}, []string{"pool"}),
		blockCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rcmalloc_pool_block_count",
			Help: "Number of blocks currently owned by the pool.",
		}, []string{"pool"}),
	}
}

// Default is registered against prometheus.DefaultRegisterer and used by
// any pool that does not own a dedicated Collector.
var Default = NewCollector(prometheus.DefaultRegisterer)

func (c *Collector) ObserveAllocate(pool string) { c.allocateTotal.WithLabelValues(pool).Inc() }
func (c *Collector) ObserveFree(pool string)     { c.freeTotal.WithLabelValues(pool).Inc() }
func (c *Collector) ObserveRealloc(pool string)  { c.reallocTotal.WithLabelValues(pool).Inc() }

func (c *Collector) ObserveReallocFallback(pool string) {
	c.reallocFallbackTotal.WithLabelValues(pool).Inc()
}

func (c *Collector) ObserveBlockRetired(pool string) {
	c.blockRetiredTotal.WithLabelValues(pool).Inc()
}

func (c *Collector) SetBlockCount(pool string, n int) {
	c.blockCount.WithLabelValues(pool).Set(float64(n))
}

func (c *Collector) SetFreeBytes(pool string, n uintptr) {
	c.freeBytes.WithLabelValues(pool).Set(float64(n))
}

func (c *Collector) SetLiveBytes(pool string, n uintptr) {
	c.liveBytes.WithLabelValues(pool).Set(float64(n))
}
