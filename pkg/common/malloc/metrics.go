// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package malloc

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes the allocator counters to prometheus. Register it on
// any registry; values are read from the live atomics at gather time.
type Collector struct{}

func NewCollector() *Collector {
	return &Collector{}
}

var _ prometheus.Collector = new(Collector)

var (
	allocateDesc = prometheus.NewDesc(
		"buddyalloc_allocate_total",
		"Allocation entry point calls",
		[]string{"kind"}, nil,
	)
	badFreeDesc = prometheus.NewDesc(
		"buddyalloc_bad_free_total",
		"Frees rejected by the double-free guard",
		nil, nil,
	)
	inuseBytesDesc = prometheus.NewDesc(
		"buddyalloc_inuse_bytes",
		"Bytes handed out and not yet freed",
		nil, nil,
	)
	peakInuseBytesDesc = prometheus.NewDesc(
		"buddyalloc_peak_inuse_bytes",
		"High-water mark of in-use bytes",
		nil, nil,
	)
	poolCallsDesc = prometheus.NewDesc(
		"buddyalloc_pool_allocate_total",
		"Get calls per size-class pool",
		[]string{"pool"}, nil,
	)
	poolInuseDesc = prometheus.NewDesc(
		"buddyalloc_pool_inuse_blocks",
		"Live blocks per size-class pool",
		[]string{"pool"}, nil,
	)
	poolFreeDesc = prometheus.NewDesc(
		"buddyalloc_pool_free_blocks",
		"Free blocks per size-class pool",
		[]string{"pool"}, nil,
	)
)

func (*Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- allocateDesc
	ch <- badFreeDesc
	ch <- inuseBytesDesc
	ch <- peakInuseBytesDesc
	ch <- poolCallsDesc
	ch <- poolInuseDesc
	ch <- poolFreeDesc
}

func (*Collector) Collect(ch chan<- prometheus.Metric) {
	s := ReadStats()
	ch <- prometheus.MustNewConstMetric(allocateDesc, prometheus.CounterValue, float64(s.NumAlloc), "alloc")
	ch <- prometheus.MustNewConstMetric(allocateDesc, prometheus.CounterValue, float64(s.NumAllocAligned), "alloc_aligned")
	ch <- prometheus.MustNewConstMetric(allocateDesc, prometheus.CounterValue, float64(s.NumRealloc), "realloc")
	ch <- prometheus.MustNewConstMetric(badFreeDesc, prometheus.CounterValue, float64(s.BadFree))
	ch <- prometheus.MustNewConstMetric(inuseBytesDesc, prometheus.GaugeValue, float64(s.InuseBytes))
	ch <- prometheus.MustNewConstMetric(peakInuseBytesDesc, prometheus.GaugeValue, float64(s.PeakInuseBytes))
	for i, p := range s.Pools {
		label := strconv.Itoa(i)
		ch <- prometheus.MustNewConstMetric(poolCallsDesc, prometheus.CounterValue, float64(p.AllocCalls), label)
		ch <- prometheus.MustNewConstMetric(poolInuseDesc, prometheus.GaugeValue, float64(p.InuseBlocks), label)
		ch <- prometheus.MustNewConstMetric(poolFreeDesc, prometheus.GaugeValue, float64(p.FreeBlocks), label)
	}
}
