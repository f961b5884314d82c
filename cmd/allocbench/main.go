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

// allocbench stresses the allocator with mixed concurrent workloads and
// reports counters, prometheus metrics and a pid-keyed stats dump.
package main

import (
	"flag"
	"math/rand"
	"os"
	"sync"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/matrixorigin/buddyalloc/pkg/common/malloc"
	"github.com/matrixorigin/buddyalloc/pkg/logutil"
)

var (
	configFile = flag.String("cfg", "", "toml configuration, see malloc.Config")
	workers    = flag.Int("workers", 8, "concurrent workers")
	iters      = flag.Int("iters", 100000, "allocations per worker")
	maxSize    = flag.Int("max-size", 64*1024, "largest request size in bytes")
	logLevel   = flag.String("log-level", "info", "zap level")
	statsDir   = flag.String("stats-dir", "", "where to write the pid-keyed stats dump")
)

func main() {
	flag.Parse()
	logutil.SetupLogger(&logutil.LogConfig{Level: *logLevel})

	if *configFile != "" {
		cfg, err := malloc.ParseConfigFile(*configFile)
		if err != nil {
			logutil.Error("bad config", zap.Error(err))
			os.Exit(1)
		}
		malloc.Configure(cfg)
	}

	pool, err := ants.NewPool(*workers)
	if err != nil {
		logutil.Error("worker pool", zap.Error(err))
		os.Exit(1)
	}
	defer pool.Release()

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		seed := int64(w)
		if err := pool.Submit(func() {
			defer wg.Done()
			run(rand.New(rand.NewSource(seed)), *iters, *maxSize)
		}); err != nil {
			wg.Done()
			logutil.Error("submit", zap.Error(err))
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	s := malloc.ReadStats()
	logutil.Info("allocbench done",
		zap.Duration("elapsed", elapsed),
		zap.Int64("allocs", s.NumAlloc),
		zap.Int64("aligned allocs", s.NumAllocAligned),
		zap.Int64("reallocs", s.NumRealloc),
		zap.Int64("bad frees", s.BadFree),
		zap.String("inuse", humanize.IBytes(uint64(s.InuseBytes))),
		zap.String("peak inuse", humanize.IBytes(s.PeakInuseBytes)),
	)

	gatherMetrics()

	if name, err := malloc.WriteStatsFile(*statsDir); err != nil {
		logutil.Error("stats dump", zap.Error(err))
	} else {
		logutil.Info("stats written", zap.String("file", name))
	}
}

// run performs iters allocations of mixed shape, releasing in batches so
// pools see real churn rather than pure alloc/free pairs.
func run(rng *rand.Rand, iters, maxSize int) {
	live := make([]unsafe.Pointer, 0, 64)
	for i := 0; i < iters; i++ {
		n := uintptr(rng.Intn(maxSize) + 1)
		var p unsafe.Pointer
		switch rng.Intn(4) {
		case 0:
			p = malloc.Calloc(n/8+1, 8)
		case 1:
			p = malloc.Realloc(malloc.Alloc(n/2), n)
		case 2:
			p = malloc.AllocAligned(uintptr(1)<<rng.Intn(13), n)
		default:
			p = malloc.Alloc(n)
		}
		if p == nil {
			continue
		}
		live = append(live, p)
		if len(live) == cap(live) {
			for _, q := range live {
				malloc.Free(q)
			}
			live = live[:0]
		}
	}
	for _, q := range live {
		malloc.Free(q)
	}
}

func gatherMetrics() {
	reg := prometheus.NewRegistry()
	if err := reg.Register(malloc.NewCollector()); err != nil {
		logutil.Error("register collector", zap.Error(err))
		return
	}
	fams, err := reg.Gather()
	if err != nil {
		logutil.Error("gather", zap.Error(err))
		return
	}
	for _, f := range fams {
		logutil.Infof("metric %s: %d samples", f.GetName(), len(f.GetMetric()))
	}
}
