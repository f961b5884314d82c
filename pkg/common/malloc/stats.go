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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// allocStats are the process-wide diagnostic counters. They are always
// maintained; only the double-free guard sits behind the checking toggle.
type allocStats struct {
	badFree         atomic.Int64
	numAlloc        atomic.Int64
	numAllocAligned atomic.Int64
	numRealloc      atomic.Int64
	numOptions      atomic.Int64
	inuseBytes      atomic.Int64
	peakInuse       peakInuseTracker
}

var stats = func() *allocStats {
	s := new(allocStats)
	s.peakInuse.ptr.Store(new(peakInuseValue))
	return s
}()

func (s *allocStats) addInuse(n uintptr) {
	v := s.inuseBytes.Add(int64(n))
	s.peakInuse.update(uint64(v))
}

func (s *allocStats) subInuse(n uintptr) {
	s.inuseBytes.Add(-int64(n))
}

// PoolStats is a point-in-time snapshot of one pool's counters.
type PoolStats struct {
	AllocCalls  int64
	InuseBlocks int64
	FreeBlocks  int64
}

// Stats is a point-in-time snapshot of the allocator's counters.
type Stats struct {
	PageSize        uint64
	PoolCount       int
	BadFree         int64
	NumAlloc        int64
	NumAllocAligned int64
	NumRealloc      int64
	NumOptions      int64
	InuseBytes      int64
	PeakInuseBytes  uint64
	PeakInuseTime   time.Time
	Pools           [PoolCount]PoolStats
}

// ReadStats snapshots the counters. Concurrent mutation keeps the
// snapshot approximate but never tears a single counter.
func ReadStats() Stats {
	ret := Stats{
		PageSize:        uint64(pageSize()),
		PoolCount:       PoolCount,
		BadFree:         stats.badFree.Load(),
		NumAlloc:        stats.numAlloc.Load(),
		NumAllocAligned: stats.numAllocAligned.Load(),
		NumRealloc:      stats.numRealloc.Load(),
		NumOptions:      stats.numOptions.Load(),
		InuseBytes:      stats.inuseBytes.Load(),
	}
	peak := stats.peakInuse.ptr.Load()
	ret.PeakInuseBytes = peak.Value
	ret.PeakInuseTime = peak.Time
	for i := range pools {
		ret.Pools[i] = PoolStats{
			AllocCalls:  pools[i].allocCalls.Load(),
			InuseBlocks: pools[i].allocCount.Load(),
			FreeBlocks:  pools[i].freeCount.Load(),
		}
	}
	return ret
}

// DumpStats writes a plaintext counter report to w.
func DumpStats(w io.Writer) error {
	s := ReadStats()
	_, err := fmt.Fprintf(w,
		"page size: %d\npool count: %d\nbad free: %d\nalloc: %d\nalloc aligned: %d\nrealloc: %d\noptions: %d\ninuse bytes: %d\npeak inuse bytes: %d\n",
		s.PageSize, s.PoolCount, s.BadFree,
		s.NumAlloc, s.NumAllocAligned, s.NumRealloc, s.NumOptions,
		s.InuseBytes, s.PeakInuseBytes,
	)
	if err != nil {
		return err
	}
	for i, p := range s.Pools {
		if _, err := fmt.Fprintf(w, "pool %d: calls %d inuse %d free %d\n",
			i, p.AllocCalls, p.InuseBlocks, p.FreeBlocks); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatsFile dumps the counters to a pid-keyed file under dir. An
// empty dir falls back to the configured stats dir, then to the system
// temp directory. The written path is returned.
func WriteStatsFile(dir string) (string, error) {
	if dir == "" {
		if d := statsDir.Load(); d != nil {
			dir = *d
		}
	}
	if dir == "" {
		dir = os.TempDir()
	}
	name := filepath.Join(dir, fmt.Sprintf("buddyalloc.log-%d", os.Getpid()))
	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := DumpStats(f); err != nil {
		return "", err
	}
	return name, nil
}
