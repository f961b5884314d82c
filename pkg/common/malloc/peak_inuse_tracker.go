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
	"sync/atomic"
	"time"
)

// peakInuseTracker keeps the high-water mark of in-use bytes together
// with the time it was reached. Updates race freely; the CAS loop only
// publishes strictly larger values.
type peakInuseTracker struct {
	ptr atomic.Pointer[peakInuseValue]
}

type peakInuseValue struct {
	Value uint64
	Time  time.Time
}

func (p *peakInuseTracker) update(n uint64) {
	for {
		cur := p.ptr.Load()
		if n <= cur.Value {
			return
		}
		if p.ptr.CompareAndSwap(cur, &peakInuseValue{Value: n, Time: time.Now()}) {
			return
		}
	}
}
