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
	"unsafe"
)

// pool is a lock-free LIFO of free spans of one class. head is the only
// shared mutable word; pushes and pops linearize on its CAS. ABA on the
// stack is benign: a block never leaves its pool except by pop, and a
// popped block is owned by the popping goroutine until it is pushed back.
type pool struct {
	allocCalls atomic.Int64
	allocCount atomic.Int64
	freeCount  atomic.Int64
	head       atomic.Pointer[header]
}

// pools is process-wide state. It is never torn down, so frees arriving
// during shutdown paths still land on a valid stack.
var pools [PoolCount]pool

func (p *pool) push(h *header) {
	p.allocCount.Add(-1)
	p.freeCount.Add(1)
	for {
		old := p.head.Load()
		h.next.Store(old)
		if p.head.CompareAndSwap(old, h) {
			return
		}
	}
}

// pop returns nil when the stack is observed empty. next must be read
// before the CAS; a successful CAS transfers ownership of h.
func (p *pool) pop() *header {
	for {
		h := p.head.Load()
		if h == nil {
			return nil
		}
		next := h.next.Load()
		if p.head.CompareAndSwap(h, next) {
			return h
		}
	}
}

// poolGet pops a span of class i, refilling on empty: the terminal pool
// maps a fresh span from the page source, lower pools take one span from
// the next class and split it in two, keeping the spare half. A page
// source failure propagates as nil through the whole chain.
func poolGet(i int) *header {
	p := &pools[i]
	p.allocCalls.Add(1)
	if h := p.pop(); h != nil {
		p.allocCount.Add(1)
		p.freeCount.Add(-1)
		return h
	}
	if i == PoolCount-1 {
		mem := pages.Map(1 << (PoolCount - 1))
		if mem == nil {
			return nil
		}
		h := (*header)(mem)
		h.size = PoolCount - 1
		p.allocCount.Add(1)
		return h
	}
	h := poolGet(i + 1)
	if h == nil {
		return nil
	}
	// split in two halves of class i; the spare goes onto this pool's
	// stack, the first half straight to the caller without publishing
	h.size--
	spare := (*header)(unsafe.Add(unsafe.Pointer(h), uintptr(1)<<h.size))
	spare.size = h.size
	pools[i+1].allocCount.Add(-1)
	p.allocCount.Add(2)
	p.push(spare)
	return h
}
