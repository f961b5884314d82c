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

// Package malloc is a drop-in style dynamic allocator built on
// power-of-two size-class pools. Small and medium requests are served by
// lock-free pools that split spans down from a terminal page-source
// mapping; large or strongly aligned requests map pages directly. Every
// allocation is preceded by a two-word header that Free, Realloc and
// UsableSize use to recover the block's class or span length from the
// bare pointer. Pool blocks are never merged back or unmapped, only
// recycled through their pool.
package malloc

import (
	"math/bits"
	"unsafe"

	"go.uber.org/zap"

	"github.com/matrixorigin/buddyalloc/pkg/logutil"
)

func init() {
	logutil.Debug("malloc",
		zap.Int("pool count", PoolCount),
		zap.Uint64("header size", uint64(headerSize)),
		zap.Uint64("page size", uint64(pageSize())),
		zap.Uint64("max pool span", uint64(1)<<(PoolCount-1)),
	)
}

// Alloc returns a pointer to at least size usable bytes, or nil when the
// page source is exhausted.
func Alloc(size uintptr) unsafe.Pointer {
	stats.numAlloc.Add(1)
	gross := size + headerSize
	if gross < size {
		return nil
	}
	var h *header
	if i := poolIndex(gross); i < PoolCount {
		if h = poolGet(i); h == nil {
			return nil
		}
		stats.addInuse(uintptr(1) << h.size)
	} else {
		span := roundPages(gross)
		if span == 0 {
			return nil
		}
		mem := pages.Map(span)
		if mem == nil {
			return nil
		}
		h = (*header)(mem)
		h.size = span
		stats.addInuse(span)
	}
	h.next.Store(h)
	return h.user()
}

// Calloc allocates zeroed room for n objects of size bytes each. A
// multiplication overflow fails like an exhausted page source.
func Calloc(n, size uintptr) unsafe.Pointer {
	hi, total := bits.Mul(uint(n), uint(size))
	if hi != 0 {
		return nil
	}
	p := Alloc(uintptr(total))
	if p != nil {
		clear(unsafe.Slice((*byte)(p), total))
	}
	return p
}

// Realloc resizes the allocation at p. A nil p allocates, size 0 frees
// and returns nil, a shrink returns p unchanged, and a grow copies into
// a fresh block. On allocation failure the old block is left intact and
// nil is returned.
func Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	stats.numRealloc.Add(1)
	var usable uintptr
	if p != nil {
		usable = UsableSize(p)
	}
	switch {
	case size > usable:
		np := Alloc(size)
		if np == nil {
			return nil
		}
		if p != nil {
			copy(unsafe.Slice((*byte)(np), usable), unsafe.Slice((*byte)(p), usable))
			Free(p)
		}
		return np
	case size == 0:
		Free(p)
		return nil
	default:
		return p
	}
}

// ReallocArray is Realloc with an overflow-checked element count.
func ReallocArray(p unsafe.Pointer, n, size uintptr) unsafe.Pointer {
	hi, total := bits.Mul(uint(n), uint(size))
	if hi != 0 {
		return nil
	}
	return Realloc(p, uintptr(total))
}

// Free returns a block to its pool, or unmaps a direct-mapped span. A nil
// p is a no-op. With checking enabled, a pointer whose header does not
// carry the live marker is counted as a bad free and dropped.
func Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	h := headerOf(p)
	if checking.Load() && h.next.Load() != h {
		stats.badFree.Add(1)
		return
	}
	if h.size < PoolCount {
		stats.subInuse(uintptr(1) << h.size)
		pools[h.size].push(h)
		return
	}
	// the header of a direct-mapped block sits in the first resident
	// page, so its page base is the span base
	stats.subInuse(h.size)
	off := uintptr(unsafe.Pointer(h)) & (pageSize() - 1)
	pages.Unmap(unsafe.Add(unsafe.Pointer(h), -int(off)), h.size)
}

// UsableSize reports the bytes usable beyond p for a live allocation.
func UsableSize(p unsafe.Pointer) uintptr {
	if p == nil {
		return 0
	}
	h := headerOf(p)
	if h.size < PoolCount {
		return (uintptr(1) << h.size) - headerSize
	}
	off := uintptr(unsafe.Pointer(h)) & (pageSize() - 1)
	return h.size - off - headerSize
}

// GoodSize reports the usable size the allocator would reserve for a
// request of size bytes: the next class, or whole pages beyond the
// largest class.
func GoodSize(size uintptr) uintptr {
	gross := size + headerSize
	if gross < size {
		return size
	}
	if i := poolIndex(gross); i < PoolCount {
		return (uintptr(1) << i) - headerSize
	}
	return roundPages(gross) - headerSize
}

// SetOption accepts and ignores mallopt-style tuning requests.
func SetOption(param, value int) int {
	stats.numOptions.Add(1)
	return 0
}
