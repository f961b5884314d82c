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
	"math/bits"
	"sync/atomic"
	"unsafe"
)

// PoolCount is the number of size-class pools. Pool i holds spans of 1<<i
// bytes, header included; requests that do not fit the largest class are
// mapped directly from the page source.
const PoolCount = 16

// header precedes every allocation handed out by this package. While a
// block sits on a pool's free stack, next is the stack link; once handed
// out, next points at the header itself so Free can spot blocks that were
// never live. size holds the class index for pool blocks and the resident
// span length in bytes for direct-mapped blocks. Span lengths are always
// at least one page, so the two encodings never overlap.
//
// next is atomic: a pop may read the link of a block that a concurrent
// winner already owns and is re-marking. size needs no atomicity, it is
// only touched by the exclusive owner on either side of a head CAS.
type header struct {
	size uintptr
	next atomic.Pointer[header]
}

const headerSize = unsafe.Sizeof(header{})

func init() {
	// the dual encoding of header.size requires class indexes and byte
	// counts to be disjoint
	if headerSize >= 1<<PoolCount {
		panic("malloc: header too large for the class encoding")
	}
	if pageSize() <= PoolCount {
		panic("malloc: page size too small for the class encoding")
	}
}

// poolIndex returns the smallest class i with 1<<i >= gross.
func poolIndex(gross uintptr) int {
	return bits.Len(uint(gross - 1))
}

func (h *header) user() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), headerSize)
}

func headerOf(p unsafe.Pointer) *header {
	return (*header)(unsafe.Add(p, -int(headerSize)))
}
