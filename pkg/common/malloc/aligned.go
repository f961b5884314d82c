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
	"unsafe"

	"github.com/matrixorigin/buddyalloc/pkg/common/moerr"
)

// AllocAligned returns a pointer to size usable bytes aligned to align,
// which must be a nonzero power of two. Alignments above the page size
// are honored by over-mapping and trimming the slack pages back to the
// page source before returning.
func AllocAligned(align, size uintptr) unsafe.Pointer {
	stats.numAllocAligned.Add(1)
	if align == 0 || align&(align-1) != 0 {
		return nil
	}
	gross := size + headerSize
	if gross < size {
		return nil
	}
	h := allocPagesAligned(align, gross)
	if h == nil {
		return nil
	}
	stats.addInuse(h.size)
	h.next.Store(h)
	return h.user()
}

// Memalign is the posix_memalign analogue: on success the aligned pointer
// is stored through memptr, otherwise an out-of-memory error is returned.
func Memalign(memptr *unsafe.Pointer, align, size uintptr) error {
	p := AllocAligned(align, size)
	if p == nil {
		return moerr.NewOOM()
	}
	*memptr = p
	return nil
}

// PageAlloc allocates size bytes aligned to the page size.
func PageAlloc(size uintptr) unsafe.Pointer {
	return AllocAligned(pageSize(), size)
}

// allocPagesAligned maps a span large enough to place an align-aligned
// user pointer with its header immediately below it.
//
// For align <= page size the mapping's own page alignment is enough: the
// header goes at align-headerSize into the span (at the span start when
// align <= headerSize) and the user pointer lands on the next align
// boundary. For larger alignments the span is
// over-mapped by align-pageSize bytes of slack; the user pointer is
// placed on the first align boundary past the first page and the unused
// whole-page slack on both ends is returned to the page source.
//
// The returned header's size field holds the resident span length. The
// header always sits inside the first resident page, so Free recovers
// the span base by masking the header address down to a page boundary.
func allocPagesAligned(align, gross uintptr) *header {
	ps := pageSize()
	var prePadding, alignSlack uintptr
	switch {
	case align > ps:
		prePadding = ps - headerSize
		alignSlack = align - ps
	case align > headerSize:
		prePadding = align - headerSize
	}
	spanBytes := prePadding + gross + alignSlack
	if spanBytes < gross {
		return nil
	}
	span := roundPages(spanBytes)
	if span == 0 {
		return nil
	}
	mem := pages.Map(span)
	if mem == nil {
		return nil
	}
	addr := uintptr(mem) + prePadding
	// slide the header up so the user pointer right above it is aligned
	offset := (align - ((addr + headerSize) & (align - 1))) & (align - 1)
	addr += offset
	resident := span
	if alignSlack > 0 {
		// align and the mapping base are page multiples, so offset is
		// whole pages; both slack ends go back to the page source
		if offset > 0 {
			pages.Unmap(mem, offset)
		}
		if post := alignSlack - offset; post > 0 {
			pages.Unmap(unsafe.Add(mem, span-post), post)
		}
		resident = span - alignSlack
	}
	h := (*header)(unsafe.Add(mem, addr-uintptr(mem)))
	h.size = resident
	return h
}
