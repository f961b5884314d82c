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

//go:build linux

package malloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// osPageSource maps anonymous private pages straight from the kernel.
// The raw mmap/munmap syscalls are used rather than the tracked slice
// wrappers: Unmap must be able to release page-aligned sub-ranges of a
// span, which unix.Munmap refuses for anything but a whole mapping.
type osPageSource struct{}

func (osPageSource) PageSize() uintptr {
	return osPageSizeValue
}

func (osPageSource) Map(n uintptr) unsafe.Pointer {
	addr, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		0,
		n,
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_PRIVATE|unix.MAP_ANONYMOUS),
		^uintptr(0), // no backing fd
		0,
	)
	if errno != 0 {
		return nil
	}
	return unsafe.Pointer(addr)
}

func (osPageSource) Unmap(p unsafe.Pointer, n uintptr) {
	_, _, _ = unix.Syscall(unix.SYS_MUNMAP, uintptr(p), n, 0)
}
