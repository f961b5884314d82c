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

//go:build darwin

package malloc

import (
	"syscall"
	"unsafe"
)

// osPageSource maps anonymous private pages through the libc syscall
// shim. x/sys carries no syscall numbers for darwin and its tracked
// slice wrappers cannot release page-aligned sub-ranges of a span, so
// the numbers from the frozen syscall package are used here.
type osPageSource struct{}

func (osPageSource) PageSize() uintptr {
	return osPageSizeValue
}

func (osPageSource) Map(n uintptr) unsafe.Pointer {
	addr, _, errno := syscall.Syscall6(
		syscall.SYS_MMAP,
		0,
		n,
		uintptr(syscall.PROT_READ|syscall.PROT_WRITE),
		uintptr(syscall.MAP_PRIVATE|syscall.MAP_ANON),
		^uintptr(0), // no backing fd
		0,
	)
	if errno != 0 {
		return nil
	}
	return unsafe.Pointer(addr)
}

func (osPageSource) Unmap(p unsafe.Pointer, n uintptr) {
	_, _, _ = syscall.Syscall(syscall.SYS_MUNMAP, uintptr(p), n, 0)
}
