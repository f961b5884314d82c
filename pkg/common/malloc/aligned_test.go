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
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/buddyalloc/pkg/common/moerr"
)

func TestAllocAligned(t *testing.T) {
	ps := pageSize()
	for _, align := range []uintptr{1, 2, 8, 16, 64, 256, 1024, ps, 2 * ps, 8 * ps} {
		p := AllocAligned(align, 100)
		require.NotNil(t, p, "align %d", align)
		require.Equal(t, uintptr(0), uintptr(p)&(align-1), "align %d", align)
		usable := UsableSize(p)
		require.True(t, usable >= 100)
		// touch the whole usable range to catch bad trimming
		buf := unsafe.Slice((*byte)(p), usable)
		for i := range buf {
			buf[i] = byte(i)
		}
		Free(p)
	}
}

func TestAllocAlignedInvalid(t *testing.T) {
	require.Nil(t, AllocAligned(3, 16))
	require.Nil(t, AllocAligned(0, 16))
	require.Nil(t, AllocAligned(12, 16))
}

func TestAllocAlignedTrimsSlack(t *testing.T) {
	// an alignment of 4 pages over-maps 3 pages of slack; after trimming
	// only 2 resident pages remain: one holding the header, one holding
	// the user bytes
	ps := pageSize()
	before := ReadStats().InuseBytes
	p := AllocAligned(4*ps, 100)
	require.NotNil(t, p)
	require.Equal(t, uintptr(0), uintptr(p)&(4*ps-1))
	require.Equal(t, int64(2*ps), ReadStats().InuseBytes-before)
	Free(p)
	require.Equal(t, before, ReadStats().InuseBytes)
}

func TestMemalign(t *testing.T) {
	var p unsafe.Pointer
	require.NoError(t, Memalign(&p, 64, 100))
	require.NotNil(t, p)
	require.Equal(t, uintptr(0), uintptr(p)&63)
	Free(p)

	var q unsafe.Pointer
	err := Memalign(&q, 3, 8)
	require.Error(t, err)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM))
	require.Nil(t, q)
}

func TestPageAlloc(t *testing.T) {
	ps := pageSize()
	p := PageAlloc(100)
	require.NotNil(t, p)
	require.Equal(t, uintptr(0), uintptr(p)&(ps-1))
	require.True(t, UsableSize(p) >= 100)
	Free(p)
}
