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
	"bytes"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestReadStats(t *testing.T) {
	before := ReadStats()
	p := Alloc(100)
	require.NotNil(t, p)
	mid := ReadStats()
	require.Equal(t, before.NumAlloc+1, mid.NumAlloc)
	require.Equal(t, before.InuseBytes+128, mid.InuseBytes)
	require.True(t, mid.PeakInuseBytes >= uint64(mid.InuseBytes))
	Free(p)
	require.Equal(t, before.InuseBytes, ReadStats().InuseBytes)
}

func TestDumpStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DumpStats(&buf))
	out := buf.String()
	require.Contains(t, out, "page size:")
	require.Contains(t, out, "pool count: 16")
	require.Contains(t, out, "pool 15:")
}

func TestWriteStatsFile(t *testing.T) {
	name, err := WriteStatsFile(t.TempDir())
	require.NoError(t, err)
	content, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Contains(t, string(content), "bad free:")
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector()))
	fams, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 7, len(fams))
	for _, f := range fams {
		require.True(t, len(f.GetMetric()) > 0, "family %s empty", f.GetName())
	}
}
