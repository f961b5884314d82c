// Copyright 2022 Matrix Origin
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

package logutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetGlobalLogger(t *testing.T) {
	require.NotNil(t, GetGlobalLogger())
}

func TestSetupLoggerFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "test.log")
	SetupLogger(&LogConfig{Level: "debug", Format: "json", Filename: name})
	defer SetupLogger(&LogConfig{})

	Info("hello", zap.Int("n", 42))
	Debugf("formatted %d", 7)

	content, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Contains(t, string(content), "hello")
	require.Contains(t, string(content), "formatted 7")
}

func TestBadLevelFallsBack(t *testing.T) {
	cfg := &LogConfig{Level: "no-such-level"}
	require.NotNil(t, newLogger(cfg))
}
