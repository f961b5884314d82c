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
	"os"
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/matrixorigin/buddyalloc/pkg/common/moerr"
	"github.com/matrixorigin/buddyalloc/pkg/logutil"
)

// Config tunes the allocator diagnostics. The class geometry itself is
// fixed at compile time.
type Config struct {
	// Check enables the best-effort double-free and wild-pointer guard.
	// Offending frees are counted and dropped, never fatal.
	Check bool `toml:"check"`

	// StatsDir is where WriteStatsFile places its pid-keyed dump when
	// called with an empty dir.
	StatsDir string `toml:"stats-dir"`
}

// checkEnv turns the guard on for processes that cannot call Configure.
const checkEnv = "BUDDYALLOC_CHECK"

var (
	checking atomic.Bool
	statsDir atomic.Pointer[string]
)

func init() {
	applyCheckEnv()
}

// applyCheckEnv turns the guard on when the environment asks for it; an
// unset or "0" value leaves the current setting alone.
func applyCheckEnv() {
	if v := os.Getenv(checkEnv); v != "" && v != "0" {
		checking.Store(true)
	}
}

// Configure applies cfg. Safe to call at any time; the guard toggle does
// not invalidate blocks allocated earlier.
func Configure(cfg Config) {
	checking.Store(cfg.Check)
	if cfg.StatsDir != "" {
		dir := cfg.StatsDir
		statsDir.Store(&dir)
	}
	logutil.Info("malloc configure",
		zap.Bool("check", cfg.Check),
		zap.String("stats dir", cfg.StatsDir),
	)
}

// ParseConfigFile reads a toml Config.
func ParseConfigFile(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, moerr.NewBadConfig("parse %s: %v", path, err)
	}
	return cfg, nil
}
