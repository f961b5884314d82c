// Copyright 2021 - 2022 Matrix Origin
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

package moerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	err := NewOOM()
	require.Equal(t, ErrOOM, err.Code())
	require.Equal(t, "out of memory", err.Error())
	require.True(t, IsMoErrCode(err, ErrOOM))
	require.False(t, IsMoErrCode(err, ErrInternal))

	bad := NewBadConfig("missing %s", "stats-dir")
	require.Equal(t, ErrBadConfig, bad.Code())
	require.Contains(t, bad.Error(), "missing stats-dir")

	require.True(t, IsMoErrCode(nil, Ok))
	require.False(t, IsMoErrCode(nil, ErrOOM))
	require.False(t, IsMoErrCode(errors.New("plain"), ErrOOM))
}
