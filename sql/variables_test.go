// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVariableStoreServerOwnedImmutableFromUserCode(t *testing.T) {
	require := require.New(t)

	vs := NewVariableStore()
	vs.Define("max_connections", 100, OwnerServer)

	err := vs.Set("max_connections", 5)
	require.Error(err)
	require.True(ErrPermissions.Is(err))

	v, ok := vs.Get("max_connections")
	require.True(ok)
	require.Equal(100, v)
}

func TestVariableStoreUserOwnedMutable(t *testing.T) {
	require := require.New(t)

	vs := NewVariableStore()
	require.NoError(vs.Set("timezone", "UTC"))

	s, ok := vs.GetString("timezone")
	require.True(ok)
	require.Equal("UTC", s)

	require.NoError(vs.Set("timezone", "America/New_York"))
	s, _ = vs.GetString("timezone")
	require.Equal("America/New_York", s)
}

func TestVariableStoreCloneIsIndependent(t *testing.T) {
	require := require.New(t)

	vs := NewVariableStore()
	vs.Define("server_id", "1", OwnerServer)

	clone := vs.Clone()
	require.NoError(clone.Set("session_var", "x"))

	_, ok := vs.Get("session_var")
	require.False(ok)
}
