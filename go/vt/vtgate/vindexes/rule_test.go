/*
Copyright 2026 The Shardgate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package vindexes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/sqltypes"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"enum", "hash", "mod", "range"}, RuleFunctions())
	assert.Panics(t, func() { Register("hash", NewHash) })
}

func TestHash(t *testing.T) {
	fn, err := CreateRuleFunction("hash", nil, 2, 4)
	require.NoError(t, err)
	pos, err := fn.Locate([]sqltypes.Value{sqltypes.NewInt64(1), sqltypes.NewVarChar("a")})
	require.NoError(t, err)
	again, _ := fn.Locate([]sqltypes.Value{sqltypes.NewInt64(1), sqltypes.NewVarChar("a")})
	assert.Equal(t, pos, again)
	assert.True(t, pos >= 0 && pos < 4)

	_, err = fn.Locate([]sqltypes.Value{sqltypes.NewInt64(1)})
	assert.Error(t, err)
	_, err = fn.Locate([]sqltypes.Value{sqltypes.NewInt64(1), sqltypes.NULL})
	assert.ErrorContains(t, err, "must not be NULL")
}

func TestMod(t *testing.T) {
	fn, err := CreateRuleFunction("mod", nil, 1, 3)
	require.NoError(t, err)
	for in, want := range map[int64]int{0: 0, 4: 1, 5: 2, -1: 2} {
		got, err := fn.Locate([]sqltypes.Value{sqltypes.NewInt64(in)})
		require.NoError(t, err)
		assert.Equal(t, want, got, "%d", in)
	}
	_, err = fn.Locate([]sqltypes.Value{sqltypes.NewVarChar("x")})
	assert.Error(t, err)
	_, err = CreateRuleFunction("mod", nil, 2, 3)
	assert.Error(t, err)
}

func TestRange(t *testing.T) {
	fn, err := CreateRuleFunction("range", map[string]string{"bounds": "100, 200"}, 1, 3)
	require.NoError(t, err)
	for in, want := range map[int64]int{-5: 0, 99: 0, 100: 1, 199: 1, 200: 2, 1000: 2} {
		got, err := fn.Locate([]sqltypes.Value{sqltypes.NewInt64(in)})
		require.NoError(t, err)
		assert.Equal(t, want, got, "%d", in)
	}
	_, err = CreateRuleFunction("range", map[string]string{"bounds": "200,100"}, 1, 3)
	assert.ErrorContains(t, err, "ascending")
}

func TestEnum(t *testing.T) {
	fn, err := CreateRuleFunction("enum", map[string]string{"US,1": "0", "EU,1": "1"}, 2, 2)
	require.NoError(t, err)
	pos, err := fn.Locate([]sqltypes.Value{sqltypes.NewVarChar("EU"), sqltypes.NewInt64(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	_, err = fn.Locate([]sqltypes.Value{sqltypes.NewVarChar("CN"), sqltypes.NewInt64(1)})
	assert.ErrorContains(t, err, "no shard for value CN,1")

	_, err = CreateRuleFunction("enum", map[string]string{"US": "5"}, 1, 2)
	assert.Error(t, err)
}
