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

package vtgate

import (
	"database/sql"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/vt/vterrors"
)

func TestLoadConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := `{
  "shards": [
    {"name": "a", "driver": "sqlite", "dsn": "a.db"},
    {"name": "b", "driver": "mysql", "dsn": "u:p@tcp(db:3306)/b", "max_open_conns": 4}
  ],
  "vschema": {
    "routers": {"r": {"function": "mod", "columns": ["id"], "shards": ["a", "b"]}},
    "tables": {"t": {"router": "r"}}
  }
}`
	require.NoError(t, afero.WriteFile(fs, "/etc/shardgate.json", []byte(data), 0o644))

	cfg, err := LoadConfig(fs, "/etc/shardgate.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cfg.ShardNames())
	assert.Equal(t, 4, cfg.Shards[1].MaxOpenConns)
	assert.Equal(t, []string{"id"}, cfg.VSchema.Routers["r"].Columns)

	_, err = LoadConfig(fs, "/missing.yaml")
	require.Error(t, err)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte("vschema:\n  tables: {}\n"))
	assert.Equal(t, vterrors.InvalidArgument, vterrors.Code(err))

	_, err = ParseConfig([]byte("shards: []\nunknown: 1\n"))
	require.Error(t, err)
}

func TestNewEngineRejectsBadVSchema(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.VSchema.Tables["orders"].Router = "nope"
	_, err := NewEngine(cfg, nil)
	require.Error(t, err)
}

func TestParseIsolation(t *testing.T) {
	tcases := []struct {
		in   string
		want sql.IsolationLevel
		err  bool
	}{
		{in: "", want: sql.LevelDefault},
		{in: "read-committed", want: sql.LevelReadCommitted},
		{in: "REPEATABLE_READ", want: sql.LevelRepeatableRead},
		{in: "read uncommitted", want: sql.LevelReadUncommitted},
		{in: "serializable", want: sql.LevelSerializable},
		{in: "snapshot", err: true},
	}
	for _, tc := range tcases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseIsolation(tc.in)
			if tc.err {
				assert.Equal(t, vterrors.InvalidArgument, vterrors.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
