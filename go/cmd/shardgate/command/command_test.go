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

package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/vt/directory"
)

const topologyTemplate = `
shards:
  - name: shard0
    driver: sqlite
    dsn: %s
  - name: shard1
    driver: sqlite
    dsn: %s
vschema:
  routers:
    user_mod:
      function: mod
      columns: [id]
      shards: [shard0, shard1]
    everywhere:
      function: replicated
      shards: [shard0, shard1]
  tables:
    users:
      router: user_mod
    countries:
      router: everywhere
%s`

var topologyDDL = []string{
	"create table users (id integer primary key, name text)",
	"create table countries (code text primary key, name text)",
}

// setupTopology creates two sqlite shards and writes a topology file
// for them to an in-memory filesystem. It returns the topology path.
func setupTopology(t *testing.T, extraTables string) string {
	t.Helper()
	tmp := t.TempDir()
	shard0, shard1 := filepath.Join(tmp, "shard0.db"), filepath.Join(tmp, "shard1.db")

	d, err := directory.New([]directory.ShardConfig{
		{Name: "shard0", Driver: directory.DriverSQLite, DSN: shard0},
		{Name: "shard1", Driver: directory.DriverSQLite, DSN: shard1},
	})
	require.NoError(t, err)
	defer d.Close()
	ctx := context.Background()
	for _, shard := range d.Shards() {
		src, err := d.GetConnectionSource(shard)
		require.NoError(t, err)
		conn, err := d.GetConnection(ctx, src, directory.Settings{Autocommit: true})
		require.NoError(t, err)
		for _, ddl := range topologyDDL {
			_, err := conn.Exec(ctx, ddl)
			require.NoError(t, err)
		}
		require.NoError(t, conn.Close())
	}

	oldFs := fs
	fs = afero.NewMemMapFs()
	t.Cleanup(func() { fs = oldFs })
	path := "/etc/shardgate/topology.yaml"
	data := fmt.Sprintf(topologyTemplate, shard0, shard1, extraTables)
	require.NoError(t, afero.WriteFile(fs, path, []byte(data), 0o644))
	return path
}

// resetFlags puts every flag back to its default so that commands run
// by one test do not see the flags of another.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(Root)
	var out bytes.Buffer
	Root.SetOut(&out)
	Root.SetErr(io.Discard)
	Root.SetArgs(args)
	err := Root.Execute()
	return out.String(), err
}

func TestTables(t *testing.T) {
	topo := setupTopology(t, "")
	out, err := run(t, "tables", "--topology", topo, "--format", "plain")
	require.NoError(t, err)
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "user_mod")
	assert.Contains(t, out, "shard0.countries,shard1.countries")

	out, err = run(t, "tables", "--topology", topo, "--metadata")
	require.NoError(t, err)
	assert.Contains(t, out, "users_shardingkey")
}

func TestTopologyRequired(t *testing.T) {
	_, err := run(t, "tables")
	assert.ErrorContains(t, err, "--topology is required")
}

func TestRoute(t *testing.T) {
	topo := setupTopology(t, "")

	out, err := run(t, "route", "--topology", topo, "users", "id=3")
	require.NoError(t, err)
	assert.Contains(t, out, "users: fixed route over 1 of 2 nodes")
	assert.Contains(t, out, "shard1")
	assert.NotContains(t, out, "shard0")

	out, err = run(t, "route", "--topology", topo, "users", "name=bob")
	require.NoError(t, err)
	assert.Contains(t, out, "users: group route over 2 of 2 nodes")

	out, err = run(t, "route", "--topology", topo, "countries")
	require.NoError(t, err)
	assert.Contains(t, out, "countries: fixed route over 1 of 2 nodes")

	out, err = run(t, "route", "--topology", topo, "--write", "countries")
	require.NoError(t, err)
	assert.Contains(t, out, "countries: group route over 2 of 2 nodes")

	_, err = run(t, "route", "--topology", topo, "nosuchtable")
	assert.Error(t, err)
}

func TestExecQueryExplain(t *testing.T) {
	topo := setupTopology(t, "")

	for _, id := range []string{"1", "2", "3"} {
		out, err := run(t, "exec", "--topology", topo, "--set", "id="+id, "--set", "name=user"+id, "insert", "users")
		require.NoError(t, err)
		assert.Equal(t, "Query OK, 1 row affected\n", out)
	}

	out, err := run(t, "query", "--topology", topo, "--where", "id=3", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "user3")
	assert.Contains(t, out, "1 row in set")

	out, err = run(t, "query", "--topology", topo, "--columns", "id", "--order-by", "-id", "--limit", "2", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows in set")
	assert.Regexp(t, `(?s)3.*2`, out)
	assert.NotContains(t, out, "user")

	out, err = run(t, "explain", "--topology", topo, "--where", "id=:uid", "--bind", "uid=3", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "select * from users where id = :uid")
	assert.Contains(t, out, "Shards=shard1 ")

	out, err = run(t, "exec", "--topology", topo, "--set", "name=renamed", "--where", "id>=2", "update", "users")
	require.NoError(t, err)
	assert.Equal(t, "Query OK, 2 rows affected\n", out)

	out, err = run(t, "exec", "--topology", topo, "--where", "name=renamed", "delete", "users")
	require.NoError(t, err)
	assert.Equal(t, "Query OK, 2 rows affected\n", out)

	out, err = run(t, "query", "--topology", topo, "--where", "name=renamed", "users")
	require.NoError(t, err)
	assert.Equal(t, "0 rows in set\n", out)
}

func TestReadOnlyRejectsExec(t *testing.T) {
	topo := setupTopology(t, "")
	_, err := run(t, "exec", "--topology", topo, "--read-only", "--set", "id=1", "insert", "users")
	assert.ErrorContains(t, err, "READ ONLY")
}

func TestShowMetrics(t *testing.T) {
	topo := setupTopology(t, "")
	out, err := run(t, "query", "--topology", topo, "--show-metrics", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "shardgate_queries_by_plan")
	assert.Contains(t, out, "shardgate_metadata_loads")
}

func TestValidate(t *testing.T) {
	topo := setupTopology(t, "")
	out, err := run(t, "validate", "--topology", topo)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation complete; no issues found.")

	topo = setupTopology(t, `    ghost:
      nodes: [{shard: shard0}]
    lenient:
      nodes: [{shard: shard1, table: nowhere}]
      validate: false
`)
	out, err = run(t, "validate", "--topology", topo, "--metadata-retries", "1")
	assert.ErrorContains(t, err, "1 of 4 tables are invalid")
	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "invalid")
}

func TestConfigFileProvidesDefaults(t *testing.T) {
	topo := setupTopology(t, "")
	require.NoError(t, afero.WriteFile(fs, "/etc/shardgate/shardgate.yaml", []byte("topology: "+topo+"\nformat: plain\n"), 0o644))
	out, err := run(t, "tables", "--config", "/etc/shardgate/shardgate.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "users")
}
