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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/directory"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
)

func insertOrder(id, userID int64, status string) *sqlparser.Insert {
	return &sqlparser.Insert{
		Table:   "orders",
		Columns: []string{"id", "user_id", "status"},
		Rows: [][]sqlparser.Expr{{
			sqlparser.NewIntLiteral(id),
			sqlparser.NewIntLiteral(userID),
			sqlparser.NewStrLiteral(status),
		}},
	}
}

func ids(rows []sqltypes.Row) []string {
	var out []string
	for _, row := range rows {
		out = append(out, row[0].ToString())
	}
	return out
}

// TestOrdersEndToEnd runs statements against two sqlite shards through
// the public Engine API.
func TestOrdersEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	e, err := NewEngine(cfg, &Options{Namespace: "e2e", MetadataRetries: 2})
	require.NoError(t, err)
	defer func() { require.NoError(t, e.CloseAll(ctx)) }()
	require.NoError(t, e.Open(ctx))

	dir := e.dir.(directoryAdapter)
	env := &testEnv{cfg: cfg, dir: dir.dir, engine: e}
	s := e.NewSession()
	for _, shard := range cfg.ShardNames() {
		for _, ddl := range testDDL {
			conn, err := dir.GetConnection(ctx, shard, directory.Settings{Autocommit: true})
			require.NoError(t, err)
			_, err = conn.Exec(ctx, ddl)
			require.NoError(t, err)
			require.NoError(t, conn.Close())
		}
	}

	orders := []struct {
		id, userID int64
		status     string
	}{
		{1, 42, "OPEN"},
		{2, 7, "OPEN"},
		{3, 42, "CLOSED"},
		{4, 13, "OPEN"},
		{5, 8, "CLOSED"},
		{6, 21, "OPEN"},
	}
	for _, o := range orders {
		_, err := s.Execute(ctx, insertOrder(o.id, o.userID, o.status), nil)
		require.NoError(t, err)
	}

	// Every user lives on exactly one shard.
	var home string
	for _, shard := range cfg.ShardNames() {
		rows := env.shardRows(t, shard, "select id from orders where user_id = 42 order by id")
		if len(rows) > 0 {
			require.Empty(t, home, "user 42 found on %s and %s", home, shard)
			home = shard
			assert.Equal(t, []string{"1", "3"}, ids(rows))
		}
	}
	require.NotEmpty(t, home)

	byUser := selectAll("orders", eq("user_id", sqlparser.NewIntLiteral(42)))
	tree, err := s.Explain(ctx, byUser, nil)
	require.NoError(t, err)
	assert.Contains(t, tree, "Shards="+home+" ")

	qr, err := s.Execute(ctx, byUser, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "3"}, ids(qr.Rows))
	assert.Equal(t, []string{"id", "user_id", "status"}, qr.FieldNames())

	// Without a rule column the statement runs on both shards and the
	// rows come back shard by shard.
	open := selectAll("orders", eq("status", sqlparser.NewStrLiteral("OPEN")))
	tree, err = s.Explain(ctx, open, nil)
	require.NoError(t, err)
	assert.Contains(t, tree, "Shards=shard0,shard1 ")

	var want []string
	for _, shard := range cfg.ShardNames() {
		want = append(want, ids(env.shardRows(t, shard, "select id from orders where status = 'OPEN'"))...)
	}
	qr, err = s.Execute(ctx, open, nil)
	require.NoError(t, err)
	assert.Equal(t, want, ids(qr.Rows))
	assert.Len(t, want, 4)

	// A transaction spanning both shards commits everywhere.
	require.NoError(t, s.Begin(ctx))
	upd := &sqlparser.Update{
		Table: "orders",
		Exprs: []*sqlparser.UpdateExpr{{Name: "status", Expr: sqlparser.NewStrLiteral("SHIPPED")}},
		Where: eq("status", sqlparser.NewStrLiteral("OPEN")),
	}
	qr, err = s.Execute(ctx, upd, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, qr.RowsAffected)
	assert.ElementsMatch(t, cfg.ShardNames(), s.HeldShards())
	require.NoError(t, s.Commit(ctx))

	qr, err = s.Execute(ctx, open, nil)
	require.NoError(t, err)
	assert.Empty(t, qr.Rows)

	del := &sqlparser.Delete{Table: "orders", Where: eq("user_id", sqlparser.NewIntLiteral(42))}
	qr, err = s.Execute(ctx, del, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, qr.RowsAffected)
	assert.Empty(t, env.shardRows(t, home, "select id from orders where user_id = 42"))
}
