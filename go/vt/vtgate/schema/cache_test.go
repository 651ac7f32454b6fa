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

package schema

import (
	"context"
	"database/sql/driver"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/stats"
	"github.com/shardgate/shardgate/go/vt/directory"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

const testVSchema = `
routers:
  user_hash:
    function: hash
    columns: [user_id]
    shards: [shard0, shard1]
tables:
  orders:
    router: user_hash
  broken:
    router: user_hash
    rule_columns: [missing]
  ghost:
    nodes: [{shard: shard0}]
  lenient:
    nodes: [{shard: shard0, table: nowhere}]
    validate: false
  pairs:
    nodes: [{shard: shard1}]
`

var testDDL = []string{
	"create table orders (id integer primary key, user_id integer not null, status text, sku text)",
	"create unique index orders_sku on orders (sku)",
	"create index orders_user_status on orders (user_id, status desc)",
	"create table broken (id integer)",
	"create table pairs (a integer, b text, primary key (a, b))",
}

type testConnector struct {
	d        *directory.Directory
	connects atomic.Int32
	failures atomic.Int32
}

func (tc *testConnector) Connect(ctx context.Context, shard string) (Conn, error) {
	tc.connects.Add(1)
	if tc.failures.Load() > 0 {
		tc.failures.Add(-1)
		return nil, driver.ErrBadConn
	}
	src, err := tc.d.GetConnectionSource(shard)
	if err != nil {
		return nil, err
	}
	conn, err := tc.d.GetConnection(ctx, src, directory.Settings{Autocommit: true})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (tc *testConnector) Driver(shard string) string {
	return directory.DriverSQLite
}

func setup(t *testing.T, opts *Options) (*Cache, *testConnector) {
	t.Helper()
	dir := t.TempDir()
	d, err := directory.New([]directory.ShardConfig{
		{Name: "shard0", Driver: directory.DriverSQLite, DSN: filepath.Join(dir, "shard0.db")},
		{Name: "shard1", Driver: directory.DriverSQLite, DSN: filepath.Join(dir, "shard1.db")},
	})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	ctx := context.Background()
	for _, shard := range d.Shards() {
		src, err := d.GetConnectionSource(shard)
		require.NoError(t, err)
		conn, err := d.GetConnection(ctx, src, directory.Settings{Autocommit: true})
		require.NoError(t, err)
		for _, ddl := range testDDL {
			_, err := conn.Exec(ctx, ddl)
			require.NoError(t, err)
		}
		require.NoError(t, conn.Close())
	}

	cfg, err := vindexes.ParseVSchema([]byte(testVSchema))
	require.NoError(t, err)
	vschema, err := vindexes.BuildVSchema(cfg, d.Shards())
	require.NoError(t, err)
	tc := &testConnector{d: d}
	if opts == nil {
		opts = DefaultOptions()
		opts.RetryDelay = 0
	}
	return NewCache(vschema, tc, opts), tc
}

func TestLoadOrders(t *testing.T) {
	cache, _ := setup(t, nil)
	meta, err := cache.Get(context.Background(), "orders")
	require.NoError(t, err)

	var names []string
	for _, c := range meta.Columns {
		names = append(names, c.Name)
		assert.Equal(t, DefaultSelectivity, c.Selectivity)
	}
	assert.Equal(t, []string{"id", "user_id", "status", "sku"}, names)
	col, pos := meta.FindColumn("USER_ID")
	require.NotNil(t, col)
	assert.Equal(t, 1, pos)
	assert.Equal(t, sqltypes.Int64, col.Type)

	var indexes []string
	for _, idx := range meta.Indexes {
		indexes = append(indexes, idx.String())
	}
	assert.Equal(t, []string{
		"orders_scan",
		"orders_shardingkey(user_id)",
		"PRIMARY(id)",
		"orders_sku(sku)",
		"orders_user_status(user_id,status)",
	}, indexes)
	assert.Equal(t, ScanIndex, meta.ScanIndex().Kind)
	assert.True(t, meta.Indexes[2].IsUnique())
	assert.True(t, meta.Indexes[3].IsUnique())
	assert.False(t, meta.Indexes[4].IsUnique())
	assert.True(t, meta.Indexes[4].Columns[1].Desc)
	assert.EqualValues(t, 1000, meta.RowCount)
}

func TestCompositePrimaryKey(t *testing.T) {
	cache, _ := setup(t, nil)
	meta, err := cache.Get(context.Background(), "pairs")
	require.NoError(t, err)
	require.Len(t, meta.Indexes, 2)
	assert.Equal(t, PrimaryKeyIndex, meta.Indexes[1].Kind)
	assert.Equal(t, []string{"a", "b"}, meta.Indexes[1].ColumnNames())
}

func TestLoadIsIdempotent(t *testing.T) {
	cache, tc := setup(t, nil)
	ctx := context.Background()
	first, err := cache.Get(ctx, "orders")
	require.NoError(t, err)
	again, err := cache.Get(ctx, "orders")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.EqualValues(t, 1, tc.connects.Load())

	reloaded, err := cache.Reload(ctx, "orders")
	require.NoError(t, err)
	assert.NotSame(t, first, reloaded)
	assert.Empty(t, cmp.Diff(first.Columns, reloaded.Columns))
	assert.Empty(t, cmp.Diff(first.Indexes, reloaded.Indexes))
	assert.EqualValues(t, 2, tc.connects.Load())
}

func TestConcurrentGetLoadsOnce(t *testing.T) {
	exporter := stats.NewExporter("test")
	opts := DefaultOptions()
	opts.Loads = exporter.NewCountersWithSingleLabel("MetadataLoads", "metadata loads", "result")
	cache, tc := setup(t, opts)

	var wg sync.WaitGroup
	metas := make([]*TableMeta, 10)
	for i := range metas {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			meta, err := cache.Get(context.Background(), "orders")
			assert.NoError(t, err)
			metas[i] = meta
		}(i)
	}
	wg.Wait()
	for _, m := range metas {
		assert.Same(t, metas[0], m)
	}
	assert.EqualValues(t, 1, tc.connects.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(opts.Loads.Counter("ok")))
	assert.Equal(t, []string{"orders"}, cache.Loaded())
}

func TestInvalidTables(t *testing.T) {
	cache, _ := setup(t, nil)
	ctx := context.Background()

	_, err := cache.Get(ctx, "ghost")
	require.Error(t, err)
	assert.Equal(t, vterrors.NotFound, vterrors.Code(err))
	assert.Equal(t, vterrors.NoSuchTable, vterrors.ErrState(err))

	_, err = cache.Get(ctx, "broken")
	assert.ErrorContains(t, err, "rule column missing not found")

	_, err = cache.Get(ctx, "unknown")
	assert.Equal(t, vterrors.NoSuchTable, vterrors.ErrState(err))

	meta, err := cache.Get(ctx, "lenient")
	require.NoError(t, err)
	assert.True(t, meta.Degraded)
	assert.Empty(t, meta.Columns)
	assert.Len(t, meta.Indexes, 1)
	assert.Zero(t, meta.RowCount)
}

func TestTransientRetries(t *testing.T) {
	cache, tc := setup(t, nil)
	tc.failures.Store(2)
	_, err := cache.Get(context.Background(), "orders")
	require.NoError(t, err)
	assert.EqualValues(t, 3, tc.connects.Load())

	tc.failures.Store(3)
	_, err = cache.Reload(context.Background(), "orders")
	assert.Equal(t, vterrors.NotFound, vterrors.Code(err))
	assert.EqualValues(t, 6, tc.connects.Load())
}

func TestCanceledLoadIsNotCached(t *testing.T) {
	cache, tc := setup(t, nil)
	tc.failures.Store(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cache.Get(ctx, "orders")
	require.Error(t, err)
	assert.Equal(t, vterrors.Canceled, vterrors.Code(err))
	assert.Empty(t, cache.Loaded())

	_, err = cache.Get(context.Background(), "orders")
	require.NoError(t, err)
}
