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
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/directory"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

// sandbox is a ShardDirectory that records every call made on the
// connections it hands out and can inject failures. With a nil inner
// directory the connections answer queries with empty results.
type sandbox struct {
	inner ShardDirectory

	mu          sync.Mutex
	events      []string
	settings    map[string]directory.Settings
	connectErr  map[string]error
	execErr     map[string]error
	commitErr   map[string]error
	rollbackErr map[string]error
	open        int
	// afterQuery runs once a shard returned its cursor.
	afterQuery func(shard string)
}

func newSandbox(inner ShardDirectory) *sandbox {
	return &sandbox{
		inner:       inner,
		settings:    make(map[string]directory.Settings),
		connectErr:  make(map[string]error),
		execErr:     make(map[string]error),
		commitErr:   make(map[string]error),
		rollbackErr: make(map[string]error),
	}
}

func (sb *sandbox) record(format string, args ...any) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.events = append(sb.events, fmt.Sprintf(format, args...))
}

// Events returns the recorded calls and forgets them.
func (sb *sandbox) Events() []string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	events := sb.events
	sb.events = nil
	return events
}

func (sb *sandbox) openConns() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.open
}

func (sb *sandbox) GetConnection(ctx context.Context, shard string, settings directory.Settings) (ShardConn, error) {
	sb.mu.Lock()
	err := sb.connectErr[shard]
	sb.settings[shard] = settings
	sb.mu.Unlock()
	sb.record("%s connect autocommit=%v", shard, settings.Autocommit)
	if err != nil {
		return nil, err
	}
	sc := &sandboxConn{sb: sb, shard: shard}
	if sb.inner != nil {
		inner, err := sb.inner.GetConnection(ctx, shard, settings)
		if err != nil {
			return nil, err
		}
		sc.inner = inner
	}
	sb.mu.Lock()
	sb.open++
	sb.mu.Unlock()
	return sc, nil
}

// newConn returns a connection that is not backed by a database.
func (sb *sandbox) newConn(shard string) *ShardSession {
	sb.mu.Lock()
	sb.open++
	sb.mu.Unlock()
	return &ShardSession{Shard: shard, Conn: &sandboxConn{sb: sb, shard: shard}}
}

func (sb *sandbox) injected(errs map[string]error, shard string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return errs[shard]
}

type sandboxConn struct {
	sb     *sandbox
	shard  string
	inner  ShardConn
	closed bool
}

func (sc *sandboxConn) Query(ctx context.Context, query string, args ...any) (sqltypes.RowStream, error) {
	sc.sb.record("%s query %s", sc.shard, query)
	if err := sc.sb.injected(sc.sb.execErr, sc.shard); err != nil {
		return nil, err
	}
	var stream sqltypes.RowStream = sqltypes.RowsStream(&sqltypes.Result{})
	if sc.inner != nil {
		var err error
		if stream, err = sc.inner.Query(ctx, query, args...); err != nil {
			return nil, err
		}
	}
	if hook := sc.sb.afterQuery; hook != nil {
		hook(sc.shard)
	}
	return stream, nil
}

func (sc *sandboxConn) Exec(ctx context.Context, query string, args ...any) (*sqltypes.Result, error) {
	sc.sb.record("%s exec %s", sc.shard, query)
	if err := sc.sb.injected(sc.sb.execErr, sc.shard); err != nil {
		return nil, err
	}
	if sc.inner == nil {
		return &sqltypes.Result{RowsAffected: 1}, nil
	}
	return sc.inner.Exec(ctx, query, args...)
}

func (sc *sandboxConn) Commit() error {
	sc.sb.record("%s commit", sc.shard)
	if err := sc.sb.injected(sc.sb.commitErr, sc.shard); err != nil {
		return err
	}
	if sc.inner == nil {
		return nil
	}
	return sc.inner.Commit()
}

func (sc *sandboxConn) Rollback() error {
	sc.sb.record("%s rollback", sc.shard)
	var err error
	if sc.inner != nil {
		err = sc.inner.Rollback()
	}
	if injected := sc.sb.injected(sc.sb.rollbackErr, sc.shard); injected != nil {
		return injected
	}
	return err
}

func (sc *sandboxConn) Close() error {
	if sc.closed {
		return nil
	}
	sc.closed = true
	sc.sb.mu.Lock()
	sc.sb.open--
	sc.sb.mu.Unlock()
	if sc.inner == nil {
		return nil
	}
	return sc.inner.Close()
}

const testVSchema = `
routers:
  user_hash:
    function: hash
    columns: [user_id]
    shards: [shard0, shard1]
  user_mod:
    function: mod
    columns: [id]
    shards: [shard0, shard1]
  everywhere:
    function: replicated
    shards: [shard0, shard1]
tables:
  orders:
    router: user_hash
  users:
    router: user_mod
  countries:
    router: everywhere
`

var testDDL = []string{
	"create table orders (id integer primary key, user_id integer not null, status text)",
	"create index orders_user on orders (user_id)",
	"create table users (id integer primary key, name text)",
	"create table countries (code text primary key, name text)",
}

// testEnv is an engine over two sqlite shards whose connections go
// through a sandbox.
type testEnv struct {
	cfg    *Config
	dir    *directory.Directory
	sb     *sandbox
	engine *Engine
}

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	tmp := t.TempDir()
	data := fmt.Sprintf(`
shards:
  - name: shard0
    driver: sqlite
    dsn: %s
  - name: shard1
    driver: sqlite
    dsn: %s
vschema:
%s`, filepath.Join(tmp, "shard0.db"), filepath.Join(tmp, "shard1.db"), indent(testVSchema))
	cfg, err := ParseConfig([]byte(data))
	require.NoError(t, err)
	return cfg
}

func indent(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func newTestEnv(t *testing.T, opts *Options) *testEnv {
	t.Helper()
	ctx := context.Background()
	cfg := newTestConfig(t)
	dir, err := directory.New(cfg.Shards)
	require.NoError(t, err)
	t.Cleanup(dir.Close)
	require.NoError(t, dir.Open(ctx))

	da := directoryAdapter{dir: dir}
	for _, shard := range cfg.ShardNames() {
		conn, err := da.GetConnection(ctx, shard, directory.Settings{Autocommit: true})
		require.NoError(t, err)
		for _, ddl := range testDDL {
			_, err := conn.Exec(ctx, ddl)
			require.NoError(t, err)
		}
		require.NoError(t, conn.Close())
	}

	vschema, err := vindexes.BuildVSchema(&cfg.VSchema, cfg.ShardNames())
	require.NoError(t, err)
	sb := newSandbox(da)
	e := newEngine(vschema, sb, da, opts)
	t.Cleanup(func() { e.CloseAll(ctx) })
	return &testEnv{cfg: cfg, dir: dir, sb: sb, engine: e}
}

// shardRows reads a table directly from one shard.
func (env *testEnv) shardRows(t *testing.T, shard, query string) []sqltypes.Row {
	t.Helper()
	ctx := context.Background()
	conn, err := directoryAdapter{dir: env.dir}.GetConnection(ctx, shard, directory.Settings{Autocommit: true})
	require.NoError(t, err)
	defer conn.Close()
	stream, err := conn.Query(ctx, query)
	require.NoError(t, err)
	qr, err := sqltypes.ReadAll(stream)
	require.NoError(t, err)
	return qr.Rows
}
