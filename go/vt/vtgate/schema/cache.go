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
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/stats"
	"github.com/shardgate/shardgate/go/vt/directory"
	"github.com/shardgate/shardgate/go/vt/log"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

// Conn is a connection to one shard used to read metadata.
type Conn interface {
	Query(ctx context.Context, query string, args ...any) (sqltypes.RowStream, error)
	Close() error
}

// Connector opens metadata connections.
type Connector interface {
	Connect(ctx context.Context, shard string) (Conn, error)
	// Driver returns the database driver of shard.
	Driver(shard string) string
}

// Options tune the Cache.
type Options struct {
	// Retries is the number of attempts made for transient failures.
	Retries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	// DefaultRowCount is used when a shard has no row statistics.
	DefaultRowCount int64
	// IsTransient classifies errors worth retrying.
	IsTransient func(error) bool
	// Loads counts load outcomes by result, if set.
	Loads *stats.CountersWithSingleLabel
}

// DefaultOptions returns the options used by NewCache when nil is passed.
func DefaultOptions() *Options {
	return &Options{
		Retries:         3,
		RetryDelay:      50 * time.Millisecond,
		DefaultRowCount: 1000,
		IsTransient:     directory.IsTransient,
	}
}

type entry struct {
	meta *TableMeta
	err  error
	// aborted is set when the caller gave up during the load. Such
	// entries are not cached.
	aborted error
}

// Cache is the table metadata cache shared by all sessions. A table is
// loaded once on first use; afterwards its metadata is served without
// touching a shard.
type Cache struct {
	vschema   *vindexes.VSchema
	connector Connector
	opts      *Options

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
}

// NewCache creates a Cache.
func NewCache(vschema *vindexes.VSchema, connector Connector, opts *Options) *Cache {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.IsTransient == nil {
		opts.IsTransient = directory.IsTransient
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	return &Cache{
		vschema:   vschema,
		connector: connector,
		opts:      opts,
		entries:   make(map[string]*entry),
	}
}

// VSchema returns the virtual schema the cache serves.
func (c *Cache) VSchema() *vindexes.VSchema {
	return c.vschema
}

// Get returns the metadata of a table, loading it on first use.
func (c *Cache) Get(ctx context.Context, name string) (*TableMeta, error) {
	table, err := c.vschema.FindTable(name)
	if err != nil {
		return nil, err
	}
	key := strings.ToLower(table.Name)
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return e.result(table)
	}
	v, _, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		e, ok := c.entries[key]
		c.mu.Unlock()
		if ok {
			return e, nil
		}
		e = c.load(ctx, table)
		if e.aborted == nil {
			c.mu.Lock()
			c.entries[key] = e
			c.mu.Unlock()
		}
		return e, nil
	})
	return v.(*entry).result(table)
}

// Reload discards the cached metadata of a table and loads it again.
func (c *Cache) Reload(ctx context.Context, name string) (*TableMeta, error) {
	table, err := c.vschema.FindTable(name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	delete(c.entries, strings.ToLower(table.Name))
	c.mu.Unlock()
	return c.Get(ctx, name)
}

// Loaded returns the names of the tables whose metadata is cached.
func (c *Cache) Loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *entry) result(table *vindexes.Table) (*TableMeta, error) {
	if e.aborted != nil {
		return nil, e.aborted
	}
	if e.err != nil {
		return nil, vterrors.NewErrorf(vterrors.NotFound, vterrors.NoSuchTable, "table %s is invalid: %v", table.Name, e.err)
	}
	return e.meta, nil
}

func (c *Cache) count(result string) {
	if c.opts.Loads != nil {
		c.opts.Loads.Add(result, 1)
	}
}

func (c *Cache) load(ctx context.Context, table *vindexes.Table) *entry {
	meta, err := c.loadWithRetry(ctx, table)
	if err != nil && ctx.Err() != nil {
		return &entry{aborted: vterrors.Wrapf(ctx.Err(), "loading metadata of %s", table.Name)}
	}
	if err == nil {
		c.count("ok")
		log.InfoS("loaded table metadata", "table", table.Name, "columns", len(meta.Columns), "indexes", len(meta.Indexes))
		return &entry{meta: meta}
	}
	if table.Validate {
		c.count("invalid")
		log.Errorf("table %s marked invalid: %v", table.Name, err)
		return &entry{err: err}
	}
	c.count("degraded")
	log.Warningf("table %s degraded to an empty table: %v", table.Name, err)
	return &entry{meta: &TableMeta{
		Table:    table,
		Indexes:  []*Index{scanIndex(table.Name)},
		Degraded: true,
	}}
}

func (c *Cache) loadWithRetry(ctx context.Context, table *vindexes.Table) (*TableMeta, error) {
	for attempt := 1; ; attempt++ {
		meta, err := c.loadOnce(ctx, table)
		if err == nil || !c.opts.IsTransient(err) || attempt >= c.opts.Retries {
			return meta, err
		}
		log.Warningf("loading metadata of %s failed (attempt %d/%d), retrying: %v", table.Name, attempt, c.opts.Retries, err)
		timer := time.NewTimer(c.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Cache) loadOnce(ctx context.Context, table *vindexes.Table) (*TableMeta, error) {
	if len(table.Nodes) == 0 {
		return nil, vterrors.Errorf(vterrors.FailedPrecondition, "table %s has no nodes", table.Name)
	}
	node := table.Nodes[0]
	conn, err := c.connector.Connect(ctx, node.Shard)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var loader metadataLoader
	switch driver := c.connector.Driver(node.Shard); driver {
	case directory.DriverMySQL:
		loader = mysqlLoader{}
	case directory.DriverSQLite:
		loader = sqliteLoader{}
	default:
		return nil, vterrors.Errorf(vterrors.Unimplemented, "no metadata loader for driver %q", driver)
	}

	columns, err := loadColumns(ctx, conn, node.Table)
	if err != nil {
		return nil, err
	}
	meta := &TableMeta{Table: table, Columns: columns}
	raw, err := loader.indexes(ctx, conn, node.Table)
	if err != nil {
		return nil, err
	}
	if meta.Indexes, err = buildIndexes(table, columns, raw); err != nil {
		return nil, err
	}
	rowCount, ok, err := loader.rowCount(ctx, conn, node.Table)
	if err != nil {
		return nil, err
	}
	if !ok {
		rowCount = c.opts.DefaultRowCount
	}
	meta.RowCount = rowCount
	return meta, nil
}

// rawIndex is an index as reported by a shard.
type rawIndex struct {
	name    string
	kind    IndexKind
	columns []string
	desc    []bool
}

func buildIndexes(table *vindexes.Table, columns []*Column, raw []rawIndex) ([]*Index, error) {
	find := func(name string) *Column {
		for _, c := range columns {
			if strings.EqualFold(c.Name, name) {
				return c
			}
		}
		return nil
	}
	indexes := []*Index{scanIndex(table.Name)}
	if table.IsSharded() {
		idx := &Index{Name: table.Name + "_shardingkey", Kind: ShardingKeyIndex}
		for _, rc := range table.RuleColumns {
			col := find(rc)
			if col == nil {
				return nil, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.BadFieldError, "rule column %s not found in table %s", rc, table.Name)
			}
			idx.Columns = append(idx.Columns, IndexColumn{Column: col})
		}
		indexes = append(indexes, idx)
	}
	sort.SliceStable(raw, func(i, j int) bool {
		if raw[i].kind != raw[j].kind {
			return raw[i].kind < raw[j].kind
		}
		return raw[i].name < raw[j].name
	})
	for _, r := range raw {
		idx := &Index{Name: r.name, Kind: r.kind}
		for i, name := range r.columns {
			col := find(name)
			if col == nil {
				// Only the leading plain columns of an expression index
				// are usable, and they no longer identify a row.
				idx.Kind = NonUniqueIndex
				break
			}
			idx.Columns = append(idx.Columns, IndexColumn{Column: col, Desc: i < len(r.desc) && r.desc[i]})
		}
		if len(idx.Columns) == 0 {
			continue
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}
