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

package planbuilder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/engine"
	"github.com/shardgate/shardgate/go/vt/vtgate/schema"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

const testVSchema = `
routers:
  user_mod:
    function: mod
    columns: [user_id]
    shards: [s0, s1]
  item_mod:
    function: mod
    columns: [id]
    shards: [s0, s1]
  everywhere:
    function: replicated
    shards: [s0, s1]
tables:
  orders:
    router: user_mod
    nodes:
      - shard: s0
        table: orders_0
      - shard: s1
        table: orders_1
  users:
    router: user_mod
    rule_columns: [id]
  items:
    router: item_mod
  countries:
    router: everywhere
  audit:
    nodes:
      - shard: s1
        table: audit_log
  ledger:
    nodes:
      - shard: s0
      - shard: s1
  strict:
    router: user_mod
    scan_level: shardingkey
  broken:
    router: user_mod
    validate: false
`

type indexSpec struct {
	name    string
	kind    schema.IndexKind
	columns []string
}

// fakeMetadata serves hand-made table metadata.
type fakeMetadata map[string]*schema.TableMeta

func (m fakeMetadata) Get(_ context.Context, name string) (*schema.TableMeta, error) {
	meta, ok := m[strings.ToLower(name)]
	if !ok {
		return nil, vterrors.NewErrorf(vterrors.NotFound, vterrors.NoSuchTable, "table %s not found", name)
	}
	return meta, nil
}

func (m fakeMetadata) add(t *testing.T, vschema *vindexes.VSchema, name string, rows int64, columns []string, indexes ...indexSpec) {
	t.Helper()
	table, err := vschema.FindTable(name)
	require.NoError(t, err)
	meta := &schema.TableMeta{Table: table, RowCount: rows}
	for _, c := range columns {
		meta.Columns = append(meta.Columns, &schema.Column{Name: c, Type: sqltypes.Int64, Selectivity: schema.DefaultSelectivity})
	}
	meta.Indexes = []*schema.Index{{Name: name + "_scan", Kind: schema.ScanIndex}}
	if table.IsSharded() {
		indexes = append([]indexSpec{{name: name + "_shardingkey", kind: schema.ShardingKeyIndex, columns: table.RuleColumns}}, indexes...)
	}
	for _, spec := range indexes {
		idx := &schema.Index{Name: spec.name, Kind: spec.kind}
		for _, c := range spec.columns {
			col, _ := meta.FindColumn(c)
			require.NotNil(t, col, "column %s of %s", c, name)
			idx.Columns = append(idx.Columns, schema.IndexColumn{Column: col})
		}
		meta.Indexes = append(meta.Indexes, idx)
	}
	m[strings.ToLower(name)] = meta
}

func newTestMetadata(t *testing.T) fakeMetadata {
	t.Helper()
	cfg, err := vindexes.ParseVSchema([]byte(testVSchema))
	require.NoError(t, err)
	vschema, err := vindexes.BuildVSchema(cfg, []string{"s0", "s1"})
	require.NoError(t, err)

	m := make(fakeMetadata)
	m.add(t, vschema, "orders", 10000, []string{"id", "user_id", "status"},
		indexSpec{name: "PRIMARY", kind: schema.PrimaryKeyIndex, columns: []string{"id"}})
	m.add(t, vschema, "users", 1000, []string{"id", "name"},
		indexSpec{name: "PRIMARY", kind: schema.PrimaryKeyIndex, columns: []string{"id"}})
	m.add(t, vschema, "items", 50000, []string{"id", "order_id", "sku"},
		indexSpec{name: "PRIMARY", kind: schema.PrimaryKeyIndex, columns: []string{"id"}},
		indexSpec{name: "idx_order", kind: schema.NonUniqueIndex, columns: []string{"order_id"}})
	m.add(t, vschema, "countries", 200, []string{"code", "name"},
		indexSpec{name: "PRIMARY", kind: schema.PrimaryKeyIndex, columns: []string{"code"}})
	m.add(t, vschema, "audit", 100, []string{"id", "msg"})
	m.add(t, vschema, "ledger", 100, []string{"id", "amount"})
	m.add(t, vschema, "strict", 100, []string{"id", "user_id"})

	broken, err := vschema.FindTable("broken")
	require.NoError(t, err)
	m["broken"] = &schema.TableMeta{
		Table:    broken,
		Indexes:  []*schema.Index{{Name: "broken_scan", Kind: schema.ScanIndex}},
		Degraded: true,
	}
	return m
}

func newTestContext(t *testing.T) *PlanContext {
	return &PlanContext{Ctx: context.Background(), Metadata: newTestMetadata(t)}
}

func col(qualifier, name string) *sqlparser.ColName {
	return sqlparser.NewColName(qualifier, name)
}

func eq(left, right sqlparser.Expr) sqlparser.Expr {
	return sqlparser.NewComparison(sqlparser.EqualOp, left, right)
}

func intVal(v int64) sqlparser.Expr {
	return sqlparser.NewIntLiteral(v)
}

func columns(names ...string) sqlparser.SelectExprs {
	var exprs sqlparser.SelectExprs
	for _, n := range names {
		q, c := "", n
		if i := strings.IndexByte(n, '.'); i >= 0 {
			q, c = n[:i], n[i+1:]
		}
		exprs = append(exprs, &sqlparser.AliasedExpr{Expr: col(q, c)})
	}
	return exprs
}

func star() sqlparser.SelectExprs {
	return sqlparser.SelectExprs{&sqlparser.StarExpr{}}
}

// generate renders stmt for target the way the route does at execution.
func generate(t *testing.T, target engine.Target, stmt sqlparser.Statement, bindVars map[string]sqltypes.Value) *sqlparser.ParsedQuery {
	t.Helper()
	pq, err := sqlparser.Generate(stmt, func(name string) string {
		if phys, ok := target.Tables[strings.ToLower(name)]; ok {
			return phys
		}
		return name
	}, bindVars)
	require.NoError(t, err)
	return pq
}

func shardsOf[T interface{ String() string }](targets []T) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.String()
	}
	return out
}
