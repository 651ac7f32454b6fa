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
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/engine"
	"github.com/shardgate/shardgate/go/vt/vtgate/schema"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

// writableTable returns the metadata of a table that is the target of a
// write.
func writableTable(pctx *PlanContext, name string) (*tableFilter, *symtab, error) {
	st, err := newSymtab(pctx, []*sqlparser.TableRef{{Name: name}})
	if err != nil {
		return nil, nil, err
	}
	f := st.filters[0]
	if f.meta.Degraded {
		return nil, nil, vterrors.Errorf(vterrors.FailedPrecondition, "table %s is degraded and cannot be written", f.table().Name)
	}
	t := f.table()
	if !t.IsSharded() && !t.IsReplicated() && len(t.Nodes) > 1 {
		return nil, nil, vterrors.Errorf(vterrors.FailedPrecondition, "cannot write to table %s: its rows are spread over %d nodes without a router", t.Name, len(t.Nodes))
	}
	return f, st, nil
}

func buildInsertPlan(pctx *PlanContext, ins *sqlparser.Insert) (*engine.Plan, error) {
	f, _, err := writableTable(pctx, ins.Table)
	if err != nil {
		return nil, err
	}
	table := f.table()
	columns, err := insertColumns(f.meta, ins.Columns)
	if err != nil {
		return nil, err
	}
	if len(ins.Rows) == 0 {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "insert into %s has no rows", ins.Table)
	}
	for i, row := range ins.Rows {
		if len(row) != len(columns) {
			return nil, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.WrongValueCountOnRow, "column count doesn't match value count at row %d", i+1)
		}
	}

	dml := &engine.DML{Opcode: engine.Insert, Table: table}
	if !table.IsSharded() {
		stmt := &sqlparser.Insert{Table: ins.Table, Columns: columns, Rows: ins.Rows}
		for _, n := range table.Nodes {
			dml.Targets = append(dml.Targets, engine.DMLTarget{Target: engine.NewTarget(table, n), Query: stmt})
		}
		return &engine.Plan{Instructions: dml}, nil
	}

	positions := make([]int, len(table.RuleColumns))
	for i, rc := range table.RuleColumns {
		positions[i] = -1
		for j, c := range columns {
			if strings.EqualFold(c, rc) {
				positions[i] = j
			}
		}
		if positions[i] < 0 {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "insert into %s must supply rule column %s", table.Name, rc)
		}
	}
	rowsByNode := make(map[vindexes.TableNode][][]sqlparser.Expr)
	for _, row := range ins.Rows {
		values := make([]sqltypes.Value, len(positions))
		for i, pos := range positions {
			if !sqlparser.IsValue(row[pos]) {
				return nil, vterrors.Errorf(vterrors.Unimplemented, "rule column %s must be a literal or bind variable", table.RuleColumns[i])
			}
			if values[i], err = engine.Evaluate(row[pos], nil, pctx.BindVars); err != nil {
				return nil, err
			}
		}
		node, err := table.Locate(values)
		if err != nil {
			return nil, err
		}
		rowsByNode[node] = append(rowsByNode[node], row)
	}
	for _, n := range table.Nodes {
		rows, ok := rowsByNode[n]
		if !ok {
			continue
		}
		dml.Targets = append(dml.Targets, engine.DMLTarget{
			Target: engine.NewTarget(table, n),
			Query:  &sqlparser.Insert{Table: ins.Table, Columns: columns, Rows: rows},
		})
	}
	return &engine.Plan{Instructions: dml}, nil
}

// insertColumns validates the column list of an insert. An empty list
// stands for every column in table order.
func insertColumns(meta *schema.TableMeta, columns []string) ([]string, error) {
	if len(columns) == 0 {
		out := make([]string, len(meta.Columns))
		for i, c := range meta.Columns {
			out[i] = c.Name
		}
		return out, nil
	}
	seen := make(map[string]bool)
	out := make([]string, len(columns))
	for i, name := range columns {
		c, _ := meta.FindColumn(name)
		if c == nil {
			return nil, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.BadFieldError, "unknown column '%s' in 'field list'", name)
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return nil, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.DupFieldName, "Column '%s' specified twice", name)
		}
		seen[key] = true
		out[i] = c.Name
	}
	return out, nil
}

func buildUpdatePlan(pctx *PlanContext, upd *sqlparser.Update) (*engine.Plan, error) {
	f, st, err := writableTable(pctx, upd.Table)
	if err != nil {
		return nil, err
	}
	stmt := &sqlparser.Update{Table: upd.Table}
	for _, ue := range upd.Exprs {
		c, _ := f.meta.FindColumn(ue.Name)
		if c == nil {
			return nil, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.BadFieldError, "unknown column '%s' in 'field list'", ue.Name)
		}
		if f.table().IsSharded() && f.table().IsRuleColumn(c.Name) {
			return nil, vterrors.Errorf(vterrors.Unimplemented, "changing rule column %s of table %s is not supported", c.Name, f.table().Name)
		}
		expr, err := st.qualify(ue.Expr, 1)
		if err != nil {
			return nil, err
		}
		stmt.Exprs = append(stmt.Exprs, &sqlparser.UpdateExpr{Name: c.Name, Expr: expr})
	}
	if stmt.Where, err = st.qualify(upd.Where, 1); err != nil {
		return nil, err
	}
	return buildWritePlan(pctx, engine.Update, f, stmt, stmt.Where)
}

func buildDeletePlan(pctx *PlanContext, del *sqlparser.Delete) (*engine.Plan, error) {
	f, st, err := writableTable(pctx, del.Table)
	if err != nil {
		return nil, err
	}
	stmt := &sqlparser.Delete{Table: del.Table}
	if stmt.Where, err = st.qualify(del.Where, 1); err != nil {
		return nil, err
	}
	return buildWritePlan(pctx, engine.Delete, f, stmt, stmt.Where)
}

// buildWritePlan routes an update or delete by the equalities of its
// WHERE clause. Writes to a replicated table reach every node.
func buildWritePlan(pctx *PlanContext, opcode engine.DMLOpcode, f *tableFilter, stmt sqlparser.Statement, where sqlparser.Expr) (*engine.Plan, error) {
	f.conds = extractConds(f, sqlparser.SplitAndExpression(nil, where))
	rr, err := vindexes.Resolve(f.table(), bindings(f, pctx.BindVars))
	if err != nil {
		return nil, err
	}
	dml := &engine.DML{Opcode: opcode, Table: f.table()}
	for _, n := range vindexes.ResolveWrite(rr) {
		dml.Targets = append(dml.Targets, engine.DMLTarget{Target: engine.NewTarget(f.table(), n), Query: stmt})
	}
	return &engine.Plan{Instructions: dml}, nil
}
