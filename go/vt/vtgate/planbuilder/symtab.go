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

	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/schema"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

// tableFilter is one table reference of a statement.
type tableFilter struct {
	// pos is the position of the reference in the FROM clause.
	pos  int
	ref  *sqlparser.TableRef
	meta *schema.TableMeta

	// on holds the qualified ON conjuncts of an outer table.
	on []sqlparser.Expr
	// conds are the candidate index conditions on the table's columns.
	conds []*indexCond
	// hasPredicate is set if any usable conjunct reads the table.
	hasPredicate bool
}

func (f *tableFilter) name() string {
	return f.ref.RefName()
}

func (f *tableFilter) table() *vindexes.Table {
	return f.meta.Table
}

func (f *tableFilter) outer() bool {
	return f.ref.IsOuter()
}

func (f *tableFilter) columnNames() []string {
	names := make([]string, len(f.meta.Columns))
	for i, c := range f.meta.Columns {
		names[i] = c.Name
	}
	return names
}

// symtab resolves column references against the tables of a FROM clause.
type symtab struct {
	filters []*tableFilter
	byName  map[string]*tableFilter
}

func newSymtab(pctx *PlanContext, from []*sqlparser.TableRef) (*symtab, error) {
	if len(from) == 0 {
		return nil, vterrors.Errorf(vterrors.Unimplemented, "select without a table is not supported")
	}
	st := &symtab{byName: make(map[string]*tableFilter)}
	for i, ref := range from {
		if i == 0 && ref.Join != sqlparser.NormalJoin {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "first table %s cannot be joined", ref.RefName())
		}
		key := strings.ToLower(ref.RefName())
		if _, ok := st.byName[key]; ok {
			return nil, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.NonUniqTable, "Not unique table/alias: '%s'", ref.RefName())
		}
		meta, err := pctx.Metadata.Get(pctx.Ctx, ref.Name)
		if err != nil {
			return nil, err
		}
		f := &tableFilter{pos: i, ref: ref, meta: meta}
		st.filters = append(st.filters, f)
		st.byName[key] = f
	}
	return st, nil
}

// find resolves col against the first upto tables. The returned column
// is qualified with the table's reference name and carries the column
// name as the metadata spells it.
func (st *symtab) find(col *sqlparser.ColName, upto int) (*sqlparser.ColName, *tableFilter, int, error) {
	if col.Qualifier != "" {
		f, ok := st.byName[strings.ToLower(col.Qualifier)]
		if !ok || f.pos >= upto {
			return nil, nil, -1, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.BadTableError, "unknown table '%s'", col.Qualifier)
		}
		c, pos := f.meta.FindColumn(col.Name)
		if c == nil {
			return nil, nil, -1, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.BadFieldError, "unknown column '%s.%s'", col.Qualifier, col.Name)
		}
		return sqlparser.NewColName(f.name(), c.Name), f, pos, nil
	}
	var (
		found    *tableFilter
		foundCol *schema.Column
		foundPos int
	)
	for _, f := range st.filters[:upto] {
		c, pos := f.meta.FindColumn(col.Name)
		if c == nil {
			continue
		}
		if found != nil {
			return nil, nil, -1, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.NonUniqError, "column '%s' is ambiguous", col.Name)
		}
		found, foundCol, foundPos = f, c, pos
	}
	if found == nil {
		return nil, nil, -1, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.BadFieldError, "unknown column '%s'", col.Name)
	}
	return sqlparser.NewColName(found.name(), foundCol.Name), found, foundPos, nil
}

// qualify returns a copy of expr where every column is qualified with
// its table reference name.
func (st *symtab) qualify(expr sqlparser.Expr, upto int) (sqlparser.Expr, error) {
	if expr == nil {
		return nil, nil
	}
	var err error
	out := sqlparser.Rewrite(expr, func(e sqlparser.Expr) sqlparser.Expr {
		col, ok := e.(*sqlparser.ColName)
		if !ok || err != nil {
			return e
		}
		var q *sqlparser.ColName
		q, _, _, err = st.find(col, upto)
		if err != nil {
			return e
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// locate returns the table and column position of a qualified column.
func (st *symtab) locate(col *sqlparser.ColName) (*tableFilter, int) {
	f := st.byName[strings.ToLower(col.Qualifier)]
	if f == nil {
		return nil, -1
	}
	_, pos := f.meta.FindColumn(col.Name)
	return f, pos
}

// resultColumn is one column of a SELECT result.
type resultColumn struct {
	name string
	// expr is the qualified expression.
	expr sqlparser.Expr
	// filter and col are set if expr is a plain column.
	filter *tableFilter
	col    int
}

// expandSelect qualifies the select list and computes the result
// columns. A star expands to the columns of its tables in FROM order.
func (st *symtab) expandSelect(exprs sqlparser.SelectExprs) (sqlparser.SelectExprs, []resultColumn, error) {
	var (
		qualified sqlparser.SelectExprs
		columns   []resultColumn
	)
	for _, se := range exprs {
		switch se := se.(type) {
		case *sqlparser.StarExpr:
			filters := st.filters
			star := &sqlparser.StarExpr{}
			if se.TableName != "" {
				f, ok := st.byName[strings.ToLower(se.TableName)]
				if !ok {
					return nil, nil, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.BadTableError, "unknown table '%s'", se.TableName)
				}
				filters = []*tableFilter{f}
				star.TableName = f.name()
			}
			for _, f := range filters {
				for i, c := range f.meta.Columns {
					columns = append(columns, resultColumn{
						name:   c.Name,
						expr:   sqlparser.NewColName(f.name(), c.Name),
						filter: f,
						col:    i,
					})
				}
			}
			qualified = append(qualified, star)
		case *sqlparser.AliasedExpr:
			expr, err := st.qualify(se.Expr, len(st.filters))
			if err != nil {
				return nil, nil, err
			}
			rc := resultColumn{expr: expr, col: -1}
			if col, ok := expr.(*sqlparser.ColName); ok {
				rc.filter, rc.col = st.locate(col)
			}
			ae := &sqlparser.AliasedExpr{Expr: expr, As: se.As}
			rc.name = ae.ColumnName()
			if se.As == "" {
				if col, ok := se.Expr.(*sqlparser.ColName); ok {
					rc.name = col.Name
				}
			}
			columns = append(columns, rc)
			qualified = append(qualified, ae)
		}
	}
	return qualified, columns, nil
}

func resultNames(columns []resultColumn) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}
