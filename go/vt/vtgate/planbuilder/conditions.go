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
	"github.com/shardgate/shardgate/go/vt/vtgate/engine"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

type condKind int

const (
	condEqual condKind = iota
	condStart
	condEnd
)

// indexCond is a comparison between a column of a table and a value that
// does not depend on that table. It can drive an index lookup once the
// tables the value reads are bound.
type indexCond struct {
	column string
	kind   condKind
	value  sqlparser.Expr
	deps   map[string]bool
}

func (c *indexCond) boundBy(bound map[string]bool) bool {
	for dep := range c.deps {
		if !bound[dep] {
			return false
		}
	}
	return true
}

var flipOperator = map[string]string{
	sqlparser.EqualOp:        sqlparser.EqualOp,
	sqlparser.NullSafeEqual:  sqlparser.NullSafeEqual,
	sqlparser.LessThanOp:     sqlparser.GreaterThanOp,
	sqlparser.LessEqualOp:    sqlparser.GreaterEqualOp,
	sqlparser.GreaterThanOp:  sqlparser.LessThanOp,
	sqlparser.GreaterEqualOp: sqlparser.LessEqualOp,
}

var condKinds = map[string]condKind{
	sqlparser.EqualOp:        condEqual,
	sqlparser.NullSafeEqual:  condEqual,
	sqlparser.GreaterThanOp:  condStart,
	sqlparser.GreaterEqualOp: condStart,
	sqlparser.LessThanOp:     condEnd,
	sqlparser.LessEqualOp:    condEnd,
}

// extractConds returns the index conditions the conjuncts put on f.
func extractConds(f *tableFilter, conjuncts []sqlparser.Expr) []*indexCond {
	var conds []*indexCond
	for _, expr := range conjuncts {
		cmp, ok := expr.(*sqlparser.ComparisonExpr)
		if !ok {
			continue
		}
		if c := newIndexCond(f, cmp.Operator, cmp.Left, cmp.Right); c != nil {
			conds = append(conds, c)
			continue
		}
		if op, ok := flipOperator[cmp.Operator]; ok {
			if c := newIndexCond(f, op, cmp.Right, cmp.Left); c != nil {
				conds = append(conds, c)
			}
		}
	}
	return conds
}

func newIndexCond(f *tableFilter, op string, left, right sqlparser.Expr) *indexCond {
	kind, ok := condKinds[op]
	if !ok {
		return nil
	}
	col, ok := left.(*sqlparser.ColName)
	if !ok || col.Qualifier != f.name() {
		return nil
	}
	if lit, ok := right.(*sqlparser.Literal); ok && lit.Val.IsNull() {
		return nil
	}
	if !sqlparser.IsDeterministic(right) {
		return nil
	}
	deps := sqlparser.CollectDependencies(right)
	if deps[f.name()] {
		return nil
	}
	return &indexCond{column: strings.ToLower(col.Name), kind: kind, value: right, deps: deps}
}

// references returns true if expr reads a column of f.
func references(expr sqlparser.Expr, f *tableFilter) bool {
	return sqlparser.CollectDependencies(expr)[f.name()]
}

// bindings returns the equality values that are known before execution,
// for routing.
func bindings(f *tableFilter, bindVars map[string]sqltypes.Value) vindexes.Bindings {
	out := make(vindexes.Bindings)
	for _, c := range f.conds {
		if c.kind != condEqual || len(c.deps) != 0 || !sqlparser.IsValue(c.value) {
			continue
		}
		if _, ok := out[c.column]; ok {
			continue
		}
		v, err := engine.Evaluate(c.value, nil, bindVars)
		if err != nil {
			// A missing bind variable is reported when the query is
			// generated.
			continue
		}
		out[c.column] = v
	}
	return out
}

// columnMask summarizes the conditions on one column.
type columnMask struct {
	equal, start, end bool
}

func masksFor(conds []*indexCond, bound map[string]bool) map[string]columnMask {
	masks := make(map[string]columnMask)
	for _, c := range conds {
		if !c.boundBy(bound) {
			continue
		}
		m := masks[c.column]
		switch c.kind {
		case condEqual:
			m.equal = true
		case condStart:
			m.start = true
		case condEnd:
			m.end = true
		}
		masks[c.column] = m
	}
	return masks
}
