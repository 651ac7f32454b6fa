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

package sqlparser

import (
	"strings"
)

// Walk calls visit for node and, while visit returns true, for every
// sub-expression of node in depth-first order.
func Walk(visit func(Expr) bool, node Expr) {
	if node == nil || !visit(node) {
		return
	}
	switch node := node.(type) {
	case *ComparisonExpr:
		Walk(visit, node.Left)
		Walk(visit, node.Right)
	case *AndExpr:
		Walk(visit, node.Left)
		Walk(visit, node.Right)
	case *OrExpr:
		Walk(visit, node.Left)
		Walk(visit, node.Right)
	case *NotExpr:
		Walk(visit, node.Expr)
	case *IsNullExpr:
		Walk(visit, node.Expr)
	case *FuncExpr:
		for _, e := range node.Exprs {
			Walk(visit, e)
		}
	}
}

// Rewrite returns a copy of node where every sub-expression has been
// passed through f, bottom-up. The input tree is not modified.
func Rewrite(node Expr, f func(Expr) Expr) Expr {
	if node == nil {
		return nil
	}
	var out Expr
	switch node := node.(type) {
	case *ColName:
		out = &ColName{Qualifier: node.Qualifier, Name: node.Name}
	case *Literal:
		out = &Literal{Val: node.Val}
	case *Argument:
		out = &Argument{Name: node.Name}
	case *Offset:
		out = &Offset{Index: node.Index, Original: node.Original}
	case *ComparisonExpr:
		out = &ComparisonExpr{Operator: node.Operator, Left: Rewrite(node.Left, f), Right: Rewrite(node.Right, f)}
	case *AndExpr:
		out = &AndExpr{Left: Rewrite(node.Left, f), Right: Rewrite(node.Right, f)}
	case *OrExpr:
		out = &OrExpr{Left: Rewrite(node.Left, f), Right: Rewrite(node.Right, f)}
	case *NotExpr:
		out = &NotExpr{Expr: Rewrite(node.Expr, f)}
	case *IsNullExpr:
		out = &IsNullExpr{Expr: Rewrite(node.Expr, f), Not: node.Not}
	case *FuncExpr:
		exprs := make([]Expr, len(node.Exprs))
		for i, e := range node.Exprs {
			exprs[i] = Rewrite(e, f)
		}
		out = &FuncExpr{Name: node.Name, Exprs: exprs}
	default:
		out = node
	}
	return f(out)
}

// CloneExpr returns a deep copy of node.
func CloneExpr(node Expr) Expr {
	return Rewrite(node, func(e Expr) Expr { return e })
}

// SplitAndExpression breaks up the Expr into AND-separated conditions
// and appends them to filters.
func SplitAndExpression(filters []Expr, node Expr) []Expr {
	if node == nil {
		return filters
	}
	if node, ok := node.(*AndExpr); ok {
		filters = SplitAndExpression(filters, node.Left)
		return SplitAndExpression(filters, node.Right)
	}
	return append(filters, node)
}

// AndExpressions ands together the given expressions. Nil entries are
// skipped; an empty input yields nil.
func AndExpressions(exprs ...Expr) Expr {
	var result Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if result == nil {
			result = e
			continue
		}
		result = &AndExpr{Left: result, Right: e}
	}
	return result
}

var nondeterministicFuncs = map[string]bool{
	"rand":              true,
	"random":            true,
	"uuid":              true,
	"uuid_short":        true,
	"now":               true,
	"sysdate":           true,
	"current_timestamp": true,
	"current_date":      true,
	"current_time":      true,
	"unix_timestamp":    true,
	"last_insert_id":    true,
	"connection_id":     true,
}

// IsDeterministic returns true if evaluating node twice over the same row
// yields the same value.
func IsDeterministic(node Expr) bool {
	deterministic := true
	Walk(func(e Expr) bool {
		if f, ok := e.(*FuncExpr); ok && nondeterministicFuncs[strings.ToLower(f.Name)] {
			deterministic = false
		}
		return deterministic
	}, node)
	return deterministic
}

// CollectDependencies returns the set of table reference names whose
// columns node reads. Columns must already be qualified.
func CollectDependencies(node Expr) map[string]bool {
	deps := make(map[string]bool)
	Walk(func(e Expr) bool {
		if col, ok := e.(*ColName); ok {
			deps[col.Qualifier] = true
		}
		return true
	}, node)
	return deps
}

// IsEvaluatableUnder returns true if every column node reads belongs to a
// table reference in available.
func IsEvaluatableUnder(node Expr, available map[string]bool) bool {
	for dep := range CollectDependencies(node) {
		if !available[dep] {
			return false
		}
	}
	return true
}

// Columns returns the column references of node in visit order.
func Columns(node Expr) []*ColName {
	var cols []*ColName
	Walk(func(e Expr) bool {
		if col, ok := e.(*ColName); ok {
			cols = append(cols, col)
		}
		return true
	}, node)
	return cols
}

// IsValue returns true if the expression is a literal or bind variable.
func IsValue(node Expr) bool {
	switch node.(type) {
	case *Literal, *Argument:
		return true
	}
	return false
}
