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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitAndExpression(t *testing.T) {
	a := NewComparison(EqualOp, NewColName("t", "a"), NewIntLiteral(1))
	b := NewComparison(EqualOp, NewColName("t", "b"), NewIntLiteral(2))
	c := &OrExpr{Left: a, Right: b}
	filters := SplitAndExpression(nil, AndExpressions(a, nil, b, c))
	assert.Equal(t, []Expr{a, b, c}, filters)
	assert.Nil(t, AndExpressions())
	assert.Empty(t, SplitAndExpression(nil, nil))
}

func TestIsDeterministic(t *testing.T) {
	assert.True(t, IsDeterministic(NewComparison(EqualOp, NewColName("t", "a"), &FuncExpr{Name: "lower", Exprs: []Expr{NewStrLiteral("X")}})))
	assert.False(t, IsDeterministic(NewComparison(LessThanOp, NewColName("t", "a"), &FuncExpr{Name: "RAND"})))
}

func TestDependencies(t *testing.T) {
	e := &AndExpr{
		Left:  NewComparison(EqualOp, NewColName("o", "user_id"), NewColName("u", "id")),
		Right: &IsNullExpr{Expr: NewColName("o", "x"), Not: true},
	}
	assert.Equal(t, map[string]bool{"o": true, "u": true}, CollectDependencies(e))
	assert.True(t, IsEvaluatableUnder(e, map[string]bool{"o": true, "u": true}))
	assert.False(t, IsEvaluatableUnder(e, map[string]bool{"o": true}))
	assert.True(t, IsEvaluatableUnder(NewArgument("x"), nil))
	assert.Len(t, Columns(e), 3)
}

func TestRewriteCopies(t *testing.T) {
	orig := NewComparison(EqualOp, NewColName("", "a"), NewIntLiteral(1))
	out := Rewrite(orig, func(e Expr) Expr {
		if col, ok := e.(*ColName); ok {
			col.Qualifier = "t"
		}
		return e
	})
	assert.Equal(t, "a = 1", String(orig))
	assert.Equal(t, "t.a = 1", String(out))

	clone := CloneExpr(orig)
	assert.Equal(t, orig, clone)
	assert.NotSame(t, orig, clone)
}
