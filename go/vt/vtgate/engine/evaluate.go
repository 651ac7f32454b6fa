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

package engine

import (
	"strconv"
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

var (
	boolTrue  = sqltypes.NewInt64(1)
	boolFalse = sqltypes.NewInt64(0)
)

func boolValue(b bool) sqltypes.Value {
	if b {
		return boolTrue
	}
	return boolFalse
}

// Evaluate computes expr over row. Offsets index into row and arguments
// are read from bindVars. Boolean results are 1, 0 or NULL.
func Evaluate(expr sqlparser.Expr, row sqltypes.Row, bindVars map[string]sqltypes.Value) (sqltypes.Value, error) {
	switch expr := expr.(type) {
	case *sqlparser.Literal:
		return expr.Val, nil
	case *sqlparser.Argument:
		v, ok := bindVars[expr.Name]
		if !ok {
			return sqltypes.NULL, vterrors.Errorf(vterrors.InvalidArgument, "missing bind var %s", expr.Name)
		}
		return v, nil
	case *sqlparser.Offset:
		if expr.Index < 0 || expr.Index >= len(row) {
			return sqltypes.NULL, vterrors.Errorf(vterrors.Internal, "offset %d out of range for row of %d columns", expr.Index, len(row))
		}
		return row[expr.Index], nil
	case *sqlparser.ComparisonExpr:
		left, err := Evaluate(expr.Left, row, bindVars)
		if err != nil {
			return sqltypes.NULL, err
		}
		right, err := Evaluate(expr.Right, row, bindVars)
		if err != nil {
			return sqltypes.NULL, err
		}
		return compare(expr.Operator, left, right)
	case *sqlparser.AndExpr:
		left, err := evalBool(expr.Left, row, bindVars)
		if err != nil {
			return sqltypes.NULL, err
		}
		if left == boolFalseState {
			return boolFalse, nil
		}
		right, err := evalBool(expr.Right, row, bindVars)
		if err != nil {
			return sqltypes.NULL, err
		}
		switch {
		case right == boolFalseState:
			return boolFalse, nil
		case left == boolNullState || right == boolNullState:
			return sqltypes.NULL, nil
		}
		return boolTrue, nil
	case *sqlparser.OrExpr:
		left, err := evalBool(expr.Left, row, bindVars)
		if err != nil {
			return sqltypes.NULL, err
		}
		if left == boolTrueState {
			return boolTrue, nil
		}
		right, err := evalBool(expr.Right, row, bindVars)
		if err != nil {
			return sqltypes.NULL, err
		}
		switch {
		case right == boolTrueState:
			return boolTrue, nil
		case left == boolNullState || right == boolNullState:
			return sqltypes.NULL, nil
		}
		return boolFalse, nil
	case *sqlparser.NotExpr:
		b, err := evalBool(expr.Expr, row, bindVars)
		if err != nil {
			return sqltypes.NULL, err
		}
		switch b {
		case boolNullState:
			return sqltypes.NULL, nil
		case boolTrueState:
			return boolFalse, nil
		}
		return boolTrue, nil
	case *sqlparser.IsNullExpr:
		v, err := Evaluate(expr.Expr, row, bindVars)
		if err != nil {
			return sqltypes.NULL, err
		}
		return boolValue(v.IsNull() != expr.Not), nil
	}
	return sqltypes.NULL, vterrors.Errorf(vterrors.Unimplemented, "cannot evaluate %s locally", sqlparser.String(expr))
}

type boolState int

const (
	boolFalseState boolState = iota
	boolTrueState
	boolNullState
)

func evalBool(expr sqlparser.Expr, row sqltypes.Row, bindVars map[string]sqltypes.Value) (boolState, error) {
	v, err := Evaluate(expr, row, bindVars)
	if err != nil {
		return boolNullState, err
	}
	return truth(v), nil
}

func truth(v sqltypes.Value) boolState {
	if v.IsNull() {
		return boolNullState
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.ToString()), 64)
	if err != nil || f == 0 {
		return boolFalseState
	}
	return boolTrueState
}

// EvaluateBool computes a predicate. NULL is false.
func EvaluateBool(expr sqlparser.Expr, row sqltypes.Row, bindVars map[string]sqltypes.Value) (bool, error) {
	b, err := evalBool(expr, row, bindVars)
	return b == boolTrueState, err
}

func compare(op string, left, right sqltypes.Value) (sqltypes.Value, error) {
	if op == sqlparser.NullSafeEqual {
		if left.IsNull() || right.IsNull() {
			return boolValue(left.IsNull() && right.IsNull()), nil
		}
		return boolValue(sqltypes.NullsafeCompare(left, right) == 0), nil
	}
	if left.IsNull() || right.IsNull() {
		return sqltypes.NULL, nil
	}
	switch op {
	case sqlparser.LikeOp:
		return boolValue(like(left.ToString(), right.ToString())), nil
	case sqlparser.NotLikeOp:
		return boolValue(!like(left.ToString(), right.ToString())), nil
	}
	c := sqltypes.NullsafeCompare(left, right)
	switch op {
	case sqlparser.EqualOp:
		return boolValue(c == 0), nil
	case sqlparser.NotEqualOp:
		return boolValue(c != 0), nil
	case sqlparser.LessThanOp:
		return boolValue(c < 0), nil
	case sqlparser.LessEqualOp:
		return boolValue(c <= 0), nil
	case sqlparser.GreaterThanOp:
		return boolValue(c > 0), nil
	case sqlparser.GreaterEqualOp:
		return boolValue(c >= 0), nil
	}
	return sqltypes.NULL, vterrors.Errorf(vterrors.Unimplemented, "unsupported operator %s", op)
}

// like matches s against a LIKE pattern, case-insensitively.
func like(s, pattern string) bool {
	str := []rune(strings.ToLower(s))
	pat := []rune(strings.ToLower(pattern))
	// match[j] is true if str[:i] matches pat[:j].
	match := make([]bool, len(pat)+1)
	match[0] = true
	for j := 1; j <= len(pat) && pat[j-1] == '%'; j++ {
		match[j] = true
	}
	for i := 1; i <= len(str); i++ {
		prevDiag := match[0]
		match[0] = false
		for j := 1; j <= len(pat); j++ {
			cur := match[j]
			switch pat[j-1] {
			case '%':
				match[j] = match[j-1] || match[j]
			case '_':
				match[j] = prevDiag
			default:
				match[j] = prevDiag && pat[j-1] == str[i-1]
			}
			prevDiag = cur
		}
	}
	return match[len(pat)]
}
