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

package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// Statements are given as flags: there is no SQL text parser. A
// predicate is written column<op>value, for example user_id=42 or
// status!=OPEN, and a set of predicates is combined with AND.

// predicateOps lists two-character operators first so that they win
// over their one-character prefix at the same position.
var predicateOps = []struct {
	token string
	op    string
}{
	{">=", sqlparser.GreaterEqualOp},
	{"<=", sqlparser.LessEqualOp},
	{"!=", sqlparser.NotEqualOp},
	{"<>", sqlparser.NotEqualOp},
	{"~", sqlparser.LikeOp},
	{"=", sqlparser.EqualOp},
	{">", sqlparser.GreaterThanOp},
	{"<", sqlparser.LessThanOp},
}

// parseColumn splits an optionally qualified column name.
func parseColumn(s string) (*sqlparser.ColName, error) {
	s = strings.TrimSpace(s)
	qualifier, name := "", s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		qualifier, name = s[:i], s[i+1:]
	}
	if name == "" {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "invalid column %q", s)
	}
	return sqlparser.NewColName(qualifier, name), nil
}

// parseValue turns a flag value into a literal. Integers stay integers,
// NULL is the null value and anything else is a string. Single quotes
// force a string.
func parseValue(s string) sqlparser.Expr {
	s = strings.TrimSpace(s)
	switch {
	case len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'':
		return sqlparser.NewStrLiteral(s[1 : len(s)-1])
	case strings.EqualFold(s, "null"):
		return &sqlparser.Literal{Val: sqltypes.NULL}
	case strings.HasPrefix(s, ":") && len(s) > 1:
		return sqlparser.NewArgument(s[1:])
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sqlparser.NewIntLiteral(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return &sqlparser.Literal{Val: sqltypes.NewFloat64(f)}
	}
	return sqlparser.NewStrLiteral(s)
}

func isNullLiteral(expr sqlparser.Expr) bool {
	lit, ok := expr.(*sqlparser.Literal)
	return ok && lit.Val.IsNull()
}

var qualifiedColumn = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\.[A-Za-z_][A-Za-z0-9_]*$`)

// parsePredicate parses one column<op>value predicate. The operator is
// the first one found in s. Comparing with NULL yields IS NULL or IS NOT
// NULL.
func parsePredicate(s string) (sqlparser.Expr, error) {
	return parseComparison(s, false)
}

// parseOnPredicate is parsePredicate for join conditions: a qualified
// alias.column on the right side is a column, not a string.
func parseOnPredicate(s string) (sqlparser.Expr, error) {
	return parseComparison(s, true)
}

func parseComparison(s string, columns bool) (sqlparser.Expr, error) {
	pos, match := -1, -1
	for i, p := range predicateOps {
		j := strings.Index(s, p.token)
		if j > 0 && (pos < 0 || j < pos) {
			pos, match = j, i
		}
	}
	if match < 0 {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "invalid predicate %q: expected column<op>value", s)
	}
	p := predicateOps[match]
	col, err := parseColumn(s[:pos])
	if err != nil {
		return nil, err
	}
	rhs := strings.TrimSpace(s[pos+len(p.token):])
	if columns && qualifiedColumn.MatchString(rhs) {
		other, err := parseColumn(rhs)
		if err != nil {
			return nil, err
		}
		return sqlparser.NewComparison(p.op, col, other), nil
	}
	value := parseValue(rhs)
	if isNullLiteral(value) {
		switch p.op {
		case sqlparser.EqualOp:
			return &sqlparser.IsNullExpr{Expr: col}, nil
		case sqlparser.NotEqualOp:
			return &sqlparser.IsNullExpr{Expr: col, Not: true}, nil
		}
	}
	return sqlparser.NewComparison(p.op, col, value), nil
}

// parseWhere combines predicates with AND. It returns nil for none.
func parseWhere(predicates []string) (sqlparser.Expr, error) {
	return combine(predicates, parsePredicate)
}

func combine(predicates []string, parse func(string) (sqlparser.Expr, error)) (sqlparser.Expr, error) {
	var where sqlparser.Expr
	for _, s := range predicates {
		expr, err := parse(s)
		if err != nil {
			return nil, err
		}
		if where == nil {
			where = expr
		} else {
			where = &sqlparser.AndExpr{Left: where, Right: expr}
		}
	}
	return where, nil
}

// parseAssignment parses column=value.
func parseAssignment(s string) (string, sqlparser.Expr, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, vterrors.Errorf(vterrors.InvalidArgument, "invalid assignment %q: expected column=value", s)
	}
	return name, parseValue(value), nil
}

// parseTable parses table or table:alias.
func parseTable(s string) *sqlparser.TableRef {
	name, alias, _ := strings.Cut(s, ":")
	return &sqlparser.TableRef{Name: name, Alias: alias}
}

// parseJoin parses table[:alias] followed by the ON predicates,
// for example "items:i,i.order_id=o.id".
func parseJoin(s string, kind sqlparser.JoinType) (*sqlparser.TableRef, error) {
	parts := strings.Split(s, ",")
	ref := parseTable(parts[0])
	ref.Join = kind
	on, err := combine(parts[1:], parseOnPredicate)
	if err != nil {
		return nil, err
	}
	if on == nil {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "join %q has no ON predicate", s)
	}
	ref.On = on
	return ref, nil
}

// selectOptions describe a SELECT statement.
type selectOptions struct {
	Columns   []string
	Joins     []string
	LeftJoins []string
	Where     []string
	OrderBy   []string
	Distinct  bool
	Limit     int64
	Offset    int64
}

func (opts *selectOptions) build(table string) (*sqlparser.Select, error) {
	sel := &sqlparser.Select{
		Distinct: opts.Distinct,
		From:     []*sqlparser.TableRef{parseTable(table)},
	}
	for _, j := range opts.Joins {
		ref, err := parseJoin(j, sqlparser.InnerJoin)
		if err != nil {
			return nil, err
		}
		sel.From = append(sel.From, ref)
	}
	for _, j := range opts.LeftJoins {
		ref, err := parseJoin(j, sqlparser.LeftJoin)
		if err != nil {
			return nil, err
		}
		sel.From = append(sel.From, ref)
	}
	if len(opts.Columns) == 0 {
		sel.SelectExprs = sqlparser.SelectExprs{&sqlparser.StarExpr{}}
	}
	for _, c := range opts.Columns {
		if strings.HasSuffix(c, "*") {
			sel.SelectExprs = append(sel.SelectExprs, &sqlparser.StarExpr{TableName: strings.TrimSuffix(strings.TrimSuffix(c, "*"), ".")})
			continue
		}
		col, err := parseColumn(c)
		if err != nil {
			return nil, err
		}
		sel.SelectExprs = append(sel.SelectExprs, &sqlparser.AliasedExpr{Expr: col})
	}
	where, err := parseWhere(opts.Where)
	if err != nil {
		return nil, err
	}
	sel.Where = where
	for _, o := range opts.OrderBy {
		desc := strings.HasPrefix(o, "-")
		col, err := parseColumn(strings.TrimPrefix(o, "-"))
		if err != nil {
			return nil, err
		}
		sel.OrderBy = append(sel.OrderBy, &sqlparser.Order{Expr: col, Desc: desc})
	}
	if opts.Limit >= 0 {
		sel.Limit = &sqlparser.Limit{Rowcount: opts.Limit, Offset: opts.Offset}
	}
	return sel, nil
}

// dmlOptions describe an INSERT, UPDATE or DELETE statement.
type dmlOptions struct {
	Set   []string
	Where []string
}

func (opts *dmlOptions) build(verb, table string) (sqlparser.Statement, error) {
	switch strings.ToLower(verb) {
	case "insert":
		if len(opts.Where) > 0 {
			return nil, vterrors.New(vterrors.InvalidArgument, "insert does not take --where")
		}
		ins := &sqlparser.Insert{Table: table}
		var row []sqlparser.Expr
		for _, s := range opts.Set {
			name, value, err := parseAssignment(s)
			if err != nil {
				return nil, err
			}
			ins.Columns = append(ins.Columns, name)
			row = append(row, value)
		}
		if len(row) == 0 {
			return nil, vterrors.New(vterrors.InvalidArgument, "insert needs at least one --set column=value")
		}
		ins.Rows = [][]sqlparser.Expr{row}
		return ins, nil
	case "update":
		upd := &sqlparser.Update{Table: table}
		for _, s := range opts.Set {
			name, value, err := parseAssignment(s)
			if err != nil {
				return nil, err
			}
			upd.Exprs = append(upd.Exprs, &sqlparser.UpdateExpr{Name: name, Expr: value})
		}
		if len(upd.Exprs) == 0 {
			return nil, vterrors.New(vterrors.InvalidArgument, "update needs at least one --set column=value")
		}
		where, err := parseWhere(opts.Where)
		if err != nil {
			return nil, err
		}
		upd.Where = where
		return upd, nil
	case "delete":
		if len(opts.Set) > 0 {
			return nil, vterrors.New(vterrors.InvalidArgument, "delete does not take --set")
		}
		where, err := parseWhere(opts.Where)
		if err != nil {
			return nil, err
		}
		return &sqlparser.Delete{Table: table, Where: where}, nil
	default:
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "unknown statement %q: expected insert, update or delete", verb)
	}
}

// parseBindVars parses name=value bind variables.
func parseBindVars(assignments []string) (map[string]sqltypes.Value, error) {
	if len(assignments) == 0 {
		return nil, nil
	}
	bindVars := make(map[string]sqltypes.Value, len(assignments))
	for _, s := range assignments {
		name, value, err := parseAssignment(s)
		if err != nil {
			return nil, err
		}
		lit, ok := value.(*sqlparser.Literal)
		if !ok {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "bind variable %s must be a literal", name)
		}
		bindVars[name] = lit.Val
	}
	return bindVars, nil
}
