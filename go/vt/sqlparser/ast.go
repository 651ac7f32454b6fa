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

// Package sqlparser holds the parsed statement model that the planner
// consumes, together with the formatter that regenerates per-shard SQL.
// Statements are constructed by the caller; there is no text grammar.
package sqlparser

import (
	"github.com/shardgate/shardgate/go/sqltypes"
)

// SQLNode defines the interface for all nodes generated by the parser.
type SQLNode interface {
	Format(buf *TrackedBuffer)
}

// Statement represents a statement.
type Statement interface {
	iStatement()
	SQLNode
}

func (*Select) iStatement() {}
func (*Insert) iStatement() {}
func (*Update) iStatement() {}
func (*Delete) iStatement() {}

// IsQuery returns true if the statement produces rows.
func IsQuery(stmt Statement) bool {
	_, ok := stmt.(*Select)
	return ok
}

// IsDML returns true if the statement modifies rows.
func IsDML(stmt Statement) bool {
	switch stmt.(type) {
	case *Insert, *Update, *Delete:
		return true
	}
	return false
}

// Select represents a SELECT statement.
type Select struct {
	Distinct    bool
	SelectExprs SelectExprs
	From        []*TableRef
	Where       Expr
	OrderBy     OrderBy
	Limit       *Limit
}

// SelectExprs represents SELECT expressions.
type SelectExprs []SelectExpr

// SelectExpr represents a SELECT expression.
type SelectExpr interface {
	iSelectExpr()
	SQLNode
}

func (*StarExpr) iSelectExpr()    {}
func (*AliasedExpr) iSelectExpr() {}

// StarExpr defines a '*' or 'table.*' expression.
type StarExpr struct {
	TableName string
}

// AliasedExpr defines an aliased SELECT expression.
type AliasedExpr struct {
	Expr Expr
	As   string
}

// ColumnName returns the name the expression produces in a result.
func (node *AliasedExpr) ColumnName() string {
	if node.As != "" {
		return node.As
	}
	if col, ok := node.Expr.(*ColName); ok {
		return col.Name
	}
	return String(node.Expr)
}

// JoinType is the join kind of a table reference.
type JoinType int

// Join types. The first table of a FROM list uses NormalJoin.
const (
	NormalJoin JoinType = iota
	InnerJoin
	LeftJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "join"
	case LeftJoin:
		return "left join"
	}
	return ""
}

// TableRef is one entry of a FROM clause. Name is the logical table name.
type TableRef struct {
	Name  string
	Alias string
	Join  JoinType
	On    Expr
}

// RefName returns the name by which columns qualify this table.
func (node *TableRef) RefName() string {
	if node.Alias != "" {
		return node.Alias
	}
	return node.Name
}

// IsOuter returns true for tables that are NULL-extended by a LEFT JOIN.
func (node *TableRef) IsOuter() bool {
	return node.Join == LeftJoin
}

// Order represents an ordering expression.
type Order struct {
	Expr Expr
	Desc bool
}

// OrderBy represents an ORDER BY clause.
type OrderBy []*Order

// Limit represents a LIMIT clause. A negative Rowcount means no limit.
type Limit struct {
	Offset   int64
	Rowcount int64
}

// Insert represents an INSERT statement.
type Insert struct {
	Table   string
	Columns []string
	Rows    [][]Expr
}

// UpdateExpr represents one assignment of an UPDATE.
type UpdateExpr struct {
	Name string
	Expr Expr
}

// Update represents an UPDATE statement.
type Update struct {
	Table string
	Exprs []*UpdateExpr
	Where Expr
}

// Delete represents a DELETE statement.
type Delete struct {
	Table string
	Where Expr
}

// Expr represents an expression.
type Expr interface {
	iExpr()
	SQLNode
}

func (*ColName) iExpr()        {}
func (*Literal) iExpr()        {}
func (*Argument) iExpr()       {}
func (*Offset) iExpr()         {}
func (*ComparisonExpr) iExpr() {}
func (*AndExpr) iExpr()        {}
func (*OrExpr) iExpr()         {}
func (*NotExpr) iExpr()        {}
func (*IsNullExpr) iExpr()     {}
func (*FuncExpr) iExpr()       {}

// ColName represents a column reference, optionally qualified by a table
// reference name.
type ColName struct {
	Qualifier string
	Name      string
}

// NewColName makes a new ColName.
func NewColName(qualifier, name string) *ColName {
	return &ColName{Qualifier: qualifier, Name: name}
}

// Equal returns true if the column names match.
func (node *ColName) Equal(c *ColName) bool {
	return node.Qualifier == c.Qualifier && node.Name == c.Name
}

// Literal represents a constant value.
type Literal struct {
	Val sqltypes.Value
}

// NewIntLiteral builds a new integer literal.
func NewIntLiteral(v int64) *Literal {
	return &Literal{Val: sqltypes.NewInt64(v)}
}

// NewStrLiteral builds a new string literal.
func NewStrLiteral(v string) *Literal {
	return &Literal{Val: sqltypes.NewVarChar(v)}
}

// Argument represents a bind variable. Its value is supplied at execution.
type Argument struct {
	Name string
}

// NewArgument builds a new bind variable reference.
func NewArgument(name string) *Argument {
	return &Argument{Name: name}
}

// Offset refers to a position in an intermediate row. The planner
// produces it for expressions evaluated locally.
type Offset struct {
	Index    int
	Original string
}

// Comparison operators.
const (
	EqualOp        = "="
	NotEqualOp     = "!="
	LessThanOp     = "<"
	LessEqualOp    = "<="
	GreaterThanOp  = ">"
	GreaterEqualOp = ">="
	NullSafeEqual  = "<=>"
	LikeOp         = "like"
	NotLikeOp      = "not like"
)

// ComparisonExpr represents a two-value comparison expression.
type ComparisonExpr struct {
	Operator    string
	Left, Right Expr
}

// AndExpr represents an AND expression.
type AndExpr struct {
	Left, Right Expr
}

// OrExpr represents an OR expression.
type OrExpr struct {
	Left, Right Expr
}

// NotExpr represents a NOT expression.
type NotExpr struct {
	Expr Expr
}

// IsNullExpr represents IS NULL or IS NOT NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

// FuncExpr represents a function call.
type FuncExpr struct {
	Name  string
	Exprs []Expr
}

// NewComparison builds a comparison expression.
func NewComparison(op string, left, right Expr) *ComparisonExpr {
	return &ComparisonExpr{Operator: op, Left: left, Right: right}
}
