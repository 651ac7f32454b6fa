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
	"fmt"
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// TableRewriter maps a logical table name to the physical table name of
// the node a statement is being generated for.
type TableRewriter func(logical string) string

// TrackedBuffer is used to rebuild a query from the ast.
// When bind variables are attached, literals and arguments are emitted as
// '?' placeholders and their values are collected in order, so that the
// generated query can be handed to any database/sql driver.
type TrackedBuffer struct {
	*strings.Builder
	rewrite     TableRewriter
	bindVars    map[string]sqltypes.Value
	placeholder bool
	unqualified bool
	args        []any
	err         error
}

// NewTrackedBuffer creates a new TrackedBuffer. A nil rewriter keeps
// logical table names.
func NewTrackedBuffer(rewrite TableRewriter) *TrackedBuffer {
	return &TrackedBuffer{
		Builder: new(strings.Builder),
		rewrite: rewrite,
	}
}

// WithBindVars switches the buffer to placeholder mode.
func (buf *TrackedBuffer) WithBindVars(bindVars map[string]sqltypes.Value) *TrackedBuffer {
	buf.bindVars = bindVars
	buf.placeholder = true
	return buf
}

// Myprintf mimics fmt.Fprintf(buf, ...), but limited to Node(%v),
// string(%s) and int(%d).
func (buf *TrackedBuffer) Myprintf(format string, values ...any) {
	end := len(format)
	fieldnum := 0
	for i := 0; i < end; {
		lasti := i
		for i < end && format[i] != '%' {
			i++
		}
		if i > lasti {
			buf.WriteString(format[lasti:i])
		}
		if i >= end {
			break
		}
		i++ // '%'
		switch format[i] {
		case 's':
			buf.WriteString(values[fieldnum].(string))
		case 'd':
			fmt.Fprintf(buf, "%d", values[fieldnum])
		case 'v':
			values[fieldnum].(SQLNode).Format(buf)
		default:
			panic("unexpected")
		}
		fieldnum++
		i++
	}
}

func (buf *TrackedBuffer) tableName(logical string) string {
	if buf.rewrite == nil {
		return logical
	}
	return buf.rewrite(logical)
}

func (buf *TrackedBuffer) formatID(id string) {
	if isPlainIdentifier(id) {
		buf.WriteString(id)
		return
	}
	buf.WriteByte('`')
	buf.WriteString(strings.ReplaceAll(id, "`", "``"))
	buf.WriteByte('`')
}

func (buf *TrackedBuffer) value(v sqltypes.Value) {
	if buf.placeholder {
		buf.WriteByte('?')
		buf.args = append(buf.args, v.ToNative())
		return
	}
	v.EncodeSQL(buf.Builder)
}

func (buf *TrackedBuffer) child(parent, node Expr) {
	if precedenceFor(node) < precedenceFor(parent) {
		buf.Myprintf("(%v)", node)
		return
	}
	node.Format(buf)
}

var keywords = map[string]bool{
	"select": true, "from": true, "where": true, "order": true, "by": true,
	"group": true, "limit": true, "insert": true, "update": true, "delete": true,
	"into": true, "values": true, "set": true, "and": true, "or": true,
	"not": true, "null": true, "is": true, "join": true, "left": true,
	"on": true, "as": true, "key": true, "index": true, "table": true,
	"desc": true, "asc": true, "like": true, "in": true,
}

func isPlainIdentifier(id string) bool {
	if id == "" || keywords[strings.ToLower(id)] {
		return false
	}
	for i, ch := range id {
		switch {
		case ch == '_', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precAtom
)

func precedenceFor(node Expr) int {
	switch node.(type) {
	case *OrExpr:
		return precOr
	case *AndExpr:
		return precAnd
	case *NotExpr:
		return precNot
	case *ComparisonExpr, *IsNullExpr:
		return precCompare
	}
	return precAtom
}

// ParsedQuery is a generated query and its positional arguments.
type ParsedQuery struct {
	Query string
	Args  []any
}

// Generate renders node for execution: tables are rewritten with rewrite,
// and literals and bind variables become positional arguments.
func Generate(node SQLNode, rewrite TableRewriter, bindVars map[string]sqltypes.Value) (*ParsedQuery, error) {
	buf := NewTrackedBuffer(rewrite).WithBindVars(bindVars)
	node.Format(buf)
	if buf.err != nil {
		return nil, buf.err
	}
	return &ParsedQuery{Query: buf.String(), Args: buf.args}, nil
}

// String returns a readable rendering of node with literals inlined and
// bind variables shown as :name.
func String(node SQLNode) string {
	buf := NewTrackedBuffer(nil)
	node.Format(buf)
	return buf.String()
}

// Format formats the node.
func (node *Select) Format(buf *TrackedBuffer) {
	buf.WriteString("select ")
	if node.Distinct {
		buf.WriteString("distinct ")
	}
	node.SelectExprs.Format(buf)
	buf.WriteString(" from ")
	for i, t := range node.From {
		switch {
		case i == 0:
		case t.Join == NormalJoin:
			buf.WriteString(", ")
		default:
			buf.Myprintf(" %s ", t.Join.String())
		}
		t.Format(buf)
		if i > 0 && t.Join != NormalJoin && t.On != nil {
			buf.Myprintf(" on %v", t.On)
		}
	}
	if node.Where != nil {
		buf.Myprintf(" where %v", node.Where)
	}
	node.OrderBy.Format(buf)
	if node.Limit != nil {
		node.Limit.Format(buf)
	}
}

// Format formats the node.
func (node SelectExprs) Format(buf *TrackedBuffer) {
	for i, e := range node {
		if i > 0 {
			buf.WriteString(", ")
		}
		e.Format(buf)
	}
}

// Format formats the node.
func (node *StarExpr) Format(buf *TrackedBuffer) {
	if node.TableName != "" && !buf.unqualified {
		buf.formatID(node.TableName)
		buf.WriteByte('.')
	}
	buf.WriteByte('*')
}

// Format formats the node.
func (node *AliasedExpr) Format(buf *TrackedBuffer) {
	node.Expr.Format(buf)
	if node.As != "" {
		buf.WriteString(" as ")
		buf.formatID(node.As)
	}
}

// Format formats the node. A table whose physical name differs from the
// name its columns are qualified with is aliased back to that name.
func (node *TableRef) Format(buf *TrackedBuffer) {
	physical := buf.tableName(node.Name)
	buf.formatID(physical)
	if ref := node.RefName(); ref != physical {
		buf.WriteString(" as ")
		buf.formatID(ref)
	}
}

// Format formats the node.
func (node OrderBy) Format(buf *TrackedBuffer) {
	for i, o := range node {
		if i == 0 {
			buf.WriteString(" order by ")
		} else {
			buf.WriteString(", ")
		}
		o.Format(buf)
	}
}

// Format formats the node.
func (node *Order) Format(buf *TrackedBuffer) {
	node.Expr.Format(buf)
	if node.Desc {
		buf.WriteString(" desc")
	} else {
		buf.WriteString(" asc")
	}
}

// Format formats the node.
func (node *Limit) Format(buf *TrackedBuffer) {
	if node.Rowcount < 0 {
		return
	}
	if node.Offset > 0 {
		buf.Myprintf(" limit %d, %d", node.Offset, node.Rowcount)
		return
	}
	buf.Myprintf(" limit %d", node.Rowcount)
}

// Format formats the node.
func (node *Insert) Format(buf *TrackedBuffer) {
	buf.WriteString("insert into ")
	buf.formatID(buf.tableName(node.Table))
	if len(node.Columns) > 0 {
		buf.WriteByte('(')
		for i, c := range node.Columns {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.formatID(c)
		}
		buf.WriteByte(')')
	}
	buf.WriteString(" values ")
	for i, row := range node.Rows {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteByte('(')
		for j, e := range row {
			if j > 0 {
				buf.WriteString(", ")
			}
			e.Format(buf)
		}
		buf.WriteByte(')')
	}
}

// Format formats the node. Columns are emitted unqualified because the
// target table is renamed to its physical name.
func (node *Update) Format(buf *TrackedBuffer) {
	buf.unqualified = true
	defer func() { buf.unqualified = false }()
	buf.WriteString("update ")
	buf.formatID(buf.tableName(node.Table))
	buf.WriteString(" set ")
	for i, e := range node.Exprs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.formatID(e.Name)
		buf.Myprintf(" = %v", e.Expr)
	}
	if node.Where != nil {
		buf.Myprintf(" where %v", node.Where)
	}
}

// Format formats the node.
func (node *Delete) Format(buf *TrackedBuffer) {
	buf.unqualified = true
	defer func() { buf.unqualified = false }()
	buf.WriteString("delete from ")
	buf.formatID(buf.tableName(node.Table))
	if node.Where != nil {
		buf.Myprintf(" where %v", node.Where)
	}
}

// Format formats the node.
func (node *ColName) Format(buf *TrackedBuffer) {
	if node.Qualifier != "" && !buf.unqualified {
		buf.formatID(node.Qualifier)
		buf.WriteByte('.')
	}
	buf.formatID(node.Name)
}

// Format formats the node.
func (node *Literal) Format(buf *TrackedBuffer) {
	buf.value(node.Val)
}

// Format formats the node.
func (node *Argument) Format(buf *TrackedBuffer) {
	if !buf.placeholder {
		buf.Myprintf(":%s", node.Name)
		return
	}
	v, ok := buf.bindVars[node.Name]
	if !ok {
		if buf.err == nil {
			buf.err = vterrors.Errorf(vterrors.InvalidArgument, "missing bind var %s", node.Name)
		}
		v = sqltypes.NULL
	}
	buf.value(v)
}

// Format formats the node.
func (node *Offset) Format(buf *TrackedBuffer) {
	if buf.placeholder && buf.err == nil {
		buf.err = vterrors.Errorf(vterrors.Internal, "offset %d cannot be sent to a shard", node.Index)
	}
	if node.Original != "" {
		buf.WriteString(node.Original)
		return
	}
	buf.Myprintf(":%d", node.Index)
}

// Format formats the node.
func (node *ComparisonExpr) Format(buf *TrackedBuffer) {
	buf.child(node, node.Left)
	buf.Myprintf(" %s ", node.Operator)
	buf.child(node, node.Right)
}

// Format formats the node.
func (node *AndExpr) Format(buf *TrackedBuffer) {
	buf.child(node, node.Left)
	buf.WriteString(" and ")
	buf.child(node, node.Right)
}

// Format formats the node.
func (node *OrExpr) Format(buf *TrackedBuffer) {
	buf.child(node, node.Left)
	buf.WriteString(" or ")
	buf.child(node, node.Right)
}

// Format formats the node.
func (node *NotExpr) Format(buf *TrackedBuffer) {
	buf.WriteString("not ")
	buf.child(node, node.Expr)
}

// Format formats the node.
func (node *IsNullExpr) Format(buf *TrackedBuffer) {
	buf.child(node, node.Expr)
	if node.Not {
		buf.WriteString(" is not null")
	} else {
		buf.WriteString(" is null")
	}
}

// Format formats the node.
func (node *FuncExpr) Format(buf *TrackedBuffer) {
	buf.WriteString(node.Name)
	buf.WriteByte('(')
	for i, e := range node.Exprs {
		if i > 0 {
			buf.WriteString(", ")
		}
		e.Format(buf)
	}
	buf.WriteByte(')')
}
