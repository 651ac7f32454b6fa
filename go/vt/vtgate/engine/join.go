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
	"context"
	"sort"
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
)

var _ Primitive = (*Join)(nil)

// JoinOpcode is a number representing the opcode
// for the Join primitive.
type JoinOpcode int

// This is the list of JoinOpcode values.
const (
	InnerJoin = JoinOpcode(iota)
	LeftJoin
)

func (code JoinOpcode) String() string {
	if code == LeftJoin {
		return "LeftJoin"
	}
	return "Join"
}

// Join specifies the parameters for a nested-loop join primitive.
// Every row of Left is combined with the rows Right returns when the
// join variables are bound from that row. Output rows are the left
// columns followed by the right columns.
type Join struct {
	Opcode JoinOpcode
	// Left and Right are the LHS and RHS primitives
	// of the Join. They can be any primitive.
	Left, Right Primitive
	// Vars defines the list of join variables, keyed by name, with
	// the LHS column offset they are read from.
	Vars map[string]int
	// RightNames are the RHS column names. They size the NULL padding
	// of a left join and name the RHS fields when Right never runs.
	RightNames []string
}

// RouteType returns a description of the query routing type used by the primitive
func (jn *Join) RouteType() string {
	return "Join"
}

// Inputs returns the input primitives for this join
func (jn *Join) Inputs() []Primitive {
	return []Primitive{jn.Left, jn.Right}
}

// Open materializes the LHS and returns a cursor that runs the RHS once
// per LHS row.
func (jn *Join) Open(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (Cursor, error) {
	lcursor, err := jn.Left.Open(ctx, vcursor, bindVars)
	if err != nil {
		return nil, err
	}
	lresult, err := drain(ctx, vcursor, lcursor)
	if err != nil {
		return nil, err
	}
	return &joinCursor{
		ctx:      ctx,
		vcursor:  vcursor,
		join:     jn,
		bindVars: bindVars,
		lresult:  lresult,
		lpos:     -1,
	}, nil
}

type joinCursor struct {
	ctx      context.Context
	vcursor  VCursor
	join     *Join
	bindVars map[string]sqltypes.Value

	lresult *sqltypes.Result
	lpos    int
	rresult *sqltypes.Result
	rpos    int
	rfields []*sqltypes.Field
	row     sqltypes.Row
	done    bool
}

func (c *joinCursor) Fields() []*sqltypes.Field {
	rfields := c.rfields
	if rfields == nil {
		rfields = namesToFields(c.join.RightNames)
	}
	fields := make([]*sqltypes.Field, 0, len(c.lresult.Fields)+len(rfields))
	fields = append(fields, c.lresult.Fields...)
	return append(fields, rfields...)
}

func (c *joinCursor) Next() (bool, error) {
	for !c.done {
		if err := c.vcursor.CheckCancel(c.ctx); err != nil {
			c.Close()
			return false, err
		}
		if c.rresult != nil && c.rpos+1 < len(c.rresult.Rows) {
			c.rpos++
			c.row = joinRows(c.lresult.Rows[c.lpos], c.rresult.Rows[c.rpos])
			return true, nil
		}
		c.lpos++
		if c.lpos >= len(c.lresult.Rows) {
			c.Close()
			return false, nil
		}
		lrow := c.lresult.Rows[c.lpos]
		joinVars := make(map[string]sqltypes.Value, len(c.join.Vars))
		for name, offset := range c.join.Vars {
			joinVars[name] = lrow[offset]
		}
		rresult, err := Execute(c.ctx, c.vcursor, c.join.Right, combineVars(c.bindVars, joinVars))
		if err != nil {
			c.Close()
			return false, err
		}
		if c.rfields == nil && rresult.Fields != nil {
			c.rfields = rresult.Fields
		}
		c.rresult, c.rpos = rresult, -1
		if len(rresult.Rows) == 0 && c.join.Opcode == LeftJoin {
			c.row = joinRows(lrow, make(sqltypes.Row, c.rightWidth()))
			return true, nil
		}
	}
	return false, nil
}

func (c *joinCursor) rightWidth() int {
	if c.rfields != nil {
		return len(c.rfields)
	}
	return len(c.join.RightNames)
}

func joinRows(lrow, rrow sqltypes.Row) sqltypes.Row {
	row := make(sqltypes.Row, 0, len(lrow)+len(rrow))
	row = append(row, lrow...)
	return append(row, rrow...)
}

func (c *joinCursor) Get() sqltypes.Row { return c.row }

func (c *joinCursor) SearchRow() sqltypes.Row { return copyRow(c.row) }

func (c *joinCursor) Previous() (bool, error) { return false, errPrevious }

func (c *joinCursor) Close() error {
	c.done = true
	c.row = nil
	return nil
}

func (jn *Join) description() PrimitiveDescription {
	other := map[string]any{}
	if len(jn.Vars) > 0 {
		names := make([]string, 0, len(jn.Vars))
		for name := range jn.Vars {
			names = append(names, name)
		}
		sort.Strings(names)
		other["JoinVars"] = strings.Join(names, ",")
	}
	return PrimitiveDescription{
		OperatorType: "Join",
		Variant:      jn.Opcode.String(),
		Other:        other,
	}
}
