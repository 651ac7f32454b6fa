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

	"github.com/shardgate/shardgate/go/sqltypes"
)

var _ Primitive = (*SimpleProjection)(nil)

// SimpleProjection selects which columns to keep from the input
type SimpleProjection struct {
	// Cols defines the column numbers from the underlying primitive
	// to be returned.
	Cols []int
	// ColNames are the names of the returned columns. An empty name
	// keeps the input field name.
	ColNames []string
	Input    Primitive
}

// RouteType returns a description of the query routing type used by the primitive
func (sc *SimpleProjection) RouteType() string {
	return sc.Input.RouteType()
}

// Inputs returns the input to this primitive
func (sc *SimpleProjection) Inputs() []Primitive {
	return []Primitive{sc.Input}
}

// Open implements the Primitive interface
func (sc *SimpleProjection) Open(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (Cursor, error) {
	input, err := sc.Input.Open(ctx, vcursor, bindVars)
	if err != nil {
		return nil, err
	}
	return &projectionCursor{input: input, proj: sc}, nil
}

type projectionCursor struct {
	input  Cursor
	proj   *SimpleProjection
	fields []*sqltypes.Field
	row    sqltypes.Row
}

func (c *projectionCursor) Fields() []*sqltypes.Field {
	if c.fields != nil {
		return c.fields
	}
	in := c.input.Fields()
	fields := make([]*sqltypes.Field, len(c.proj.Cols))
	for i, col := range c.proj.Cols {
		f := &sqltypes.Field{Type: sqltypes.Null}
		if col < len(in) {
			*f = *in[col]
		}
		if i < len(c.proj.ColNames) && c.proj.ColNames[i] != "" {
			f.Name = c.proj.ColNames[i]
		}
		fields[i] = f
	}
	if in != nil {
		c.fields = fields
	}
	return fields
}

func (c *projectionCursor) Next() (bool, error) {
	ok, err := c.input.Next()
	if err != nil || !ok {
		c.row = nil
		return false, err
	}
	in := c.input.Get()
	row := make(sqltypes.Row, len(c.proj.Cols))
	for i, col := range c.proj.Cols {
		row[i] = in[col]
	}
	c.row = row
	return true, nil
}

func (c *projectionCursor) Get() sqltypes.Row { return c.row }

func (c *projectionCursor) SearchRow() sqltypes.Row { return copyRow(c.row) }

func (c *projectionCursor) Previous() (bool, error) { return false, errPrevious }

func (c *projectionCursor) Close() error { return c.input.Close() }

func (sc *SimpleProjection) description() PrimitiveDescription {
	other := map[string]any{
		"Columns": sc.Cols,
	}
	return PrimitiveDescription{
		OperatorType: "SimpleProjection",
		Other:        other,
	}
}
