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

var _ Primitive = (*Limit)(nil)

// Limit is a primitive that performs the LIMIT operation.
type Limit struct {
	// Count is the maximum number of rows returned. A negative
	// count means no limit.
	Count  int64
	Offset int64
	Input  Primitive
}

// RouteType returns a description of the query routing type used by the primitive
func (l *Limit) RouteType() string {
	return l.Input.RouteType()
}

// Inputs returns the input to limit
func (l *Limit) Inputs() []Primitive {
	return []Primitive{l.Input}
}

// Open skips Offset input rows and stops after Count rows.
func (l *Limit) Open(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (Cursor, error) {
	input, err := l.Input.Open(ctx, vcursor, bindVars)
	if err != nil {
		return nil, err
	}
	return &limitCursor{input: input, skip: l.Offset, left: l.Count}, nil
}

type limitCursor struct {
	input Cursor
	skip  int64
	left  int64
	done  bool
}

func (c *limitCursor) Fields() []*sqltypes.Field { return c.input.Fields() }

func (c *limitCursor) Next() (bool, error) {
	if c.done {
		return false, nil
	}
	for c.skip > 0 {
		ok, err := c.input.Next()
		if err != nil || !ok {
			c.done = true
			return false, err
		}
		c.skip--
	}
	if c.left == 0 {
		c.done = true
		return false, c.input.Close()
	}
	ok, err := c.input.Next()
	if err != nil || !ok {
		c.done = true
		return false, err
	}
	if c.left > 0 {
		c.left--
	}
	return true, nil
}

func (c *limitCursor) Get() sqltypes.Row {
	if c.done {
		return nil
	}
	return c.input.Get()
}

func (c *limitCursor) SearchRow() sqltypes.Row { return copyRow(c.Get()) }

func (c *limitCursor) Previous() (bool, error) { return false, errPrevious }

func (c *limitCursor) Close() error {
	c.done = true
	return c.input.Close()
}

func (l *Limit) description() PrimitiveDescription {
	other := map[string]any{"Count": l.Count}
	if l.Offset > 0 {
		other["Offset"] = l.Offset
	}
	return PrimitiveDescription{
		OperatorType: "Limit",
		Other:        other,
	}
}
