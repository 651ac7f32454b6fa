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
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
)

var _ Primitive = (*Distinct)(nil)

// Distinct removes duplicate rows. The first occurrence of every row is
// kept in input order.
type Distinct struct {
	Input Primitive
}

// RouteType returns a description of the query routing type used by the primitive
func (d *Distinct) RouteType() string {
	return d.Input.RouteType()
}

// Inputs returns the input to distinct
func (d *Distinct) Inputs() []Primitive {
	return []Primitive{d.Input}
}

// Open implements the Primitive interface
func (d *Distinct) Open(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (Cursor, error) {
	input, err := d.Input.Open(ctx, vcursor, bindVars)
	if err != nil {
		return nil, err
	}
	return &distinctCursor{input: input, seen: make(map[string]struct{})}, nil
}

type distinctCursor struct {
	input Cursor
	seen  map[string]struct{}
}

func (c *distinctCursor) Fields() []*sqltypes.Field { return c.input.Fields() }

func (c *distinctCursor) Next() (bool, error) {
	for {
		ok, err := c.input.Next()
		if err != nil || !ok {
			return false, err
		}
		key := rowKey(c.input.Get())
		if _, dup := c.seen[key]; dup {
			continue
		}
		c.seen[key] = struct{}{}
		return true, nil
	}
}

// rowKey encodes a row so that rows with equal values get equal keys.
func rowKey(row sqltypes.Row) string {
	var b strings.Builder
	for _, v := range row {
		if v.IsNull() {
			b.WriteString("N|")
			continue
		}
		if sqltypes.IsNumber(v.Type()) {
			b.WriteString(strings.TrimSpace(v.ToString()))
		} else {
			v.EncodeSQL(&b)
		}
		b.WriteByte('|')
	}
	return b.String()
}

func (c *distinctCursor) Get() sqltypes.Row { return c.input.Get() }

func (c *distinctCursor) SearchRow() sqltypes.Row { return c.input.SearchRow() }

func (c *distinctCursor) Previous() (bool, error) { return false, errPrevious }

func (c *distinctCursor) Close() error { return c.input.Close() }

func (d *Distinct) description() PrimitiveDescription {
	return PrimitiveDescription{OperatorType: "Distinct"}
}
