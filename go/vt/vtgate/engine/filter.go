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
	"github.com/shardgate/shardgate/go/vt/sqlparser"
)

var _ Primitive = (*Filter)(nil)

// Filter is a primitive that performs the FILTER operation.
type Filter struct {
	// Predicate refers to input columns through offsets.
	Predicate    sqlparser.Expr
	ASTPredicate sqlparser.Expr
	Input        Primitive
}

// RouteType returns a description of the query routing type used by the primitive
func (f *Filter) RouteType() string {
	return f.Input.RouteType()
}

// Inputs returns the input to limit
func (f *Filter) Inputs() []Primitive {
	return []Primitive{f.Input}
}

// Open returns a cursor over the input rows that satisfy the predicate.
func (f *Filter) Open(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (Cursor, error) {
	input, err := f.Input.Open(ctx, vcursor, bindVars)
	if err != nil {
		return nil, err
	}
	return &filterCursor{input: input, predicate: f.Predicate, bindVars: bindVars}, nil
}

type filterCursor struct {
	input     Cursor
	predicate sqlparser.Expr
	bindVars  map[string]sqltypes.Value
}

func (c *filterCursor) Fields() []*sqltypes.Field { return c.input.Fields() }

func (c *filterCursor) Next() (bool, error) {
	for {
		ok, err := c.input.Next()
		if err != nil || !ok {
			return false, err
		}
		match, err := EvaluateBool(c.predicate, c.input.Get(), c.bindVars)
		if err != nil {
			c.input.Close()
			return false, err
		}
		if match {
			return true, nil
		}
	}
}

func (c *filterCursor) Get() sqltypes.Row { return c.input.Get() }

func (c *filterCursor) SearchRow() sqltypes.Row { return c.input.SearchRow() }

func (c *filterCursor) Previous() (bool, error) { return false, errPrevious }

func (c *filterCursor) Close() error { return c.input.Close() }

func (f *Filter) description() PrimitiveDescription {
	pred := f.ASTPredicate
	if pred == nil {
		pred = f.Predicate
	}
	return PrimitiveDescription{
		OperatorType: "Filter",
		Other: map[string]any{
			"Predicate": sqlparser.String(pred),
		},
	}
}
