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

// Package engine contains the primitives a plan is made of and the
// cursors that stream rows out of them.
package engine

import (
	"context"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
)

// VCursor defines the interface the engine will use
// to execute routes.
type VCursor interface {
	// StreamExecute runs query on shard and returns its native cursor.
	StreamExecute(ctx context.Context, shard string, query *sqlparser.ParsedQuery) (sqltypes.RowStream, error)
	// ExecuteDML runs a statement that does not return rows on shard.
	ExecuteDML(ctx context.Context, shard string, query *sqlparser.ParsedQuery) (*sqltypes.Result, error)
	// CheckCancel returns an error once the running statement has been
	// canceled or has timed out.
	CheckCancel(ctx context.Context) error
	// AllowParallel reports whether independent shards may be queried
	// concurrently.
	AllowParallel() bool
}

// Plan represents the execution strategy for a given query.
// An instruction (aka Primitive) is typically a tree where
// each node does its part by combining the results of the
// sub-nodes.
type Plan struct {
	// Original is the original query.
	Original string
	// Instructions contains the instructions needed to
	// fulfil the query.
	Instructions Primitive
	// Cost is the estimated cost of the chosen join order.
	Cost float64
	// Accordant is set when the whole statement is pushed to the
	// shards unchanged.
	Accordant bool
}

// Primitive is the interface that needs to be satisfied by
// all primitives of a plan.
type Primitive interface {
	// RouteType returns a description of the routing used by the primitive.
	RouteType() string
	// Open starts the primitive and returns a cursor over its rows.
	// Primitives that modify rows run to completion and return an
	// empty cursor.
	Open(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (Cursor, error)
	// Inputs returns the input primitives.
	Inputs() []Primitive

	description() PrimitiveDescription
}

// DMLPrimitive is implemented by primitives that modify rows.
type DMLPrimitive interface {
	Primitive
	Execute(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (*sqltypes.Result, error)
}

// Execute runs a primitive to completion and returns its full result.
func Execute(ctx context.Context, vcursor VCursor, p Primitive, bindVars map[string]sqltypes.Value) (*sqltypes.Result, error) {
	if dml, ok := p.(DMLPrimitive); ok {
		return dml.Execute(ctx, vcursor, bindVars)
	}
	cursor, err := p.Open(ctx, vcursor, bindVars)
	if err != nil {
		return nil, err
	}
	return drain(ctx, vcursor, cursor)
}

// drain reads all remaining rows of cursor and closes it.
func drain(ctx context.Context, vcursor VCursor, cursor Cursor) (*sqltypes.Result, error) {
	defer cursor.Close()
	result := &sqltypes.Result{}
	for {
		if err := vcursor.CheckCancel(ctx); err != nil {
			return nil, err
		}
		ok, err := cursor.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		result.Rows = append(result.Rows, cursor.SearchRow())
	}
	result.Fields = cursor.Fields()
	return result, nil
}

func combineVars(bv1, bv2 map[string]sqltypes.Value) map[string]sqltypes.Value {
	out := make(map[string]sqltypes.Value, len(bv1)+len(bv2))
	for k, v := range bv1 {
		out[k] = v
	}
	for k, v := range bv2 {
		out[k] = v
	}
	return out
}
