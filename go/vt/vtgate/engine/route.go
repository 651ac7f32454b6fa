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
	"fmt"
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

var _ Primitive = (*Route)(nil)

// RouteOpcode is a number representing the opcode
// for the Route primitive.
type RouteOpcode int

// This is the list of RouteOpcode values.
const (
	// Scatter sends the query to every target computed by the planner.
	// A single target is the common case of a fixed route.
	Scatter = RouteOpcode(iota)
	// EqualUnique locates one node of Table from Values at execution
	// time. It is used when the rule values are join variables.
	EqualUnique
)

var routeName = map[RouteOpcode]string{
	Scatter:     "Scatter",
	EqualUnique: "EqualUnique",
}

func (code RouteOpcode) String() string {
	return routeName[code]
}

// Target is one shard a route sends its query to, with the physical
// name of each logical table there. Tables is keyed by lower-case
// logical name.
type Target struct {
	Shard  string
	Tables map[string]string
}

// NewTarget builds the target of one node of table.
func NewTarget(table *vindexes.Table, node vindexes.TableNode) Target {
	return Target{
		Shard:  node.Shard,
		Tables: map[string]string{strings.ToLower(table.Name): node.Table},
	}
}

func (t Target) rewrite(logical string) string {
	if phys, ok := t.Tables[strings.ToLower(logical)]; ok {
		return phys
	}
	return logical
}

func (t Target) String() string {
	return t.Shard
}

// Route represents the instructions to route a read query to
// one or many shards.
type Route struct {
	Opcode RouteOpcode
	// Table is the routed table. For multi-table routes it is the
	// first table of the join order.
	Table *vindexes.Table
	// Targets are used by Scatter.
	Targets []Target
	// Values are the rule column values used by EqualUnique.
	Values []sqlparser.Expr
	// Query is the statement sent to every target after table names
	// have been rewritten.
	Query sqlparser.Statement
	// FieldNames are the result columns, used when no target is
	// queried.
	FieldNames []string
	// Index is the name of the index the planner expects the shard
	// to use.
	Index string
	Cost  float64
}

// RouteType returns a description of the query routing type used by the primitive
func (route *Route) RouteType() string {
	return route.Opcode.String()
}

// Inputs returns nil for a route.
func (route *Route) Inputs() []Primitive {
	return nil
}

// Open sends the query to each target and returns the concatenation of
// their rows in target order.
func (route *Route) Open(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (Cursor, error) {
	targets, err := route.findTargets(bindVars)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return newEmptyCursor(namesToFields(route.FieldNames)), nil
	}
	sources := make([]source, 0, len(targets))
	for _, target := range targets {
		pq, err := sqlparser.Generate(route.Query, target.rewrite, bindVars)
		if err != nil {
			return nil, err
		}
		shard := target.Shard
		sources = append(sources, source{
			shard: shard,
			open: func(ctx context.Context) (Cursor, error) {
				stream, err := vcursor.StreamExecute(ctx, shard, pq)
				if err != nil {
					return nil, err
				}
				return newStreamCursor(ctx, vcursor, stream), nil
			},
		})
	}
	if len(sources) > 1 && vcursor.AllowParallel() {
		if sources, err = materializeParallel(ctx, vcursor, sources); err != nil {
			return nil, err
		}
	}
	return newConcatCursor(ctx, vcursor, sources), nil
}

func (route *Route) findTargets(bindVars map[string]sqltypes.Value) ([]Target, error) {
	switch route.Opcode {
	case Scatter:
		return route.Targets, nil
	case EqualUnique:
		values := make([]sqltypes.Value, len(route.Values))
		for i, expr := range route.Values {
			v, err := Evaluate(expr, nil, bindVars)
			if err != nil {
				return nil, err
			}
			if v.IsNull() {
				// Nothing is equal to NULL.
				return nil, nil
			}
			values[i] = v
		}
		node, err := route.Table.Locate(values)
		if err != nil {
			return nil, err
		}
		return []Target{NewTarget(route.Table, node)}, nil
	}
	return nil, vterrors.Errorf(vterrors.Internal, "unsupported route opcode %v", route.Opcode)
}

func (route *Route) description() PrimitiveDescription {
	other := map[string]any{
		"Query": sqlparser.String(route.Query),
	}
	if route.Table != nil {
		other["Table"] = route.Table.Name
	}
	if route.Index != "" {
		other["Index"] = route.Index
	}
	if route.Cost > 0 {
		other["Cost"] = fmt.Sprintf("%.1f", route.Cost)
	}
	switch route.Opcode {
	case Scatter:
		other["Shards"] = targetShards(route.Targets)
	case EqualUnique:
		vals := make([]string, len(route.Values))
		for i, v := range route.Values {
			vals[i] = sqlparser.String(v)
		}
		other["Values"] = strings.Join(vals, ",")
	}
	return PrimitiveDescription{
		OperatorType: "Route",
		Variant:      route.Opcode.String(),
		Other:        other,
	}
}

func targetShards(targets []Target) string {
	shards := make([]string, len(targets))
	for i, t := range targets {
		shards[i] = t.Shard
	}
	return strings.Join(shards, ",")
}

func namesToFields(names []string) []*sqltypes.Field {
	if len(names) == 0 {
		return nil
	}
	fields := make([]*sqltypes.Field, len(names))
	for i, name := range names {
		fields[i] = &sqltypes.Field{Name: name, Type: sqltypes.Null}
	}
	return fields
}
