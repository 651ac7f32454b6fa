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

package vindexes

import (
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
)

// Bindings are equality-bound values, keyed by lower-case column name.
type Bindings map[string]sqltypes.Value

// RoutingResult is the set of nodes a statement must touch for one table.
// Fixed results pin exactly one node.
type RoutingResult struct {
	Table *Table
	Fixed bool
	Nodes []TableNode
}

// Shards returns the shard names of the result, in node order.
func (r *RoutingResult) Shards() []string {
	shards := make([]string, len(r.Nodes))
	for i, n := range r.Nodes {
		shards[i] = n.Shard
	}
	return shards
}

// Resolve computes the nodes of table that a predicate with the given
// equality bindings can match. A sharded table is fixed to one node when
// every rule column is bound, and resolves to its whole node group
// otherwise. Replicated and static tables always resolve to all their
// nodes.
func Resolve(table *Table, bindings Bindings) (*RoutingResult, error) {
	if !table.IsSharded() {
		return &RoutingResult{Table: table, Fixed: len(table.Nodes) == 1, Nodes: table.Nodes}, nil
	}
	values := make([]sqltypes.Value, len(table.RuleColumns))
	for i, col := range table.RuleColumns {
		v, ok := bindings[col]
		if !ok || v.IsNull() {
			return &RoutingResult{Table: table, Fixed: len(table.Nodes) == 1, Nodes: table.Nodes}, nil
		}
		values[i] = v
	}
	node, err := table.Locate(values)
	if err != nil {
		return nil, err
	}
	return &RoutingResult{Table: table, Fixed: true, Nodes: []TableNode{node}}, nil
}

// ResolveRead narrows a replicated result to the single node a read
// should use: a node on a shard for which held returns true, else the
// first node. Other results are returned unchanged.
func ResolveRead(r *RoutingResult, held func(shard string) bool) *RoutingResult {
	if r.Table == nil || !r.Table.IsReplicated() || len(r.Nodes) <= 1 {
		return r
	}
	pick := r.Nodes[0]
	if held != nil {
		for _, n := range r.Nodes {
			if held(n.Shard) {
				pick = n
				break
			}
		}
	}
	return &RoutingResult{Table: r.Table, Fixed: true, Nodes: []TableNode{pick}}
}

// ResolveWrite returns the nodes a write must reach: every node of a
// replicated table, otherwise the resolved nodes.
func ResolveWrite(r *RoutingResult) []TableNode {
	if r.Table != nil && r.Table.IsReplicated() {
		return r.Table.Nodes
	}
	return r.Nodes
}

// IsRelationSymmetric returns true if both results cover the same set of
// shards.
func IsRelationSymmetric(a, b *RoutingResult) bool {
	return sameShardSet(a.Shards(), b.Shards())
}

func sameShardSet(a, b []string) bool {
	sa := make(map[string]bool, len(a))
	for _, s := range a {
		sa[s] = true
	}
	sb := make(map[string]bool, len(b))
	for _, s := range b {
		if !sa[s] {
			return false
		}
		sb[s] = true
	}
	return len(sa) == len(sb)
}

// NormalizeColumn returns the binding key for a column name.
func NormalizeColumn(col string) string {
	return strings.ToLower(col)
}
