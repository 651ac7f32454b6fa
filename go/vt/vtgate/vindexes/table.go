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
	"fmt"
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// TableNode identifies one physical location of a logical table.
type TableNode struct {
	Shard string
	Table string
}

func (n TableNode) String() string {
	return n.Shard + "." + n.Table
}

// Router maps rule column values to one of its shards, or declares the
// tables it serves fully replicated over its shards.
type Router struct {
	Name       string
	Columns    []string
	Shards     []string
	Function   RuleFunction
	Replicated bool
}

// ScanLevel limits the access paths the planner may choose for a table.
type ScanLevel int

// Scan levels, from most to least permissive.
const (
	// ScanUnlimited allows full scans.
	ScanUnlimited ScanLevel = iota
	// ScanFilter allows a full scan only if the table has a predicate.
	ScanFilter
	// ScanAnyIndex requires an index condition on any index.
	ScanAnyIndex
	// ScanUniqueIndex requires an index condition on a unique or primary
	// key index.
	ScanUniqueIndex
	// ScanShardingKey requires equality on every rule column.
	ScanShardingKey
)

var scanLevelNames = []string{"unlimited", "filter", "anyindex", "uniqueindex", "shardingkey"}

func (l ScanLevel) String() string {
	if int(l) < len(scanLevelNames) {
		return scanLevelNames[l]
	}
	return fmt.Sprintf("ScanLevel(%d)", int(l))
}

// ParseScanLevel parses a scan level name. The empty string is
// ScanUnlimited.
func ParseScanLevel(s string) (ScanLevel, error) {
	if s == "" {
		return ScanUnlimited, nil
	}
	for i, name := range scanLevelNames {
		if strings.EqualFold(s, name) {
			return ScanLevel(i), nil
		}
	}
	return 0, vterrors.Errorf(vterrors.InvalidArgument, "unknown scan level %q", s)
}

// Table is a logical table.
type Table struct {
	Name        string
	Router      *Router
	RuleColumns []string
	// Nodes is the universe of physical locations. For router tables
	// Nodes[i] is on Router.Shards[i].
	Nodes     []TableNode
	ScanLevel ScanLevel
	Validate  bool
}

// IsReplicated returns true if every node holds the same rows.
func (t *Table) IsReplicated() bool {
	return t.Router != nil && t.Router.Replicated
}

// IsSharded returns true if rows are spread by a rule function.
func (t *Table) IsSharded() bool {
	return t.Router != nil && !t.Router.Replicated
}

// IsRuleColumn returns true if col is one of the table's rule columns.
func (t *Table) IsRuleColumn(col string) bool {
	col = strings.ToLower(col)
	for _, c := range t.RuleColumns {
		if c == col {
			return true
		}
	}
	return false
}

// PhysicalName returns the physical table name on shard.
func (t *Table) PhysicalName(shard string) string {
	for _, n := range t.Nodes {
		if n.Shard == shard {
			return n.Table
		}
	}
	return t.Name
}

// Shards returns the shard names of the table's nodes.
func (t *Table) Shards() []string {
	shards := make([]string, len(t.Nodes))
	for i, n := range t.Nodes {
		shards[i] = n.Shard
	}
	return shards
}

// Locate returns the node that holds the row with the given rule column
// values. It fails for tables that are not sharded.
func (t *Table) Locate(values []sqltypes.Value) (TableNode, error) {
	if !t.IsSharded() {
		return TableNode{}, vterrors.Errorf(vterrors.Internal, "table %s is not sharded", t.Name)
	}
	pos, err := t.Router.Function.Locate(values)
	if err != nil {
		return TableNode{}, vterrors.Wrapf(err, "table %s", t.Name)
	}
	if pos < 0 || pos >= len(t.Nodes) {
		return TableNode{}, vterrors.Errorf(vterrors.Internal, "table %s: rule %s returned position %d outside %d nodes", t.Name, t.Router.Function, pos, len(t.Nodes))
	}
	return t.Nodes[pos], nil
}
