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
	"sort"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// ReplicatedFunction is the router function name of fully replicated
// tables.
const ReplicatedFunction = "replicated"

// VSchemaConfig is the declarative form of the virtual schema.
type VSchemaConfig struct {
	Routers map[string]*RouterConfig `json:"routers,omitempty"`
	Tables  map[string]*TableConfig  `json:"tables"`
}

// RouterConfig declares a router.
type RouterConfig struct {
	Function string            `json:"function"`
	Columns  []string          `json:"columns,omitempty"`
	Shards   []string          `json:"shards"`
	Params   map[string]string `json:"params,omitempty"`
}

// NodeConfig declares one explicit node of a table.
type NodeConfig struct {
	Shard string `json:"shard"`
	Table string `json:"table,omitempty"`
}

// TableConfig declares a logical table.
type TableConfig struct {
	Router       string       `json:"router,omitempty"`
	Nodes        []NodeConfig `json:"nodes,omitempty"`
	RuleColumns  []string     `json:"rule_columns,omitempty"`
	PhysicalName string       `json:"physical_name,omitempty"`
	ScanLevel    string       `json:"scan_level,omitempty"`
	Validate     *bool        `json:"validate,omitempty"`
}

// ParseVSchema parses a YAML or JSON vschema document.
func ParseVSchema(data []byte) (*VSchemaConfig, error) {
	cfg := &VSchemaConfig{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, vterrors.Wrap(err, "parsing vschema")
	}
	return cfg, nil
}

// VSchema is the built virtual schema.
type VSchema struct {
	Routers map[string]*Router
	Tables  map[string]*Table
}

// BuildVSchema validates cfg and builds the VSchema. If shards is not
// nil, every shard a router or table refers to must be in it.
func BuildVSchema(cfg *VSchemaConfig, shards []string) (*VSchema, error) {
	known := make(map[string]bool, len(shards))
	for _, s := range shards {
		known[s] = true
	}
	checkShard := func(owner, shard string) error {
		if shards != nil && !known[shard] {
			return vterrors.NewErrorf(vterrors.NotFound, vterrors.UnknownShard, "%s refers to unknown shard %s", owner, shard)
		}
		return nil
	}

	vschema := &VSchema{
		Routers: make(map[string]*Router, len(cfg.Routers)),
		Tables:  make(map[string]*Table, len(cfg.Tables)),
	}
	for name, rcfg := range cfg.Routers {
		if len(rcfg.Shards) == 0 {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "router %s has no shards", name)
		}
		seen := make(map[string]bool, len(rcfg.Shards))
		for _, s := range rcfg.Shards {
			if seen[s] {
				return nil, vterrors.Errorf(vterrors.InvalidArgument, "router %s lists shard %s twice", name, s)
			}
			seen[s] = true
			if err := checkShard("router "+name, s); err != nil {
				return nil, err
			}
		}
		router := &Router{Name: name, Shards: rcfg.Shards}
		if rcfg.Function == ReplicatedFunction {
			if len(rcfg.Columns) != 0 {
				return nil, vterrors.Errorf(vterrors.InvalidArgument, "replicated router %s must not declare rule columns", name)
			}
			router.Replicated = true
		} else {
			if err := checkRuleColumns("router "+name, rcfg.Columns); err != nil {
				return nil, err
			}
			fn, err := CreateRuleFunction(rcfg.Function, rcfg.Params, len(rcfg.Columns), len(rcfg.Shards))
			if err != nil {
				return nil, vterrors.Wrapf(err, "router %s", name)
			}
			router.Columns = lowerAll(rcfg.Columns)
			router.Function = fn
		}
		vschema.Routers[name] = router
	}

	for name, tcfg := range cfg.Tables {
		t, err := buildTable(vschema, name, tcfg)
		if err != nil {
			return nil, err
		}
		for _, n := range t.Nodes {
			if err := checkShard("table "+name, n.Shard); err != nil {
				return nil, err
			}
		}
		key := strings.ToLower(name)
		if _, ok := vschema.Tables[key]; ok {
			return nil, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.NonUniqTable, "duplicate table %s", name)
		}
		vschema.Tables[key] = t
	}
	return vschema, nil
}

func buildTable(vschema *VSchema, name string, cfg *TableConfig) (*Table, error) {
	scanLevel, err := ParseScanLevel(cfg.ScanLevel)
	if err != nil {
		return nil, vterrors.Wrapf(err, "table %s", name)
	}
	t := &Table{
		Name:      name,
		ScanLevel: scanLevel,
		Validate:  cfg.Validate == nil || *cfg.Validate,
	}
	physical := cfg.PhysicalName
	if physical == "" {
		physical = name
	}
	nodeFor := func(nc NodeConfig) TableNode {
		if nc.Table == "" {
			return TableNode{Shard: nc.Shard, Table: physical}
		}
		return TableNode{Shard: nc.Shard, Table: nc.Table}
	}

	if cfg.Router == "" {
		if len(cfg.Nodes) == 0 {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "table %s declares neither a router nor nodes", name)
		}
		if len(cfg.RuleColumns) != 0 {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "table %s declares rule columns without a router", name)
		}
		for _, nc := range cfg.Nodes {
			t.Nodes = append(t.Nodes, nodeFor(nc))
		}
		return t, nil
	}

	router, ok := vschema.Routers[cfg.Router]
	if !ok {
		return nil, vterrors.Errorf(vterrors.NotFound, "table %s refers to unknown router %s", name, cfg.Router)
	}
	t.Router = router
	switch {
	case len(cfg.Nodes) == 0:
		for _, s := range router.Shards {
			t.Nodes = append(t.Nodes, TableNode{Shard: s, Table: physical})
		}
	case len(cfg.Nodes) == len(router.Shards):
		for i, nc := range cfg.Nodes {
			if nc.Shard != router.Shards[i] {
				return nil, vterrors.Errorf(vterrors.InvalidArgument, "table %s node %d is on shard %s, router %s expects %s", name, i, nc.Shard, router.Name, router.Shards[i])
			}
			t.Nodes = append(t.Nodes, nodeFor(nc))
		}
	default:
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "table %s declares %d nodes, router %s has %d shards", name, len(cfg.Nodes), router.Name, len(router.Shards))
	}

	switch {
	case router.Replicated:
		if len(cfg.RuleColumns) != 0 {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "replicated table %s must not declare rule columns", name)
		}
	case len(cfg.RuleColumns) == 0:
		t.RuleColumns = router.Columns
	default:
		if err := checkRuleColumns("table "+name, cfg.RuleColumns); err != nil {
			return nil, err
		}
		if len(cfg.RuleColumns) != len(router.Columns) {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "table %s declares %d rule columns, router %s expects %d", name, len(cfg.RuleColumns), router.Name, len(router.Columns))
		}
		t.RuleColumns = lowerAll(cfg.RuleColumns)
	}
	return t, nil
}

func checkRuleColumns(owner string, cols []string) error {
	if len(cols) == 0 {
		return vterrors.Errorf(vterrors.InvalidArgument, "%s has no rule columns", owner)
	}
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		lc := strings.ToLower(c)
		if seen[lc] {
			return vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.NonUniqError, "%s: ambiguous rule column %s", owner, c)
		}
		seen[lc] = true
	}
	return nil
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// FindTable returns the named table.
func (vschema *VSchema) FindTable(name string) (*Table, error) {
	t, ok := vschema.Tables[strings.ToLower(name)]
	if !ok {
		return nil, vterrors.NewErrorf(vterrors.NotFound, vterrors.NoSuchTable, "table %s not found", name)
	}
	return t, nil
}

// TableNames returns the sorted logical table names.
func (vschema *VSchema) TableNames() []string {
	names := make([]string, 0, len(vschema.Tables))
	for _, t := range vschema.Tables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}
