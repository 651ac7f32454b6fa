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

// Package vindexes holds the logical table declarations, the routers that
// map rule column values to shards, and the routing resolver.
package vindexes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// RuleFunction maps the values of a router's rule columns to a position
// in the router's shard list.
type RuleFunction interface {
	// String returns the name of the function.
	String() string
	// Locate returns the shard position of values, in [0, shards).
	Locate(values []sqltypes.Value) (int, error)
}

// NewRuleFunc creates a RuleFunction for a router with the given number
// of rule columns and shards.
type NewRuleFunc func(params map[string]string, columns, shards int) (RuleFunction, error)

var (
	registerMu sync.Mutex
	registry   = make(map[string]NewRuleFunc)
)

// Register registers a rule function under the given name.
// It panics if the name is registered twice.
func Register(name string, f NewRuleFunc) {
	registerMu.Lock()
	defer registerMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("%s is already registered", name))
	}
	registry[name] = f
}

// RuleFunctions returns the registered function names.
func RuleFunctions() []string {
	registerMu.Lock()
	defer registerMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateRuleFunction creates a registered rule function.
func CreateRuleFunction(name string, params map[string]string, columns, shards int) (RuleFunction, error) {
	registerMu.Lock()
	f, ok := registry[name]
	registerMu.Unlock()
	if !ok {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "rule function %q not found", name)
	}
	if columns < 1 {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "rule function %s needs at least one rule column", name)
	}
	if shards < 1 {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "rule function %s needs at least one shard", name)
	}
	return f(params, columns, shards)
}

func checkValues(fn RuleFunction, values []sqltypes.Value, columns int) error {
	if len(values) != columns {
		return vterrors.Errorf(vterrors.Internal, "%s: expected %d rule values, got %d", fn, columns, len(values))
	}
	for _, v := range values {
		if v.IsNull() {
			return vterrors.Errorf(vterrors.InvalidArgument, "%s: rule column value must not be NULL", fn)
		}
	}
	return nil
}
