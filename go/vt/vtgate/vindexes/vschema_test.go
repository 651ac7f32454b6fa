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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

const testVSchema = `
routers:
  user_hash:
    function: hash
    columns: [user_id]
    shards: [shard0, shard1]
  everywhere:
    function: replicated
    shards: [shard0, shard1]
  region:
    function: enum
    columns: [region]
    shards: [shard0, shard1]
    params:
      EU: "0"
      "*": "1"
tables:
  orders:
    router: user_hash
  users:
    router: user_hash
    rule_columns: [id]
    scan_level: shardingkey
  countries:
    router: everywhere
  audit:
    nodes:
      - shard: shard1
        table: audit_log
    validate: false
  customers:
    router: region
    physical_name: customer
`

func buildTestVSchema(t *testing.T) *VSchema {
	t.Helper()
	cfg, err := ParseVSchema([]byte(testVSchema))
	require.NoError(t, err)
	vschema, err := BuildVSchema(cfg, []string{"shard0", "shard1"})
	require.NoError(t, err)
	return vschema
}

func TestBuildVSchema(t *testing.T) {
	vschema := buildTestVSchema(t)
	assert.Equal(t, []string{"audit", "countries", "customers", "orders", "users"}, vschema.TableNames())

	orders, err := vschema.FindTable("ORDERS")
	require.NoError(t, err)
	assert.True(t, orders.IsSharded())
	assert.Equal(t, []string{"user_id"}, orders.RuleColumns)
	assert.Equal(t, []TableNode{{"shard0", "orders"}, {"shard1", "orders"}}, orders.Nodes)
	assert.True(t, orders.Validate)

	users, _ := vschema.FindTable("users")
	assert.Equal(t, []string{"id"}, users.RuleColumns)
	assert.Equal(t, ScanShardingKey, users.ScanLevel)

	countries, _ := vschema.FindTable("countries")
	assert.True(t, countries.IsReplicated())
	assert.False(t, countries.IsSharded())

	audit, _ := vschema.FindTable("audit")
	assert.Equal(t, []TableNode{{"shard1", "audit_log"}}, audit.Nodes)
	assert.False(t, audit.Validate)
	assert.Equal(t, "audit_log", audit.PhysicalName("shard1"))

	customers, _ := vschema.FindTable("customers")
	assert.Equal(t, "customer", customers.PhysicalName("shard0"))

	_, err = vschema.FindTable("nope")
	assert.Equal(t, vterrors.NotFound, vterrors.Code(err))
	assert.Equal(t, vterrors.NoSuchTable, vterrors.ErrState(err))
}

func TestBuildVSchemaErrors(t *testing.T) {
	testcases := []struct {
		name, doc, err string
	}{{
		name: "unknown function",
		doc:  "routers: {r: {function: nope, columns: [a], shards: [shard0]}}\ntables: {}",
		err:  `rule function "nope" not found`,
	}, {
		name: "ambiguous rule column",
		doc:  "routers: {r: {function: hash, columns: [a, A], shards: [shard0]}}\ntables: {}",
		err:  "ambiguous rule column A",
	}, {
		name: "unknown router",
		doc:  "tables: {t: {router: r}}",
		err:  "unknown router r",
	}, {
		name: "unknown shard",
		doc:  "tables: {t: {nodes: [{shard: shard9}]}}",
		err:  "unknown shard shard9",
	}, {
		name: "no placement",
		doc:  "tables: {t: {}}",
		err:  "neither a router nor nodes",
	}, {
		name: "bad scan level",
		doc:  "tables: {t: {nodes: [{shard: shard0}], scan_level: sometimes}}",
		err:  `unknown scan level "sometimes"`,
	}, {
		name: "range bounds",
		doc:  "routers: {r: {function: range, columns: [a], shards: [shard0, shard1], params: {bounds: \"1,2\"}}}\ntables: {}",
		err:  "expected 1 bounds for 2 shards",
	}, {
		name: "replicated with columns",
		doc:  "routers: {r: {function: replicated, columns: [a], shards: [shard0]}}\ntables: {}",
		err:  "must not declare rule columns",
	}}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := ParseVSchema([]byte(tc.doc))
			require.NoError(t, err)
			_, err = BuildVSchema(cfg, []string{"shard0", "shard1"})
			require.ErrorContains(t, err, tc.err)
		})
	}

	_, err := ParseVSchema([]byte("tables: {t: {bogus: 1}}"))
	assert.Error(t, err)
}

func TestResolveFixedAndGroup(t *testing.T) {
	vschema := buildTestVSchema(t)
	orders, _ := vschema.FindTable("orders")

	for id := int64(0); id < 200; id++ {
		rr, err := Resolve(orders, Bindings{"user_id": sqltypes.NewInt64(id)})
		require.NoError(t, err)
		require.True(t, rr.Fixed)
		require.Len(t, rr.Nodes, 1)
		assert.Contains(t, orders.Nodes, rr.Nodes[0])
	}

	for _, b := range []Bindings{nil, {"status": sqltypes.NewVarChar("OPEN")}, {"user_id": sqltypes.NULL}} {
		rr, err := Resolve(orders, b)
		require.NoError(t, err)
		assert.False(t, rr.Fixed)
		assert.Equal(t, orders.Nodes, rr.Nodes)
	}
}

func TestResolveSpreadsRows(t *testing.T) {
	vschema := buildTestVSchema(t)
	orders, _ := vschema.FindTable("orders")
	seen := map[string]int{}
	for id := int64(0); id < 100; id++ {
		rr, err := Resolve(orders, Bindings{"user_id": sqltypes.NewInt64(id)})
		require.NoError(t, err)
		seen[rr.Nodes[0].Shard]++
	}
	assert.Len(t, seen, 2)

	// Same textual value, same shard.
	a, _ := Resolve(orders, Bindings{"user_id": sqltypes.NewInt64(42)})
	b, _ := Resolve(orders, Bindings{"user_id": sqltypes.NewVarChar("42")})
	assert.Equal(t, a.Nodes, b.Nodes)
}

func TestResolveReplicated(t *testing.T) {
	vschema := buildTestVSchema(t)
	countries, _ := vschema.FindTable("countries")
	rr, err := Resolve(countries, nil)
	require.NoError(t, err)
	assert.Len(t, rr.Nodes, 2)

	read := ResolveRead(rr, nil)
	assert.Equal(t, []TableNode{{"shard0", "countries"}}, read.Nodes)
	read = ResolveRead(rr, func(shard string) bool { return shard == "shard1" })
	assert.Equal(t, []TableNode{{"shard1", "countries"}}, read.Nodes)
	assert.Equal(t, countries.Nodes, ResolveWrite(read))

	orders, _ := vschema.FindTable("orders")
	ordersRR, _ := Resolve(orders, Bindings{"user_id": sqltypes.NewInt64(1)})
	assert.Same(t, ordersRR, ResolveRead(ordersRR, nil))
	assert.Equal(t, ordersRR.Nodes, ResolveWrite(ordersRR))
}

func TestRelationSymmetry(t *testing.T) {
	vschema := buildTestVSchema(t)
	orders, _ := vschema.FindTable("orders")
	users, _ := vschema.FindTable("users")
	audit, _ := vschema.FindTable("audit")
	countries, _ := vschema.FindTable("countries")

	ro, _ := Resolve(orders, nil)
	ru, _ := Resolve(users, nil)
	ra, _ := Resolve(audit, nil)
	rc, _ := Resolve(countries, nil)

	for _, r := range []*RoutingResult{ro, ru, ra, rc} {
		assert.True(t, IsRelationSymmetric(r, r))
	}
	assert.True(t, IsRelationSymmetric(ro, ru))
	assert.True(t, IsRelationSymmetric(ru, ro))
	assert.True(t, IsRelationSymmetric(ro, rc))
	assert.False(t, IsRelationSymmetric(ro, ra))
	assert.False(t, IsRelationSymmetric(ra, ro))

	fixed, _ := Resolve(orders, Bindings{"user_id": sqltypes.NewInt64(42)})
	assert.False(t, IsRelationSymmetric(fixed, ro))
}
