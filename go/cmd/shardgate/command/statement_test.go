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

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

func TestParsePredicate(t *testing.T) {
	tcases := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "user_id=42", want: "user_id = 42"},
		{in: "o.status!=OPEN", want: "o.status != 'OPEN'"},
		{in: "o.status<>'42'", want: "o.status != '42'"},
		{in: "amount>=1.5", want: "amount >= 1.5"},
		{in: "id<10", want: "id < 10"},
		{in: "name~jo%", want: "name like 'jo%'"},
		{in: "deleted_at=null", want: "deleted_at is null"},
		{in: "deleted_at!=NULL", want: "deleted_at is not null"},
		{in: "id=:uid", want: "id = :uid"},
		{in: "=42", err: true},
		{in: "user_id", err: true},
	}
	for _, tc := range tcases {
		t.Run(tc.in, func(t *testing.T) {
			expr, err := parsePredicate(tc.in)
			if tc.err {
				assert.Equal(t, vterrors.InvalidArgument, vterrors.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, sqlparser.String(expr))
		})
	}
}

func TestSelectOptions(t *testing.T) {
	opts := &selectOptions{
		Columns:   []string{"o.id", "i.sku"},
		Joins:     []string{"items:i,i.order_id=o.id"},
		LeftJoins: []string{"users:u,u.id=o.user_id"},
		Where:     []string{"o.user_id=42", "o.status=OPEN"},
		OrderBy:   []string{"-o.id"},
		Limit:     5,
		Offset:    10,
	}
	sel, err := opts.build("orders:o")
	require.NoError(t, err)
	assert.Equal(t,
		"select o.id, i.sku from orders as o join items as i on i.order_id = o.id left join users as u on u.id = o.user_id "+
			"where o.user_id = 42 and o.status = 'OPEN' order by o.id desc limit 10, 5",
		sqlparser.String(sel))

	sel, err = (&selectOptions{Limit: -1}).build("orders")
	require.NoError(t, err)
	assert.Equal(t, "select * from orders", sqlparser.String(sel))

	_, err = (&selectOptions{Joins: []string{"items"}, Limit: -1}).build("orders")
	assert.Equal(t, vterrors.InvalidArgument, vterrors.Code(err))
}

func TestJoinConditions(t *testing.T) {
	opts := &selectOptions{
		Joins: []string{"items:i,i.order_id=o.id,i.state=done.x"},
		Limit: -1,
	}
	sel, err := opts.build("orders:o")
	require.NoError(t, err)
	join := sel.From[1]
	cmp, ok := join.On.(*sqlparser.AndExpr)
	require.True(t, ok)
	// A qualified right side is a column of another table.
	left := cmp.Left.(*sqlparser.ComparisonExpr)
	assert.IsType(t, &sqlparser.ColName{}, left.Right)
	assert.Equal(t, "i.order_id = o.id and i.state = done.x", sqlparser.String(join.On))

	sel, err = (&selectOptions{Joins: []string{"items:i,i.qty>=2,i.sku='o.id'"}, Limit: -1}).build("orders:o")
	require.NoError(t, err)
	assert.Equal(t, "i.qty >= 2 and i.sku = 'o.id'", sqlparser.String(sel.From[1].On))

	// WHERE values stay literals.
	expr, err := parsePredicate("email=a.b")
	require.NoError(t, err)
	assert.Equal(t, "email = 'a.b'", sqlparser.String(expr))
}

func TestDMLOptions(t *testing.T) {
	stmt, err := (&dmlOptions{Set: []string{"id=1", "status=OPEN"}}).build("INSERT", "orders")
	require.NoError(t, err)
	assert.Equal(t, "insert into orders(id, status) values (1, 'OPEN')", sqlparser.String(stmt))

	stmt, err = (&dmlOptions{Set: []string{"status=CLOSED"}, Where: []string{"id=1"}}).build("update", "orders")
	require.NoError(t, err)
	assert.Equal(t, "update orders set status = 'CLOSED' where id = 1", sqlparser.String(stmt))

	stmt, err = (&dmlOptions{Where: []string{"id=1"}}).build("delete", "orders")
	require.NoError(t, err)
	assert.Equal(t, "delete from orders where id = 1", sqlparser.String(stmt))

	for _, tc := range []struct {
		verb string
		opts dmlOptions
	}{
		{verb: "insert"},
		{verb: "insert", opts: dmlOptions{Set: []string{"id=1"}, Where: []string{"id=1"}}},
		{verb: "update", opts: dmlOptions{Where: []string{"id=1"}}},
		{verb: "delete", opts: dmlOptions{Set: []string{"id=1"}}},
		{verb: "upsert", opts: dmlOptions{Set: []string{"id=1"}}},
		{verb: "insert", opts: dmlOptions{Set: []string{"=1"}}},
	} {
		_, err := tc.opts.build(tc.verb, "orders")
		assert.Equal(t, vterrors.InvalidArgument, vterrors.Code(err), "%s %v", tc.verb, tc.opts)
	}
}

func TestParseBindVars(t *testing.T) {
	bv, err := parseBindVars([]string{"uid=42", "st='7'"})
	require.NoError(t, err)
	assert.Equal(t, map[string]sqltypes.Value{
		"uid": sqltypes.NewInt64(42),
		"st":  sqltypes.NewVarChar("7"),
	}, bv)

	_, err = parseBindVars([]string{"a=:b"})
	assert.Error(t, err)
}
