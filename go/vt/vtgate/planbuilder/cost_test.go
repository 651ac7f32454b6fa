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

package planbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/vt/sqlparser"
)

func TestNextPermutation(t *testing.T) {
	perm := []int{0, 1, 2}
	var got [][]int
	for {
		got = append(got, append([]int(nil), perm...))
		if !nextPermutation(perm) {
			break
		}
	}
	want := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	assert.Equal(t, want, got)
}

func TestIndexCost(t *testing.T) {
	meta := newTestMetadata(t)["orders"]
	pk := meta.Indexes[2]
	require.Equal(t, "PRIMARY", pk.Name)

	testcases := []struct {
		name string
		mask columnMask
		want int64
	}{
		{name: "none", want: 11000},
		{name: "equal", mask: columnMask{equal: true}, want: uniqueLookupCost},
		{name: "range", mask: columnMask{start: true, end: true}, want: 2 + 11000/4},
		{name: "start", mask: columnMask{start: true}, want: 2 + 11000/3},
		{name: "end", mask: columnMask{end: true}, want: 11000 / 3},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			masks := map[string]columnMask{"id": tc.mask}
			assert.Equal(t, tc.want, indexCost(meta, pk, masks))
		})
	}
}

func TestSortBonusBreaksTies(t *testing.T) {
	pctx := newTestContext(t)
	// Every access path reads all rows. The indexes on id return them
	// in order and the first of them wins.
	sel := &sqlparser.Select{
		SelectExprs: star(),
		From:        []*sqlparser.TableRef{{Name: "users"}},
		Where:       sqlparser.NewComparison(sqlparser.GreaterThanOp, col("", "name"), sqlparser.NewStrLiteral("a")),
		OrderBy:     sqlparser.OrderBy{{Expr: col("", "id")}},
	}
	st, err := newSymtab(pctx, sel.From)
	require.NoError(t, err)
	b := &selectBuilder{pctx: pctx, st: st, sel: sel}
	require.NoError(t, b.analyze())
	plan, err := optimize(st.filters, orderColumns(b.orderBy))
	require.NoError(t, err)
	assert.Equal(t, "users_shardingkey", plan.items[0].index.Name)
	assert.Equal(t, 1.0+2000-1, plan.cost)
}

func TestCanPlaceOuterTable(t *testing.T) {
	pctx := newTestContext(t)
	from := []*sqlparser.TableRef{
		{Name: "orders", Alias: "o"},
		{Name: "audit", Alias: "a", Join: sqlparser.LeftJoin, On: eq(col("a", "id"), col("o", "id"))},
	}
	st, err := newSymtab(pctx, from)
	require.NoError(t, err)
	b := &selectBuilder{pctx: pctx, st: st, sel: &sqlparser.Select{SelectExprs: star(), From: from}}
	require.NoError(t, b.analyze())

	o, a := st.filters[0], st.filters[1]
	assert.True(t, canPlace(o, st.filters, map[string]bool{}))
	assert.False(t, canPlace(a, st.filters, map[string]bool{}))
	assert.True(t, canPlace(a, st.filters, map[string]bool{"o": true}))

	plan := evaluate([]*tableFilter{a, o}, st.filters, nil)
	assert.Equal(t, infiniteCost, plan.cost)
}
