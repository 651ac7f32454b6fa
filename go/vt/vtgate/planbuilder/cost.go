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
	"math"
	"strings"

	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vtgate/schema"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

const (
	// costRowOffset is added to every row count so that empty tables
	// still cost something to scan.
	costRowOffset = 1000
	// uniqueLookupCost is the cost of a full-key equality on a unique
	// index.
	uniqueLookupCost = 3
)

var infiniteCost = math.Inf(1)

// orderColumn is a column of the ORDER BY clause.
type orderColumn struct {
	filter string
	column string
	desc   bool
}

func orderColumns(orderBy sqlparser.OrderBy) []orderColumn {
	var cols []orderColumn
	for _, o := range orderBy {
		col, ok := o.Expr.(*sqlparser.ColName)
		if !ok {
			break
		}
		cols = append(cols, orderColumn{filter: col.Qualifier, column: strings.ToLower(col.Name), desc: o.Desc})
	}
	return cols
}

// indexCost estimates the cost of reading f through idx when the columns
// have the given condition masks.
func indexCost(meta *schema.TableMeta, idx *schema.Index, masks map[string]columnMask) int64 {
	rowCount := meta.RowCount + costRowOffset
	rowsCost := rowCount
	rowsSelected := rowCount
	totalSelectivity := int64(0)
loop:
	for i, ic := range idx.Columns {
		m := masks[strings.ToLower(ic.Column.Name)]
		switch {
		case m.equal:
			if i == len(idx.Columns)-1 && idx.IsUnique() {
				rowsCost = uniqueLookupCost
				break loop
			}
			totalSelectivity = 100 - ((100-totalSelectivity)*(100-int64(ic.Column.Selectivity)))/100
			distinct := rowCount * totalSelectivity / 100
			if distinct <= 0 {
				distinct = 1
			}
			rowsSelected = max(rowCount/distinct, 1)
			rowsCost = min(2+rowsSelected, rowsCost)
		case m.start && m.end:
			rowsCost = min(2+rowsSelected/4, rowsCost)
			break loop
		case m.start:
			rowsCost = min(2+rowsSelected/3, rowsCost)
			break loop
		case m.end:
			rowsCost = min(rowsSelected/3, rowsCost)
			break loop
		default:
			break loop
		}
	}
	return rowsCost
}

// sortBonus returns the number of leading ORDER BY columns that idx
// returns in the requested order.
func sortBonus(f *tableFilter, idx *schema.Index, order []orderColumn) int {
	n := 0
	for i, oc := range order {
		if i >= len(idx.Columns) || oc.filter != f.name() {
			break
		}
		ic := idx.Columns[i]
		if !strings.EqualFold(ic.Column.Name, oc.column) || ic.Desc != oc.desc {
			break
		}
		n++
	}
	return n
}

// fullKeyEqual returns true if every column of idx is equality-bound.
func fullKeyEqual(idx *schema.Index, masks map[string]columnMask) bool {
	if len(idx.Columns) == 0 {
		return false
	}
	for _, ic := range idx.Columns {
		if !masks[strings.ToLower(ic.Column.Name)].equal {
			return false
		}
	}
	return true
}

// scanAllowed returns true if the table's scan level permits reading it
// through idx.
func scanAllowed(f *tableFilter, idx *schema.Index, masks map[string]columnMask) bool {
	level := f.table().ScanLevel
	if level == vindexes.ScanShardingKey && !f.table().IsSharded() {
		level = vindexes.ScanAnyIndex
	}
	switch level {
	case vindexes.ScanUnlimited:
		return true
	case vindexes.ScanFilter:
		return f.hasPredicate
	case vindexes.ScanAnyIndex:
		if idx.Kind == schema.ScanIndex || len(idx.Columns) == 0 {
			return false
		}
		m := masks[strings.ToLower(idx.Columns[0].Column.Name)]
		return m.equal || m.start || m.end
	case vindexes.ScanUniqueIndex:
		return idx.IsUnique() && fullKeyEqual(idx, masks)
	case vindexes.ScanShardingKey:
		return idx.Kind == schema.ShardingKeyIndex && fullKeyEqual(idx, masks)
	}
	return false
}

// bestIndex picks the cheapest index of f the scan level permits, given
// the tables bound before it. The first index wins a tie. The cost is
// infinite if no index is permitted.
func bestIndex(f *tableFilter, bound map[string]bool, order []orderColumn) (*schema.Index, float64, []*indexCond) {
	var usable []*indexCond
	for _, c := range f.conds {
		if c.boundBy(bound) {
			usable = append(usable, c)
		}
	}
	masks := masksFor(usable, bound)
	var (
		best     *schema.Index
		bestCost = infiniteCost
	)
	for _, idx := range f.meta.Indexes {
		if !scanAllowed(f, idx, masks) {
			continue
		}
		cost := float64(indexCost(f.meta, idx, masks) - int64(sortBonus(f, idx, order)))
		if cost < bestCost {
			best, bestCost = idx, cost
		}
	}
	return best, bestCost, usable
}
