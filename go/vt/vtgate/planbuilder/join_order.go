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
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/schema"
)

// maxPermutationFilters is the largest number of tables for which every
// join order is costed. Larger joins are ordered greedily.
const maxPermutationFilters = 7

// planItem binds a table of a join order to the index it is read
// through.
type planItem struct {
	filter *tableFilter
	index  *schema.Index
	cost   float64
	// conds are the index conditions usable at this position.
	conds []*indexCond
}

// joinPlan is one candidate join order.
type joinPlan struct {
	items []*planItem
	cost  float64
}

func (p *joinPlan) filters() []*tableFilter {
	out := make([]*tableFilter, len(p.items))
	for i, item := range p.items {
		out[i] = item.filter
	}
	return out
}

// canPlace reports whether f may follow the tables in bound. An outer
// table must follow every table before it in the FROM clause, and its
// ON clause must only read bound tables.
func canPlace(f *tableFilter, all []*tableFilter, bound map[string]bool) bool {
	if !f.outer() {
		return true
	}
	for _, prev := range all[:f.pos] {
		if !bound[prev.name()] {
			return false
		}
	}
	for _, expr := range f.on {
		for dep := range sqlparser.CollectDependencies(expr) {
			if dep != f.name() && !bound[dep] {
				return false
			}
		}
	}
	return true
}

// evaluate costs a join order. The cost of each table is multiplied by
// the number of times it is read: cost += cost * itemCost. Orders that
// violate a join constraint or a scan level cost +Inf.
func evaluate(order, all []*tableFilter, sortOrder []orderColumn) *joinPlan {
	plan := &joinPlan{cost: 1}
	bound := make(map[string]bool)
	for i, f := range order {
		if !canPlace(f, all, bound) {
			plan.cost = infiniteCost
			return plan
		}
		var itemOrder []orderColumn
		if i == 0 {
			itemOrder = sortOrder
		}
		idx, cost, conds := bestIndex(f, bound, itemOrder)
		plan.items = append(plan.items, &planItem{filter: f, index: idx, cost: cost, conds: conds})
		plan.cost += plan.cost * cost
		bound[f.name()] = true
	}
	return plan
}

// optimize returns the cheapest valid join order. Every permutation is
// tried in lexicographic order of FROM positions and only a strictly
// cheaper order replaces the current best, so ties keep the earlier
// order.
func optimize(filters []*tableFilter, sortOrder []orderColumn) (*joinPlan, error) {
	var best *joinPlan
	if len(filters) <= maxPermutationFilters {
		perm := make([]int, len(filters))
		for i := range perm {
			perm[i] = i
		}
		order := make([]*tableFilter, len(filters))
		for {
			for i, p := range perm {
				order[i] = filters[p]
			}
			plan := evaluate(order, filters, sortOrder)
			if best == nil || plan.cost < best.cost {
				best = plan
			}
			if !nextPermutation(perm) {
				break
			}
		}
	} else {
		best = greedy(filters, sortOrder)
	}
	if best == nil || best.cost == infiniteCost {
		return nil, scanLevelError(filters)
	}
	return best, nil
}

// greedy builds a join order by repeatedly appending the cheapest table
// that can be placed next.
func greedy(filters []*tableFilter, sortOrder []orderColumn) *joinPlan {
	plan := &joinPlan{cost: 1}
	bound := make(map[string]bool)
	remaining := append([]*tableFilter(nil), filters...)
	for len(remaining) > 0 {
		var (
			pick     = -1
			pickItem *planItem
		)
		for i, f := range remaining {
			if !canPlace(f, filters, bound) {
				continue
			}
			var itemOrder []orderColumn
			if len(plan.items) == 0 {
				itemOrder = sortOrder
			}
			idx, cost, conds := bestIndex(f, bound, itemOrder)
			if pick < 0 || cost < pickItem.cost {
				pick = i
				pickItem = &planItem{filter: f, index: idx, cost: cost, conds: conds}
			}
		}
		if pick < 0 {
			plan.cost = infiniteCost
			return plan
		}
		plan.items = append(plan.items, pickItem)
		plan.cost += plan.cost * pickItem.cost
		bound[pickItem.filter.name()] = true
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}
	return plan
}

// nextPermutation rearranges perm into the next permutation in
// lexicographic order and returns false after the last one.
func nextPermutation(perm []int) bool {
	i := len(perm) - 2
	for i >= 0 && perm[i] >= perm[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(perm) - 1
	for perm[j] <= perm[i] {
		j--
	}
	perm[i], perm[j] = perm[j], perm[i]
	for l, r := i+1, len(perm)-1; l < r; l, r = l+1, r-1 {
		perm[l], perm[r] = perm[r], perm[l]
	}
	return true
}

func scanLevelError(filters []*tableFilter) error {
	all := make(map[string]bool)
	for _, f := range filters {
		all[f.name()] = true
	}
	for _, f := range filters {
		if _, cost, _ := bestIndex(f, all, nil); cost == infiniteCost {
			return vterrors.NewErrorf(vterrors.FailedPrecondition, vterrors.ScanLevelViolation,
				"no access path for table %s satisfies scan level %s", f.name(), f.table().ScanLevel)
		}
	}
	return vterrors.Errorf(vterrors.InvalidArgument, "no valid join order: an ON clause reads a table that is not joined before it")
}
