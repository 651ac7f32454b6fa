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
	"fmt"
	"strings"

	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/engine"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

// selectBuilder plans one SELECT statement.
type selectBuilder struct {
	pctx *PlanContext
	st   *symtab
	sel  *sqlparser.Select

	// where and on are the qualified WHERE clause and ON clauses, by
	// FROM position.
	where sqlparser.Expr
	on    []sqlparser.Expr
	// pushable holds the WHERE conjuncts and the ON conjuncts of inner
	// joins that only read inner tables. postFilter holds the ones that
	// read an outer table. Those must see NULL-extended rows, so they
	// are evaluated after the joins.
	pushable   []sqlparser.Expr
	postFilter []sqlparser.Expr

	selectExprs sqlparser.SelectExprs
	columns     []resultColumn
	orderBy     sqlparser.OrderBy
}

func buildSelectPlan(pctx *PlanContext, sel *sqlparser.Select) (*engine.Plan, error) {
	st, err := newSymtab(pctx, sel.From)
	if err != nil {
		return nil, err
	}
	b := &selectBuilder{pctx: pctx, st: st, sel: sel}
	if err := b.analyze(); err != nil {
		return nil, err
	}
	return b.build()
}

func (b *selectBuilder) analyze() error {
	var err error
	filters := b.st.filters
	if b.where, err = b.st.qualify(b.sel.Where, len(filters)); err != nil {
		return err
	}
	conjuncts := sqlparser.SplitAndExpression(nil, b.where)
	b.on = make([]sqlparser.Expr, len(filters))
	outer := make(map[string]bool)
	for _, f := range filters {
		if f.ref.On == nil {
			continue
		}
		if b.on[f.pos], err = b.st.qualify(f.ref.On, f.pos+1); err != nil {
			return err
		}
		if f.outer() {
			f.on = sqlparser.SplitAndExpression(nil, b.on[f.pos])
			outer[f.name()] = true
			continue
		}
		conjuncts = sqlparser.SplitAndExpression(conjuncts, b.on[f.pos])
	}
	for _, expr := range conjuncts {
		if readsAny(expr, outer) {
			b.postFilter = append(b.postFilter, expr)
		} else {
			b.pushable = append(b.pushable, expr)
		}
	}
	for _, f := range filters {
		pool := b.pushable
		if f.outer() {
			pool = f.on
		}
		f.conds = extractConds(f, pool)
		for _, expr := range pool {
			if references(expr, f) {
				f.hasPredicate = true
				break
			}
		}
	}

	if b.selectExprs, b.columns, err = b.st.expandSelect(b.sel.SelectExprs); err != nil {
		return err
	}
	for _, o := range b.sel.OrderBy {
		expr, err := b.orderExpr(o.Expr)
		if err != nil {
			return err
		}
		b.orderBy = append(b.orderBy, &sqlparser.Order{Expr: expr, Desc: o.Desc})
	}
	return nil
}

// orderExpr qualifies an ORDER BY expression. An unqualified name that
// is a select alias refers to the aliased expression.
func (b *selectBuilder) orderExpr(expr sqlparser.Expr) (sqlparser.Expr, error) {
	if col, ok := expr.(*sqlparser.ColName); ok && col.Qualifier == "" {
		for i, se := range b.sel.SelectExprs {
			if ae, ok := se.(*sqlparser.AliasedExpr); ok && ae.As != "" && strings.EqualFold(ae.As, col.Name) {
				return b.selectExprs[i].(*sqlparser.AliasedExpr).Expr, nil
			}
		}
	}
	return b.st.qualify(expr, len(b.st.filters))
}

func readsAny(expr sqlparser.Expr, names map[string]bool) bool {
	if len(names) == 0 {
		return false
	}
	for dep := range sqlparser.CollectDependencies(expr) {
		if names[dep] {
			return true
		}
	}
	return false
}

func (b *selectBuilder) build() (*engine.Plan, error) {
	for _, f := range b.st.filters {
		if f.meta.Degraded && !f.outer() {
			return &engine.Plan{Instructions: &engine.Empty{
				FieldNames: resultNames(b.columns),
				Reason:     fmt.Sprintf("table %s is degraded", f.table().Name),
			}}, nil
		}
	}
	plan, err := optimize(b.st.filters, orderColumns(b.orderBy))
	if err != nil {
		return nil, err
	}
	targets, ok, err := b.accordant(plan.filters())
	if err != nil {
		return nil, err
	}
	if ok {
		return b.buildAccordant(plan, targets)
	}
	return b.buildJoin(plan)
}

func (b *selectBuilder) routing(f *tableFilter) (*vindexes.RoutingResult, error) {
	return vindexes.Resolve(f.table(), bindings(f, b.pctx.BindVars))
}

// accordant decides whether the whole statement can be sent to each
// shard unchanged, and to which shards. That is the case for a single
// table, for tables that all live on one shard, and for sharded tables
// of one router that are joined on their rule columns.
func (b *selectBuilder) accordant(order []*tableFilter) ([]engine.Target, bool, error) {
	if len(order) == 1 {
		f := order[0]
		rr, err := b.routing(f)
		if err != nil {
			return nil, false, err
		}
		rr = vindexes.ResolveRead(rr, b.pctx.Held)
		targets := make([]engine.Target, len(rr.Nodes))
		for i, n := range rr.Nodes {
			targets[i] = engine.Target{Shard: n.Shard, Tables: map[string]string{strings.ToLower(f.ref.Name): n.Table}}
		}
		return targets, true, nil
	}

	results := make(map[*tableFilter]*vindexes.RoutingResult)
	var placed, replicated []*tableFilter
	for _, f := range order {
		rr, err := b.routing(f)
		if err != nil {
			return nil, false, err
		}
		results[f] = rr
		if f.table().IsReplicated() {
			replicated = append(replicated, f)
		} else {
			placed = append(placed, f)
		}
	}
	if shard, ok := b.singleShard(placed, replicated, results); ok {
		return []engine.Target{b.target(order, shard)}, true, nil
	}
	shards, ok := b.colocated(placed, replicated, results)
	if !ok {
		return nil, false, nil
	}
	targets := make([]engine.Target, len(shards))
	for i, shard := range shards {
		targets[i] = b.target(order, shard)
	}
	return targets, true, nil
}

// singleShard returns the shard that holds every row the statement can
// read, if there is one.
func (b *selectBuilder) singleShard(placed, replicated []*tableFilter, results map[*tableFilter]*vindexes.RoutingResult) (string, bool) {
	var candidates []string
	if len(placed) > 0 {
		for _, f := range placed {
			rr := results[f]
			if len(rr.Nodes) != 1 {
				return "", false
			}
			if len(candidates) == 0 {
				candidates = []string{rr.Nodes[0].Shard}
			} else if rr.Nodes[0].Shard != candidates[0] {
				return "", false
			}
		}
	} else {
		// Only replicated tables: prefer a shard the session holds.
		shards := replicated[0].table().Shards()
		for _, s := range shards {
			if b.pctx.Held != nil && b.pctx.Held(s) {
				candidates = append(candidates, s)
			}
		}
		candidates = append(candidates, shards...)
	}
	for _, shard := range candidates {
		if coversAll(replicated, []string{shard}) {
			return shard, true
		}
	}
	return "", false
}

// colocated returns the shards to send the statement to when all placed
// tables are sharded by the same router and joined on their rule
// columns. Only inner tables narrow the shard set.
func (b *selectBuilder) colocated(placed, replicated []*tableFilter, results map[*tableFilter]*vindexes.RoutingResult) ([]string, bool) {
	var (
		router *vindexes.Router
		inner  []*tableFilter
	)
	for _, f := range placed {
		if !f.table().IsSharded() {
			return nil, false
		}
		if router == nil {
			router = f.table().Router
		} else if f.table().Router != router {
			return nil, false
		}
		if !f.outer() {
			inner = append(inner, f)
		}
	}
	if len(inner) == 0 || !b.connected(placed) {
		return nil, false
	}
	var shards []string
	for _, shard := range router.Shards {
		in := true
		for _, f := range inner {
			if !hasShard(results[f].Nodes, shard) {
				in = false
				break
			}
		}
		if in {
			shards = append(shards, shard)
		}
	}
	if !coversAll(replicated, shards) {
		return nil, false
	}
	return shards, true
}

// connected returns true if the equi-joins on rule columns link every
// table of filters.
func (b *selectBuilder) connected(filters []*tableFilter) bool {
	parent := make(map[string]string)
	var find func(string) string
	find = func(n string) string {
		if p, ok := parent[n]; ok && p != n {
			root := find(p)
			parent[n] = root
			return root
		}
		return n
	}
	byName := make(map[string]*tableFilter)
	for _, f := range filters {
		byName[f.name()] = f
		parent[f.name()] = f.name()
	}

	// positions[a][b] holds the rule column positions on which a and b
	// are joined.
	positions := make(map[[2]string]map[int]bool)
	edges := append([]sqlparser.Expr(nil), b.pushable...)
	for _, f := range filters {
		edges = append(edges, f.on...)
	}
	for _, expr := range edges {
		cmp, ok := expr.(*sqlparser.ComparisonExpr)
		if !ok || cmp.Operator != sqlparser.EqualOp {
			continue
		}
		left, lok := cmp.Left.(*sqlparser.ColName)
		right, rok := cmp.Right.(*sqlparser.ColName)
		if !lok || !rok {
			continue
		}
		lf, rf := byName[left.Qualifier], byName[right.Qualifier]
		if lf == nil || rf == nil || lf == rf {
			continue
		}
		lpos := ruleColumnPos(lf.table(), left.Name)
		if lpos < 0 || lpos != ruleColumnPos(rf.table(), right.Name) {
			continue
		}
		key := [2]string{lf.name(), rf.name()}
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		if positions[key] == nil {
			positions[key] = make(map[int]bool)
		}
		positions[key][lpos] = true
		if len(positions[key]) == len(lf.table().RuleColumns) {
			parent[find(key[0])] = find(key[1])
		}
	}
	root := ""
	for _, f := range filters {
		r := find(f.name())
		if root == "" {
			root = r
		} else if r != root {
			return false
		}
	}
	return true
}

func ruleColumnPos(t *vindexes.Table, col string) int {
	col = strings.ToLower(col)
	for i, rc := range t.RuleColumns {
		if rc == col {
			return i
		}
	}
	return -1
}

func hasShard(nodes []vindexes.TableNode, shard string) bool {
	for _, n := range nodes {
		if n.Shard == shard {
			return true
		}
	}
	return false
}

func coversAll(replicated []*tableFilter, shards []string) bool {
	for _, f := range replicated {
		for _, s := range shards {
			if !hasShard(f.table().Nodes, s) {
				return false
			}
		}
	}
	return true
}

func (b *selectBuilder) target(filters []*tableFilter, shard string) engine.Target {
	t := engine.Target{Shard: shard, Tables: make(map[string]string)}
	for _, f := range filters {
		t.Tables[strings.ToLower(f.ref.Name)] = f.table().PhysicalName(shard)
	}
	return t
}

var aggregateFuncs = map[string]bool{
	"avg":          true,
	"count":        true,
	"group_concat": true,
	"max":          true,
	"min":          true,
	"sum":          true,
}

func checkAggregates(columns []resultColumn) error {
	for _, c := range columns {
		var err error
		sqlparser.Walk(func(e sqlparser.Expr) bool {
			if fn, ok := e.(*sqlparser.FuncExpr); ok && aggregateFuncs[strings.ToLower(fn.Name)] {
				err = vterrors.Errorf(vterrors.Unimplemented, "aggregate function %s across shards is not supported", fn.Name)
				return false
			}
			return true
		}, c.expr)
		if err != nil {
			return err
		}
	}
	return nil
}

// buildAccordant sends the statement to every target. When there is more
// than one target, ordering, DISTINCT and LIMIT are applied again to the
// concatenated rows.
func (b *selectBuilder) buildAccordant(plan *joinPlan, targets []engine.Target) (*engine.Plan, error) {
	names := resultNames(b.columns)
	if len(targets) == 0 {
		return &engine.Plan{
			Instructions: &engine.Empty{FieldNames: names, Reason: "no shard can hold matching rows"},
			Cost:         plan.cost,
			Accordant:    true,
		}, nil
	}
	query := &sqlparser.Select{
		Distinct:    b.sel.Distinct,
		SelectExprs: append(sqlparser.SelectExprs(nil), b.selectExprs...),
		Where:       b.where,
		OrderBy:     b.orderBy,
		Limit:       b.sel.Limit,
	}
	for _, f := range b.st.filters {
		query.From = append(query.From, &sqlparser.TableRef{
			Name:  f.ref.Name,
			Alias: f.ref.Alias,
			Join:  f.ref.Join,
			On:    b.on[f.pos],
		})
	}
	first := plan.items[0]
	route := &engine.Route{
		Opcode:     engine.Scatter,
		Table:      first.filter.table(),
		Targets:    targets,
		Query:      query,
		FieldNames: names,
		Cost:       plan.cost,
	}
	if len(plan.items) == 1 && first.index != nil {
		route.Index = first.index.Name
	}
	var prim engine.Primitive = route
	if len(targets) > 1 {
		if err := checkAggregates(b.columns); err != nil {
			return nil, err
		}
		limit := b.sel.Limit
		if limit != nil && limit.Rowcount >= 0 {
			query.Limit = &sqlparser.Limit{Rowcount: limit.Rowcount + limit.Offset}
		}
		if len(b.orderBy) > 0 {
			params, hidden, err := b.accordantOrder()
			if err != nil {
				return nil, err
			}
			ms := &engine.MemorySort{OrderBy: params, Input: prim}
			if len(hidden) > 0 {
				query.SelectExprs = append(query.SelectExprs, hidden...)
				ms.TruncateColumnCount = len(b.columns)
			}
			prim = ms
		}
		if b.sel.Distinct {
			prim = &engine.Distinct{Input: prim}
		}
		if limit != nil && limit.Rowcount >= 0 {
			prim = &engine.Limit{Count: limit.Rowcount, Offset: limit.Offset, Input: prim}
		}
	}
	return &engine.Plan{Instructions: prim, Cost: plan.cost, Accordant: true}, nil
}

// accordantOrder maps the ORDER BY clause to result columns. Columns
// that are not selected are appended to the pushed select list and
// removed after sorting.
func (b *selectBuilder) accordantOrder() ([]engine.OrderByParams, sqlparser.SelectExprs, error) {
	var (
		params []engine.OrderByParams
		hidden sqlparser.SelectExprs
	)
	for _, o := range b.orderBy {
		col := b.resultColumnOf(o.Expr)
		if col < 0 {
			c, ok := o.Expr.(*sqlparser.ColName)
			if !ok {
				return nil, nil, vterrors.Errorf(vterrors.Unimplemented, "order by %s across shards requires it to be selected", sqlparser.String(o.Expr))
			}
			col = len(b.columns) + len(hidden)
			hidden = append(hidden, &sqlparser.AliasedExpr{Expr: c})
		}
		params = append(params, engine.OrderByParams{Col: col, Name: sqlparser.String(o.Expr), Desc: o.Desc})
	}
	return params, hidden, nil
}

func (b *selectBuilder) resultColumnOf(expr sqlparser.Expr) int {
	text := sqlparser.String(expr)
	for i, c := range b.columns {
		if sqlparser.String(c.expr) == text {
			return i
		}
	}
	return -1
}

// buildJoin builds a left-deep nested-loop join of single-table routes
// in plan order. Each route selects every column of its table, so a
// joined row is the concatenation of whole table rows.
func (b *selectBuilder) buildJoin(plan *joinPlan) (*engine.Plan, error) {
	order := plan.filters()
	base := make(map[string]int)
	width := 0
	for _, f := range order {
		base[f.name()] = width
		width += len(f.meta.Columns)
	}

	// Each pushable conjunct goes to the first table after which all the
	// tables it reads are bound.
	assigned := make([][]sqlparser.Expr, len(order))
	for _, expr := range b.pushable {
		bound := make(map[string]bool)
		for k, f := range order {
			bound[f.name()] = true
			if sqlparser.IsEvaluatableUnder(expr, bound) {
				assigned[k] = append(assigned[k], expr)
				break
			}
		}
	}

	var prim engine.Primitive
	for k, item := range plan.items {
		f := item.filter
		conjuncts := assigned[k]
		if f.outer() {
			conjuncts = f.on
		}
		route, vars, err := b.filterRoute(item, conjuncts, base)
		if err != nil {
			return nil, err
		}
		if k == 0 {
			prim = route
			continue
		}
		opcode := engine.InnerJoin
		if f.outer() {
			opcode = engine.LeftJoin
		}
		prim = &engine.Join{
			Opcode:     opcode,
			Left:       prim,
			Right:      route,
			Vars:       vars,
			RightNames: f.columnNames(),
		}
	}

	if len(b.postFilter) > 0 {
		pred := sqlparser.AndExpressions(b.postFilter...)
		prim = &engine.Filter{
			Predicate:    b.toOffsets(pred, base),
			ASTPredicate: pred,
			Input:        prim,
		}
	}
	if len(b.orderBy) > 0 {
		ms := &engine.MemorySort{Input: prim}
		for _, o := range b.orderBy {
			col, ok := o.Expr.(*sqlparser.ColName)
			if !ok {
				return nil, vterrors.Errorf(vterrors.Unimplemented, "order by %s in a cross-shard join is not supported", sqlparser.String(o.Expr))
			}
			f, pos := b.st.locate(col)
			ms.OrderBy = append(ms.OrderBy, engine.OrderByParams{Col: base[f.name()] + pos, Name: col.Name, Desc: o.Desc})
		}
		prim = ms
	}
	proj := &engine.SimpleProjection{Input: prim}
	for _, c := range b.columns {
		if c.filter == nil {
			return nil, vterrors.Errorf(vterrors.Unimplemented, "expression %s in a cross-shard join is not supported", sqlparser.String(c.expr))
		}
		proj.Cols = append(proj.Cols, base[c.filter.name()]+c.col)
		proj.ColNames = append(proj.ColNames, c.name)
	}
	prim = proj
	if b.sel.Distinct {
		prim = &engine.Distinct{Input: prim}
	}
	if limit := b.sel.Limit; limit != nil && limit.Rowcount >= 0 {
		prim = &engine.Limit{Count: limit.Rowcount, Offset: limit.Offset, Input: prim}
	}
	return &engine.Plan{Instructions: prim, Cost: plan.cost}, nil
}

// filterRoute builds the route that reads one table of a join. Columns
// of tables joined earlier become join variables.
func (b *selectBuilder) filterRoute(item *planItem, conjuncts []sqlparser.Expr, base map[string]int) (engine.Primitive, map[string]int, error) {
	f := item.filter
	if f.meta.Degraded {
		return &engine.Empty{Reason: fmt.Sprintf("table %s is degraded", f.table().Name)}, nil, nil
	}
	vars := make(map[string]int)
	toJoinVars := func(e sqlparser.Expr) sqlparser.Expr {
		col, ok := e.(*sqlparser.ColName)
		if !ok || col.Qualifier == f.name() {
			return e
		}
		other, pos := b.st.locate(col)
		name := joinVarName(col)
		vars[name] = base[other.name()] + pos
		return sqlparser.NewArgument(name)
	}
	var where []sqlparser.Expr
	for _, expr := range conjuncts {
		where = append(where, sqlparser.Rewrite(expr, toJoinVars))
	}
	query := &sqlparser.Select{
		From:  []*sqlparser.TableRef{{Name: f.ref.Name, Alias: f.ref.Alias}},
		Where: sqlparser.AndExpressions(where...),
	}
	for _, c := range f.meta.Columns {
		query.SelectExprs = append(query.SelectExprs, &sqlparser.AliasedExpr{Expr: sqlparser.NewColName(f.name(), c.Name)})
	}
	route := &engine.Route{
		Opcode:     engine.Scatter,
		Table:      f.table(),
		Query:      query,
		FieldNames: f.columnNames(),
		Cost:       item.cost,
	}
	if item.index != nil {
		route.Index = item.index.Name
	}

	rr, err := b.routing(f)
	if err != nil {
		return nil, nil, err
	}
	if f.table().IsSharded() && !rr.Fixed {
		if values, ok := ruleValues(f, item.conds, toJoinVars); ok {
			route.Opcode = engine.EqualUnique
			route.Values = values
			return route, vars, nil
		}
	}
	rr = vindexes.ResolveRead(rr, b.pctx.Held)
	for _, n := range rr.Nodes {
		route.Targets = append(route.Targets, engine.Target{Shard: n.Shard, Tables: map[string]string{strings.ToLower(f.ref.Name): n.Table}})
	}
	return route, vars, nil
}

// ruleValues returns the rule column values of f as expressions that
// can be evaluated from bind and join variables.
func ruleValues(f *tableFilter, conds []*indexCond, toJoinVars func(sqlparser.Expr) sqlparser.Expr) ([]sqlparser.Expr, bool) {
	values := make([]sqlparser.Expr, len(f.table().RuleColumns))
	for i, rc := range f.table().RuleColumns {
		for _, c := range conds {
			if c.column != rc || c.kind != condEqual {
				continue
			}
			v := sqlparser.Rewrite(c.value, toJoinVars)
			if sqlparser.IsValue(v) {
				values[i] = v
				break
			}
		}
		if values[i] == nil {
			return nil, false
		}
	}
	return values, true
}

func joinVarName(col *sqlparser.ColName) string {
	return "jv_" + strings.ToLower(col.Qualifier) + "_" + strings.ToLower(col.Name)
}

func (b *selectBuilder) toOffsets(expr sqlparser.Expr, base map[string]int) sqlparser.Expr {
	return sqlparser.Rewrite(expr, func(e sqlparser.Expr) sqlparser.Expr {
		col, ok := e.(*sqlparser.ColName)
		if !ok {
			return e
		}
		f, pos := b.st.locate(col)
		return &sqlparser.Offset{Index: base[f.name()] + pos, Original: sqlparser.String(col)}
	})
}
