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

// Package planbuilder turns a parsed statement into an executable
// engine.Plan. Reads are costed per join order and pushed down whole
// when every shard can answer its part on its own.
package planbuilder

import (
	"context"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/engine"
	"github.com/shardgate/shardgate/go/vt/vtgate/schema"
)

// Metadata defines the interface for this package to fetch
// info about tables.
type Metadata interface {
	Get(ctx context.Context, name string) (*schema.TableMeta, error)
}

// PlanContext carries what the planner needs besides the statement.
type PlanContext struct {
	Ctx      context.Context
	Metadata Metadata
	// BindVars are the statement's bind variables. Values bound to rule
	// columns take part in routing.
	BindVars map[string]sqltypes.Value
	// Held reports whether the session already holds a connection to
	// a shard. Reads of replicated tables prefer such shards.
	Held func(shard string) bool
}

// Build builds a plan for a statement. It's the main entry point for
// this package. Plans are not cached: the same statement with the same
// metadata and bind variables always yields the same plan.
func Build(pctx *PlanContext, stmt sqlparser.Statement) (*engine.Plan, error) {
	if pctx.Ctx == nil {
		pctx.Ctx = context.Background()
	}
	var (
		plan *engine.Plan
		err  error
	)
	switch stmt := stmt.(type) {
	case *sqlparser.Select:
		plan, err = buildSelectPlan(pctx, stmt)
	case *sqlparser.Insert:
		plan, err = buildInsertPlan(pctx, stmt)
	case *sqlparser.Update:
		plan, err = buildUpdatePlan(pctx, stmt)
	case *sqlparser.Delete:
		plan, err = buildDeletePlan(pctx, stmt)
	default:
		return nil, vterrors.Errorf(vterrors.Unimplemented, "unsupported statement type %T", stmt)
	}
	if err != nil {
		return nil, err
	}
	plan.Original = sqlparser.String(stmt)
	return plan, nil
}
