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

package engine

import (
	"context"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

var _ DMLPrimitive = (*DML)(nil)

// DMLOpcode is a number representing the opcode
// for the DML primitive.
type DMLOpcode int

// This is the list of DMLOpcode values.
const (
	Insert = DMLOpcode(iota)
	Update
	Delete
)

var dmlName = map[DMLOpcode]string{
	Insert: "Insert",
	Update: "Update",
	Delete: "Delete",
}

func (code DMLOpcode) String() string {
	return dmlName[code]
}

// DMLTarget is one shard a DML statement runs on. Inserts carry only
// the rows that belong to the target.
type DMLTarget struct {
	Target
	Query sqlparser.Statement
}

// DML runs an insert, update or delete on each of its targets in order.
type DML struct {
	Opcode  DMLOpcode
	Table   *vindexes.Table
	Targets []DMLTarget
}

// RouteType returns a description of the query routing type used by the primitive
func (dml *DML) RouteType() string {
	if len(dml.Targets) == 1 {
		return dml.Opcode.String() + "Unique"
	}
	return dml.Opcode.String() + "Scatter"
}

// Inputs returns nil for DML.
func (dml *DML) Inputs() []Primitive {
	return nil
}

// Execute runs the statement on every target and sums the affected
// rows. The first failure stops the remaining targets.
func (dml *DML) Execute(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (*sqltypes.Result, error) {
	result := &sqltypes.Result{}
	for _, target := range dml.Targets {
		if err := vcursor.CheckCancel(ctx); err != nil {
			return nil, err
		}
		pq, err := sqlparser.Generate(target.Query, target.rewrite, bindVars)
		if err != nil {
			return nil, err
		}
		qr, err := vcursor.ExecuteDML(ctx, target.Shard, pq)
		if err != nil {
			return nil, err
		}
		result.RowsAffected += qr.RowsAffected
		if qr.InsertID != 0 {
			result.InsertID = qr.InsertID
		}
	}
	return result, nil
}

// Open executes the statement and returns an empty cursor.
func (dml *DML) Open(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (Cursor, error) {
	if _, err := dml.Execute(ctx, vcursor, bindVars); err != nil {
		return nil, err
	}
	return newEmptyCursor(nil), nil
}

func (dml *DML) description() PrimitiveDescription {
	shards := make([]Target, len(dml.Targets))
	for i, t := range dml.Targets {
		shards[i] = t.Target
	}
	other := map[string]any{
		"Table":  dml.Table.Name,
		"Shards": targetShards(shards),
	}
	if len(dml.Targets) > 0 {
		other["Query"] = sqlparser.String(dml.Targets[0].Query)
	}
	return PrimitiveDescription{
		OperatorType: dml.Opcode.String(),
		Variant:      dml.RouteType(),
		Other:        other,
	}
}
