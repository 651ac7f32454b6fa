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
	"fmt"
	"sort"
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

var _ Primitive = (*MemorySort)(nil)

// OrderByParams specifies the parameters for ordering.
// This is used for merge-sorting scatter queries.
type OrderByParams struct {
	// Col is the input column offset. When it is negative the column
	// is looked up by Name in the input fields.
	Col  int
	Name string
	Desc bool
}

func (obp OrderByParams) String() string {
	val := obp.Name
	if obp.Col >= 0 {
		val = fmt.Sprintf("%d", obp.Col)
	}
	if obp.Desc {
		return val + " DESC"
	}
	return val + " ASC"
}

// MemorySort is a primitive that performs in-memory sorting.
type MemorySort struct {
	OrderBy []OrderByParams
	Input   Primitive

	// TruncateColumnCount specifies the number of columns to return
	// in the final result. Rest of the columns are truncated
	// from the result received. If 0, no truncation happens.
	TruncateColumnCount int
}

// RouteType returns a description of the query routing type used by the primitive.
func (ms *MemorySort) RouteType() string {
	return ms.Input.RouteType()
}

// Inputs returns the input to memory sort
func (ms *MemorySort) Inputs() []Primitive {
	return []Primitive{ms.Input}
}

// Open materializes the input and returns its rows sorted. The sort is
// stable, so rows that compare equal keep their shard order.
func (ms *MemorySort) Open(ctx context.Context, vcursor VCursor, bindVars map[string]sqltypes.Value) (Cursor, error) {
	input, err := ms.Input.Open(ctx, vcursor, bindVars)
	if err != nil {
		return nil, err
	}
	result, err := drain(ctx, vcursor, input)
	if err != nil {
		return nil, err
	}
	cols, err := ms.resolve(result.Fields)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(result.Rows, func(i, j int) bool {
		return lessRow(result.Rows[i], result.Rows[j], ms.OrderBy, cols)
	})
	fields, rows := result.Fields, result.Rows
	if ms.TruncateColumnCount > 0 {
		fields, rows = truncate(fields, rows, ms.TruncateColumnCount)
	}
	return newRowsCursor(fields, rows), nil
}

func (ms *MemorySort) resolve(fields []*sqltypes.Field) ([]int, error) {
	cols := make([]int, len(ms.OrderBy))
	for i, order := range ms.OrderBy {
		if order.Col >= 0 {
			cols[i] = order.Col
			continue
		}
		cols[i] = -1
		for j, f := range fields {
			if strings.EqualFold(f.Name, order.Name) {
				cols[i] = j
				break
			}
		}
		if cols[i] < 0 {
			return nil, vterrors.NewErrorf(vterrors.InvalidArgument, vterrors.BadFieldError, "unknown column '%s' in 'order clause'", order.Name)
		}
	}
	return cols, nil
}

func lessRow(a, b sqltypes.Row, orderBy []OrderByParams, cols []int) bool {
	for i, order := range orderBy {
		c := sqltypes.NullsafeCompare(a[cols[i]], b[cols[i]])
		if c == 0 {
			continue
		}
		if order.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func truncate(fields []*sqltypes.Field, rows []sqltypes.Row, count int) ([]*sqltypes.Field, []sqltypes.Row) {
	if len(fields) > count {
		fields = fields[:count]
	}
	for i, row := range rows {
		if len(row) > count {
			rows[i] = row[:count]
		}
	}
	return fields, rows
}

func (ms *MemorySort) description() PrimitiveDescription {
	orderBy := make([]string, len(ms.OrderBy))
	for i, o := range ms.OrderBy {
		orderBy[i] = o.String()
	}
	other := map[string]any{"OrderBy": strings.Join(orderBy, ", ")}
	if ms.TruncateColumnCount > 0 {
		other["ResultColumns"] = ms.TruncateColumnCount
	}
	return PrimitiveDescription{
		OperatorType: "Sort",
		Variant:      "Memory",
		Other:        other,
	}
}
