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
)

var _ Primitive = (*Empty)(nil)

// Empty returns no rows without contacting any shard. The planner uses
// it for degraded tables and for routes that no shard can satisfy.
type Empty struct {
	FieldNames []string
	Reason     string
}

// RouteType implements the Primitive interface
func (e *Empty) RouteType() string {
	return "None"
}

// Inputs implements the Primitive interface
func (e *Empty) Inputs() []Primitive {
	return nil
}

// Open implements the Primitive interface
func (e *Empty) Open(context.Context, VCursor, map[string]sqltypes.Value) (Cursor, error) {
	return newEmptyCursor(namesToFields(e.FieldNames)), nil
}

func (e *Empty) description() PrimitiveDescription {
	other := map[string]any{}
	if e.Reason != "" {
		other["Reason"] = e.Reason
	}
	return PrimitiveDescription{
		OperatorType: "Empty",
		Other:        other,
	}
}
