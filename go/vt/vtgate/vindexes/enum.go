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
	"strconv"
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

var _ RuleFunction = (*Enum)(nil)

func init() {
	Register("enum", NewEnum)
}

// Enum maps explicit values to shard positions. Each parameter key is a
// value, or a comma separated tuple for multi-column rules, and each
// parameter value is a shard position. The key "*" is a catch-all.
type Enum struct {
	columns  int
	lookup   map[string]int
	fallback int
}

// NewEnum creates an Enum rule function.
func NewEnum(params map[string]string, columns, shards int) (RuleFunction, error) {
	e := &Enum{columns: columns, lookup: make(map[string]int, len(params)), fallback: -1}
	for key, posStr := range params {
		pos, err := strconv.Atoi(strings.TrimSpace(posStr))
		if err != nil || pos < 0 || pos >= shards {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "enum: invalid shard position %q for %q", posStr, key)
		}
		if key == "*" {
			e.fallback = pos
			continue
		}
		parts := strings.Split(key, ",")
		if len(parts) != columns {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "enum: key %q has %d values, want %d", key, len(parts), columns)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		e.lookup[strings.Join(parts, ",")] = pos
	}
	return e, nil
}

// String returns the name of the function.
func (*Enum) String() string {
	return "enum"
}

// Locate implements RuleFunction.
func (e *Enum) Locate(values []sqltypes.Value) (int, error) {
	if err := checkValues(e, values, e.columns); err != nil {
		return 0, err
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.ToString()
	}
	key := strings.Join(parts, ",")
	if pos, ok := e.lookup[key]; ok {
		return pos, nil
	}
	if e.fallback >= 0 {
		return e.fallback, nil
	}
	return 0, vterrors.Errorf(vterrors.InvalidArgument, "enum: no shard for value %s", key)
}
