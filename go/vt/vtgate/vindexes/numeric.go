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

var (
	_ RuleFunction = (*Mod)(nil)
	_ RuleFunction = (*Range)(nil)
)

func init() {
	Register("mod", NewMod)
	Register("range", NewRange)
}

// Mod places a row on shard value % shards.
type Mod struct {
	shards int
}

// NewMod creates a Mod rule function. It only accepts one rule column.
func NewMod(_ map[string]string, columns, shards int) (RuleFunction, error) {
	if columns != 1 {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "mod: expected one rule column, got %d", columns)
	}
	return &Mod{shards: shards}, nil
}

// String returns the name of the function.
func (*Mod) String() string {
	return "mod"
}

// Locate implements RuleFunction.
func (m *Mod) Locate(values []sqltypes.Value) (int, error) {
	if err := checkValues(m, values, 1); err != nil {
		return 0, err
	}
	n, err := values[0].ToInt64()
	if err != nil {
		return 0, vterrors.Wrap(err, "mod")
	}
	pos := n % int64(m.shards)
	if pos < 0 {
		pos += int64(m.shards)
	}
	return int(pos), nil
}

// Range places a row by comparing its value against ascending upper
// bounds: shard i holds values below bounds[i], the last shard holds the
// rest.
type Range struct {
	bounds []sqltypes.Value
}

// NewRange creates a Range rule function. The "bounds" parameter is a
// comma separated list of shards-1 ascending exclusive upper bounds.
func NewRange(params map[string]string, columns, shards int) (RuleFunction, error) {
	if columns != 1 {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "range: expected one rule column, got %d", columns)
	}
	var bounds []sqltypes.Value
	if spec := strings.TrimSpace(params["bounds"]); spec != "" {
		for _, b := range strings.Split(spec, ",") {
			b = strings.TrimSpace(b)
			if _, err := strconv.ParseFloat(b, 64); err == nil {
				bounds = append(bounds, sqltypes.MakeTrusted(sqltypes.Float64, []byte(b)))
			} else {
				bounds = append(bounds, sqltypes.NewVarChar(b))
			}
		}
	}
	if len(bounds) != shards-1 {
		return nil, vterrors.Errorf(vterrors.InvalidArgument, "range: expected %d bounds for %d shards, got %d", shards-1, shards, len(bounds))
	}
	for i := 1; i < len(bounds); i++ {
		if sqltypes.NullsafeCompare(bounds[i-1], bounds[i]) >= 0 {
			return nil, vterrors.Errorf(vterrors.InvalidArgument, "range: bounds must be ascending, got %s after %s", bounds[i].ToString(), bounds[i-1].ToString())
		}
	}
	return &Range{bounds: bounds}, nil
}

// String returns the name of the function.
func (*Range) String() string {
	return "range"
}

// Locate implements RuleFunction.
func (r *Range) Locate(values []sqltypes.Value) (int, error) {
	if err := checkValues(r, values, 1); err != nil {
		return 0, err
	}
	for i, b := range r.bounds {
		if sqltypes.NullsafeCompare(values[0], b) < 0 {
			return i, nil
		}
	}
	return len(r.bounds), nil
}
