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
	"github.com/cespare/xxhash/v2"

	"github.com/shardgate/shardgate/go/sqltypes"
)

var _ RuleFunction = (*Hash)(nil)

// Hash spreads rows over shards by the xxhash64 of the rule values.
// Values are hashed by their textual form, so 42 and '42' land on the
// same shard.
type Hash struct {
	columns, shards int
}

func init() {
	Register("hash", NewHash)
}

// NewHash creates a Hash rule function.
func NewHash(_ map[string]string, columns, shards int) (RuleFunction, error) {
	return &Hash{columns: columns, shards: shards}, nil
}

// String returns the name of the function.
func (*Hash) String() string {
	return "hash"
}

// Locate implements RuleFunction.
func (h *Hash) Locate(values []sqltypes.Value) (int, error) {
	if err := checkValues(h, values, h.columns); err != nil {
		return 0, err
	}
	return int(hashValues(values) % uint64(h.shards)), nil
}

func hashValues(values []sqltypes.Value) uint64 {
	d := xxhash.New()
	for i, v := range values {
		if i > 0 {
			_, _ = d.Write([]byte{0})
		}
		_, _ = d.Write(v.Raw())
	}
	return d.Sum64()
}
