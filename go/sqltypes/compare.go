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

package sqltypes

import (
	"bytes"
	"strconv"
)

// NullsafeCompare returns 0 if v1==v2, -1 if v1<v2, and 1 if v1>v2.
// NULL is the lowest value. Two values are compared numerically when both
// parse as numbers, and byte-wise otherwise.
func NullsafeCompare(v1, v2 Value) int {
	switch {
	case v1.IsNull() && v2.IsNull():
		return 0
	case v1.IsNull():
		return -1
	case v2.IsNull():
		return 1
	}
	if f1, ok := numeric(v1); ok {
		if f2, ok := numeric(v2); ok {
			if v1.IsIntegral() && v2.IsIntegral() && IsSigned(v1.typ) == IsSigned(v2.typ) {
				return compareIntegral(v1, v2)
			}
			switch {
			case f1 < f2:
				return -1
			case f1 > f2:
				return 1
			}
			return 0
		}
	}
	return bytes.Compare(v1.val, v2.val)
}

func numeric(v Value) (float64, bool) {
	if IsQuoted(v.typ) && v.typ != VarChar && v.typ != VarBinary {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(v.val), 64)
	return f, err == nil
}

func compareIntegral(v1, v2 Value) int {
	if IsSigned(v1.typ) {
		a, _ := strconv.ParseInt(string(v1.val), 10, 64)
		b, _ := strconv.ParseInt(string(v2.val), 10, 64)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	a, _ := strconv.ParseUint(string(v1.val), 10, 64)
	b, _ := strconv.ParseUint(string(v2.val), 10, 64)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
