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
	"strings"
)

// Functions in this file should only be used for testing.

// MakeTestFields builds a []*Field for testing.
//
//	fields := sqltypes.MakeTestFields(
//	  "a|b",
//	  "int64|varchar",
//	)
func MakeTestFields(names, types string) []*Field {
	n := split(names)
	t := split(types)
	fields := make([]*Field, len(n))
	for i := range n {
		fields[i] = &Field{Name: n[i], Type: typeFromTestName(t[i])}
	}
	return fields
}

// MakeTestResult builds a *Result object for testing.
//
//	result := sqltypes.MakeTestResult(
//	  fields,
//	  "1|a",
//	  "2|b",
//	)
//
// The string "null" is converted to NULL.
func MakeTestResult(fields []*Field, rows ...string) *Result {
	result := &Result{Fields: fields}
	if len(rows) > 0 {
		result.Rows = make([]Row, len(rows))
	}
	for i, row := range rows {
		result.Rows[i] = MakeTestRow(fields, row)
	}
	return result
}

// MakeTestRow builds a single row for testing.
func MakeTestRow(fields []*Field, row string) Row {
	vals := split(row)
	r := make(Row, len(vals))
	for i, v := range vals {
		if v == "null" {
			r[i] = NULL
			continue
		}
		r[i] = MakeTrusted(fields[i].Type, []byte(v))
	}
	return r
}

func split(str string) []string {
	return strings.Split(str, "|")
}

func typeFromTestName(name string) Type {
	for t, n := range typeNames {
		if strings.EqualFold(n, name) {
			return t
		}
	}
	return VarChar
}
