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
	"errors"
	"io"
)

// Field describes a result column.
type Field struct {
	Name string
	Type Type
}

// Row is a single result row.
type Row = []Value

// Result represents a query result.
type Result struct {
	Fields       []*Field
	RowsAffected uint64
	InsertID     uint64
	Rows         []Row
}

// Repair fixes the type info in the rows to conform to the supplied field
// types. Drivers frequently return textual columns as raw bytes.
func (result *Result) Repair(fields []*Field) {
	for _, r := range result.Rows {
		for i := range r {
			if i < len(fields) && !r[i].IsNull() {
				r[i] = MakeTrusted(fields[i].Type, r[i].Raw())
			}
		}
	}
}

// AppendResult appends the rows and counters of src to result.
func (result *Result) AppendResult(src *Result) {
	if src.RowsAffected == 0 && len(src.Rows) == 0 && len(src.Fields) == 0 {
		return
	}
	if result.Fields == nil {
		result.Fields = src.Fields
	}
	result.RowsAffected += src.RowsAffected
	if src.InsertID != 0 {
		result.InsertID = src.InsertID
	}
	result.Rows = append(result.Rows, src.Rows...)
}

// FieldNames returns the column names.
func (result *Result) FieldNames() []string {
	names := make([]string, len(result.Fields))
	for i, f := range result.Fields {
		names[i] = f.Name
	}
	return names
}

// RowStream is a forward-only iterator over the rows of one result.
// Recv returns io.EOF once the rows are exhausted.
type RowStream interface {
	Fields() []*Field
	Recv() (Row, error)
	Close() error
}

// RowsStream returns a RowStream that serves the rows of result.
func RowsStream(result *Result) RowStream {
	return &rowsStream{result: result}
}

type rowsStream struct {
	result *Result
	index  int
}

func (rs *rowsStream) Fields() []*Field { return rs.result.Fields }

func (rs *rowsStream) Recv() (Row, error) {
	if rs.index >= len(rs.result.Rows) {
		return nil, io.EOF
	}
	row := rs.result.Rows[rs.index]
	rs.index++
	return row, nil
}

func (rs *rowsStream) Close() error {
	rs.index = len(rs.result.Rows)
	return nil
}

// ReadAll drains stream into a Result and closes it.
func ReadAll(stream RowStream) (*Result, error) {
	defer stream.Close()
	result := &Result{Fields: stream.Fields()}
	for {
		row, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
}
