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

// Package schema caches the column and index metadata of logical tables,
// loaded lazily from one representative shard.
package schema

import (
	"fmt"
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

// DefaultSelectivity is the selectivity of a column without statistics,
// as a percentage of distinct values.
const DefaultSelectivity = 50

// Column is a column of a logical table.
type Column struct {
	Name        string
	Type        sqltypes.Type
	Selectivity int
}

// IndexKind is the kind of an index.
type IndexKind int

// Index kinds, in the order the planner considers them.
const (
	ScanIndex IndexKind = iota
	ShardingKeyIndex
	PrimaryKeyIndex
	UniqueIndex
	NonUniqueIndex
)

func (k IndexKind) String() string {
	switch k {
	case ScanIndex:
		return "scan"
	case ShardingKeyIndex:
		return "shardingkey"
	case PrimaryKeyIndex:
		return "primary"
	case UniqueIndex:
		return "unique"
	case NonUniqueIndex:
		return "index"
	}
	return fmt.Sprintf("IndexKind(%d)", int(k))
}

// IndexColumn is one column of an index.
type IndexColumn struct {
	Column *Column
	Desc   bool
}

// Index is an access path of a table. The scan index has no columns.
type Index struct {
	Name    string
	Kind    IndexKind
	Columns []IndexColumn
}

// IsUnique returns true if a full-key equality matches at most one row.
func (idx *Index) IsUnique() bool {
	return idx.Kind == PrimaryKeyIndex || idx.Kind == UniqueIndex
}

// ColumnNames returns the names of the index columns in key order.
func (idx *Index) ColumnNames() []string {
	names := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		names[i] = c.Column.Name
	}
	return names
}

func (idx *Index) String() string {
	if idx.Kind == ScanIndex {
		return idx.Name
	}
	return fmt.Sprintf("%s(%s)", idx.Name, strings.Join(idx.ColumnNames(), ","))
}

// TableMeta is the loaded metadata of a logical table. It is immutable
// once published by the Cache.
type TableMeta struct {
	Table    *vindexes.Table
	Columns  []*Column
	Indexes  []*Index
	RowCount int64
	// Degraded is set when loading failed for a table that opted out of
	// validation. Such a table has no columns and no rows.
	Degraded bool
}

// Name returns the logical table name.
func (m *TableMeta) Name() string {
	return m.Table.Name
}

// FindColumn returns the named column and its position, or nil and -1.
func (m *TableMeta) FindColumn(name string) (*Column, int) {
	for i, c := range m.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, i
		}
	}
	return nil, -1
}

// ScanIndex returns the pseudo index that stands for a full scan.
func (m *TableMeta) ScanIndex() *Index {
	return m.Indexes[0]
}

func scanIndex(table string) *Index {
	return &Index{Name: table + "_scan", Kind: ScanIndex}
}
