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

package schema

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
)

type metadataLoader interface {
	indexes(ctx context.Context, conn Conn, table string) ([]rawIndex, error)
	// rowCount returns false if the shard keeps no row statistics.
	rowCount(ctx context.Context, conn Conn, table string) (int64, bool, error)
}

// loadColumns reads the result columns of an impossible query.
func loadColumns(ctx context.Context, conn Conn, table string) ([]*Column, error) {
	sel := &sqlparser.Select{
		SelectExprs: sqlparser.SelectExprs{&sqlparser.StarExpr{}},
		From:        []*sqlparser.TableRef{{Name: table}},
		Where:       sqlparser.NewComparison(sqlparser.NotEqualOp, sqlparser.NewIntLiteral(1), sqlparser.NewIntLiteral(1)),
	}
	pq, err := sqlparser.Generate(sel, nil, nil)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, pq.Query, pq.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	fields := rows.Fields()
	columns := make([]*Column, len(fields))
	for i, f := range fields {
		columns[i] = &Column{Name: f.Name, Type: f.Type, Selectivity: DefaultSelectivity}
	}
	return columns, nil
}

func queryAll(ctx context.Context, conn Conn, query string, args ...any) ([]sqltypes.Row, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []sqltypes.Row
	for {
		row, err := rows.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
}

type mysqlLoader struct{}

const mysqlIndexQuery = "select index_name, non_unique, column_name, collation " +
	"from information_schema.statistics " +
	"where table_schema = database() and table_name = ? " +
	"order by index_name, seq_in_index"

func (mysqlLoader) indexes(ctx context.Context, conn Conn, table string) ([]rawIndex, error) {
	rows, err := queryAll(ctx, conn, mysqlIndexQuery, table)
	if err != nil {
		return nil, err
	}
	var out []rawIndex
	for _, row := range rows {
		name := row[0].ToString()
		if len(out) == 0 || out[len(out)-1].name != name {
			kind := NonUniqueIndex
			switch {
			case strings.EqualFold(name, "PRIMARY"):
				kind = PrimaryKeyIndex
			case row[1].ToString() == "0":
				kind = UniqueIndex
			}
			out = append(out, rawIndex{name: name, kind: kind})
		}
		last := &out[len(out)-1]
		// Functional key parts report a NULL column name.
		last.columns = append(last.columns, row[2].ToString())
		last.desc = append(last.desc, row[3].ToString() == "D")
	}
	return out, nil
}

const mysqlRowCountQuery = "select table_rows from information_schema.tables " +
	"where table_schema = database() and table_name = ?"

func (mysqlLoader) rowCount(ctx context.Context, conn Conn, table string) (int64, bool, error) {
	rows, err := queryAll(ctx, conn, mysqlRowCountQuery, table)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 || rows[0][0].IsNull() {
		return 0, false, nil
	}
	n, err := rows[0][0].ToInt64()
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

type sqliteLoader struct{}

func (sqliteLoader) indexes(ctx context.Context, conn Conn, table string) ([]rawIndex, error) {
	list, err := queryAll(ctx, conn, `select name, "unique", origin from pragma_index_list(?) order by name`, table)
	if err != nil {
		return nil, err
	}
	var out []rawIndex
	hasPK := false
	for _, row := range list {
		idx := rawIndex{name: row[0].ToString(), kind: NonUniqueIndex}
		switch {
		case row[2].ToString() == "pk":
			idx.kind = PrimaryKeyIndex
			hasPK = true
		case row[1].ToString() == "1":
			idx.kind = UniqueIndex
		}
		cols, err := queryAll(ctx, conn, `select name, "desc" from pragma_index_xinfo(?) where key = 1 order by seqno`, idx.name)
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			idx.columns = append(idx.columns, c[0].ToString())
			idx.desc = append(idx.desc, c[1].ToString() == "1")
		}
		out = append(out, idx)
	}
	if !hasPK {
		// An INTEGER PRIMARY KEY aliases the rowid and has no index entry.
		pk, err := queryAll(ctx, conn, `select name from pragma_table_info(?) where pk > 0 order by pk`, table)
		if err != nil {
			return nil, err
		}
		if len(pk) > 0 {
			idx := rawIndex{name: "PRIMARY", kind: PrimaryKeyIndex}
			for _, c := range pk {
				idx.columns = append(idx.columns, c[0].ToString())
				idx.desc = append(idx.desc, false)
			}
			out = append(out, idx)
		}
	}
	return out, nil
}

func (sqliteLoader) rowCount(context.Context, Conn, string) (int64, bool, error) {
	return 0, false, nil
}
