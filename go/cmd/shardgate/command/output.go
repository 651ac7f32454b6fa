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

package command

import (
	"fmt"
	"io"

	"github.com/bndr/gotabulate"
	"github.com/dustin/go-humanize"

	"github.com/shardgate/shardgate/go/sqltypes"
)

// renderTable writes rows under headers in the configured format. Empty
// cells are shown as NULL. gotabulate cannot size a table without rows,
// so nothing is written for none.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	t := gotabulate.Create(rows)
	t.SetHeaders(headers)
	t.SetAlign("left")
	t.SetEmptyString("NULL")
	_, err := io.WriteString(w, t.Render(tableFormat.Get()))
	return err
}

// printResult writes the rows of qr followed by a summary line.
func printResult(w io.Writer, qr *sqltypes.Result) error {
	if len(qr.Fields) == 0 {
		_, err := fmt.Fprintf(w, "Query OK, %s %s affected\n", humanize.Comma(int64(qr.RowsAffected)), plural(int64(qr.RowsAffected), "row"))
		return err
	}
	rows := make([][]string, len(qr.Rows))
	for i, row := range qr.Rows {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			if !v.IsNull() {
				rows[i][j] = v.ToString()
			}
		}
	}
	if err := renderTable(w, qr.FieldNames(), rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s in set\n", humanize.Comma(int64(len(qr.Rows))), plural(int64(len(qr.Rows)), "row"))
	return err
}

func plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
