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
	"context"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/shardgate/shardgate/go/vt/vtgate"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

// Tables lists the tables of the virtual schema.
var Tables = &cobra.Command{
	Use:                   "tables [--metadata]",
	Short:                 "Lists the tables of the virtual schema with their routers and nodes.",
	DisableFlagsInUseLine: true,
	Args:                  cobra.NoArgs,
	RunE:                  commandTables,
}

var tablesOptions = struct {
	Metadata bool
}{}

func init() {
	Tables.Flags().BoolVar(&tablesOptions.Metadata, "metadata", false, "Also load and show the columns, indexes and row count of each table.")
}

func describeTable(t *vindexes.Table) []string {
	router, function := "", ""
	if t.Router != nil {
		router = t.Router.Name
		if t.Router.Replicated {
			function = vindexes.ReplicatedFunction
		} else if t.Router.Function != nil {
			function = t.Router.Function.String()
		}
	}
	nodes := make([]string, len(t.Nodes))
	for i, n := range t.Nodes {
		nodes[i] = n.String()
	}
	return []string{
		t.Name,
		router,
		function,
		strings.Join(t.RuleColumns, ","),
		strings.Join(nodes, ","),
		t.ScanLevel.String(),
		strconv.FormatBool(t.Validate),
	}
}

func commandTables(cmd *cobra.Command, args []string) error {
	headers := []string{"Table", "Router", "Function", "Rule Columns", "Nodes", "Scan Level", "Validate"}
	if !tablesOptions.Metadata {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		vschema, err := vindexes.BuildVSchema(&cfg.VSchema, cfg.ShardNames())
		if err != nil {
			return err
		}
		var rows [][]string
		for _, name := range vschema.TableNames() {
			t, err := vschema.FindTable(name)
			if err != nil {
				return err
			}
			rows = append(rows, describeTable(t))
		}
		return renderTable(cmd.OutOrStdout(), headers, rows)
	}

	return withEngine(cmd, func(ctx context.Context, e *vtgate.Engine) error {
		var rows [][]string
		for _, name := range e.VSchema().TableNames() {
			t, err := e.VSchema().FindTable(name)
			if err != nil {
				return err
			}
			row := describeTable(t)
			meta, err := e.Cache().Get(ctx, name)
			if err != nil {
				row = append(row, "", "", "")
			} else {
				indexes := make([]string, len(meta.Indexes))
				for i, idx := range meta.Indexes {
					indexes[i] = idx.Name
				}
				row = append(row, strconv.Itoa(len(meta.Columns)), strings.Join(indexes, ","), humanize.Comma(meta.RowCount))
			}
			rows = append(rows, row)
		}
		return renderTable(cmd.OutOrStdout(), append(headers, "Columns", "Indexes", "Rows"), rows)
	})
}
