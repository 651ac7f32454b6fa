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
	"strings"

	"github.com/spf13/cobra"

	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

// Route resolves the nodes of a table for a set of column values.
var Route = &cobra.Command{
	Use:                   "route [--write] <table> [column=value ...]",
	Short:                 "Shows which nodes of a table a statement binding the given column values touches.",
	Long:                  "A route is fixed when every rule column of the table is bound; otherwise it covers every node of the table.",
	DisableFlagsInUseLine: true,
	Args:                  cobra.MinimumNArgs(1),
	RunE:                  commandRoute,
}

var routeOptions = struct {
	Write bool
}{}

func init() {
	Route.Flags().BoolVar(&routeOptions.Write, "write", false, "Resolve for a write: replicated tables are written on every node.")
}

func commandRoute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	vschema, err := vindexes.BuildVSchema(&cfg.VSchema, cfg.ShardNames())
	if err != nil {
		return err
	}
	table, err := vschema.FindTable(args[0])
	if err != nil {
		return err
	}

	bindings := make(vindexes.Bindings)
	for _, arg := range args[1:] {
		name, value, err := parseAssignment(arg)
		if err != nil {
			return err
		}
		lit, ok := value.(*sqlparser.Literal)
		if !ok {
			return vterrors.Errorf(vterrors.InvalidArgument, "value of %s must be a literal", name)
		}
		bindings[strings.ToLower(name)] = lit.Val
	}

	rr, err := vindexes.Resolve(table, bindings)
	if err != nil {
		return err
	}
	var nodes []vindexes.TableNode
	if routeOptions.Write {
		nodes = vindexes.ResolveWrite(rr)
	} else {
		nodes = vindexes.ResolveRead(rr, nil).Nodes
	}

	kind := "group"
	if len(nodes) == 1 {
		kind = "fixed"
	}
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{n.Shard, n.Table}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s route over %d of %d nodes\n", table.Name, kind, len(nodes), len(table.Nodes))
	return renderTable(out, []string{"Shard", "Table"}, rows)
}
