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
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate"
)

// Validate loads the metadata of every table.
var Validate = &cobra.Command{
	Use:                   "validate",
	Short:                 "Checks that every shard is reachable and loads the metadata of every table.",
	Long:                  "Tables whose metadata cannot be loaded are reported invalid, or degraded when their declaration sets validate: false.",
	DisableFlagsInUseLine: true,
	Args:                  cobra.NoArgs,
	RunE:                  commandValidate,
}

func commandValidate(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(ctx context.Context, e *vtgate.Engine) error {
		out := cmd.OutOrStdout()
		var (
			rows   [][]string
			failed []error
		)
		for _, name := range e.VSchema().TableNames() {
			meta, err := e.Cache().Get(ctx, name)
			switch {
			case err != nil:
				failed = append(failed, err)
				rows = append(rows, []string{name, "invalid", "", "", "", err.Error()})
			case meta.Degraded:
				rows = append(rows, []string{name, "degraded", "0", "0", "0", ""})
			default:
				rows = append(rows, []string{
					name,
					"ok",
					strconv.Itoa(len(meta.Columns)),
					strconv.Itoa(len(meta.Indexes)),
					humanize.Comma(meta.RowCount),
					"",
				})
			}
		}
		if err := renderTable(out, []string{"Table", "Status", "Columns", "Indexes", "Rows", "Error"}, rows); err != nil {
			return err
		}
		if len(failed) > 0 {
			return vterrors.Wrapf(vterrors.Aggregate(failed), "%d of %d tables are invalid", len(failed), len(rows))
		}
		fmt.Fprintln(out, "Validation complete; no issues found.")
		return nil
	})
}
