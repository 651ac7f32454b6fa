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

	"github.com/spf13/cobra"

	"github.com/shardgate/shardgate/go/vt/log"
	"github.com/shardgate/shardgate/go/vt/vtgate"
)

// Exec runs an INSERT, UPDATE or DELETE statement.
var Exec = &cobra.Command{
	Use:                   "exec [--set <column>=<value>]... [--where <predicate>]... {insert|update|delete} <table>",
	Short:                 "Runs an INSERT, UPDATE or DELETE statement in its own transaction.",
	Example:               "shardgate exec --topology topo.yaml --set id=1 --set user_id=42 --set status=OPEN insert orders",
	DisableFlagsInUseLine: true,
	Args:                  cobra.ExactArgs(2),
	RunE:                  commandExec,
}

var (
	execOptions  dmlOptions
	execBindVars []string
)

func init() {
	Exec.Flags().StringArrayVar(&execOptions.Set, "set", nil, "A <column>=<value> assignment. For insert the assignments make up the row.")
	Exec.Flags().StringArrayVar(&execOptions.Where, "where", nil, "A <column><op><value> predicate. Predicates are combined with AND.")
	Exec.Flags().StringArrayVar(&execBindVars, "bind", nil, "A <name>=<value> bind variable referenced as :name in values.")
}

func commandExec(cmd *cobra.Command, args []string) error {
	stmt, err := execOptions.build(args[0], args[1])
	if err != nil {
		return err
	}
	bindVars, err := parseBindVars(execBindVars)
	if err != nil {
		return err
	}
	return withEngine(cmd, func(ctx context.Context, e *vtgate.Engine) error {
		s, err := newSession(e)
		if err != nil {
			return err
		}
		if err := s.Begin(ctx); err != nil {
			return err
		}
		qr, err := s.Execute(ctx, stmt, bindVars)
		if err != nil {
			if rbErr := s.Rollback(ctx); rbErr != nil {
				log.Warningf("rollback after failed statement: %v", rbErr)
			}
			return err
		}
		if err := s.Commit(ctx); err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), qr)
	})
}
