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

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vtgate"
)

var (
	// Query runs a SELECT statement.
	Query = &cobra.Command{
		Use:                   "query [--columns <col>,...] [--join <table>[:alias],<on>...] [--where <predicate>]... [--order-by [-]<col>] [--limit N] <table>[:alias]",
		Short:                 "Runs a SELECT statement and prints its rows.",
		Example:               "shardgate query --topology topo.yaml --where user_id=42 --order-by -id orders",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		RunE:                  commandQuery,
	}
	// Explain prints the plan of a SELECT statement.
	Explain = &cobra.Command{
		Use:                   "explain [--columns <col>,...] [--join <table>[:alias],<on>...] [--where <predicate>]... [--order-by [-]<col>] [--limit N] <table>[:alias]",
		Short:                 "Prints the plan of a SELECT statement without running it.",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		RunE:                  commandExplain,
	}
)

var (
	queryOptions   = selectOptions{Limit: -1}
	explainOptions = selectOptions{Limit: -1}
	queryBindVars  []string
)

func registerSelectFlags(fs *pflag.FlagSet, opts *selectOptions) {
	fs.StringSliceVar(&opts.Columns, "columns", nil, "Columns to select. Defaults to *.")
	fs.StringArrayVar(&opts.Joins, "join", nil, "Inner join a table: <table>[:alias],<on predicate>,... May be repeated.")
	fs.StringArrayVar(&opts.LeftJoins, "left-join", nil, "Left join a table: <table>[:alias],<on predicate>,... May be repeated.")
	fs.StringArrayVar(&opts.Where, "where", nil, "A <column><op><value> predicate, with op one of = != <> < <= > >= ~ (like). Predicates are combined with AND.")
	fs.StringSliceVar(&opts.OrderBy, "order-by", nil, "Columns to sort by. Prefix a column with - to sort descending.")
	fs.BoolVar(&opts.Distinct, "distinct", false, "Drop duplicate rows.")
	fs.Int64Var(&opts.Limit, "limit", -1, "Maximum number of rows. Negative means no limit.")
	fs.Int64Var(&opts.Offset, "offset", 0, "Rows to skip before the first returned row. Requires --limit.")
	fs.StringArrayVar(&queryBindVars, "bind", nil, "A <name>=<value> bind variable referenced as :name in values.")
}

func init() {
	registerSelectFlags(Query.Flags(), &queryOptions)
	registerSelectFlags(Explain.Flags(), &explainOptions)
}

func commandQuery(cmd *cobra.Command, args []string) error {
	return runSelect(cmd, args[0], &queryOptions, func(ctx context.Context, s *vtgate.Session, sel *sqlparser.Select) error {
		bindVars, err := parseBindVars(queryBindVars)
		if err != nil {
			return err
		}
		qr, err := s.Execute(ctx, sel, bindVars)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), qr)
	})
}

func commandExplain(cmd *cobra.Command, args []string) error {
	return runSelect(cmd, args[0], &explainOptions, func(ctx context.Context, s *vtgate.Session, sel *sqlparser.Select) error {
		bindVars, err := parseBindVars(queryBindVars)
		if err != nil {
			return err
		}
		tree, err := s.Explain(ctx, sel, bindVars)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sqlparser.String(sel))
		_, err = fmt.Fprint(out, tree)
		return err
	})
}

func runSelect(cmd *cobra.Command, table string, opts *selectOptions, f func(ctx context.Context, s *vtgate.Session, sel *sqlparser.Select) error) error {
	sel, err := opts.build(table)
	if err != nil {
		return err
	}
	return withEngine(cmd, func(ctx context.Context, e *vtgate.Engine) error {
		s, err := newSession(e)
		if err != nil {
			return err
		}
		return f(ctx, s, sel)
	})
}
