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

// Package command contains the commands of the shardgate CLI.
package command

import (
	"context"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/shardgate/shardgate/go/viperutil"
	"github.com/shardgate/shardgate/go/vt/log"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate"
)

var (
	// fs is the filesystem the topology and config files are read from.
	fs = afero.NewOsFs()

	registry = viperutil.NewRegistry()

	configFile string

	topologyPath = viperutil.Configure(registry, "topology", viperutil.Options[string]{
		FlagName: "topology",
		EnvVars:  []string{"SHARDGATE_TOPOLOGY"},
	})
	allowParallel = viperutil.Configure(registry, "allow-parallel", viperutil.Options[bool]{
		FlagName: "allow-parallel",
	})
	queryTimeout = viperutil.Configure(registry, "query-timeout", viperutil.Options[time.Duration]{
		FlagName: "query-timeout",
		EnvVars:  []string{"SHARDGATE_QUERY_TIMEOUT"},
	})
	metadataRetries = viperutil.Configure(registry, "metadata-retries", viperutil.Options[int]{
		FlagName: "metadata-retries",
		Default:  3,
	})
	isolation = viperutil.Configure(registry, "isolation", viperutil.Options[string]{
		FlagName: "isolation",
	})
	readOnly = viperutil.Configure(registry, "read-only", viperutil.Options[bool]{
		FlagName: "read-only",
	})
	showMetrics = viperutil.Configure(registry, "show-metrics", viperutil.Options[bool]{
		FlagName: "show-metrics",
	})
	tableFormat = viperutil.Configure(registry, "format", viperutil.Options[string]{
		FlagName: "format",
		Default:  "grid",
	})

	// Root is the root command of the shardgate CLI.
	Root = &cobra.Command{
		Use:   "shardgate",
		Short: "shardgate routes SQL statements over a set of sharded databases.",
		Long: "`shardgate` plans and runs statements against the virtual schema declared in a topology file.\n\n" +
			"The topology file lists the shards and the routers and tables of the virtual schema.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Init(cmd.Flags()); err != nil {
				return err
			}
			return registry.LoadConfig(fs, configFile)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Flush()
		},
	}
)

func init() {
	pf := Root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Optional config file providing defaults for the flags below (yaml, json or toml).")
	pf.String("topology", topologyPath.Default(), "Path to the topology file declaring the shards and the virtual schema.")
	pf.Bool("allow-parallel", allowParallel.Default(), "Query the shards of a read concurrently when outside of a transaction.")
	pf.Duration("query-timeout", queryTimeout.Default(), "Statement timeout. Zero disables it.")
	pf.Int("metadata-retries", metadataRetries.Default(), "Attempts made to load the metadata of a table.")
	pf.String("isolation", isolation.Default(), "Transaction isolation level: read-uncommitted, read-committed, repeatable-read or serializable.")
	pf.Bool("read-only", readOnly.Default(), "Reject statements that modify rows.")
	pf.Bool("show-metrics", showMetrics.Default(), "Print the metrics collected by the command in prometheus text format.")
	pf.String("format", tableFormat.Default(), "Table output format: grid, simple or plain.")
	log.RegisterFlags(pf)

	registry.BindFlags(pf,
		topologyPath,
		allowParallel,
		queryTimeout,
		metadataRetries,
		isolation,
		readOnly,
		showMetrics,
		tableFormat,
	)

	Root.AddCommand(Validate)
	Root.AddCommand(Tables)
	Root.AddCommand(Route)
	Root.AddCommand(Explain)
	Root.AddCommand(Query)
	Root.AddCommand(Exec)
}

func loadConfig() (*vtgate.Config, error) {
	path := topologyPath.Get()
	if path == "" {
		return nil, vterrors.New(vterrors.InvalidArgument, "--topology is required")
	}
	return vtgate.LoadConfig(fs, path)
}

// openEngine builds an engine from the topology file and checks that
// every shard is reachable.
func openEngine(ctx context.Context) (*vtgate.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts := vtgate.DefaultOptions()
	opts.AllowParallel = allowParallel.Get()
	opts.QueryTimeout = queryTimeout.Get()
	opts.MetadataRetries = metadataRetries.Get()
	e, err := vtgate.NewEngine(cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := e.Open(ctx); err != nil {
		e.CloseAll(ctx)
		return nil, err
	}
	return e, nil
}

// newSession opens a session configured from the flags.
func newSession(e *vtgate.Engine) (*vtgate.Session, error) {
	s := e.NewSession()
	level, err := vtgate.ParseIsolation(isolation.Get())
	if err != nil {
		return nil, err
	}
	if err := s.SetIsolation(level); err != nil {
		return nil, err
	}
	if err := s.SetReadOnly(readOnly.Get()); err != nil {
		return nil, err
	}
	return s, nil
}

// closeEngine closes e and prints its metrics when asked to.
func closeEngine(ctx context.Context, e *vtgate.Engine, w io.Writer) error {
	err := e.CloseAll(ctx)
	if showMetrics.Get() {
		if werr := e.Exporter().WriteText(w); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
