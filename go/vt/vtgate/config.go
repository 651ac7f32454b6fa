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

package vtgate

import (
	"database/sql"
	"strings"
	"time"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/shardgate/shardgate/go/vt/directory"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

// Config is the topology file: the shards and the virtual schema that
// lives on them.
type Config struct {
	Shards  []directory.ShardConfig `json:"shards"`
	VSchema vindexes.VSchemaConfig  `json:"vschema"`
}

// ParseConfig parses a YAML or JSON topology document.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, vterrors.Wrap(err, "parsing config")
	}
	if len(cfg.Shards) == 0 {
		return nil, vterrors.New(vterrors.InvalidArgument, "config declares no shards")
	}
	return cfg, nil
}

// LoadConfig reads and parses the topology file at path.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, vterrors.Wrapf(err, "reading config %s", path)
	}
	return ParseConfig(data)
}

// ShardNames returns the declared shard names in file order.
func (cfg *Config) ShardNames() []string {
	names := make([]string, len(cfg.Shards))
	for i, s := range cfg.Shards {
		names[i] = s.Name
	}
	return names
}

// Options tune an Engine.
type Options struct {
	// AllowParallel lets reads outside of a transaction query the
	// shards of a route concurrently.
	AllowParallel bool
	// QueryTimeout is the default statement timeout of new sessions.
	// Zero means no timeout.
	QueryTimeout time.Duration
	// MetadataRetries is the number of attempts made to load the
	// metadata of a table.
	MetadataRetries int
	// Namespace prefixes the exported metric names.
	Namespace string
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() *Options {
	return &Options{
		MetadataRetries: 3,
		Namespace:       "shardgate",
	}
}

var isolationLevels = map[string]sql.IsolationLevel{
	"":                 sql.LevelDefault,
	"default":          sql.LevelDefault,
	"read-uncommitted": sql.LevelReadUncommitted,
	"read-committed":   sql.LevelReadCommitted,
	"repeatable-read":  sql.LevelRepeatableRead,
	"serializable":     sql.LevelSerializable,
}

// ParseIsolation parses an isolation level name such as
// "read-committed". Underscores and spaces are accepted in place of
// dashes.
func ParseIsolation(name string) (sql.IsolationLevel, error) {
	key := strings.NewReplacer("_", "-", " ", "-").Replace(strings.ToLower(name))
	level, ok := isolationLevels[key]
	if !ok {
		return 0, vterrors.Errorf(vterrors.InvalidArgument, "unknown isolation level %q", name)
	}
	return level, nil
}
