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

/*
Package directory maps shard names to database connection sources and
hands out dedicated shard connections configured with a session's
transaction settings.
*/
package directory

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/shardgate/shardgate/go/vt/log"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// Supported drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// ShardConfig declares one shard.
type ShardConfig struct {
	Name         string `json:"name"`
	Driver       string `json:"driver"`
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns,omitempty"`
}

// Source is the connection source of one shard.
type Source struct {
	Name   string
	Driver string
	db     *sql.DB
}

// Directory is the static mapping from shard name to connection source.
type Directory struct {
	mu      sync.Mutex
	sources map[string]*Source
	closed  bool
}

// New validates the shard declarations and creates a connection source
// for each of them. No connection is made until Open.
func New(shards []ShardConfig) (*Directory, error) {
	d := &Directory{sources: make(map[string]*Source, len(shards))}
	for _, cfg := range shards {
		if cfg.Name == "" {
			d.Close()
			return nil, vterrors.New(vterrors.InvalidArgument, "shard name must not be empty")
		}
		if _, ok := d.sources[cfg.Name]; ok {
			d.Close()
			return nil, vterrors.Errorf(vterrors.AlreadyExists, "duplicate shard %s", cfg.Name)
		}
		if err := validateDSN(cfg); err != nil {
			d.Close()
			return nil, err
		}
		db, err := sql.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			d.Close()
			return nil, vterrors.Wrapf(err, "shard %s", cfg.Name)
		}
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		d.sources[cfg.Name] = &Source{Name: cfg.Name, Driver: cfg.Driver, db: db}
	}
	return d, nil
}

func validateDSN(cfg ShardConfig) error {
	switch cfg.Driver {
	case DriverMySQL:
		if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
			return vterrors.Errorf(vterrors.InvalidArgument, "shard %s: invalid mysql dsn: %v", cfg.Name, err)
		}
	case DriverSQLite:
		if cfg.DSN == "" {
			return vterrors.Errorf(vterrors.InvalidArgument, "shard %s: empty sqlite dsn", cfg.Name)
		}
	default:
		return vterrors.Errorf(vterrors.InvalidArgument, "shard %s: unsupported driver %q", cfg.Name, cfg.Driver)
	}
	return nil
}

// Open pings every shard.
func (d *Directory) Open(ctx context.Context) error {
	for _, name := range d.Shards() {
		src := d.sources[name]
		if err := src.db.PingContext(ctx); err != nil {
			return vterrors.WrapWithCode(err, vterrors.Unavailable, "shard %s unreachable", name)
		}
		log.Infof("shard %s (%s) is reachable", name, src.Driver)
	}
	return nil
}

// Shards returns the shard names in sorted order.
func (d *Directory) Shards() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.sources))
	for name := range d.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetConnectionSource returns the source of a shard.
func (d *Directory) GetConnectionSource(name string) (*Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, vterrors.New(vterrors.Unavailable, "directory is closed")
	}
	src, ok := d.sources[name]
	if !ok {
		return nil, vterrors.NewErrorf(vterrors.NotFound, vterrors.UnknownShard, "unknown shard %s", name)
	}
	return src, nil
}

// GetConnection reserves a dedicated connection from src. The settings
// are applied before the first statement runs on it.
func (d *Directory) GetConnection(ctx context.Context, src *Source, settings Settings) (*Conn, error) {
	conn, err := src.db.Conn(ctx)
	if err != nil {
		return nil, shardError(err, src.Name)
	}
	return &Conn{
		shard:    src.Name,
		driver:   src.Driver,
		conn:     conn,
		settings: settings,
	}, nil
}

// Close closes every connection source.
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for name, src := range d.sources {
		if err := src.db.Close(); err != nil {
			log.Warningf("closing shard %s: %v", name, err)
		}
	}
}
