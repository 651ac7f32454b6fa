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
	"context"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/directory"
	"github.com/shardgate/shardgate/go/vt/vtgate/schema"
)

// ShardConn is a dedicated connection to one shard. A session keeps one
// per shard it touches.
type ShardConn interface {
	Query(ctx context.Context, query string, args ...any) (sqltypes.RowStream, error)
	Exec(ctx context.Context, query string, args ...any) (*sqltypes.Result, error)
	Commit() error
	Rollback() error
	Close() error
}

// ShardDirectory hands out shard connections configured with a session's
// settings.
type ShardDirectory interface {
	GetConnection(ctx context.Context, shard string, settings directory.Settings) (ShardConn, error)
}

// directoryAdapter serves both shard connections and metadata
// connections from a directory.Directory.
type directoryAdapter struct {
	dir *directory.Directory
}

func (da directoryAdapter) GetConnection(ctx context.Context, shard string, settings directory.Settings) (ShardConn, error) {
	src, err := da.dir.GetConnectionSource(shard)
	if err != nil {
		return nil, err
	}
	conn, err := da.dir.GetConnection(ctx, src, settings)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Connect implements schema.Connector. Metadata is read outside of any
// session transaction.
func (da directoryAdapter) Connect(ctx context.Context, shard string) (schema.Conn, error) {
	src, err := da.dir.GetConnectionSource(shard)
	if err != nil {
		return nil, err
	}
	conn, err := da.dir.GetConnection(ctx, src, directory.Settings{Autocommit: true})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Driver implements schema.Connector.
func (da directoryAdapter) Driver(shard string) string {
	src, err := da.dir.GetConnectionSource(shard)
	if err != nil {
		return ""
	}
	return src.Driver
}
