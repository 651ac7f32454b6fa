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
	"sync"

	"github.com/shardgate/shardgate/go/vt/directory"
	"github.com/shardgate/shardgate/go/vt/log"
)

// shardConns is a set of shard connections kept in first-use order.
// Parallel routes may ask for connections concurrently.
type shardConns struct {
	dir      ShardDirectory
	settings directory.Settings

	mu      sync.Mutex
	conns   []*ShardSession
	byShard map[string]*ShardSession
}

func newShardConns(dir ShardDirectory, settings directory.Settings) *shardConns {
	return &shardConns{
		dir:      dir,
		settings: settings,
		byShard:  make(map[string]*ShardSession),
	}
}

// get returns the connection held for shard, opening it on first use.
func (sc *shardConns) get(ctx context.Context, shard string) (ShardConn, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if ss, ok := sc.byShard[shard]; ok {
		return ss.Conn, nil
	}
	conn, err := sc.dir.GetConnection(ctx, shard, sc.settings)
	if err != nil {
		return nil, err
	}
	ss := &ShardSession{Shard: shard, Conn: conn}
	sc.conns = append(sc.conns, ss)
	sc.byShard[shard] = ss
	return conn, nil
}

func (sc *shardConns) holds(shard string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	_, ok := sc.byShard[shard]
	return ok
}

func (sc *shardConns) list() []*ShardSession {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]*ShardSession(nil), sc.conns...)
}

func (sc *shardConns) shards() []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	names := make([]string, len(sc.conns))
	for i, ss := range sc.conns {
		names[i] = ss.Shard
	}
	return names
}

// release closes every connection and forgets them.
func (sc *shardConns) release() {
	sc.mu.Lock()
	conns := sc.conns
	sc.conns = nil
	sc.byShard = make(map[string]*ShardSession)
	sc.mu.Unlock()
	for _, ss := range conns {
		if err := ss.Conn.Close(); err != nil {
			log.Warningf("closing connection to shard %s: %v", ss.Shard, err)
		}
	}
}
