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

// Package vtgate provides the Engine that runs SQL statements over a
// set of shards, and the sessions clients use to do so.
package vtgate

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shardgate/shardgate/go/stats"
	"github.com/shardgate/shardgate/go/vt/directory"
	"github.com/shardgate/shardgate/go/vt/log"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/schema"
	"github.com/shardgate/shardgate/go/vt/vtgate/vindexes"
)

// Engine is the top-level object: it owns the shard directory, the
// virtual schema, the metadata cache shared by all sessions and the set
// of open sessions.
type Engine struct {
	opts    *Options
	vschema *vindexes.VSchema
	cache   *schema.Cache
	dir     ShardDirectory
	txConn  *TxConn
	stats   *engineStats

	// opener and closer manage the shard pools, if the engine owns
	// them.
	opener func(context.Context) error
	closer func()

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewEngine creates an Engine for the shards and virtual schema of cfg.
// Call Open before use.
func NewEngine(cfg *Config, opts *Options) (*Engine, error) {
	dir, err := directory.New(cfg.Shards)
	if err != nil {
		return nil, err
	}
	vschema, err := vindexes.BuildVSchema(&cfg.VSchema, cfg.ShardNames())
	if err != nil {
		dir.Close()
		return nil, err
	}
	da := directoryAdapter{dir: dir}
	e := newEngine(vschema, da, da, opts)
	e.closer = dir.Close
	e.opener = dir.Open
	return e, nil
}

func newEngine(vschema *vindexes.VSchema, dir ShardDirectory, connector schema.Connector, opts *Options) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	st := newEngineStats(opts.Namespace)
	cacheOpts := schema.DefaultOptions()
	if opts.MetadataRetries > 0 {
		cacheOpts.Retries = opts.MetadataRetries
	}
	cacheOpts.Loads = st.metadataLoads
	return &Engine{
		opts:     opts,
		vschema:  vschema,
		cache:    schema.NewCache(vschema, connector, cacheOpts),
		dir:      dir,
		txConn:   NewTxConn(st),
		stats:    st,
		sessions: make(map[string]*Session),
	}
}

// Open checks that every shard is reachable.
func (e *Engine) Open(ctx context.Context) error {
	if e.opener == nil {
		return nil
	}
	return e.opener(ctx)
}

// VSchema returns the virtual schema.
func (e *Engine) VSchema() *vindexes.VSchema {
	return e.vschema
}

// Cache returns the table metadata cache.
func (e *Engine) Cache() *schema.Cache {
	return e.cache
}

// Exporter returns the metrics of the engine.
func (e *Engine) Exporter() *stats.Exporter {
	return e.stats.exporter
}

// NewSession opens a session with autocommit on and the engine's
// default query timeout.
func (e *Engine) NewSession() *Session {
	s := &Session{
		id:           uuid.NewString(),
		engine:       e,
		autocommit:   true,
		queryTimeout: e.opts.QueryTimeout,
	}
	e.mu.Lock()
	e.sessions[s.id] = s
	e.mu.Unlock()
	e.stats.openSessions.Add(1)
	log.V(1).Infof("session %s opened", s.id)
	return s
}

// Session returns the open session with the given id.
func (e *Engine) Session(id string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, vterrors.Errorf(vterrors.NotFound, "session %s not found", id)
	}
	return s, nil
}

// SessionIDs returns the ids of the open sessions, sorted.
func (e *Engine) SessionIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) forget(s *Session) {
	e.mu.Lock()
	_, ok := e.sessions[s.id]
	delete(e.sessions, s.id)
	e.mu.Unlock()
	if ok {
		e.stats.openSessions.Add(-1)
		log.V(1).Infof("session %s closed", s.id)
	}
}

// CloseAll closes every open session, rolling back their transactions,
// then releases the shard pools. The errors of all sessions are
// aggregated.
func (e *Engine) CloseAll(ctx context.Context) error {
	e.mu.Lock()
	sessions := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].id < sessions[j].id })

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if e.closer != nil {
		e.closer()
	}
	return vterrors.Aggregate(errs)
}
