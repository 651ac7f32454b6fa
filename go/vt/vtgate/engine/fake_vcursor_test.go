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

package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// loggingVCursor answers queries from canned per-shard results and
// records every call it receives.
type loggingVCursor struct {
	mu sync.Mutex

	// results are keyed by shard, or by "shard:query" for a specific
	// statement.
	results map[string]*sqltypes.Result
	// errs fail StreamExecute or ExecuteDML on a shard.
	errs map[string]error
	// recvErrs fail a shard's stream after its rows have been read.
	recvErrs map[string]error

	canceled bool
	parallel bool
	log      []string
}

func newLoggingVCursor() *loggingVCursor {
	return &loggingVCursor{
		results:  make(map[string]*sqltypes.Result),
		errs:     make(map[string]error),
		recvErrs: make(map[string]error),
	}
}

func (f *loggingVCursor) lookup(shard string, pq *sqlparser.ParsedQuery) *sqltypes.Result {
	if r, ok := f.results[shard+":"+pq.Query]; ok {
		return r
	}
	if r, ok := f.results[shard]; ok {
		return r
	}
	return &sqltypes.Result{}
}

func (f *loggingVCursor) StreamExecute(_ context.Context, shard string, pq *sqlparser.ParsedQuery) (sqltypes.RowStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, fmt.Sprintf("StreamExecute %s %s %v", shard, pq.Query, pq.Args))
	if err := f.errs[shard]; err != nil {
		return nil, err
	}
	stream := sqltypes.RowsStream(f.lookup(shard, pq))
	if err := f.recvErrs[shard]; err != nil {
		return &failingStream{RowStream: stream, err: err}, nil
	}
	return stream, nil
}

func (f *loggingVCursor) ExecuteDML(_ context.Context, shard string, pq *sqlparser.ParsedQuery) (*sqltypes.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, fmt.Sprintf("ExecuteDML %s %s %v", shard, pq.Query, pq.Args))
	if err := f.errs[shard]; err != nil {
		return nil, err
	}
	return f.lookup(shard, pq), nil
}

func (f *loggingVCursor) CheckCancel(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.canceled {
		return vterrors.NewErrorf(vterrors.Canceled, vterrors.QueryInterrupted, "query execution was interrupted")
	}
	return ctx.Err()
}

func (f *loggingVCursor) AllowParallel() bool { return f.parallel }

func (f *loggingVCursor) cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = true
}

func (f *loggingVCursor) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

type failingStream struct {
	sqltypes.RowStream
	err error
}

func (s *failingStream) Recv() (sqltypes.Row, error) {
	row, err := s.RowStream.Recv()
	if err != nil {
		return nil, s.err
	}
	return row, nil
}

// fakePrimitive returns fixed results, one per Open.
type fakePrimitive struct {
	results []*sqltypes.Result
	opened  []map[string]sqltypes.Value
	err     error
}

func (f *fakePrimitive) RouteType() string { return "Fake" }
func (f *fakePrimitive) Inputs() []Primitive { return nil }
func (f *fakePrimitive) description() PrimitiveDescription {
	return PrimitiveDescription{OperatorType: "Fake"}
}

func (f *fakePrimitive) Open(_ context.Context, _ VCursor, bindVars map[string]sqltypes.Value) (Cursor, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.opened = append(f.opened, bindVars)
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return newRowsCursor(r.Fields, r.Rows), nil
}
