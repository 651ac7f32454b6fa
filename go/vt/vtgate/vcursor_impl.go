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
	"errors"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/trace"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/engine"
)

var _ engine.VCursor = (*vcursorImpl)(nil)

// vcursorImpl implements the VCursor functionality used by the engine
// for one statement of a session.
type vcursorImpl struct {
	session  *Session
	conns    *shardConns
	parallel bool
}

func newVCursorImpl(session *Session, conns *shardConns, parallel bool) *vcursorImpl {
	return &vcursorImpl{
		session:  session,
		conns:    conns,
		parallel: parallel,
	}
}

// StreamExecute is part of the engine.VCursor interface.
func (vc *vcursorImpl) StreamExecute(ctx context.Context, shard string, query *sqlparser.ParsedQuery) (sqltypes.RowStream, error) {
	if err := vc.CheckCancel(ctx); err != nil {
		return nil, err
	}
	span, ctx := trace.NewSpan(ctx, "VCursor.StreamExecute")
	defer span.Finish()
	span.Annotate("shard", shard)
	trace.AnnotateSQL(span, query.Query)

	conn, err := vc.conns.get(ctx, shard)
	if err != nil {
		return nil, err
	}
	vc.session.engine.stats.shardQueries.Add([]string{shard, "query"}, 1)
	stream, err := conn.Query(ctx, query.Query, query.Args...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return stream, nil
}

// ExecuteDML is part of the engine.VCursor interface.
func (vc *vcursorImpl) ExecuteDML(ctx context.Context, shard string, query *sqlparser.ParsedQuery) (*sqltypes.Result, error) {
	if err := vc.CheckCancel(ctx); err != nil {
		return nil, err
	}
	span, ctx := trace.NewSpan(ctx, "VCursor.ExecuteDML")
	defer span.Finish()
	span.Annotate("shard", shard)
	trace.AnnotateSQL(span, query.Query)

	conn, err := vc.conns.get(ctx, shard)
	if err != nil {
		return nil, err
	}
	vc.session.engine.stats.shardQueries.Add([]string{shard, "dml"}, 1)
	qr, err := conn.Exec(ctx, query.Query, query.Args...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return qr, nil
}

// CheckCancel is part of the engine.VCursor interface.
func (vc *vcursorImpl) CheckCancel(ctx context.Context) error {
	if vc.session.canceled.Load() {
		return vterrors.NewErrorf(vterrors.Canceled, vterrors.QueryInterrupted, "query execution was interrupted")
	}
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return vterrors.NewErrorf(vterrors.DeadlineExceeded, vterrors.QueryInterrupted, "query execution was interrupted, maximum statement execution time exceeded")
	default:
		return vterrors.NewErrorf(vterrors.Canceled, vterrors.QueryInterrupted, "query execution was interrupted: %v", err)
	}
}

// AllowParallel is part of the engine.VCursor interface.
func (vc *vcursorImpl) AllowParallel() bool {
	return vc.parallel
}
