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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardgate/shardgate/go/vt/vterrors"
)

func TestTxConnCommitAll(t *testing.T) {
	sb := newSandbox(nil)
	st := newEngineStats("test")
	txc := NewTxConn(st)
	conns := []*ShardSession{sb.newConn("shard0"), sb.newConn("shard1")}

	require.NoError(t, txc.Commit(context.Background(), conns))
	assert.Equal(t, []string{"shard0 commit", "shard1 commit"}, sb.Events())
	assert.Equal(t, 1.0, testutil.ToFloat64(st.transactions.Counter("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(st.shardActions.Counter("shard1", ActionCommit)))
}

func TestTxConnCommitStopsAtFirstFailure(t *testing.T) {
	sb := newSandbox(nil)
	st := newEngineStats("test")
	txc := NewTxConn(st)
	failure := vterrors.Errorf(vterrors.Unavailable, "lost connection")
	sb.commitErr["shard1"] = failure
	conns := []*ShardSession{sb.newConn("shard0"), sb.newConn("shard1"), sb.newConn("shard2")}

	err := txc.Commit(context.Background(), conns)
	require.Error(t, err)
	assert.Equal(t, []string{"shard0 commit", "shard1 commit", "shard2 rollback"}, sb.Events())

	var txErr *TxError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, ActionCommit, txErr.Action)
	assert.Equal(t, "shard1", txErr.Shard)
	assert.Equal(t, failure, txErr.First)
	assert.Equal(t, []ShardOutcome{
		{Shard: "shard0", Action: ActionCommit},
		{Shard: "shard1", Action: ActionCommit, Err: failure},
		{Shard: "shard2", Action: ActionRollback},
	}, txErr.Trace)
	assert.Equal(t, []string{"shard0"}, txErr.Committed())

	assert.Equal(t, vterrors.Aborted, vterrors.Code(err))
	assert.Equal(t, vterrors.PartialCommit, vterrors.ErrState(err))
	assert.True(t, errors.Is(err, failure))
	assert.Contains(t, err.Error(), "commit failed on shard shard1")
	assert.Contains(t, err.Error(), "shard0 commit: ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(st.transactions.Counter("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(st.shardActions.Counter("shard1", "commit_error")))
}

func TestTxConnCommitFirstShardFails(t *testing.T) {
	sb := newSandbox(nil)
	st := newEngineStats("test")
	txc := NewTxConn(st)
	sb.commitErr["shard0"] = errors.New("disk full")
	sb.rollbackErr["shard1"] = errors.New("gone")
	conns := []*ShardSession{sb.newConn("shard0"), sb.newConn("shard1")}

	err := txc.Commit(context.Background(), conns)
	var txErr *TxError
	require.True(t, errors.As(err, &txErr))
	assert.Empty(t, txErr.Committed())
	require.Len(t, txErr.Trace, 2)
	assert.EqualError(t, txErr.Trace[1].Err, "gone")
	assert.Equal(t, 1.0, testutil.ToFloat64(st.transactions.Counter("failed")))

	// Nothing committed, so this is not a partial commit.
	assert.Equal(t, vterrors.Aborted, vterrors.Code(err))
	assert.Equal(t, vterrors.Undefined, vterrors.ErrState(err))
}

func TestTxConnRollbackAttemptsAll(t *testing.T) {
	sb := newSandbox(nil)
	txc := NewTxConn(newEngineStats("test"))
	sb.rollbackErr["shard0"] = vterrors.Errorf(vterrors.Unavailable, "first")
	sb.rollbackErr["shard2"] = errors.New("third")
	conns := []*ShardSession{sb.newConn("shard0"), sb.newConn("shard1"), sb.newConn("shard2")}

	err := txc.Rollback(context.Background(), conns)
	assert.Equal(t, []string{"shard0 rollback", "shard1 rollback", "shard2 rollback"}, sb.Events())

	var txErr *TxError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, ActionRollback, txErr.Action)
	assert.Equal(t, "shard0", txErr.Shard)
	assert.Len(t, txErr.Trace, 3)
	assert.Equal(t, vterrors.Unavailable, vterrors.Code(err))
	assert.Equal(t, vterrors.Undefined, vterrors.ErrState(err))
}

func TestTxConnRollbackClean(t *testing.T) {
	sb := newSandbox(nil)
	txc := NewTxConn(nil)
	require.NoError(t, txc.Rollback(context.Background(), []*ShardSession{sb.newConn("shard0")}))
	require.NoError(t, txc.Commit(context.Background(), nil))
}
