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
	"fmt"
	"strings"

	"github.com/shardgate/shardgate/go/trace"
	"github.com/shardgate/shardgate/go/vt/log"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// Shard transaction actions recorded in a TxError trace.
const (
	ActionCommit   = "commit"
	ActionRollback = "rollback"
)

// ShardOutcome is what happened to one shard connection when a
// transaction ended.
type ShardOutcome struct {
	Shard  string
	Action string
	Err    error
}

func (o ShardOutcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s %s: %v", o.Shard, o.Action, o.Err)
	}
	return fmt.Sprintf("%s %s: ok", o.Shard, o.Action)
}

// TxError reports a transaction that did not end cleanly on every shard.
// Trace lists the outcome for every held connection in the order they
// were processed. For a failed commit, shards before the failing one
// stay committed and the shards after it were rolled back.
type TxError struct {
	// Action is the operation that failed: ActionCommit or
	// ActionRollback.
	Action string
	// Shard is the first shard that failed.
	Shard string
	// First is the first failure.
	First error
	Trace []ShardOutcome
}

func (e *TxError) Error() string {
	outcomes := make([]string, len(e.Trace))
	for i, o := range e.Trace {
		outcomes[i] = o.String()
	}
	return fmt.Sprintf("%s failed on shard %s: %v [%s]", e.Action, e.Shard, e.First, strings.Join(outcomes, "; "))
}

// Unwrap returns the first failure.
func (e *TxError) Unwrap() []error {
	return []error{e.First}
}

// Committed returns the shards whose commit succeeded.
func (e *TxError) Committed() []string {
	var shards []string
	for _, o := range e.Trace {
		if o.Action == ActionCommit && o.Err == nil {
			shards = append(shards, o.Shard)
		}
	}
	return shards
}

// ErrorCode implements vterrors.Coded. A failed commit is Aborted; a
// failed rollback keeps the code of its cause.
func (e *TxError) ErrorCode() vterrors.ErrorCode {
	if e.Action == ActionCommit {
		return vterrors.Aborted
	}
	return vterrors.Code(e.First)
}

// ErrorState implements vterrors.Stated. PartialCommit is reported only
// when some shard did commit.
func (e *TxError) ErrorState() vterrors.State {
	if e.Action == ActionCommit && len(e.Committed()) > 0 {
		return vterrors.PartialCommit
	}
	return vterrors.Undefined
}

// ShardSession is a connection held by a session on one shard.
type ShardSession struct {
	Shard string
	Conn  ShardConn
}

// TxConn ends the transactions of the shard connections a session holds.
// It makes a best effort: there is no two-phase commit.
type TxConn struct {
	stats *engineStats
}

// NewTxConn builds a new TxConn.
func NewTxConn(st *engineStats) *TxConn {
	return &TxConn{stats: st}
}

// Commit commits conns in order. After the first failure the remaining
// connections are rolled back instead. The error is a *TxError.
func (txc *TxConn) Commit(ctx context.Context, conns []*ShardSession) error {
	span, _ := trace.NewSpan(ctx, "TxConn.Commit")
	defer span.Finish()
	span.Annotate("shards", len(conns))

	var txErr *TxError
	outcomes := make([]ShardOutcome, 0, len(conns))
	for _, ss := range conns {
		if txErr == nil {
			err := ss.Conn.Commit()
			txc.record(ss.Shard, ActionCommit, err)
			outcomes = append(outcomes, ShardOutcome{Shard: ss.Shard, Action: ActionCommit, Err: err})
			if err != nil {
				txErr = &TxError{Action: ActionCommit, Shard: ss.Shard, First: err}
			}
			continue
		}
		err := ss.Conn.Rollback()
		txc.record(ss.Shard, ActionRollback, err)
		if err != nil {
			log.Warningf("rollback of shard %s after failed commit on %s: %v", ss.Shard, txErr.Shard, err)
		}
		outcomes = append(outcomes, ShardOutcome{Shard: ss.Shard, Action: ActionRollback, Err: err})
	}
	if txErr == nil {
		txc.count("committed")
		return nil
	}
	txErr.Trace = outcomes
	if len(txErr.Committed()) > 0 {
		txc.count("partial")
	} else {
		txc.count("failed")
	}
	log.Errorf("%v", txErr)
	span.RecordError(txErr)
	return txErr
}

// Rollback rolls back every connection, even after a failure. The error,
// if any, is a *TxError naming the first failure.
func (txc *TxConn) Rollback(ctx context.Context, conns []*ShardSession) error {
	span, _ := trace.NewSpan(ctx, "TxConn.Rollback")
	defer span.Finish()
	span.Annotate("shards", len(conns))

	var txErr *TxError
	outcomes := make([]ShardOutcome, 0, len(conns))
	for _, ss := range conns {
		err := ss.Conn.Rollback()
		txc.record(ss.Shard, ActionRollback, err)
		outcomes = append(outcomes, ShardOutcome{Shard: ss.Shard, Action: ActionRollback, Err: err})
		if err != nil && txErr == nil {
			txErr = &TxError{Action: ActionRollback, Shard: ss.Shard, First: err}
		}
	}
	if txErr == nil {
		txc.count("rolled_back")
		return nil
	}
	txErr.Trace = outcomes
	txc.count("rollback_failed")
	span.RecordError(txErr)
	return txErr
}

func (txc *TxConn) record(shard, action string, err error) {
	if txc.stats == nil {
		return
	}
	if err != nil {
		action += "_error"
	}
	txc.stats.shardActions.Add([]string{shard, action}, 1)
}

func (txc *TxConn) count(result string) {
	if txc.stats != nil {
		txc.stats.transactions.Add(result, 1)
	}
}
