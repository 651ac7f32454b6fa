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
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/trace"
	"github.com/shardgate/shardgate/go/vt/directory"
	"github.com/shardgate/shardgate/go/vt/log"
	"github.com/shardgate/shardgate/go/vt/sqlparser"
	"github.com/shardgate/shardgate/go/vt/vterrors"
	"github.com/shardgate/shardgate/go/vt/vtgate/engine"
	"github.com/shardgate/shardgate/go/vt/vtgate/planbuilder"
)

// TxState is the transaction state of a session.
type TxState int

// The transaction states. A session goes from TxIdle to TxActive when
// its transaction starts, and back to TxIdle through TxCommitting or
// TxRollingBack.
const (
	TxIdle TxState = iota
	TxActive
	TxCommitting
	TxRollingBack
)

var txStateNames = map[TxState]string{
	TxIdle:        "IDLE",
	TxActive:      "ACTIVE",
	TxCommitting:  "COMMITTING",
	TxRollingBack: "ROLLING_BACK",
}

func (s TxState) String() string {
	if name, ok := txStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TxState(%d)", int(s))
}

type savepoint struct {
	name     string
	logIndex int
}

// Session is one logical client session. It owns the shard connections
// of its transaction: a shard connection is opened on first use, kept
// until the transaction ends and never shared with another session.
//
// Statements of a session run one at a time. Cancel may be called from
// any goroutine.
type Session struct {
	id     string
	engine *Engine

	mu           sync.Mutex
	autocommit   bool
	isolation    sql.IsolationLevel
	readOnly     bool
	queryTimeout time.Duration
	state        TxState
	conns        *shardConns
	// tracking logs the write statements of the open transaction.
	tracking   []string
	savepoints []savepoint
	closed     bool

	canceled atomic.Bool
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the transaction state.
func (s *Session) State() TxState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HeldShards returns the shards the session holds a connection to, in
// first-use order.
func (s *Session) HeldShards() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return nil
	}
	return s.conns.shards()
}

// Tracking returns the write statements logged in the open transaction.
func (s *Session) Tracking() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tracking...)
}

// SetAutocommit changes the autocommit mode. Turning autocommit on
// commits the open transaction.
func (s *Session) SetAutocommit(ctx context.Context, autocommit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if autocommit && !s.autocommit && s.state == TxActive {
		if err := s.commitLocked(ctx); err != nil {
			return err
		}
	}
	s.autocommit = autocommit
	return nil
}

// SetIsolation sets the isolation level of the next transaction.
func (s *Session) SetIsolation(level sql.IsolationLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != TxIdle {
		return vterrors.NewErrorf(vterrors.FailedPrecondition, vterrors.CantDoThisInTransaction, "cannot change the isolation level inside a transaction")
	}
	s.isolation = level
	return nil
}

// SetReadOnly marks the session read-only. Write statements of a
// read-only session fail before any shard is contacted.
func (s *Session) SetReadOnly(readOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != TxIdle {
		return vterrors.NewErrorf(vterrors.FailedPrecondition, vterrors.CantDoThisInTransaction, "cannot change the access mode inside a transaction")
	}
	s.readOnly = readOnly
	return nil
}

// SetQueryTimeout sets the statement timeout. Zero disables it.
func (s *Session) SetQueryTimeout(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryTimeout = timeout
}

// Cancel interrupts the running statement. The statement fails at its
// next checkpoint; work already sent to a shard is not interrupted.
func (s *Session) Cancel() {
	s.canceled.Store(true)
}

func (s *Session) checkOpen() error {
	if s.closed {
		return vterrors.Errorf(vterrors.FailedPrecondition, "session %s is closed", s.id)
	}
	return nil
}

func (s *Session) settings() directory.Settings {
	return directory.Settings{
		Isolation: s.isolation,
		ReadOnly:  s.readOnly,
	}
}

// Begin starts an explicit transaction. A transaction that is already
// open is committed first.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.state == TxActive {
		if err := s.commitLocked(ctx); err != nil {
			return err
		}
	}
	s.beginLocked()
	return nil
}

func (s *Session) beginLocked() {
	s.conns = newShardConns(s.engine.dir, s.settings())
	s.tracking = nil
	s.savepoints = nil
	s.state = TxActive
}

// Commit commits the open transaction on every shard it touched. A
// failure leaves the shards committed before it committed; the error is
// a *TxError listing what happened on each shard.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.commitLocked(ctx)
}

func (s *Session) commitLocked(ctx context.Context) error {
	if s.state != TxActive {
		return nil
	}
	s.state = TxCommitting
	err := s.engine.txConn.Commit(ctx, s.conns.list())
	s.endLocked()
	return err
}

// Rollback rolls back the open transaction on every shard it touched.
func (s *Session) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.rollbackLocked(ctx)
}

func (s *Session) rollbackLocked(ctx context.Context) error {
	if s.state != TxActive {
		return nil
	}
	s.state = TxRollingBack
	err := s.engine.txConn.Rollback(ctx, s.conns.list())
	s.endLocked()
	return err
}

func (s *Session) endLocked() {
	s.conns.release()
	s.conns = nil
	s.tracking = nil
	s.savepoints = nil
	s.state = TxIdle
}

// Savepoint marks the current position of the transaction log. A
// savepoint with the same name is replaced.
func (s *Session) Savepoint(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSavepointLocked(name); err != nil {
		return err
	}
	if i := s.findSavepoint(name); i >= 0 {
		s.savepoints = append(s.savepoints[:i], s.savepoints[i+1:]...)
	}
	s.savepoints = append(s.savepoints, savepoint{name: name, logIndex: len(s.tracking)})
	return nil
}

func (s *Session) checkSavepointLocked(name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.state != TxActive {
		return vterrors.Errorf(vterrors.FailedPrecondition, "savepoint %s requires an open transaction", name)
	}
	return nil
}

// RollbackToSavepoint forgets the statements logged after the savepoint.
// Statements already sent to the shards are not undone.
func (s *Session) RollbackToSavepoint(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSavepointLocked(name); err != nil {
		return err
	}
	i := s.findSavepoint(name)
	if i < 0 {
		return vterrors.Errorf(vterrors.NotFound, "savepoint %s does not exist", name)
	}
	sp := s.savepoints[i]
	s.tracking = s.tracking[:sp.logIndex]
	s.savepoints = s.savepoints[:i+1]
	return nil
}

// ReleaseSavepoint removes the savepoint and the ones set after it.
func (s *Session) ReleaseSavepoint(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkSavepointLocked(name); err != nil {
		return err
	}
	i := s.findSavepoint(name)
	if i < 0 {
		return vterrors.Errorf(vterrors.NotFound, "savepoint %s does not exist", name)
	}
	s.savepoints = s.savepoints[:i]
	return nil
}

func (s *Session) findSavepoint(name string) int {
	for i := len(s.savepoints) - 1; i >= 0; i-- {
		if s.savepoints[i].name == name {
			return i
		}
	}
	return -1
}

// Execute plans and runs one statement.
//
// With autocommit on and no open transaction, reads use autocommit
// connections that are released after the statement, and writes run in
// a transaction of their own that is committed before returning. With
// autocommit off, the first statement opens a transaction that lasts
// until Commit or Rollback.
func (s *Session) Execute(ctx context.Context, stmt sqlparser.Statement, bindVars map[string]sqltypes.Value) (*sqltypes.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.canceled.Store(false)
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	span, ctx := trace.NewSpan(ctx, "Session.Execute")
	defer span.Finish()
	span.Annotate("session", s.id)

	st := s.engine.stats
	start := time.Now()
	qr, planType, err := s.execute(ctx, stmt, bindVars)
	st.queriesByPlan.Add(planType, 1)
	st.queryTimings.Record(planType, start)
	if err != nil {
		st.errorsByCode.Add(vterrors.Code(err).String(), 1)
		span.RecordError(err)
		return nil, err
	}
	return qr, nil
}

func (s *Session) execute(ctx context.Context, stmt sqlparser.Statement, bindVars map[string]sqltypes.Value) (*sqltypes.Result, string, error) {
	isDML := sqlparser.IsDML(stmt)
	if isDML && s.readOnly {
		return nil, "Rejected", vterrors.NewErrorf(vterrors.FailedPrecondition, vterrors.ReadOnlyTransaction, "cannot execute statement in a READ ONLY transaction")
	}
	if !s.autocommit && s.state == TxIdle {
		s.beginLocked()
	}

	plan, err := s.plan(ctx, stmt, bindVars)
	if err != nil {
		return nil, "Error", err
	}
	planType := plan.Instructions.RouteType()
	log.V(2).Infof("session %s: %s -> %s", s.id, plan.Original, planType)

	if s.state == TxActive {
		vc := newVCursorImpl(s, s.conns, false)
		qr, err := engine.Execute(ctx, vc, plan.Instructions, bindVars)
		if err != nil {
			return nil, planType, err
		}
		if isDML {
			s.tracking = append(s.tracking, plan.Original)
		}
		return qr, planType, nil
	}

	if !isDML {
		settings := s.settings()
		settings.Autocommit = true
		conns := newShardConns(s.engine.dir, settings)
		defer conns.release()
		vc := newVCursorImpl(s, conns, s.engine.opts.AllowParallel)
		qr, err := engine.Execute(ctx, vc, plan.Instructions, bindVars)
		return qr, planType, err
	}

	// A write outside of a transaction commits on its own.
	conns := newShardConns(s.engine.dir, s.settings())
	defer conns.release()
	vc := newVCursorImpl(s, conns, false)
	qr, err := engine.Execute(ctx, vc, plan.Instructions, bindVars)
	if err != nil {
		if rbErr := s.engine.txConn.Rollback(ctx, conns.list()); rbErr != nil {
			log.Warningf("session %s: rollback after failed statement: %v", s.id, rbErr)
		}
		return nil, planType, err
	}
	if err := s.engine.txConn.Commit(ctx, conns.list()); err != nil {
		return nil, planType, err
	}
	return qr, planType, nil
}

func (s *Session) plan(ctx context.Context, stmt sqlparser.Statement, bindVars map[string]sqltypes.Value) (*engine.Plan, error) {
	span, ctx := trace.NewSpan(ctx, "Session.Plan")
	defer span.Finish()
	held := func(string) bool { return false }
	if s.state == TxActive {
		held = s.conns.holds
	}
	return planbuilder.Build(&planbuilder.PlanContext{
		Ctx:      ctx,
		Metadata: s.engine.cache,
		BindVars: bindVars,
		Held:     held,
	}, stmt)
}

// Explain returns the plan of a statement rendered as a tree, without
// running it.
func (s *Session) Explain(ctx context.Context, stmt sqlparser.Statement, bindVars map[string]sqltypes.Value) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	plan, err := s.plan(ctx, stmt, bindVars)
	if err != nil {
		return "", err
	}
	return engine.ToTree(plan.Instructions), nil
}

// Close rolls back the open transaction and detaches the session from
// its engine.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	err := s.rollbackLocked(ctx)
	s.closed = true
	s.mu.Unlock()
	s.engine.forget(s)
	return err
}
