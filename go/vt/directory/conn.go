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

package directory

import (
	"context"
	"database/sql"
	"io"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// Settings are the session settings a shard connection must honor.
type Settings struct {
	Isolation  sql.IsolationLevel
	ReadOnly   bool
	Autocommit bool
}

// Conn is a dedicated connection to one shard. When autocommit is off a
// native transaction is opened before the first statement and stays open
// until Commit or Rollback.
type Conn struct {
	shard    string
	driver   string
	conn     *sql.Conn
	tx       *sql.Tx
	settings Settings
}

// Shard returns the shard name.
func (c *Conn) Shard() string {
	return c.shard
}

// InTransaction returns true if a native transaction is open.
func (c *Conn) InTransaction() bool {
	return c.tx != nil
}

type execer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (c *Conn) target(ctx context.Context) (execer, error) {
	if c.conn == nil {
		return nil, vterrors.Errorf(vterrors.FailedPrecondition, "connection to shard %s is closed", c.shard)
	}
	if c.settings.Autocommit {
		return c.conn, nil
	}
	if c.tx == nil {
		opts := &sql.TxOptions{Isolation: c.settings.Isolation, ReadOnly: c.settings.ReadOnly}
		if c.driver == DriverSQLite {
			// sqlite transactions are always serializable.
			opts = nil
		}
		if err := ctx.Err(); err != nil {
			return nil, shardError(err, c.shard)
		}
		// The transaction outlives the statement that opens it.
		tx, err := c.conn.BeginTx(context.WithoutCancel(ctx), opts)
		if err != nil {
			return nil, shardError(err, c.shard)
		}
		c.tx = tx
	}
	return c.tx, nil
}

// Query runs a statement that returns rows.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (sqltypes.RowStream, error) {
	t, err := c.target(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := t.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, shardError(err, c.shard)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, shardError(err, c.shard)
	}
	fields := make([]*sqltypes.Field, len(types))
	for i, ct := range types {
		fields[i] = &sqltypes.Field{Name: ct.Name(), Type: sqltypes.TypeFromDatabaseName(ct.DatabaseTypeName())}
	}
	return &Rows{shard: c.shard, rows: rows, fields: fields}, nil
}

// Exec runs a statement that does not return rows.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (*sqltypes.Result, error) {
	t, err := c.target(ctx)
	if err != nil {
		return nil, err
	}
	res, err := t.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, shardError(err, c.shard)
	}
	qr := &sqltypes.Result{}
	if n, err := res.RowsAffected(); err == nil {
		qr.RowsAffected = uint64(n)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		qr.InsertID = uint64(id)
	}
	return qr, nil
}

// Commit commits the open transaction, if any.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return shardError(err, c.shard)
	}
	return nil
}

// Rollback rolls back the open transaction, if any.
func (c *Conn) Rollback() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return shardError(err, c.shard)
	}
	return nil
}

// Close rolls back any open transaction and releases the connection.
func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}
	rbErr := c.Rollback()
	err := c.conn.Close()
	c.conn = nil
	if rbErr != nil {
		return rbErr
	}
	return err
}

// Rows is the native cursor of one shard result.
type Rows struct {
	shard  string
	rows   *sql.Rows
	fields []*sqltypes.Field
	closed bool
}

// Fields returns the result columns.
func (r *Rows) Fields() []*sqltypes.Field {
	return r.fields
}

// Recv returns the next row, or io.EOF when the result is exhausted.
func (r *Rows) Recv() (sqltypes.Row, error) {
	if r.closed {
		return nil, io.EOF
	}
	if !r.rows.Next() {
		err := r.rows.Err()
		r.Close()
		if err != nil {
			return nil, shardError(err, r.shard)
		}
		return nil, io.EOF
	}
	dest := make([]any, len(r.fields))
	ptrs := make([]any, len(r.fields))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, shardError(err, r.shard)
	}
	row := make(sqltypes.Row, len(dest))
	for i, v := range dest {
		val, err := sqltypes.InterfaceToValue(v)
		if err != nil {
			return nil, err
		}
		row[i] = coerce(r.fields[i], val)
	}
	return row, nil
}

// Close releases the cursor.
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rows.Close()
}

// coerce applies the declared column type to textual driver values.
func coerce(f *sqltypes.Field, v sqltypes.Value) sqltypes.Value {
	if v.IsNull() || f.Type == v.Type() {
		return v
	}
	switch v.Type() {
	case sqltypes.VarBinary, sqltypes.VarChar:
		return sqltypes.MakeTrusted(f.Type, v.Raw())
	}
	return v
}
