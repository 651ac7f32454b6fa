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
	"errors"
	"io"

	"github.com/shardgate/shardgate/go/sqltypes"
	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// Cursor is a forward-only row iterator. A new cursor is positioned
// before the first row.
type Cursor interface {
	// Fields returns the result columns. Cursors that open their
	// sources lazily may return nil until the first call to Next.
	Fields() []*sqltypes.Field
	// Next advances to the next row and reports whether there is one.
	Next() (bool, error)
	// Get returns the current row. The row is only valid until the
	// next call to Next.
	Get() sqltypes.Row
	// SearchRow returns a copy of the current row that stays valid
	// after the cursor moves.
	SearchRow() sqltypes.Row
	// Previous is not supported by any cursor and always fails.
	Previous() (bool, error)
	// Close releases the cursor and its sources.
	Close() error
}

var errPrevious = vterrors.New(vterrors.Unimplemented, "cursor does not support moving backwards")

func copyRow(row sqltypes.Row) sqltypes.Row {
	if row == nil {
		return nil
	}
	out := make(sqltypes.Row, len(row))
	copy(out, row)
	return out
}

// rowsCursor iterates over materialized rows.
type rowsCursor struct {
	fields []*sqltypes.Field
	rows   []sqltypes.Row
	pos    int
}

func newRowsCursor(fields []*sqltypes.Field, rows []sqltypes.Row) *rowsCursor {
	return &rowsCursor{fields: fields, rows: rows, pos: -1}
}

func newEmptyCursor(fields []*sqltypes.Field) *rowsCursor {
	return newRowsCursor(fields, nil)
}

func (c *rowsCursor) Fields() []*sqltypes.Field { return c.fields }

func (c *rowsCursor) Next() (bool, error) {
	if c.pos < len(c.rows) {
		c.pos++
	}
	return c.pos < len(c.rows), nil
}

func (c *rowsCursor) Get() sqltypes.Row {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil
	}
	return c.rows[c.pos]
}

func (c *rowsCursor) SearchRow() sqltypes.Row { return copyRow(c.Get()) }

func (c *rowsCursor) Previous() (bool, error) { return false, errPrevious }

func (c *rowsCursor) Close() error {
	c.pos = len(c.rows)
	return nil
}

// streamCursor adapts the native cursor of one node.
type streamCursor struct {
	ctx     context.Context
	vcursor VCursor
	stream  sqltypes.RowStream
	row     sqltypes.Row
	done    bool
}

func newStreamCursor(ctx context.Context, vcursor VCursor, stream sqltypes.RowStream) *streamCursor {
	return &streamCursor{ctx: ctx, vcursor: vcursor, stream: stream}
}

func (c *streamCursor) Fields() []*sqltypes.Field { return c.stream.Fields() }

func (c *streamCursor) Next() (bool, error) {
	if c.done {
		return false, nil
	}
	if err := c.vcursor.CheckCancel(c.ctx); err != nil {
		c.Close()
		return false, err
	}
	row, err := c.stream.Recv()
	if errors.Is(err, io.EOF) {
		c.row = nil
		return false, c.Close()
	}
	if err != nil {
		c.Close()
		return false, err
	}
	c.row = row
	return true, nil
}

func (c *streamCursor) Get() sqltypes.Row { return c.row }

func (c *streamCursor) SearchRow() sqltypes.Row { return copyRow(c.row) }

func (c *streamCursor) Previous() (bool, error) { return false, errPrevious }

func (c *streamCursor) Close() error {
	if c.done {
		return nil
	}
	c.done = true
	return c.stream.Close()
}
