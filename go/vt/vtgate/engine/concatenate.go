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

	"github.com/gammazero/deque"
	"golang.org/x/sync/errgroup"

	"github.com/shardgate/shardgate/go/sqltypes"
)

// source produces the rows of one node.
type source struct {
	shard string
	open  func(ctx context.Context) (Cursor, error)
}

// concatCursor yields the rows of its sources one source after the
// other, in source order. Sources are opened lazily and closed as soon as
// they are exhausted, so at most one of them is open at any time.
type concatCursor struct {
	ctx     context.Context
	vcursor VCursor
	pending deque.Deque[source]
	current Cursor
	fields  []*sqltypes.Field
	err     error
	closed  bool
}

func newConcatCursor(ctx context.Context, vcursor VCursor, sources []source) *concatCursor {
	c := &concatCursor{ctx: ctx, vcursor: vcursor}
	for _, src := range sources {
		c.pending.PushBack(src)
	}
	return c
}

// Fields opens the first source if needed.
func (c *concatCursor) Fields() []*sqltypes.Field {
	if c.fields == nil && c.current == nil && !c.closed && c.err == nil {
		if _, err := c.advance(); err != nil {
			c.err = err
		}
	}
	return c.fields
}

func (c *concatCursor) advance() (bool, error) {
	if c.pending.Len() == 0 {
		return false, nil
	}
	src := c.pending.PopFront()
	cur, err := src.open(c.ctx)
	if err != nil {
		return false, err
	}
	c.current = cur
	if c.fields == nil {
		c.fields = cur.Fields()
	}
	return true, nil
}

func (c *concatCursor) Next() (bool, error) {
	if c.err != nil {
		err := c.err
		c.err = nil
		c.Close()
		return false, err
	}
	for !c.closed {
		if err := c.vcursor.CheckCancel(c.ctx); err != nil {
			c.Close()
			return false, err
		}
		if c.current == nil {
			ok, err := c.advance()
			if err != nil {
				c.Close()
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		ok, err := c.current.Next()
		if err != nil {
			c.Close()
			return false, err
		}
		if ok {
			return true, nil
		}
		if err := c.current.Close(); err != nil {
			c.current = nil
			c.Close()
			return false, err
		}
		c.current = nil
	}
	return false, nil
}

func (c *concatCursor) Get() sqltypes.Row {
	if c.current == nil {
		return nil
	}
	return c.current.Get()
}

func (c *concatCursor) SearchRow() sqltypes.Row { return copyRow(c.Get()) }

func (c *concatCursor) Previous() (bool, error) { return false, errPrevious }

func (c *concatCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.pending.Clear()
	if c.current != nil {
		err := c.current.Close()
		c.current = nil
		return err
	}
	return nil
}

// materializeParallel drains all sources concurrently and returns their
// results as cursors in source order. Sources on the same shard share a
// connection and run one after the other. The first error cancels the
// remaining work and is returned.
func materializeParallel(ctx context.Context, vcursor VCursor, sources []source) ([]source, error) {
	results := make([]*sqltypes.Result, len(sources))
	var shards []string
	byShard := make(map[string][]int)
	for i, src := range sources {
		if _, ok := byShard[src.shard]; !ok {
			shards = append(shards, src.shard)
		}
		byShard[src.shard] = append(byShard[src.shard], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, shard := range shards {
		indexes := byShard[shard]
		g.Go(func() error {
			for _, i := range indexes {
				cur, err := sources[i].open(gctx)
				if err != nil {
					return err
				}
				res, err := drain(gctx, vcursor, cur)
				if err != nil {
					return err
				}
				results[i] = res
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]source, len(sources))
	for i, res := range results {
		out[i] = source{
			shard: sources[i].shard,
			open: func(context.Context) (Cursor, error) {
				return newRowsCursor(res.Fields, res.Rows), nil
			},
		}
	}
	return out, nil
}
