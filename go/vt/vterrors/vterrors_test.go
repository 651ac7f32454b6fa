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

package vterrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "no error"))
	assert.Nil(t, Wrapf(nil, "no error %d", 1))
}

func TestWrapKeepsCode(t *testing.T) {
	tests := []struct {
		err         error
		message     string
		wantMessage string
		wantCode    ErrorCode
	}{
		{io.EOF, "read error", "read error: EOF", Unknown},
		{New(AlreadyExists, "oops"), "client error", "client error: oops", AlreadyExists},
		{context.Canceled, "shard0", "shard0: context canceled", Canceled},
	}
	for _, tt := range tests {
		got := Wrap(tt.err, tt.message)
		assert.Equal(t, tt.wantMessage, got.Error())
		assert.Equal(t, tt.wantCode, Code(got))
	}
}

func TestWrapWithCode(t *testing.T) {
	err := WrapWithCode(io.ErrUnexpectedEOF, Unavailable, "shard %s", "s1")
	assert.Equal(t, "shard s1: unexpected EOF", err.Error())
	assert.Equal(t, Unavailable, Code(err))
	assert.Equal(t, Unavailable, Code(Wrap(err, "outer")))
	assert.Nil(t, WrapWithCode(nil, Internal, "x"))
}

func TestCode(t *testing.T) {
	assert.Equal(t, OK, Code(nil))
	assert.Equal(t, Unknown, Code(errors.New("generic")))
	assert.Equal(t, DeadlineExceeded, Code(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	assert.Equal(t, NotFound, Code(Errorf(NotFound, "table %s not found", "t1")))
}

func TestNewErrorfState(t *testing.T) {
	err := NewErrorf(NotFound, NoSuchTable, "table %s not found", "orders")
	assert.Equal(t, "table orders not found", err.Error())
	assert.Equal(t, NoSuchTable, ErrState(err))
	assert.Equal(t, NoSuchTable, ErrState(Wrap(err, "plan")))
	assert.Equal(t, Undefined, ErrState(io.EOF))
}

func TestRootCause(t *testing.T) {
	inner := New(FailedPrecondition, "inner")
	assert.Equal(t, inner, RootCause(Wrapf(Wrap(inner, "middle"), "outer %d", 1)))
	assert.Equal(t, io.EOF, RootCause(io.EOF))
}

func TestStackFormat(t *testing.T) {
	err := Wrap(New(Internal, "boom"), "outer")
	withStack := fmt.Sprintf("%+v", err)
	assert.Contains(t, withStack, "TestStackFormat")
	assert.NotContains(t, fmt.Sprintf("%v", err), "TestStackFormat")
}

func TestAggregate(t *testing.T) {
	require.NoError(t, Aggregate(nil))

	single := New(Unavailable, "shard1 down")
	assert.Equal(t, single, Aggregate([]error{single}))

	err := Aggregate([]error{
		New(Unavailable, "b"),
		New(InvalidArgument, "a"),
		errors.New("c"),
	})
	assert.Equal(t, InvalidArgument, Code(err))
	assert.Equal(t, "a\nb\nc", err.Error())
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "ABORTED", Aborted.String())
	assert.Equal(t, "Code(99)", Code(99).String())
	assert.Equal(t, "PartialCommit", PartialCommit.String())
}

type outcomeError struct{ cause error }

func (e *outcomeError) Error() string { return "partial: " + e.cause.Error() }
func (e *outcomeError) Unwrap() []error { return []error{e.cause} }
func (e *outcomeError) ErrorCode() ErrorCode { return Aborted }
func (e *outcomeError) ErrorState() State { return PartialCommit }

func TestCodedAndStated(t *testing.T) {
	err := &outcomeError{cause: NewErrorf(Unavailable, ShardUnavailable, "shard1 down")}
	assert.Equal(t, Aborted, Code(err))
	assert.Equal(t, PartialCommit, ErrState(err))
	assert.Equal(t, PartialCommit, ErrState(Wrap(err, "commit")))
}
