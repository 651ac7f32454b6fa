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

// Package vterrors provides errors that carry an ErrorCode and a State.
//
// Errors created by New, Errorf and NewErrorf record a stack trace that is
// printed with the %+v verb. Wrap and Wrapf keep the code of the wrapped
// error. Errors that did not originate here report Unknown, except for
// context cancellation and deadline errors, which map to Canceled and
// DeadlineExceeded.
package vterrors

import (
	"context"
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
)

type vtError struct {
	code  ErrorCode
	state State
	msg   string
	stack pkgerrors.StackTrace
}

// New returns an error with the supplied message and code.
func New(code ErrorCode, message string) error {
	return &vtError{code: code, msg: message, stack: callers()}
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error.
func Errorf(code ErrorCode, format string, args ...any) error {
	return &vtError{code: code, msg: fmt.Sprintf(format, args...), stack: callers()}
}

// NewErrorf formats according to a format specifier and returns an error
// that carries both a code and a state.
func NewErrorf(code ErrorCode, state State, format string, args ...any) error {
	return &vtError{code: code, state: state, msg: fmt.Sprintf(format, args...), stack: callers()}
}

func (e *vtError) Error() string { return e.msg }

func (e *vtError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = io.WriteString(s, e.msg)
			e.stack.Format(s, verb)
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, e.msg)
	case 'q':
		fmt.Fprintf(s, "%q", e.msg)
	}
}

type wrapping struct {
	cause error
	code  ErrorCode
	msg   string
	stack pkgerrors.StackTrace
}

// Wrap returns an error annotating err with message. If err is nil, Wrap
// returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrapping{cause: err, msg: message, stack: callers()}
}

// Wrapf returns an error annotating err with the format specifier. If err
// is nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapping{cause: err, msg: fmt.Sprintf(format, args...), stack: callers()}
}

// WrapWithCode is like Wrapf but also assigns code to the result. The
// code of err itself is ignored.
func WrapWithCode(err error, code ErrorCode, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapping{cause: err, code: code, msg: fmt.Sprintf(format, args...), stack: callers()}
}

func (w *wrapping) Error() string { return w.msg + ": " + w.cause.Error() }
func (w *wrapping) Unwrap() error { return w.cause }

func (w *wrapping) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%+v\n", w.cause)
		_, _ = io.WriteString(s, w.msg)
		w.stack.Format(s, verb)
		return
	}
	_, _ = io.WriteString(s, w.Error())
}

// Coded is implemented by error types outside this package that carry
// their own ErrorCode.
type Coded interface {
	ErrorCode() ErrorCode
}

// Code returns the error code if it's a vtError, Coded or a context error.
// Otherwise it returns Unknown.
func Code(err error) ErrorCode {
	if err == nil {
		return OK
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch e := e.(type) {
		case *vtError:
			return e.code
		case *wrapping:
			if e.code != OK {
				return e.code
			}
		}
	}
	var coded Coded
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return DeadlineExceeded
	}
	return Unknown
}

// Stated is implemented by error types outside this package that carry
// their own State.
type Stated interface {
	ErrorState() State
}

// ErrState returns the error state if it's a vtError or Stated, Undefined
// otherwise.
func ErrState(err error) State {
	var stated Stated
	if errors.As(err, &stated) {
		if state := stated.ErrorState(); state != Undefined {
			return state
		}
	}
	var vte *vtError
	if errors.As(err, &vte) {
		return vte.state
	}
	return Undefined
}

// RootCause returns the innermost error in a chain of wrapped errors.
func RootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func callers() pkgerrors.StackTrace {
	// pkg/errors does not expose its frame capture directly; extract it
	// from a throwaway error created at the caller's frame.
	type stackTracer interface {
		StackTrace() pkgerrors.StackTrace
	}
	st := pkgerrors.New("").(stackTracer).StackTrace()
	if len(st) > 2 {
		return st[2:]
	}
	return st
}
