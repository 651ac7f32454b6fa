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
	"sort"
	"strings"
)

// Errors returned by concurrent or multi-shard operations are combined
// with Aggregate. The resulting code is the one with the highest priority.
// The order is roughly: caller errors first, then errors that require a
// retry, then server side failures.
var codePriority = map[ErrorCode]int{
	OK:                 0,
	Canceled:           13,
	Unknown:            5,
	InvalidArgument:    15,
	DeadlineExceeded:   10,
	NotFound:           12,
	AlreadyExists:      11,
	PermissionDenied:   14,
	Unauthenticated:    14,
	ResourceExhausted:  9,
	FailedPrecondition: 7,
	Aborted:            8,
	OutOfRange:         6,
	Unimplemented:      2,
	Internal:           3,
	Unavailable:        4,
	DataLoss:           1,
}

// AggregateCodes returns the highest-priority code of the given errors.
func AggregateCodes(errs []error) ErrorCode {
	highCode := OK
	for _, e := range errs {
		code := Code(e)
		if codePriority[code] > codePriority[highCode] {
			highCode = code
		}
	}
	return highCode
}

// Aggregate aggregates several errors into a single one. The resulting
// error message is the sorted concatenation of the individual messages.
func Aggregate(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	sort.Strings(msgs)
	return New(AggregateCodes(errs), strings.Join(msgs, "\n"))
}
