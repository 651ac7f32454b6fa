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

// State is error state. It refines an ErrorCode with the MySQL-level condition
// the error represents.
type State int

// All the error states
const (
	Undefined State = iota

	// invalid argument
	BadFieldError
	BadTableError
	NonUniqError
	NonUniqTable
	DupFieldName
	WrongValueCountOnRow
	WrongNumberOfColumnsInSelect

	// failed precondition
	CantDoThisInTransaction
	ReadOnlyTransaction
	ScanLevelViolation

	// not found
	NoSuchTable
	UnknownShard

	// aborted
	PartialCommit

	// canceled
	QueryInterrupted

	// unavailable
	ShardUnavailable

	// No state should be added below NumOfStates
	NumOfStates
)

var stateNames = [NumOfStates]string{
	Undefined:                    "Undefined",
	BadFieldError:                "BadFieldError",
	BadTableError:                "BadTableError",
	NonUniqError:                 "NonUniqError",
	NonUniqTable:                 "NonUniqTable",
	DupFieldName:                 "DupFieldName",
	WrongValueCountOnRow:         "WrongValueCountOnRow",
	WrongNumberOfColumnsInSelect: "WrongNumberOfColumnsInSelect",
	CantDoThisInTransaction:      "CantDoThisInTransaction",
	ReadOnlyTransaction:          "ReadOnlyTransaction",
	ScanLevelViolation:           "ScanLevelViolation",
	NoSuchTable:                  "NoSuchTable",
	UnknownShard:                 "UnknownShard",
	PartialCommit:                "PartialCommit",
	QueryInterrupted:             "QueryInterrupted",
	ShardUnavailable:             "ShardUnavailable",
}

func (s State) String() string {
	if s < 0 || s >= NumOfStates {
		return "Undefined"
	}
	return stateNames[s]
}
