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
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// MySQL error numbers that indicate a transient condition.
const (
	erConCount        = 1040
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
	crServerGone      = 2006
	crServerLost      = 2013
)

// IsTransient returns true if err is worth retrying on a fresh
// connection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case erConCount, erLockWaitTimeout, erLockDeadlock, crServerGone, crServerLost:
			return true
		}
		return false
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// shardError annotates a driver error with the shard it came from. Errors
// that are not caused by the caller's context are reported as Unavailable.
func shardError(err error, shard string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return vterrors.Wrapf(err, "shard %s", shard)
	}
	return vterrors.WrapWithCode(err, vterrors.Unavailable, "shard %s", shard)
}
