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

package sqltypes

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// NULL represents the NULL value.
var NULL = Value{}

// Value can store any SQL value. If the value represents an integral type,
// the bytes are always stored as a canonical representation that matches
// how MySQL returns such values.
type Value struct {
	typ Type
	val []byte
}

// MakeTrusted makes a new Value based on the type. No validation is done.
func MakeTrusted(typ Type, val []byte) Value {
	if typ == Null {
		return NULL
	}
	return Value{typ: typ, val: val}
}

// NewValue builds a Value using typ and val, validating numeric input.
func NewValue(typ Type, val []byte) (Value, error) {
	switch {
	case IsSigned(typ):
		if _, err := strconv.ParseInt(string(val), 10, 64); err != nil {
			return NULL, vterrors.Errorf(vterrors.InvalidArgument, "invalid INT64 value %q", val)
		}
	case IsUnsigned(typ):
		if _, err := strconv.ParseUint(string(val), 10, 64); err != nil {
			return NULL, vterrors.Errorf(vterrors.InvalidArgument, "invalid UINT64 value %q", val)
		}
	case IsFloat(typ):
		if _, err := strconv.ParseFloat(string(val), 64); err != nil {
			return NULL, vterrors.Errorf(vterrors.InvalidArgument, "invalid %v value %q", typ, val)
		}
	}
	return MakeTrusted(typ, val), nil
}

// NewInt64 builds an Int64 Value.
func NewInt64(v int64) Value {
	return MakeTrusted(Int64, strconv.AppendInt(nil, v, 10))
}

// NewUint64 builds an Uint64 Value.
func NewUint64(v uint64) Value {
	return MakeTrusted(Uint64, strconv.AppendUint(nil, v, 10))
}

// NewFloat64 builds a Float64 Value.
func NewFloat64(v float64) Value {
	return MakeTrusted(Float64, strconv.AppendFloat(nil, v, 'g', -1, 64))
}

// NewVarChar builds a VarChar Value.
func NewVarChar(v string) Value {
	return MakeTrusted(VarChar, []byte(v))
}

// NewVarBinary builds a VarBinary Value.
func NewVarBinary(v string) Value {
	return MakeTrusted(VarBinary, []byte(v))
}

// InterfaceToValue builds a value from a Go value as produced by a
// database/sql driver when scanning into *any.
func InterfaceToValue(goval any) (Value, error) {
	switch goval := goval.(type) {
	case nil:
		return NULL, nil
	case []byte:
		return MakeTrusted(VarBinary, append([]byte(nil), goval...)), nil
	case string:
		return NewVarChar(goval), nil
	case int:
		return NewInt64(int64(goval)), nil
	case int32:
		return NewInt64(int64(goval)), nil
	case int64:
		return NewInt64(goval), nil
	case uint64:
		return NewUint64(goval), nil
	case float32:
		return NewFloat64(float64(goval)), nil
	case float64:
		return NewFloat64(goval), nil
	case bool:
		if goval {
			return NewInt64(1), nil
		}
		return NewInt64(0), nil
	case time.Time:
		return MakeTrusted(Datetime, []byte(goval.Format("2006-01-02 15:04:05.999999"))), nil
	case Value:
		return goval, nil
	default:
		return NULL, vterrors.Errorf(vterrors.InvalidArgument, "unexpected type %T: %v", goval, goval)
	}
}

// Type returns the type of Value.
func (v Value) Type() Type { return v.typ }

// Raw returns the internal representation of the value.
func (v Value) Raw() []byte { return v.val }

// Len returns the length of the raw value.
func (v Value) Len() int { return len(v.val) }

// IsNull returns true if Value is null.
func (v Value) IsNull() bool { return v.typ == Null }

// IsIntegral returns true if Value is an integral.
func (v Value) IsIntegral() bool { return IsIntegral(v.typ) }

// IsQuoted returns true if Value must be SQL-quoted.
func (v Value) IsQuoted() bool { return IsQuoted(v.typ) }

// ToString returns the value as a string. NULL returns "".
func (v Value) ToString() string { return string(v.val) }

// ToInt64 returns the value as an int64, parsing textual values.
func (v Value) ToInt64() (int64, error) {
	if v.IsNull() {
		return 0, vterrors.New(vterrors.InvalidArgument, "cannot convert NULL to int64")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(v.val)), 10, 64)
	if err != nil {
		return 0, vterrors.Errorf(vterrors.InvalidArgument, "cannot convert %v to int64", v)
	}
	return n, nil
}

// ToUint64 returns the value as an uint64, parsing textual values.
func (v Value) ToUint64() (uint64, error) {
	if v.IsNull() {
		return 0, vterrors.New(vterrors.InvalidArgument, "cannot convert NULL to uint64")
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(v.val)), 10, 64)
	if err != nil {
		return 0, vterrors.Errorf(vterrors.InvalidArgument, "cannot convert %v to uint64", v)
	}
	return n, nil
}

// ToFloat64 returns the value as a float64, parsing textual values.
func (v Value) ToFloat64() (float64, error) {
	if v.IsNull() {
		return 0, vterrors.New(vterrors.InvalidArgument, "cannot convert NULL to float64")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(v.val)), 64)
	if err != nil {
		return 0, vterrors.Errorf(vterrors.InvalidArgument, "cannot convert %v to float64", v)
	}
	return f, nil
}

// ToNative converts the value to the Go type expected by database/sql
// drivers when passed as a statement argument.
func (v Value) ToNative() any {
	switch {
	case v.typ == Null:
		return nil
	case IsSigned(v.typ):
		n, _ := strconv.ParseInt(string(v.val), 10, 64)
		return n
	case IsUnsigned(v.typ):
		n, _ := strconv.ParseUint(string(v.val), 10, 64)
		return n
	case v.typ == Float64:
		f, _ := strconv.ParseFloat(string(v.val), 64)
		return f
	case v.typ == VarBinary || v.typ == Blob:
		return v.val
	}
	return string(v.val)
}

// EncodeSQL encodes the value into an SQL statement.
func (v Value) EncodeSQL(b *strings.Builder) {
	switch {
	case v.typ == Null:
		b.WriteString("null")
	case v.IsQuoted():
		b.WriteByte('\'')
		for _, ch := range v.val {
			switch ch {
			case '\'':
				b.WriteString("''")
			case '\\':
				b.WriteString("\\\\")
			case 0:
				b.WriteString("\\0")
			default:
				b.WriteByte(ch)
			}
		}
		b.WriteByte('\'')
	default:
		b.Write(v.val)
	}
}

// String returns a printable version of the value.
func (v Value) String() string {
	if v.typ == Null {
		return "NULL"
	}
	if v.IsQuoted() {
		return fmt.Sprintf("%v(%q)", v.typ, v.val)
	}
	return fmt.Sprintf("%v(%s)", v.typ, v.val)
}

// Equal compares type and raw bytes.
func (v Value) Equal(other Value) bool {
	return v.typ == other.typ && bytes.Equal(v.val, other.val)
}
