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

// Package sqltypes implements the value, row and result types that flow
// between shards and callers.
package sqltypes

import "fmt"

// Type is the SQL type of a Value.
type Type int

// All the supported types.
const (
	Null Type = iota
	Int64
	Uint64
	Float64
	Decimal
	VarChar
	VarBinary
	Text
	Blob
	Date
	Time
	Datetime
)

var typeNames = map[Type]string{
	Null:      "NULL",
	Int64:     "INT64",
	Uint64:    "UINT64",
	Float64:   "FLOAT64",
	Decimal:   "DECIMAL",
	VarChar:   "VARCHAR",
	VarBinary: "VARBINARY",
	Text:      "TEXT",
	Blob:      "BLOB",
	Date:      "DATE",
	Time:      "TIME",
	Datetime:  "DATETIME",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// IsSigned returns true if the type is a signed integral.
func IsSigned(t Type) bool { return t == Int64 }

// IsUnsigned returns true if the type is an unsigned integral.
func IsUnsigned(t Type) bool { return t == Uint64 }

// IsIntegral returns true if the type is integral.
func IsIntegral(t Type) bool { return t == Int64 || t == Uint64 }

// IsFloat returns true if the type is a floating point or decimal.
func IsFloat(t Type) bool { return t == Float64 || t == Decimal }

// IsNumber returns true if the type is any numeric type.
func IsNumber(t Type) bool { return IsIntegral(t) || IsFloat(t) }

// IsQuoted returns true if values of the type must be quoted in SQL.
func IsQuoted(t Type) bool {
	switch t {
	case VarChar, VarBinary, Text, Blob, Date, Time, Datetime:
		return true
	}
	return false
}

// TypeFromDatabaseName maps a database/sql column type name, as returned
// by sql.ColumnType.DatabaseTypeName, to a Type.
func TypeFromDatabaseName(name string) Type {
	switch name {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		return Int64
	case "UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED INT", "UNSIGNED BIGINT":
		return Uint64
	case "FLOAT", "DOUBLE", "REAL":
		return Float64
	case "DECIMAL", "NUMERIC":
		return Decimal
	case "CHAR", "VARCHAR", "ENUM", "SET", "JSON":
		return VarChar
	case "BINARY", "VARBINARY":
		return VarBinary
	case "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "CLOB":
		return Text
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB":
		return Blob
	case "DATE":
		return Date
	case "TIME":
		return Time
	case "DATETIME", "TIMESTAMP":
		return Datetime
	case "":
		return VarBinary
	}
	return VarChar
}
