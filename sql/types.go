// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sql holds the core data model shared across the compilation
// pipeline: the closed SQL type system (§3.2), rows and relation schemas
// (§3.1), the error-kind taxonomy (§7), and the per-connection session
// state (§5). Everything downstream — expression, plan, binder, stats —
// imports this package, mirroring the teacher's root `sql` package that
// every other `sql/...` package depends on.
package sql

import "fmt"

// Type is the closed set of SQL types a bound column or literal may carry
// (spec.md §3.2). There is no open extension point: adding a type is a
// change to this file, not a plugin.
type Type int

const (
	// Missing is the pre-binding sentinel (_MISSING_TYPE in spec.md §3.2):
	// every expression starts out with this type and it is replaced during
	// binding by the operator-return-type table.
	Missing Type = iota
	Null
	Boolean
	Integer
	Double
	Decimal
	Varchar
	Blob
	Date
	Time
	Timestamp
	Interval
	Array
	Struct
)

func (t Type) String() string {
	switch t {
	case Missing:
		return "_MISSING_TYPE"
	case Null:
		return "NULL"
	case Boolean:
		return "BOOLEAN"
	case Integer:
		return "INTEGER"
	case Double:
		return "DOUBLE"
	case Decimal:
		return "DECIMAL"
	case Varchar:
		return "VARCHAR"
	case Blob:
		return "BLOB"
	case Date:
		return "DATE"
	case Time:
		return "TIME"
	case Timestamp:
		return "TIMESTAMP"
	case Interval:
		return "INTERVAL"
	case Array:
		return "ARRAY"
	case Struct:
		return "STRUCT"
	default:
		return fmt.Sprintf("UNKNOWN_TYPE(%d)", int(t))
	}
}

// Category groups types for the "relaxed" comparison rule used by the
// binder's IncompatibleTypesError check (§4.6): two operands compare
// cleanly if they share an exact type, if either is Null, or if both fall
// in the same category.
type Category int

const (
	CategoryNone Category = iota
	CategoryNumeric
	CategoryTemporal
	CategoryLargeObject
)

// CategoryOf reports which relaxed-comparison category a type belongs to.
func CategoryOf(t Type) Category {
	switch t {
	case Integer, Double, Decimal:
		return CategoryNumeric
	case Date, Time, Timestamp:
		return CategoryTemporal
	case Varchar, Blob:
		return CategoryLargeObject
	default:
		return CategoryNone
	}
}

// Comparable reports whether two types may appear on either side of a
// comparison operator without an IncompatibleTypesError: identical types,
// either side Null or Missing (not yet bound), or both in the same non-None
// category.
func Comparable(a, b Type) bool {
	if a == b || a == Null || b == Null || a == Missing || b == Missing {
		return true
	}
	ca, cb := CategoryOf(a), CategoryOf(b)
	return ca != CategoryNone && ca == cb
}

// DecimalType carries the precision/scale pair for a Decimal(precision, scale)
// column, since Type alone is too coarse once a column is Decimal.
type DecimalType struct {
	Precision int
	Scale     int
}

// IntervalValue is a (months, seconds) pair, the representation spec.md §4.4
// assigns to INTERVAL literals.
type IntervalValue struct {
	Months  int64
	Seconds int64
}

// IsNumeric, IsTemporal, IsLargeObject are convenience predicates used by
// the binder's type-inference table and by the statistics pruning rules
// (§4.8, which exclude temporal types from pruning).
func IsNumeric(t Type) bool     { return CategoryOf(t) == CategoryNumeric }
func IsTemporal(t Type) bool    { return CategoryOf(t) == CategoryTemporal }
func IsLargeObject(t Type) bool { return CategoryOf(t) == CategoryLargeObject }
