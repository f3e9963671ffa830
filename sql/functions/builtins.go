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

package functions

import "github.com/mabel-dev/opteryx-go/sql"

// Builtin returns a catalogue pre-populated with the scalar, aggregate, and
// constant functions the logical-planner builders (sql/planbuilder) and the
// binder (sql/binder) need to resolve a representative SELECT statement
// without a connector-supplied extension catalogue. Names and modes are
// grounded on original_source/opteryx/functions/catalogue.py and its sibling
// aggregate_functions.py/date_functions.py/string_functions.py modules;
// Fn bodies are left nil since evaluation is the external executor's job
// (spec.md §1) — the catalogue only needs Mode/ReturnType/arity for the
// planner and binder to do their work.
func Builtin() *Catalogue {
	c := New()

	scalar := func(name string, ret sql.Type, params ...Parameter) {
		c.Register(Spec{Name: name, Mode: Scalar, ReturnType: ret, Parameters: params, Cost: 1})
	}
	aggregate := func(name string, ret sql.Type, cost float64) {
		c.Register(Spec{Name: name, Mode: Aggregate, ReturnType: ret, Cost: cost})
	}
	constant := func(name string, ret sql.Type) {
		c.Register(Spec{Name: name, Mode: Constant, ReturnType: ret, Cost: 0.1})
	}

	// Aggregates (spec.md §4.4 "Function" rule dispatches these to
	// Aggregator nodes; the cost argument is stored as Spec.Cost).
	aggregate("COUNT", sql.Integer, 2)
	aggregate("SUM", sql.Double, 2)
	aggregate("MIN", sql.Double, 2)
	aggregate("MAX", sql.Double, 2)
	aggregate("AVG", sql.Double, 3)
	aggregate("ARRAY_AGG", sql.Array, 4)
	c.Register(Spec{Name: "ARRAY_AGG_DISTINCT", Mode: Alias, AliasOf: "ARRAY_AGG"})
	aggregate("LIST", sql.Array, 4)
	aggregate("FIRST", sql.Missing, 2)
	aggregate("LAST", sql.Missing, 2)
	aggregate("VARIANCE", sql.Double, 5)
	aggregate("STDDEV", sql.Double, 5)
	aggregate("APPROXIMATE_MEDIAN", sql.Double, 6)
	aggregate("COUNT_DISTINCT", sql.Integer, 3)

	// Constants (zero-argument, evaluated once per statement rather than
	// per row).
	constant("PI", sql.Double)
	constant("NOW", sql.Timestamp)
	constant("CURRENT_DATE", sql.Date)
	constant("CURRENT_TIME", sql.Time)
	constant("VERSION", sql.Varchar)
	constant("RANDOM", sql.Double)

	// String functions.
	scalar("UPPER", sql.Varchar, Parameter{Name: "value", Type: sql.Varchar})
	scalar("LOWER", sql.Varchar, Parameter{Name: "value", Type: sql.Varchar})
	scalar("LENGTH", sql.Integer, Parameter{Name: "value", Type: sql.Varchar})
	scalar("TRIM", sql.Varchar, Parameter{Name: "value", Type: sql.Varchar})
	scalar("LTRIM", sql.Varchar, Parameter{Name: "value", Type: sql.Varchar})
	scalar("RTRIM", sql.Varchar, Parameter{Name: "value", Type: sql.Varchar})
	scalar("SUBSTRING", sql.Varchar,
		Parameter{Name: "value", Type: sql.Varchar},
		Parameter{Name: "from", Type: sql.Integer},
		Parameter{Name: "length", Type: sql.Integer})
	scalar("CONCAT", sql.Varchar, Parameter{Name: "values", Type: sql.Varchar})
	scalar("POSITION", sql.Integer,
		Parameter{Name: "needle", Type: sql.Varchar}, Parameter{Name: "haystack", Type: sql.Varchar})

	// Numeric functions.
	scalar("ROUND", sql.Double, Parameter{Name: "value", Type: sql.Double})
	scalar("CEIL", sql.Integer, Parameter{Name: "value", Type: sql.Double})
	scalar("FLOOR", sql.Integer, Parameter{Name: "value", Type: sql.Double})
	scalar("ABS", sql.Double, Parameter{Name: "value", Type: sql.Double})
	scalar("POWER", sql.Double, Parameter{Name: "base", Type: sql.Double}, Parameter{Name: "exponent", Type: sql.Double})
	scalar("SQRT", sql.Double, Parameter{Name: "value", Type: sql.Double})

	// Date/time functions (spec.md §4.4 EXTRACT -> DATEPART rewrite lands here).
	scalar("DATEPART", sql.Integer, Parameter{Name: "part", Type: sql.Varchar}, Parameter{Name: "value", Type: sql.Timestamp})
	scalar("DATE_TRUNC", sql.Timestamp, Parameter{Name: "part", Type: sql.Varchar}, Parameter{Name: "value", Type: sql.Timestamp})
	scalar("DATEDIFF", sql.Integer,
		Parameter{Name: "part", Type: sql.Varchar}, Parameter{Name: "start", Type: sql.Timestamp}, Parameter{Name: "end", Type: sql.Timestamp})

	// Conditional/null-handling functions.
	scalar("COALESCE", sql.Missing, Parameter{Name: "values", Type: sql.Missing})
	scalar("IFNULL", sql.Missing, Parameter{Name: "value", Type: sql.Missing}, Parameter{Name: "default", Type: sql.Missing})
	scalar("NULLIF", sql.Missing, Parameter{Name: "a", Type: sql.Missing}, Parameter{Name: "b", Type: sql.Missing})
	scalar("CASE", sql.Missing)

	// Cast family — the logical-planner builder (§4.4 Cast/TryCast/SafeCast)
	// synthesizes a call to a function named after the target type, so
	// every closed sql.Type except Missing, Null and Struct gets a scalar
	// entry; with no STRUCT entry, CAST to STRUCT is unsupported syntax.
	for _, t := range []sql.Type{
		sql.Boolean, sql.Integer, sql.Double, sql.Decimal, sql.Varchar,
		sql.Blob, sql.Date, sql.Time, sql.Timestamp, sql.Interval, sql.Array,
	} {
		scalar(t.String(), t, Parameter{Name: "value", Type: sql.Missing})
		scalar("TRY_"+t.String(), t, Parameter{Name: "value", Type: sql.Missing})
	}

	// JSON / nested-structure accessors (spec.md §4.4 MapAccess -> GET).
	scalar("GET", sql.Missing, Parameter{Name: "container", Type: sql.Missing}, Parameter{Name: "key", Type: sql.Missing})
	scalar("SEARCH", sql.Boolean, Parameter{Name: "haystack", Type: sql.Missing}, Parameter{Name: "needle", Type: sql.Missing})

	return c
}
