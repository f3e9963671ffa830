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

package sql

import errors "gopkg.in/src-d/go-errors.v1"

// Error kinds for the compilation pipeline (spec.md §7). Following the
// teacher's idiom (see auth/native.go, auth/auth.go) each kind is declared
// with errors.NewKind and instantiated at the call site with .New(...);
// callers test membership with Kind.Is / errors.Is rather than a type
// assertion, so a Kind can be wrapped (e.g. by a connector error) without
// losing its identity.
var (
	// ErrSQL is a malformed SQL the parser accepted but downstream stages
	// cannot process.
	ErrSQL = errors.NewKind("sql error: %s")

	// ErrUnsupportedSyntax is syntactically valid SQL whose semantics this
	// engine does not implement.
	ErrUnsupportedSyntax = errors.NewKind("unsupported syntax: %s")

	// ErrParameter is a mismatch between placeholders and supplied parameters.
	ErrParameter = errors.NewKind("parameter error: %s")

	// ErrColumnNotFound is an identifier that does not resolve to any
	// visible column. The suggestion (possibly empty) comes from sql/suggest.
	ErrColumnNotFound = errors.NewKind("column not found: %s%s")

	// ErrAmbiguousIdentifier is an identifier that resolves to more than one column.
	ErrAmbiguousIdentifier = errors.NewKind("ambiguous identifier: %s")

	// ErrUnexpectedDatasetReference is a qualified identifier naming a
	// relation not in scope.
	ErrUnexpectedDatasetReference = errors.NewKind("unexpected dataset reference: %s")

	// ErrAmbiguousDataset is the same alias introduced twice in one plan.
	ErrAmbiguousDataset = errors.NewKind("ambiguous dataset alias: %s")

	// ErrDatasetNotFound is raised when the storage factory cannot find the
	// named dataset.
	ErrDatasetNotFound = errors.NewKind("dataset not found: %s")

	// ErrFunctionNotFound is an unknown function name. The suggestion
	// (possibly empty) comes from sql/suggest.
	ErrFunctionNotFound = errors.NewKind("function not found: %s%s")

	// ErrIncompatibleTypes is a comparison between incompatible column types.
	ErrIncompatibleTypes = errors.NewKind("incompatible types: %s and %s")

	// ErrInvalidTemporalRangeFilter is a malformed FOR extension.
	ErrInvalidTemporalRangeFilter = errors.NewKind("invalid temporal range filter: %s")

	// ErrInvalidInternalState marks an invariant violation: a bug, never a
	// condition to recover from. Propagation policy (§7): this kind must
	// never be caught and suppressed.
	ErrInvalidInternalState = errors.NewKind("invalid internal state: %s")

	// ErrPermissions is an attempt to mutate a server-owned variable.
	ErrPermissions = errors.NewKind("permission denied: %s")

	// ErrUnnamedSubquery is an anonymous subquery in FROM.
	ErrUnnamedSubquery = errors.NewKind("subquery in FROM must have an alias")

	// ErrUnnamedColumn is an anonymous column produced by a function call
	// without an AS alias in a context that requires a name.
	ErrUnnamedColumn = errors.NewKind("column produced by %s requires an alias")
)
