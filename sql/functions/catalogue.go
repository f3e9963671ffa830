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

// Package functions implements the function catalogue (spec.md §4.7):
// a name -> {function, mode, return_type, parameters} registry the logical
// planner's expression builders consult to classify a called name as a
// scalar function, an aggregator, a constant, or an alias of another
// catalogue entry, with a fuzzy-suggestion fallback for unknown names.
// Grounded on original_source/opteryx/functions/catalogue.py (the
// _FunctionCatalogue class: a flat list of (name, spec) pairs, mode enum,
// cost hint, suggest()) and on the teacher's sql/functionregistry_test.go
// (sql.Function1{Name, Fn}, catalog.Register/catalog.Function) for the
// Go-idiomatic registry shape — a struct-per-entry registered into a map
// rather than the Python decorator-based collection.
package functions

import (
	"strings"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/suggest"
)

// Mode is the FunctionMode enum from the catalogue (spec.md §4.7).
type Mode int

const (
	Scalar Mode = iota
	Aggregate
	Constant
	Alias
)

// Parameter documents one formal parameter, for introspection (SHOW
// FUNCTIONS-style tooling) — not enforced positionally since the builder
// layer (§4.4) only checks arity, not per-argument types, before binding.
type Parameter struct {
	Name string
	Type sql.Type
}

// Fn is a scalar/aggregate function's evaluator. Signature kept minimal
// (row-list in, value out) since execution itself is external to this
// module (spec.md §1: the physical executor is out of scope) — the
// catalogue only needs enough shape to let the binder validate arity and
// return type.
type Fn func(ctx *sql.Context, args []interface{}) (interface{}, error)

// Spec is one catalogue entry.
type Spec struct {
	Name       string
	Mode       Mode
	ReturnType sql.Type
	Parameters []Parameter
	// Cost is a relative evaluation-cost hint for the (external) optimizer
	// (SPEC_FULL.md §C, original_source's Function.cost). Nothing in this
	// package reads it; Suggest does not consult it.
	Cost    float64
	Fn      Fn
	AliasOf string
}

// Catalogue is the function registry, keyed case-insensitively by name.
type Catalogue struct {
	entries map[string]Spec
	names   []string
}

// New returns an empty catalogue.
func New() *Catalogue {
	return &Catalogue{entries: map[string]Spec{}}
}

// Register adds or replaces a catalogue entry.
func (c *Catalogue) Register(spec Spec) {
	key := strings.ToUpper(spec.Name)
	if _, exists := c.entries[key]; !exists {
		c.names = append(c.names, key)
	}
	c.entries[key] = spec
}

// Get resolves a name, following a single level of Alias indirection (an
// alias whose target is itself an alias is a registration error, not
// resolved transitively).
func (c *Catalogue) Get(name string) (Spec, bool) {
	spec, ok := c.entries[strings.ToUpper(name)]
	if !ok {
		return Spec{}, false
	}
	if spec.Mode == Alias {
		target, ok := c.entries[strings.ToUpper(spec.AliasOf)]
		if !ok {
			return Spec{}, false
		}
		return target, true
	}
	return spec, true
}

// IsAggregate reports whether name resolves to an Aggregate-mode entry —
// the check the logical-planner builder (§4.4 "Function" rule) uses to tag
// a call node Aggregator instead of Function.
func (c *Catalogue) IsAggregate(name string) bool {
	spec, ok := c.Get(name)
	return ok && spec.Mode == Aggregate
}

// Names returns every registered name (aliases included), for suggestion
// search and introspection.
func (c *Catalogue) Names() []string {
	return append([]string(nil), c.names...)
}

// suggestThreshold caps how many edits away a name may be and still count
// as a suggestion — suggest.FindSimilarName always returns the single
// closest name with no cutoff, which is wrong here: an unrelated name is
// not a helpful "maybe you mean" hint.
func suggestThreshold(name string) int {
	t := len(name) / 2
	if t < 1 {
		t = 1
	}
	return t
}

// Suggest returns the closest registered name to an unrecognized call,
// trying a fuzzy (typo) match first and then, per
// original_source/opteryx/functions/catalogue.py's `suggest`, every
// underscore-separated permutation of the name's parts — catching the
// "arguments in the wrong order" class of mistake a pure edit-distance
// search misses (e.g. `AGG_ARRAY` -> `ARRAY_AGG`).
func (c *Catalogue) Suggest(name string) string {
	if len(c.names) == 0 {
		return ""
	}
	try := func(candidate string) string {
		hit := suggest.FindSimilarName(c.names, candidate)
		if hit != "" && suggest.Levenshtein(hit, candidate) <= suggestThreshold(candidate) {
			return hit
		}
		return ""
	}

	if hit := try(strings.ToUpper(name)); hit != "" {
		return hit
	}
	parts := strings.Split(strings.ToUpper(name), "_")
	if len(parts) < 2 {
		return ""
	}
	for _, perm := range permutations(parts) {
		if hit := try(strings.Join(perm, "_")); hit != "" {
			return hit
		}
	}
	return ""
}

// permutations returns every ordering of parts (small N only — function
// names rarely have more than 3-4 underscore-separated segments).
func permutations(parts []string) [][]string {
	if len(parts) <= 1 {
		return [][]string{append([]string(nil), parts...)}
	}
	var out [][]string
	for i := range parts {
		rest := make([]string, 0, len(parts)-1)
		rest = append(rest, parts[:i]...)
		rest = append(rest, parts[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{parts[i]}, p...))
		}
	}
	return out
}
