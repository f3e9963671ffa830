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

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// ColumnKind distinguishes the four ways a column's value is produced
// (spec.md §3.1, "Relation Schema" / "Column variants").
type ColumnKind int

const (
	// ColumnFlat is backed directly by a physical column from a connector.
	ColumnFlat ColumnKind = iota
	// ColumnConstant holds a single known value (a bound literal).
	ColumnConstant
	// ColumnFunction is computed by a bound catalogue function.
	ColumnFunction
	// ColumnExpression is computed by an arbitrary expression tree.
	ColumnExpression
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnFlat:
		return "FLAT"
	case ColumnConstant:
		return "CONSTANT"
	case ColumnFunction:
		return "FUNCTION"
	case ColumnExpression:
		return "EXPRESSION"
	default:
		return "UNKNOWN"
	}
}

// ColumnStatistics is the per-column slice of Relation Statistics (§3.1):
// a lower/upper bound, null count and cardinality estimate, all encoded
// through the same 64-bit key space the pruning rules use (§4.9).
type ColumnStatistics struct {
	LowerBound  int64
	UpperBound  int64
	NullCount   int64
	Cardinality int64
	// HasBounds is false until a connector's Statistics capability
	// populates real bounds; an absent entry must never be treated as
	// [0, 0].
	HasBounds bool
}

// Column is one entry of a RelationSchema. Exactly one of the Kind-specific
// fields (ConstantValue, FunctionName/FunctionArgs, Expr) is meaningful,
// selected by Kind.
type Column struct {
	Name     string
	Aliases  []string
	Type     Type
	Nullable bool

	// Origin lists the source relation names this column belongs to. A
	// column surviving a USING join belongs to two relations at once
	// (spec.md §3.1, §4.6 Join).
	Origin []string

	// Retained marks a column that must not be dropped by projection
	// pruning even though it isn't in the SELECT list, such as a column
	// referenced only by ORDER BY (spec.md §4.5 step 6; SPEC_FULL.md §C
	// "disposition"). Nothing in this module sets or reads it.
	Retained bool

	Stats *ColumnStatistics

	Kind ColumnKind

	// ConstantValue is set when Kind == ColumnConstant.
	ConstantValue interface{}
	// FunctionName/FunctionArgs are set when Kind == ColumnFunction.
	FunctionName string
	FunctionArgs []Expression
	// Expr is set when Kind == ColumnExpression.
	Expr Expression

	// identity is lazily computed; see Identity().
	identity string
}

// Identity returns a stable hash identifying this column within a schema,
// used by the binder to detect duplicate projection identities
// (AmbiguousIdentifierError, §4.6 Project) and by the graph/optimizer
// contract (§4.10) to name the "columns" set a node references.
func (c *Column) Identity() string {
	if c.identity != "" {
		return c.identity
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", strings.Join(c.Origin, ","), c.Name, c.Kind)
	if c.Expr != nil {
		fmt.Fprint(h, "|", c.Expr.String())
	}
	c.identity = fmt.Sprintf("%x", h.Sum64())
	return c.identity
}

// QualifiedName returns "origin.name" for the first origin, or bare Name if
// the column has no origin (e.g. a $derived literal).
func (c *Column) QualifiedName() string {
	if len(c.Origin) == 0 {
		return c.Name
	}
	return c.Origin[0] + "." + c.Name
}

// MatchesSource reports whether this column could be referenced by a
// qualified identifier "source.name" — true if source is one of the
// column's origins, case-insensitively, matching the way a column that
// survived a USING join belongs to both sides at once.
func (c *Column) MatchesSource(source string) bool {
	for _, o := range c.Origin {
		if strings.EqualFold(o, source) {
			return true
		}
	}
	return false
}

// RelationSchema is a named set of columns plus its own aliases (spec.md
// §3.1). The binding context (sql/binder) maps relation name -> *RelationSchema.
type RelationSchema struct {
	Name    string
	Aliases []string
	Columns []Column
}

// NewRelationSchema constructs an empty, named schema.
func NewRelationSchema(name string) *RelationSchema {
	return &RelationSchema{Name: name}
}

// FindColumn returns the column with the given name (case-insensitive,
// checked against Name and Aliases), or nil if absent.
func (s *RelationSchema) FindColumn(name string) *Column {
	for i := range s.Columns {
		c := &s.Columns[i]
		if strings.EqualFold(c.Name, name) {
			return c
		}
		for _, a := range c.Aliases {
			if strings.EqualFold(a, name) {
				return c
			}
		}
	}
	return nil
}

// ColumnNames returns the bare names of every column, in order.
func (s *RelationSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// AddColumn appends a column to the schema. A *Column obtained earlier (for
// example from FindColumn) must not be held across an AddColumn call, since
// the backing array may be reallocated.
func (s *RelationSchema) AddColumn(c Column) {
	s.Columns = append(s.Columns, c)
}

// Clone returns a deep copy, used by the binder's copy-on-visit discipline
// (spec.md §3.4, §4.1: peer children each get an independent context).
func (s *RelationSchema) Clone() *RelationSchema {
	clone := &RelationSchema{
		Name:    s.Name,
		Aliases: append([]string(nil), s.Aliases...),
		Columns: make([]Column, len(s.Columns)),
	}
	for i, c := range s.Columns {
		cc := c
		cc.Origin = append([]string(nil), c.Origin...)
		cc.Aliases = append([]string(nil), c.Aliases...)
		if c.Stats != nil {
			statsCopy := *c.Stats
			cc.Stats = &statsCopy
		}
		clone.Columns[i] = cc
	}
	return clone
}

// SharedSchemaName builds the synthetic "$shared-<id>" schema name used by
// USING joins (spec.md §4.6 Join), recording both originating relation
// names with the "^source#" delimiter the teacher's design notes describe.
func SharedSchemaName(id string, left, right string) string {
	return fmt.Sprintf("$shared-%s[^%s#^%s#]", id, left, right)
}
