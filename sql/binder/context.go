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

// Package binder implements the Binder (spec.md §4.6): a post-order walk
// of a bound-from-the-exit-point logical plan that resolves every
// identifier, function call, and literal against the schemas visible at
// that point in the plan, attaching a *sql.Column to every expression node
// and populating each plan node's bound Schema. Grounded throughout on
// original_source/opteryx/components/binder/{binder.py,binder_visitor.py,
// binding_context.py}.
package binder

import (
	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/connector"
	"github.com/mabel-dev/opteryx-go/sql/functions"
)

// BindingContext is the Go port of original_source's BindingContext
// dataclass: the schemas visible at the current point in the plan, the
// query id, the relations already introduced (duplicate-alias detection),
// the variable store, and the catalogues the binder consults. Where the
// original relies on `copy.deepcopy` for its "each peer gets an
// independent context" discipline (spec.md §3.4), Copy here does the
// equivalent explicit clone.
type BindingContext struct {
	Schemas    map[string]*sql.RelationSchema
	QID        string
	Relations  map[string]bool
	Variables  *sql.VariableStore
	Stats      *sql.QueryStatistics
	Catalogue  *functions.Catalogue
	Connectors *connector.Factory
	// SQLContext is the *sql.Context passed to connector methods that need
	// one; a single instance is shared (and its Stats/Variables fields are
	// mutated in place) rather than cloned per node, since connectors are
	// read-only from the binder's perspective.
	SQLContext *sql.Context
}

// NewBindingContext builds the initial context a Bind call starts from: a
// single empty "$derived" schema, matching
// `BindingContext.initialize`'s `schemas={"$derived": derived.schema()}`.
func NewBindingContext(sqlCtx *sql.Context, catalogue *functions.Catalogue, connectors *connector.Factory) *BindingContext {
	return &BindingContext{
		Schemas:    map[string]*sql.RelationSchema{"$derived": sql.NewRelationSchema("$derived")},
		QID:        sqlCtx.QueryID,
		Relations:  map[string]bool{},
		Variables:  sqlCtx.Variables,
		Stats:      sqlCtx.Stats,
		Catalogue:  catalogue,
		Connectors: connectors,
		SQLContext: sqlCtx,
	}
}

// Copy deep-clones the schemas and relations set so that a node's
// siblings ("peers" in the original's terminology — the two arms of a
// Join, for instance) can each bind against an independent view without
// one's derived columns leaking into the other's.
func (c *BindingContext) Copy() *BindingContext {
	clone := &BindingContext{
		Schemas:    make(map[string]*sql.RelationSchema, len(c.Schemas)),
		QID:        c.QID,
		Relations:  make(map[string]bool, len(c.Relations)),
		Variables:  c.Variables,
		Stats:      c.Stats,
		Catalogue:  c.Catalogue,
		Connectors: c.Connectors,
		SQLContext: c.SQLContext,
	}
	for k, v := range c.Schemas {
		clone.Schemas[k] = v.Clone()
	}
	for k, v := range c.Relations {
		clone.Relations[k] = v
	}
	return clone
}

// MergeSchemas is the Go port of original_source's module-level
// merge_schemas: union several schema maps together, concatenating the
// columns of any schema name that appears in more than one map (a
// RelationSchema's "+=" in the original) rather than letting one silently
// clobber another — peers each contribute disjoint (or overlapping-but-
// identical) derived columns that all need to survive into the parent.
func MergeSchemas(maps ...map[string]*sql.RelationSchema) map[string]*sql.RelationSchema {
	merged := map[string]*sql.RelationSchema{}
	for _, m := range maps {
		for name, schema := range m {
			if existing, ok := merged[name]; ok {
				merged[name] = unionSchema(existing, schema)
			} else {
				merged[name] = schema.Clone()
			}
		}
	}
	return merged
}

func unionSchema(a, b *sql.RelationSchema) *sql.RelationSchema {
	out := a.Clone()
	seen := map[string]bool{}
	for _, c := range out.Columns {
		seen[c.Identity()] = true
	}
	for _, c := range b.Columns {
		if !seen[c.Identity()] {
			out.AddColumn(c)
			seen[c.Identity()] = true
		}
	}
	return out
}
