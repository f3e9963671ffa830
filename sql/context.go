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
	stdcontext "context"

	uuid "github.com/satori/go.uuid"
)

// Context carries everything one query compilation needs beyond the plan
// itself: cancellation (embedding stdlib context.Context, since compilation
// is pure CPU and cancellation is by abandoning the result per §5), the
// query id, the connection's variable snapshot, and accumulated query
// statistics (blobs pruned, etc — §4.8). It plays the role the teacher's
// sql.Context plays for the executor, narrowed to what the compiler needs.
type Context struct {
	stdcontext.Context

	QueryID   string
	Variables *VariableStore
	Stats     *QueryStatistics
}

// QueryStatistics accumulates counters produced during compilation, most
// notably the count of blobs eliminated by predicate pruning (§4.8).
type QueryStatistics struct {
	BlobsEvaluated int64
	BlobsPruned    int64
}

// NewContext creates a Context with a freshly minted query id (satori/uuid,
// SPEC_FULL.md §A.4) and a clone of the given variable store.
func NewContext(parent stdcontext.Context, vars *VariableStore) *Context {
	if parent == nil {
		parent = stdcontext.Background()
	}
	if vars == nil {
		vars = NewVariableStore()
	}
	return &Context{
		Context:   parent,
		QueryID:   uuid.NewV4().String(),
		Variables: vars.Clone(),
		Stats:     &QueryStatistics{},
	}
}

// NewEmptyContext mirrors the teacher's sql.NewEmptyContext() convenience
// constructor, used throughout tests where cancellation and variables don't
// matter.
func NewEmptyContext() *Context {
	return NewContext(stdcontext.Background(), NewVariableStore())
}
