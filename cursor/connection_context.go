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

// Package cursor is the "glue" layer (spec.md §2 component table, "Glue
// (cursor, context)"): session state, parameter ingestion, and plan
// handoff to the downstream executor. It ties together sql/rewrite (the
// SQL and AST rewriters), sql/planbuilder (the logical planner) and
// sql/binder (the binder) into the single entry point an embedding
// application calls per statement, grounded on
// original_source/opteryx/cursor.py and
// original_source/opteryx/models/connection_context.py.
package cursor

import (
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/mabel-dev/opteryx-go/sql"
)

// HistoryItem records one executed statement: the SQL text, whether it
// completed successfully, and when it started — the Go shape of the
// original's `(statement, success, execution_start)` tuple.
type HistoryItem struct {
	Statement string
	Success   bool
	StartedAt time.Time
}

// ConnectionContext holds everything shared across every Cursor opened on
// one Connection: identity, the caller's user/schema/membership claims,
// a deep-copied snapshot of the system variables store, and the running
// history of statements executed (original_source's ConnectionContext
// dataclass).
type ConnectionContext struct {
	ConnectionID string
	ConnectedAt  time.Time
	User         string
	Schema       string
	Memberships  []string
	Variables    *sql.VariableStore
	History      []HistoryItem
}

// NewConnectionContext snapshots server from server (the process-wide
// variable store, server-owned entries already Defined) into a connection-
// private clone, then seeds the read-only `user_memberships` entry the
// original's `__post_init__` computes from the caller-supplied
// memberships list.
func NewConnectionContext(server *sql.VariableStore, user, schema string, memberships []string) *ConnectionContext {
	vars := server.Clone()
	if memberships == nil {
		memberships = []string{}
	}
	vars.Define("user_memberships", memberships, sql.OwnerServer)

	return &ConnectionContext{
		ConnectionID: uuid.NewV4().String(),
		ConnectedAt:  time.Now(),
		User:         user,
		Schema:       schema,
		Memberships:  memberships,
		Variables:    vars,
	}
}

// recordHistory appends a new in-flight entry and returns its index, so the
// caller can flip Success to true once the statement completes (mirroring
// the original's append-then-rewrite-the-tuple dance in _inner_execute).
func (c *ConnectionContext) recordHistory(statement string) int {
	c.History = append(c.History, HistoryItem{Statement: statement, StartedAt: time.Now()})
	return len(c.History) - 1
}
