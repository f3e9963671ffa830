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

package cursor

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	uuid "github.com/satori/go.uuid"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/binder"
	"github.com/mabel-dev/opteryx-go/sql/connector"
	"github.com/mabel-dev/opteryx-go/sql/functions"
	"github.com/mabel-dev/opteryx-go/sql/plan"
	"github.com/mabel-dev/opteryx-go/sql/planbuilder"
	"github.com/mabel-dev/opteryx-go/sql/rewrite"
)

// State is the Cursor's lifecycle state (original_source's CursorState
// enum): a Cursor starts Initialized, becomes Executed once Execute
// succeeds, and is Closed once Close is called. Every other method that
// requires a particular state (Execute requires Initialized; Close
// requires Executed) raises ErrInvalidInternalState otherwise, the Go
// equivalent of the original's @require_state decorator.
type State int

const (
	Initialized State = iota
	Executed
	Closed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "Initialized"
	case Executed:
		return "Executed"
	case Closed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CompiledStatement is the end artifact of the compilation pipeline for one
// SQL statement (spec.md §1): an executable, schema-bound logical plan,
// paired with the binding context its Exit node was bound against (whose
// `$derived` schema is the statement's output column list). Handing this
// pair to the external heuristic optimizer and physical executor (spec.md
// §4.10, §1 Non-goals) is the last step this module is responsible for.
type CompiledStatement struct {
	Plan    *plan.Plan
	Binding *binder.BindingContext
}

// Connection holds everything shared by every Cursor opened against it:
// session identity and variables (ConnectionContext), the catalogues and
// connector factory statements compile against, and the Parser callback
// supplying the external parser (spec.md §6.2).
type Connection struct {
	Context    *ConnectionContext
	Catalogue  *functions.Catalogue
	Connectors *connector.Factory
	Parser     Parser
	log        *logrus.Entry
}

// NewConnection opens a connection: server is the process-wide variable
// store (already populated with server-owned defaults), cloned into a
// connection-private snapshot. logger is the process-wide logrus.Logger
// audit trails are written to (nil uses logrus.StandardLogger()) — the
// same "wrap with a system field, log one structured entry per query"
// shape as original_source's query-journal logging, ported here via the
// teacher's auth.AuditLog (which wraps a *logrus.Logger the identical way
// for authentication/authorization/query events).
func NewConnection(parser Parser, catalogue *functions.Catalogue, connectors *connector.Factory, server *sql.VariableStore, user, schema string, memberships []string, logger *logrus.Logger) *Connection {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx := NewConnectionContext(server, user, schema, memberships)
	return &Connection{
		Context:    ctx,
		Catalogue:  catalogue,
		Connectors: connectors,
		Parser:     parser,
		log:        logger.WithField("system", "cursor").WithField("connection_id", ctx.ConnectionID),
	}
}

// Cursor opens a new Cursor against this Connection (analogous to a DB-API
// connection.cursor() call).
func (c *Connection) Cursor() *Cursor {
	return &Cursor{conn: c, id: uuid.NewV4().String(), state: Initialized}
}

// Cursor compiles one Execute call's worth of SQL text into one or more
// CompiledStatement values, threading the connection's variable snapshot
// and history through every statement it touches. Grounded on
// original_source/opteryx/cursor.py's Cursor class; the Go port drops the
// orso.DataFrame row-fetching surface (out of scope per spec.md §1 — the
// physical executor owns row materialization) and keeps the state machine,
// statement-batching contract, and parameter-binding rules.
type Cursor struct {
	conn  *Connection
	id    string
	state State

	results    []*CompiledStatement
	statistics *sql.QueryStatistics
}

// ID returns this cursor's unique internal query reference.
func (c *Cursor) ID() string { return c.id }

// State reports the cursor's current lifecycle state.
func (c *Cursor) State() State { return c.state }

// Results returns the compiled statements from the most recent successful
// Execute call, one per statement in the batch, in order.
func (c *Cursor) Results() []*CompiledStatement { return c.results }

// Statistics returns the query statistics (blobs pruned, etc — spec.md
// §4.8) accumulated by the most recently compiled statement.
func (c *Cursor) Statistics() *sql.QueryStatistics { return c.statistics }

// Execute compiles operation — one statement, or several separated by `;`
// — against params, running every statement through the full pipeline:
// SQL rewrite, AST rewrite (temporal + parameter binding + JSON-accessor
// fix-up), logical planning, and binding. Only a Cursor in the Initialized
// state may Execute; it transitions to Executed only once every statement
// in the batch compiles successfully, mirroring the original's
// @transition_to(EXECUTED) only firing past a successful return.
func (c *Cursor) Execute(operation string, params rewrite.Params) ([]*CompiledStatement, error) {
	if c.state != Initialized {
		return nil, sql.ErrInvalidInternalState.New(fmt.Sprintf("cursor must be in Initialized state to execute, got %s", c.state))
	}
	if operation == "" {
		return nil, sql.ErrSQL.New("SQL provided was empty")
	}

	start := time.Now()
	results, err := c.compile(operation, params)
	duration := time.Since(start)

	fields := logrus.Fields{
		"user":     c.conn.Context.User,
		"query":    operation,
		"duration": duration,
		"success":  err == nil,
	}
	if err != nil {
		fields["err"] = err
	}
	c.conn.log.WithFields(fields).Info("query compiled")

	if err != nil {
		return nil, err
	}

	c.results = results
	c.state = Executed
	return results, nil
}

// compile implements spec.md §4.3's three AST-rewriter passes plus planning
// and binding, once per statement in the batch (spec.md §6.4).
func (c *Cursor) compile(operation string, params rewrite.Params) ([]*CompiledStatement, error) {
	noComments := rewrite.RemoveComments(operation)
	cleaned := rewrite.CleanStatement(noComments)
	statements := rewrite.SplitStatements(cleaned)
	if len(statements) == 0 {
		return nil, sql.ErrSQL.New("no statement found")
	}

	if len(statements) > 1 && len(params.Positional) > 0 {
		return nil, sql.ErrParameter.New(
			"batched queries cannot be parameterized with parameter lists, use named parameters")
	}

	planner := planbuilder.NewPlanner(planbuilder.New(c.conn.Catalogue))

	var out []*CompiledStatement
	for _, stmtText := range statements {
		histIdx := c.conn.Context.recordHistory(stmtText)

		finalText, temporal, err := rewrite.ExtractTemporalFilters(stmtText)
		if err != nil {
			return nil, err
		}

		asts, err := c.conn.Parser(finalText)
		if err != nil {
			return nil, err
		}
		if len(asts) == 0 {
			return nil, sql.ErrSQL.New(
				"statement had no executable part, this may mean it was commented out")
		}

		sqlCtx := sql.NewContext(nil, c.conn.Context.Variables)
		sqlCtx.QueryID = c.id

		for _, stmt := range asts {
			if err := rewrite.BindTemporalRanges(stmt, temporal); err != nil {
				return nil, err
			}
			if err := rewrite.BindParameters(stmt, params); err != nil {
				return nil, err
			}
			rewrite.FixJSONAccessorPrecedence(stmt)

			pl, err := planner.PlanStatement(stmt)
			if err != nil {
				return nil, err
			}

			root := binder.NewBindingContext(sqlCtx, c.conn.Catalogue, c.conn.Connectors)
			bound, err := binder.New().Bind(pl, root)
			if err != nil {
				return nil, err
			}

			out = append(out, &CompiledStatement{Plan: pl, Binding: bound})
		}

		c.conn.Context.History[histIdx].Success = true
		c.statistics = sqlCtx.Stats
	}

	return out, nil
}

// Close releases the cursor. Only a cursor that has executed may be
// closed, matching the original's @require_state(EXECUTED) on close().
func (c *Cursor) Close() error {
	if c.state != Executed {
		return sql.ErrInvalidInternalState.New(fmt.Sprintf("cursor must be in Executed state to close, got %s", c.state))
	}
	c.state = Closed
	return nil
}
