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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/connector"
	"github.com/mabel-dev/opteryx-go/sql/functions"
	"github.com/mabel-dev/opteryx-go/sql/rewrite"
)

// Since the SQL lexer/parser is an external collaborator (spec.md §1), the
// tests here stand in a fixed Parser that ignores the rewritten SQL text
// and returns a pre-built statement AST instead — exercising everything
// this package is actually responsible for (splitting, temporal/parameter
// binding, planning, binding) without needing a real grammar.
func fixedParser(stmt *rewrite.RawNode) Parser {
	return func(string) ([]*rewrite.RawNode, error) {
		return []*rewrite.RawNode{stmt}, nil
	}
}

func exprList(items ...*rewrite.RawNode) *rewrite.RawNode {
	return &rewrite.RawNode{Kind: "ExpressionList", Children: items}
}

func selectStarQuery() *rewrite.RawNode {
	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})
	return &rewrite.RawNode{Kind: "Query", Children: []*rewrite.RawNode{
		from, nil, nil, nil, selectList, nil, nil, nil, nil,
	}}
}

func newTestConnection(parser Parser) *Connection {
	return NewConnection(parser, functions.Builtin(), connector.DefaultFactory(), sql.NewVariableStore(), "tester", "", nil, nil)
}

func TestExecuteCompilesSelectStarAndTransitionsToExecuted(t *testing.T) {
	require := require.New(t)

	conn := newTestConnection(fixedParser(selectStarQuery()))
	cur := conn.Cursor()
	require.Equal(Initialized, cur.State())

	results, err := cur.Execute("SELECT * FROM $planets", rewrite.Params{})
	require.NoError(err)
	require.Len(results, 1)
	require.Equal(Executed, cur.State())

	exit := results[0].Plan.Node(results[0].Plan.ExitPoint())
	require.NotNil(exit.Schema)
	require.Len(exit.Schema.Columns, 6)

	require.Len(conn.Context.History, 1)
	require.True(conn.Context.History[0].Success)
}

func TestExecuteRejectsReentryFromNonInitializedState(t *testing.T) {
	require := require.New(t)

	conn := newTestConnection(fixedParser(selectStarQuery()))
	cur := conn.Cursor()
	_, err := cur.Execute("SELECT * FROM $planets", rewrite.Params{})
	require.NoError(err)

	_, err = cur.Execute("SELECT * FROM $planets", rewrite.Params{})
	require.Error(err)
}

func TestCloseRequiresExecutedState(t *testing.T) {
	require := require.New(t)

	conn := newTestConnection(fixedParser(selectStarQuery()))
	cur := conn.Cursor()

	err := cur.Close()
	require.Error(err, "closing before Execute must fail")

	_, err = cur.Execute("SELECT * FROM $planets", rewrite.Params{})
	require.NoError(err)

	require.NoError(cur.Close())
	require.Equal(Closed, cur.State())
}

func TestExecuteBindsPositionalParameter(t *testing.T) {
	require := require.New(t)

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	selectList := exprList(&rewrite.RawNode{Kind: "Identifier", Value: "name"})
	where := &rewrite.RawNode{Kind: "BinaryOp", Value: "Eq", Children: []*rewrite.RawNode{
		{Kind: "Identifier", Value: "name"},
		{Kind: "Placeholder", Value: 1},
	}}
	stmt := &rewrite.RawNode{Kind: "Query", Children: []*rewrite.RawNode{
		from, where, nil, nil, selectList, nil, nil, nil, nil,
	}}

	conn := newTestConnection(fixedParser(stmt))
	cur := conn.Cursor()

	results, err := cur.Execute("SELECT name FROM $planets WHERE name = ?", rewrite.Params{Positional: []interface{}{"Earth"}})
	require.NoError(err)
	require.Len(results, 1)
}

func TestExecuteRejectsPositionalParametersOnBatchedQuery(t *testing.T) {
	require := require.New(t)

	conn := newTestConnection(fixedParser(selectStarQuery()))
	cur := conn.Cursor()

	_, err := cur.Execute("SELECT * FROM $planets; SELECT * FROM $planets",
		rewrite.Params{Positional: []interface{}{1}})
	require.Error(err)
	require.Contains(err.Error(), "batched")
}

func TestExecuteAllowsNamedParametersOnBatchedQuery(t *testing.T) {
	require := require.New(t)

	conn := newTestConnection(fixedParser(selectStarQuery()))
	cur := conn.Cursor()

	results, err := cur.Execute("SELECT * FROM $planets; SELECT * FROM $planets",
		rewrite.Params{Named: map[string]interface{}{"unused": 1}})
	require.NoError(err)
	require.Len(results, 2, "each split statement compiles independently")
}

func TestExecuteRejectsEmptyOperation(t *testing.T) {
	require := require.New(t)
	conn := newTestConnection(fixedParser(selectStarQuery()))
	cur := conn.Cursor()

	_, err := cur.Execute("", rewrite.Params{})
	require.Error(err)
}

func TestExecuteRejectsMixedPositionalAndNamedParameters(t *testing.T) {
	require := require.New(t)

	from := &rewrite.RawNode{Kind: "Table", Value: "$planets"}
	selectList := exprList(&rewrite.RawNode{Kind: "Wildcard"})
	stmt := &rewrite.RawNode{Kind: "Query", Children: []*rewrite.RawNode{
		from, nil, nil, nil, selectList, nil, nil, nil, nil,
	}}

	conn := newTestConnection(fixedParser(stmt))
	cur := conn.Cursor()

	_, err := cur.Execute("SELECT * FROM $planets", rewrite.Params{
		Positional: []interface{}{1}, Named: map[string]interface{}{"a": 1},
	})
	require.Error(err)
}

func TestNewConnectionContextSeedsUserMembershipsVariable(t *testing.T) {
	require := require.New(t)

	server := sql.NewVariableStore()
	ctx := NewConnectionContext(server, "alice", "analytics", []string{"admins"})

	v, ok := ctx.Variables.Get("user_memberships")
	require.True(ok)
	require.Equal([]string{"admins"}, v)
}

func TestSetVariableStatementCompilesToSingleNodePlan(t *testing.T) {
	require := require.New(t)

	stmt := &rewrite.RawNode{Kind: "SetVariable", Value: "my_setting", Children: []*rewrite.RawNode{
		{Kind: "Literal", Value: int64(5)},
	}}

	conn := newTestConnection(fixedParser(stmt))
	cur := conn.Cursor()

	results, err := cur.Execute("SET my_setting TO 5", rewrite.Params{})
	require.NoError(err)
	require.Len(results, 1)
	require.Equal(results[0].Plan.ExitPoint(), results[0].Plan.PostOrder()[0].ID)
}
