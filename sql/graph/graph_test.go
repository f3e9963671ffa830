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

package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func linear(g *Graph) {
	g.AddNode("scan", "Scan")
	g.AddNode("filter", "Filter")
	g.AddNode("project", "Project")
	g.AddNode("exit", "Exit")
	g.AddEdge("scan", "filter", "")
	g.AddEdge("filter", "project", "")
	g.AddEdge("project", "exit", "")
}

func TestEntryAndExitPoints(t *testing.T) {
	require := require.New(t)
	g := New()
	linear(g)

	require.Equal([]string{"scan"}, g.GetEntryPoints())
	require.Equal([]string{"exit"}, g.GetExitPoints())
	require.True(g.IsAcyclic())
}

func TestPostOrderVisitsChildrenFirst(t *testing.T) {
	require := require.New(t)
	g := New()
	linear(g)

	order := g.PostOrder("exit")
	require.Equal([]string{"scan", "filter", "project", "exit"}, order)
}

func TestJoinEdgesCarryRole(t *testing.T) {
	require := require.New(t)
	g := New()
	g.AddNode("left_scan", "Scan")
	g.AddNode("right_scan", "Scan")
	g.AddNode("join", "Join")
	g.AddNode("exit", "Exit")
	g.AddEdge("left_scan", "join", "left")
	g.AddEdge("right_scan", "join", "right")
	g.AddEdge("join", "exit", "")

	ins := g.IngoingEdges("join")
	require.Len(ins, 2)
	roles := map[string]string{}
	for _, e := range ins {
		roles[e.Source] = e.Role
	}
	require.Equal("left", roles["left_scan"])
	require.Equal("right", roles["right_scan"])
	require.True(g.IsAcyclic())
}

func TestRemoveNodeWithHealReconnectsCartesian(t *testing.T) {
	require := require.New(t)
	g := New()
	linear(g)

	g.RemoveNode("filter", true)

	require.Equal([]string{"scan"}, g.GetEntryPoints())
	require.Equal([]string{"exit"}, g.GetExitPoints())

	out := g.OutgoingEdges("scan")
	require.Len(out, 1)
	require.Equal("project", out[0].Target)
}

func TestRemoveNodeWithoutHealLeavesDangling(t *testing.T) {
	require := require.New(t)
	g := New()
	linear(g)

	g.RemoveNode("filter", false)

	require.Empty(g.OutgoingEdges("scan"))
	require.Empty(g.IngoingEdges("project"))
}

func TestInsertNodeBeforeAndAfter(t *testing.T) {
	require := require.New(t)
	g := New()
	g.AddNode("scan", "Scan")
	g.AddNode("exit", "Exit")
	g.AddEdge("scan", "exit", "")

	g.InsertNodeBefore("filter", "Filter", "exit")
	require.Equal([]string{"scan"}, g.GetEntryPoints())
	order := g.PostOrder("exit")
	require.Equal([]string{"scan", "filter", "exit"}, order)

	g.InsertNodeAfter("project", "Project", "scan")
	order = g.PostOrder("exit")
	require.Equal([]string{"scan", "project", "filter", "exit"}, order)
}

func TestIsAcyclicDetectsCycle(t *testing.T) {
	require := require.New(t)
	g := New()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddEdge("a", "b", "")
	g.AddEdge("b", "a", "")

	require.False(g.IsAcyclic())
}

func TestMergeIsDisjointUnion(t *testing.T) {
	require := require.New(t)
	g1 := New()
	g1.AddNode("a", nil)
	g2 := New()
	g2.AddNode("b", nil)
	g2.AddEdge("a", "b", "")

	g1.Merge(g2)
	require.Equal(2, g1.Size())
	require.Equal([]string{"b"}, g1.GetExitPoints())
}
