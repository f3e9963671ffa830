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

// Package graph implements the generic directed-graph primitive spec.md
// §4.1 describes: string-keyed nodes carrying an arbitrary payload, edges
// carrying an optional role label ("left"/"right" for joins), post-order
// traversal, and node removal that can optionally heal (reconnect the
// removed node's inputs to its outputs). No non-test implementation of this survived in the
// teacher's retrieval pack (sql/plan etc. kept tests only), so this is built
// directly from the spec, following the REDESIGN FLAGS guidance to prefer
// small integer-friendly string handles over random ids.
package graph

import "sort"

// Edge is one directed connection between two node ids, optionally tagged
// with a role (e.g. "left"/"right" for a join's two inputs).
type Edge struct {
	Source string
	Target string
	Role   string
}

// Graph is a directed graph over string-identified nodes with an arbitrary
// payload per node.
type Graph struct {
	nodes map[string]interface{}
	// order preserves insertion order so traversal and debug output are
	// deterministic despite the underlying maps.
	order []string
	out   map[string][]Edge
	in    map[string][]Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: map[string]interface{}{},
		out:   map[string][]Edge{},
		in:    map[string][]Edge{},
	}
}

// AddNode registers a node, or replaces its payload if the id already exists.
func (g *Graph) AddNode(id string, payload interface{}) {
	if _, exists := g.nodes[id]; !exists {
		g.order = append(g.order, id)
	}
	g.nodes[id] = payload
}

// Node returns a node's payload and whether it exists.
func (g *Graph) Node(id string) (interface{}, bool) {
	v, ok := g.nodes[id]
	return v, ok
}

// AddEdge connects source -> target, optionally tagged with a role.
func (g *Graph) AddEdge(source, target, role string) {
	e := Edge{Source: source, Target: target, Role: role}
	g.out[source] = append(g.out[source], e)
	g.in[target] = append(g.in[target], e)
}

// OutgoingEdges returns every edge leaving id, as (source, target, role) triples.
func (g *Graph) OutgoingEdges(id string) []Edge {
	return g.out[id]
}

// IngoingEdges returns every edge entering id.
func (g *Graph) IngoingEdges(id string) []Edge {
	return g.in[id]
}

// NodeIDs returns every node id in insertion order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// GetEntryPoints returns nodes with no incoming edges (sources).
func (g *Graph) GetEntryPoints() []string {
	var out []string
	for _, id := range g.order {
		if len(g.in[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// GetExitPoints returns nodes with no outgoing edges (sinks).
func (g *Graph) GetExitPoints() []string {
	var out []string
	for _, id := range g.order {
		if len(g.out[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// RemoveNode deletes a node. If heal is true, every in-edge is reconnected
// to every out-edge, Cartesian-style, preserving each edge's role from the
// in-edge side (the edge "closer" to the new downstream consumer keeps the
// role it originally carried into the removed node's parent).
func (g *Graph) RemoveNode(id string, heal bool) {
	ins := g.in[id]
	outs := g.out[id]

	if heal {
		for _, i := range ins {
			for _, o := range outs {
				g.AddEdge(i.Source, o.Target, i.Role)
			}
		}
	}

	for _, i := range ins {
		g.out[i.Source] = removeEdge(g.out[i.Source], i.Source, id)
	}
	for _, o := range outs {
		g.in[o.Target] = removeEdge(g.in[o.Target], id, o.Target)
	}

	delete(g.nodes, id)
	delete(g.in, id)
	delete(g.out, id)
	for i, n := range g.order {
		if n == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

func removeEdge(edges []Edge, source, target string) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.Source == source && e.Target == target {
			continue
		}
		out = append(out, e)
	}
	return out
}

// InsertNodeBefore rewires every edge entering existingID so that it enters
// newID instead, then connects newID -> existingID. The new node is spliced
// directly upstream of the existing one.
func (g *Graph) InsertNodeBefore(newID string, payload interface{}, existingID string) {
	g.AddNode(newID, payload)
	ins := g.in[existingID]
	g.in[existingID] = nil
	for _, e := range ins {
		g.out[e.Source] = removeEdge(g.out[e.Source], e.Source, existingID)
		g.AddEdge(e.Source, newID, e.Role)
	}
	g.AddEdge(newID, existingID, "")
}

// InsertNodeAfter rewires every edge leaving existingID so that it leaves
// newID instead, then connects existingID -> newID.
func (g *Graph) InsertNodeAfter(newID string, payload interface{}, existingID string) {
	g.AddNode(newID, payload)
	outs := g.out[existingID]
	g.out[existingID] = nil
	for _, e := range outs {
		g.in[e.Target] = removeEdge(g.in[e.Target], existingID, e.Target)
		g.AddEdge(newID, e.Target, e.Role)
	}
	g.AddEdge(existingID, newID, "")
}

// IsAcyclic iteratively strips exit nodes (sinks); the graph is cyclic iff
// any node remains once no more sinks can be stripped.
func (g *Graph) IsAcyclic() bool {
	remaining := map[string]int{}
	for _, id := range g.order {
		remaining[id] = len(g.out[id])
	}
	// out-edges pointing at a not-yet-removed node block removal; track
	// in-degree-from-remaining via a live copy of out-edges instead.
	outCopy := map[string][]string{}
	for _, id := range g.order {
		for _, e := range g.out[id] {
			outCopy[id] = append(outCopy[id], e.Target)
		}
	}

	alive := map[string]bool{}
	for _, id := range g.order {
		alive[id] = true
	}

	changed := true
	for changed {
		changed = false
		for _, id := range g.order {
			if !alive[id] {
				continue
			}
			isSink := true
			for _, t := range outCopy[id] {
				if alive[t] {
					isSink = false
					break
				}
			}
			if isSink {
				alive[id] = false
				changed = true
			}
		}
	}

	for _, id := range g.order {
		if alive[id] {
			return false
		}
	}
	return true
}

// PostOrder returns every node reachable upstream from root (an exit point)
// in post-order: every ancestor (dependency) visited before the node that
// depends on it, ending with root itself (spec.md §4.1, §4.6 — the binder
// walks a plan from its unique exit point down to its scans, resolving each
// node only after everything it reads from has already been resolved).
// Peer ancestors are visited in a deterministic order: ascending source id,
// with edges from the same source kept in the order they were added.
func (g *Graph) PostOrder(root string) []string {
	visited := map[string]bool{}
	var order []string
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		parents := append([]Edge(nil), g.in[id]...)
		sort.SliceStable(parents, func(i, j int) bool { return parents[i].Source < parents[j].Source })
		for _, e := range parents {
			visit(e.Source)
		}
		order = append(order, id)
	}
	visit(root)
	return order
}

// Merge is the disjoint-union operator (+=, spec.md §4.1): node and edge
// maps are merged. Node ids are assumed already disjoint (callers assign
// unique node handles); a colliding id's payload is overwritten by other's.
func (g *Graph) Merge(other *Graph) {
	for _, id := range other.order {
		g.AddNode(id, other.nodes[id])
	}
	for _, id := range other.order {
		for _, e := range other.out[id] {
			g.AddEdge(e.Source, e.Target, e.Role)
		}
	}
	// Edges whose source is not one of other's own nodes are merged too, in
	// source-id order so the result stays deterministic.
	var dangling []string
	for id := range other.out {
		if _, ok := other.nodes[id]; !ok {
			dangling = append(dangling, id)
		}
	}
	sort.Strings(dangling)
	for _, id := range dangling {
		for _, e := range other.out[id] {
			g.AddEdge(e.Source, e.Target, e.Role)
		}
	}
}

// Size returns the number of nodes.
func (g *Graph) Size() int {
	return len(g.nodes)
}
