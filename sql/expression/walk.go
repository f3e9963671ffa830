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

package expression

// Visitor is called once per node during a Walk; returning false stops the
// walk from descending into that node's children (but sibling subtrees
// still get visited).
type Visitor func(n *Node) bool

// Walk visits n and every descendant in pre-order (parent before children).
func Walk(n *Node, visit Visitor) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, visit)
	}
}

// WalkPostOrder visits every descendant before n itself, matching the
// traversal discipline the binder's inner_binder uses when it resolves an
// expression tree bottom-up (spec.md §4.6).
func WalkPostOrder(n *Node, visit func(n *Node)) {
	if n == nil {
		return
	}
	for _, c := range n.Children() {
		WalkPostOrder(c, visit)
	}
	visit(n)
}

// Identifiers collects every Identifier node reachable from n, used by the
// binder to compute a plan node's referenced-columns set (the "columns"
// attribute the optimizer contract in §4.10 requires) and by the planner's
// pure-aggregate projection check (planbuilder's checkPureAggregateColumns).
func Identifiers(n *Node) []*Node {
	var out []*Node
	Walk(n, func(node *Node) bool {
		if node.Kind == Identifier {
			out = append(out, node)
		}
		return true
	})
	return out
}

// ContainsAggregator reports whether n or any descendant is an Aggregator
// node, used by the planner to decide between an Aggregate/AggregateAndGroup
// node and a plain Project (spec.md §4.5 step 5).
func ContainsAggregator(n *Node) bool {
	found := false
	Walk(n, func(node *Node) bool {
		if node.Kind == Aggregator {
			found = true
			return false
		}
		return !found
	})
	return found
}
