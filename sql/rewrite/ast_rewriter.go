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

package rewrite

import (
	"fmt"

	"github.com/mabel-dev/opteryx-go/sql"
)

// Params is the user-supplied parameter bag: either a positional list or a
// named mapping, never both (spec.md §4.3 pass 2).
type Params struct {
	Positional []interface{}
	Named      map[string]interface{}
}

// BindTemporalRanges runs the AST Rewriter's first pass: walk the AST in
// document order and attach the head of filters to each relation-bearing
// node encountered (spec.md §4.3 pass 1). Filters not consumed because the
// AST has fewer relation nodes than filters is not an error here — the
// binder's Scan visit (§4.6) is the place a truly orphaned temporal filter
// would surface, since the rewriter itself can't know how many relations a
// subquery will eventually contribute.
func BindTemporalRanges(root *RawNode, filters []TemporalFilter) error {
	i := 0
	Walk(root, func(n *RawNode) bool {
		if i >= len(filters) {
			return true
		}
		if relationKinds[n.Kind] {
			f := filters[i]
			start := f.StartDate.Format("2006-01-02")
			end := f.EndDate.Format("2006-01-02")
			n.StartDate = &start
			n.EndDate = &end
			i++
		}
		return true
	})
	return nil
}

// BindParameters runs the AST Rewriter's second pass: replace every
// Placeholder node with a freshly built Literal node carrying the bound
// value (spec.md §4.3 pass 2). Binding happens on the parsed AST, never by
// string interpolation into the SQL text, eliminating injection vectors.
func BindParameters(root *RawNode, params Params) error {
	positional := params.Positional != nil
	named := params.Named != nil
	if positional && named {
		return sql.ErrParameter.New("parameters must be either positional or named, not both")
	}

	var replacements []*replacement
	posIndex := 0

	Walk(root, func(n *RawNode) bool {
		for i, c := range n.Children {
			if c == nil || c.Kind != "Placeholder" {
				continue
			}
			if positional {
				if posIndex >= len(params.Positional) {
					replacements = append(replacements, &replacement{err: sql.ErrParameter.New(
						fmt.Sprintf("not enough parameters supplied: expected at least %d", posIndex+1))})
					return false
				}
				replacements = append(replacements, &replacement{parent: n, index: i, value: NewLiteralNode(params.Positional[posIndex])})
				posIndex++
			} else if named {
				key, _ := c.Value.(string)
				v, ok := params.Named[key]
				if !ok {
					replacements = append(replacements, &replacement{err: sql.ErrParameter.New(
						fmt.Sprintf("no value supplied for named parameter `:%s`", key))})
					return false
				}
				replacements = append(replacements, &replacement{parent: n, index: i, value: NewLiteralNode(v)})
			} else {
				replacements = append(replacements, &replacement{err: sql.ErrParameter.New(
					"statement has placeholders but no parameters were supplied")})
				return false
			}
		}
		return true
	})

	for _, r := range replacements {
		if r.err != nil {
			return r.err
		}
		r.parent.Children[r.index] = r.value
	}

	if positional && posIndex != len(params.Positional) {
		return sql.ErrParameter.New(fmt.Sprintf(
			"too many parameters supplied: statement uses %d, %d given", posIndex, len(params.Positional)))
	}

	return nil
}

type replacement struct {
	parent *RawNode
	index  int
	value  *RawNode
	err    error
}

// jsonAccessorOps are the JSON path operators whose precedence the parser
// gets wrong relative to comparison/pattern-match/Is-predicates (spec.md §4.3
// pass 3).
var jsonAccessorOps = map[string]bool{"->": true, "->>": true, "@>": true, "@?": true}

// outerOps are the operator kinds the fix-up reshapes around: comparison
// family, pattern-matching family, and unary Is-predicates.
var outerOps = map[string]bool{
	"Eq": true, "NotEq": true, "Gt": true, "GtEq": true, "Lt": true, "LtEq": true,
	"Like": true, "ILike": true, "NotLike": true, "NotILike": true,
	"IsTrue": true, "IsFalse": true, "IsNull": true, "IsNotNull": true,
}

// FixJSONAccessorPrecedence reshapes `document -> ('element' = 'value')`
// (as the parser produces it, n = the accessor with left = document, right
// = the comparison) into `(document -> 'element') = 'value'` (spec.md §4.3
// pass 3), for every JSON accessor operator. Both operands live at
// Children[0]/Children[1] by the RawNode convention.
func FixJSONAccessorPrecedence(root *RawNode) {
	Walk(root, func(n *RawNode) bool {
		op, _ := n.Value.(string)
		if !jsonAccessorOps[op] || len(n.Children) != 2 {
			return true
		}
		document, right := n.Children[0], n.Children[1]

		innerOp, _ := right.Value.(string)
		if !outerOps[innerOp] || len(right.Children) != 2 {
			return true
		}
		innerLeft, innerRight := right.Children[0], right.Children[1]

		// rewrap: n becomes (document -> innerLeft), and the comparison's
		// left operand becomes that new accessor node.
		accessor := &RawNode{Kind: n.Kind, Value: op, Children: []*RawNode{document, innerLeft}}

		n.Kind = right.Kind
		n.Value = innerOp
		n.Children = []*RawNode{accessor, innerRight}

		return true
	})
}
