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

import (
	"fmt"
	"strings"
)

// String renders the expression for EXPLAIN output, error messages, and
// column-identity hashing (sql.Column.Identity). It is not a SQL parser
// round-trip — only a stable, readable rendering.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	s := n.render()
	if n.Alias != "" {
		return s + " AS " + n.Alias
	}
	return s
}

func (n *Node) render() string {
	switch n.Kind {
	case Identifier:
		name := fmt.Sprint(n.Value)
		if n.Qualifier != "" {
			return n.Qualifier + "." + name
		}
		return name
	case Literal:
		return formatLiteral(n.Value)
	case Function, Aggregator:
		args := make([]string, len(n.Parameters))
		for i, p := range n.Parameters {
			args[i] = p.String()
		}
		return n.Qualifier + "(" + strings.Join(args, ", ") + ")"
	case BinaryOp:
		return fmt.Sprintf("%s %s %s", n.Left.String(), n.Value, n.Right.String())
	case ComparisonOp:
		return fmt.Sprintf("%s %s %s", n.Left.String(), n.Value, n.Right.String())
	case UnaryOp:
		return fmt.Sprintf("%s %s", n.Left.String(), n.Value)
	case And:
		return fmt.Sprintf("%s AND %s", n.Left.String(), n.Right.String())
	case Or:
		return fmt.Sprintf("%s OR %s", n.Left.String(), n.Right.String())
	case Xor:
		return fmt.Sprintf("%s XOR %s", n.Left.String(), n.Right.String())
	case Not:
		return "NOT " + n.Left.String()
	case Nested:
		return "(" + n.Left.String() + ")"
	case Wildcard:
		if n.Qualifier != "" {
			return n.Qualifier + ".*"
		}
		return "*"
	case ExpressionList:
		items := make([]string, len(n.Parameters))
		for i, p := range n.Parameters {
			items[i] = p.String()
		}
		return "(" + strings.Join(items, ", ") + ")"
	case Subquery:
		return "(SUBQUERY)"
	case Evaluated:
		return formatLiteral(n.Value)
	default:
		return fmt.Sprintf("<%s>", n.Kind)
	}
}

func formatLiteral(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	default:
		return fmt.Sprint(val)
	}
}
