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

import "github.com/mabel-dev/opteryx-go/sql/rewrite"

// Parser is the external SQL parser contract (spec.md §6.2): "a function
// parse_sql(sql, dialect) -> [AST] returning a list of statement ASTs ...
// The spec is agnostic to parser identity; any parser producing a
// compatible AST shape ... is acceptable." A Cursor is handed one at
// construction rather than importing a concrete parser itself, the same
// seam sql/connector.Factory uses for storage backends: the compilation
// pipeline this module owns starts one step downstream of raw SQL text,
// at the rewritten-AST boundary.
//
// Each returned *rewrite.RawNode is one top-level statement, keyed by its
// top-level kind ("Query", "Union"/"Except"/"Minus", "SetVariable",
// "ShowColumns", "Show", "Explain") — the convention
// sql/planbuilder.Planner.PlanStatement dispatches on.
type Parser func(sqlText string) ([]*rewrite.RawNode, error)
