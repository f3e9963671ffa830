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

// Expression is the narrow interface the core sql package needs from the
// expression tree (package sql/expression) in order to let a Column carry a
// computed value without an import cycle: sql/expression imports sql for
// Type, so sql cannot import sql/expression back. Concrete expression
// nodes implement this interface; RelationSchema and Column only ever see
// it through this seam.
type Expression interface {
	// Type returns the expression's resolved type; Missing before binding.
	Type() Type
	// String renders the expression for display (EXPLAIN output, error
	// messages) and for computing a stable column identity.
	String() string
}
