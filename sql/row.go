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

// Row is a single tuple of column values, addressed positionally against a
// RelationSchema. The compilation pipeline never evaluates rows itself
// (that is the physical executor's job, out of scope per spec.md §1) but
// Row appears in the Connector contract (§6.3).
type Row []interface{}

// NewRow is a convenience constructor mirroring the teacher's sql.NewRow.
func NewRow(values ...interface{}) Row {
	return Row(values)
}
