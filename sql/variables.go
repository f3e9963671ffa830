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

import (
	"github.com/spf13/cast"
)

// VariableOwner distinguishes server-owned from user-owned system variables
// (spec.md §5 "Shared resources"): user code may only mutate user-owned
// entries.
type VariableOwner int

const (
	OwnerServer VariableOwner = iota
	OwnerUser
)

type variableEntry struct {
	value interface{}
	owner VariableOwner
}

// VariableStore is the system variables store. The process-wide instance is
// partitioned server/user; each connection works against a deep-copied
// snapshot (Clone), so mutating a connection's view never leaks to another
// connection (spec.md §5).
type VariableStore struct {
	entries map[string]variableEntry
}

// NewVariableStore returns an empty store, conventionally pre-populated
// with server defaults via Define before any connection clones it.
func NewVariableStore() *VariableStore {
	return &VariableStore{entries: map[string]variableEntry{}}
}

// Define registers a variable with its owner. Used once at process startup
// for server-owned variables, and by user code (SET) for user-owned ones.
func (vs *VariableStore) Define(name string, value interface{}, owner VariableOwner) {
	vs.entries[name] = variableEntry{value: value, owner: owner}
}

// Get returns the variable's current value and whether it exists.
func (vs *VariableStore) Get(name string) (interface{}, bool) {
	e, ok := vs.entries[name]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// GetString is Get coerced through spf13/cast, matching the teacher's use
// of cast for loosely-typed SQL-surface values (SPEC_FULL.md §A.3).
func (vs *VariableStore) GetString(name string) (string, bool) {
	v, ok := vs.Get(name)
	if !ok {
		return "", false
	}
	return cast.ToString(v), true
}

// Set mutates a variable (the SET statement, §6.1). Mutating a server-owned
// variable from user code fails with ErrPermissions; setting a variable
// that does not yet exist defines it as user-owned.
func (vs *VariableStore) Set(name string, value interface{}) error {
	e, exists := vs.entries[name]
	if exists && e.owner == OwnerServer {
		return ErrPermissions.New("cannot SET server variable " + name)
	}
	vs.entries[name] = variableEntry{value: value, owner: OwnerUser}
	return nil
}

// Clone deep-copies the store; the map itself is copied so snapshots never
// alias each other, but values (expected to be immutable scalars) are not
// deep-copied.
func (vs *VariableStore) Clone() *VariableStore {
	clone := &VariableStore{entries: make(map[string]variableEntry, len(vs.entries))}
	for k, v := range vs.entries {
		clone.entries[k] = v
	}
	return clone
}

// Names returns every defined variable name, used by SHOW VARIABLES and by
// ColumnNotFoundError-style suggestions for unknown @-prefixed variables.
func (vs *VariableStore) Names() []string {
	names := make([]string, 0, len(vs.entries))
	for k := range vs.entries {
		names = append(names, k)
	}
	return names
}
