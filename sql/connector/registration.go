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

package connector

import (
	"gopkg.in/yaml.v2"

	"github.com/mabel-dev/opteryx-go/sql"
)

// RegistrationEntry is one row of a connector factory's registration table
// (spec.md §6.3: "A factory function maps dataset names ... to a connector
// instance per a registration table"): a dataset-name pattern and the kind
// of connector that should serve it. Exact matches a whole dataset name;
// prefix matches a family (e.g. every "$"-prefixed virtual dataset, or a
// whole "s3.my-bucket." namespace).
type RegistrationEntry struct {
	Pattern string `yaml:"pattern"`
	Kind    string `yaml:"kind"`
	Prefix  bool   `yaml:"prefix"`
}

// RegistrationTable is the decoded form of a server's connector registration
// document — a list under a top-level `connectors:` key, the same flat
// struct-plus-tags shape the retrieval pack's config loaders use for their
// own registration/feature tables.
type RegistrationTable struct {
	Connectors []RegistrationEntry `yaml:"connectors"`
}

// LoadRegistrationTable decodes a YAML connector registration document.
func LoadRegistrationTable(data []byte) (*RegistrationTable, error) {
	var table RegistrationTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, sql.ErrSQL.New("invalid connector registration table: " + err.Error())
	}
	return &table, nil
}

// Apply registers every entry in the table against f, resolving each
// entry's Kind through constructors (a server's map of connector-kind name
// to the constructor function that builds one) — unknown kinds fail
// immediately rather than being silently skipped, so a typo in the
// registration document surfaces at startup instead of at first query.
func (t *RegistrationTable) Apply(f *Factory, constructors map[string]func() Connector) error {
	for _, entry := range t.Connectors {
		ctor, ok := constructors[entry.Kind]
		if !ok {
			return sql.ErrUnsupportedSyntax.New("unknown connector kind `" + entry.Kind + "` for pattern `" + entry.Pattern + "`")
		}
		if entry.Prefix {
			f.RegisterPrefix(entry.Pattern, ctor)
		} else {
			f.Register(entry.Pattern, ctor)
		}
	}
	return nil
}
