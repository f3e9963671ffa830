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
	"strings"

	"github.com/mabel-dev/opteryx-go/sql"
	"github.com/mabel-dev/opteryx-go/sql/suggest"
)

// Factory maps dataset names (possibly dotted, e.g. "schema.table") to a
// connector instance, per a registration table (spec.md §6.3, "A factory
// function maps dataset names ... to a connector instance per a
// registration table"). Grounded on original_source/opteryx/connectors/
// __init__.py's connector_factory, which matches by registered prefix
// rather than exact name so a single registration can serve a whole
// dataset family (e.g. every "$"-prefixed virtual dataset).
type Factory struct {
	exact    map[string]func() Connector
	prefixes []prefixEntry
}

type prefixEntry struct {
	prefix string
	ctor   func() Connector
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{exact: map[string]func() Connector{}}
}

// Register binds a dataset name exactly to a connector constructor.
func (f *Factory) Register(name string, ctor func() Connector) {
	f.exact[strings.ToLower(name)] = ctor
}

// RegisterPrefix binds every dataset name starting with prefix to a
// connector constructor — how the virtual "$" datasets and dotted
// namespaced datasets (e.g. "s3.my-bucket.") are served.
func (f *Factory) RegisterPrefix(prefix string, ctor func() Connector) {
	f.prefixes = append(f.prefixes, prefixEntry{prefix: strings.ToLower(prefix), ctor: ctor})
}

// Resolve returns a fresh connector instance for the named dataset. An
// exact registration wins over a prefix match; among prefix matches the
// longest prefix wins (the most specific registration).
func (f *Factory) Resolve(datasetName string) (Connector, error) {
	lower := strings.ToLower(datasetName)
	if ctor, ok := f.exact[lower]; ok {
		return ctor(), nil
	}

	var best *prefixEntry
	for i := range f.prefixes {
		p := &f.prefixes[i]
		if strings.HasPrefix(lower, p.prefix) {
			if best == nil || len(p.prefix) > len(best.prefix) {
				best = p
			}
		}
	}
	if best != nil {
		return best.ctor(), nil
	}

	return nil, sql.ErrDatasetNotFound.New(datasetName + suggest.Find(f.names(), datasetName))
}

func (f *Factory) names() []string {
	names := make([]string, 0, len(f.exact)+len(f.prefixes))
	for n := range f.exact {
		names = append(names, n)
	}
	for _, p := range f.prefixes {
		names = append(names, p.prefix)
	}
	return names
}
