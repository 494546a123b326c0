// Copyright Project Contour Authors
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

package v3

import "github.com/projectcontour/contour/internal/xds"

// Snapshot is an immutable, point-in-time view of resources across every
// known type URL for one node. It is a plain struct: copying it copies
// the map headers, not the underlying resources, which is enough since
// nothing ever mutates a bundle in place once it is published.
type Snapshot struct {
	resources map[string]xds.ResourceBundle
}

// NewSnapshot builds a Snapshot from a set of per-type resource bundles.
// Types absent from bundles simply have no entry and later report a
// cache miss from Resources and an empty version from Version.
func NewSnapshot(bundles map[string]xds.ResourceBundle) Snapshot {
	resources := make(map[string]xds.ResourceBundle, len(bundles))
	for typeURL, bundle := range bundles {
		resources[typeURL] = bundle
	}

	return Snapshot{resources: resources}
}

// Resources returns the bundle stored for typeURL, and whether one was
// found at all. An unknown type URL, or one with no bundle in this
// snapshot, reports ok=false.
func (s Snapshot) Resources(typeURL string) (*xds.ResourceBundle, bool) {
	bundle, ok := s.resources[typeURL]
	if !ok {
		return nil, false
	}

	return &bundle, true
}

// Version returns the version string stored for typeURL, or the empty
// string if this snapshot has no bundle for that type.
func (s Snapshot) Version(typeURL string) string {
	bundle, ok := s.resources[typeURL]
	if !ok {
		return ""
	}

	return bundle.Version
}
