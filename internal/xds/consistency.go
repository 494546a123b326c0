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

package xds

import envoy_service_discovery_v3 "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"

// CheckADSConsistency reports whether it is safe to respond to req
// right now under ADS ordering. It returns true unless req names a
// non-empty resource set and bundle contains at least one resource
// whose name is not in that set — the narrow case where responding
// would hand the client a resource it never asked for.
//
// The name reads backwards from how callers use it: in ADS mode,
// SnapshotCache.CreateWatch installs a watch instead of responding
// when this returns true, and responds immediately when it returns
// false. See DESIGN.md Q3 for why the polarity is kept as-is.
func CheckADSConsistency(req *envoy_service_discovery_v3.DiscoveryRequest, bundle *ResourceBundle) bool {
	names := req.GetResourceNames()
	if len(names) == 0 || bundle == nil {
		return true
	}

	requested := make(map[string]struct{}, len(names))
	for _, n := range names {
		requested[n] = struct{}{}
	}

	for name := range bundle.Items {
		if _, ok := requested[name]; !ok {
			return false
		}
	}

	return true
}
