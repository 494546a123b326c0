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

// Package xds holds the pieces of the xDS core that are shared between
// the snapshot cache and its gRPC transport: the canonical type-URL
// table, the resource boundary, the response builder and the ADS
// consistency predicate.
package xds

import "strings"

// The nine resource type URLs this cache knows about. These must match
// the Envoy/xDS v3 schema byte-for-byte; they are part of the wire
// contract, not an implementation detail.
const (
	ClusterType         = "type.googleapis.com/envoy.config.cluster.v3.Cluster"
	EndpointType        = "type.googleapis.com/envoy.config.endpoint.v3.ClusterLoadAssignment"
	ListenerType        = "type.googleapis.com/envoy.config.listener.v3.Listener"
	RouteType           = "type.googleapis.com/envoy.config.route.v3.RouteConfiguration"
	VirtualHostType     = "type.googleapis.com/envoy.config.route.v3.VirtualHost"
	SecretType          = "type.googleapis.com/envoy.extensions.transport_sockets.tls.v3.Secret"
	RuntimeType         = "type.googleapis.com/envoy.service.runtime.v3.Runtime"
	ScopedRouteType     = "type.googleapis.com/envoy.config.route.v3.ScopedRouteConfiguration"
	ExtensionConfigType = "type.googleapis.com/envoy.config.core.v3.TypedExtensionConfig"

	anyType             = ""
	unknownTypePriority = 9
)

// priorities gives the ADS warm-up ordering for known type URLs. It is
// published here because the registry is shared with the loader that
// drives ADS warm-up, even though this core does not use it directly.
var priorities = map[string]int{
	ClusterType:         0,
	EndpointType:        1,
	ListenerType:        2,
	RouteType:           3,
	VirtualHostType:     4,
	SecretType:          5,
	RuntimeType:         6,
	ScopedRouteType:     7,
	ExtensionConfigType: 8,
}

// Shorten returns a human-readable abbreviation of a type URL: its last
// dot-segment, or "ADS" for the empty (aggregated) type URL.
func Shorten(typeURL string) string {
	if typeURL == anyType {
		return "ADS"
	}

	idx := strings.LastIndex(typeURL, ".")
	if idx < 0 {
		return typeURL
	}

	return typeURL[idx+1:]
}

// Priority returns the ADS warm-up priority of typeURL: 0..8 for the
// nine known types, 9 for anything else.
func Priority(typeURL string) int {
	if p, ok := priorities[typeURL]; ok {
		return p
	}

	return unknownTypePriority
}
