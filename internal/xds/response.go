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

import (
	envoy_service_discovery_v3 "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	"google.golang.org/protobuf/types/known/anypb"
)

// ResourceBundle is a named collection of resources of one type, plus
// the version that collection was snapshotted at. It is defined here,
// rather than in the v3 cache package, because the response builder
// and the ADS predicate both need it without depending on the cache.
type ResourceBundle struct {
	Version string
	Items   map[string]Resource
}

// BuildResponse assembles a DiscoveryResponse from a request, an
// optional resource bundle and a version. If req.ResourceNames is
// empty every resource in the bundle is returned; otherwise exactly
// those bundle entries named in the request are returned, in request
// order, with duplicate names in the request producing duplicate
// entries in the response. A nil bundle produces an empty resource
// list. The nonce is left blank: it is assigned by the gRPC transport
// layer, not by the cache.
func BuildResponse(req *envoy_service_discovery_v3.DiscoveryRequest, bundle *ResourceBundle, version string) (*envoy_service_discovery_v3.DiscoveryResponse, error) {
	resources, err := filterResources(req, bundle)
	if err != nil {
		return nil, err
	}

	return &envoy_service_discovery_v3.DiscoveryResponse{
		TypeUrl:     req.GetTypeUrl(),
		Nonce:       "",
		VersionInfo: version,
		Resources:   resources,
		Canary:      false,
	}, nil
}

func filterResources(req *envoy_service_discovery_v3.DiscoveryRequest, bundle *ResourceBundle) ([]*anypb.Any, error) {
	if bundle == nil {
		return nil, nil
	}

	names := req.GetResourceNames()
	if len(names) == 0 {
		out := make([]*anypb.Any, 0, len(bundle.Items))
		for _, res := range bundle.Items {
			any, err := res.IntoAny()
			if err != nil {
				return nil, err
			}
			out = append(out, any)
		}
		return out, nil
	}

	out := make([]*anypb.Any, 0, len(names))
	for _, name := range names {
		res, ok := bundle.Items[name]
		if !ok {
			continue
		}
		any, err := res.IntoAny()
		if err != nil {
			return nil, err
		}
		out = append(out, any)
	}
	return out, nil
}
