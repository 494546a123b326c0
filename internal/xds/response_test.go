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
	"testing"

	envoy_config_cluster_v3 "github.com/envoyproxy/go-control-plane/envoy/config/cluster/v3"
	envoy_service_discovery_v3 "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clusterBundle(version string, names ...string) *ResourceBundle {
	items := make(map[string]Resource, len(names))
	for _, n := range names {
		items[n] = AnyResource{Name: n, Message: &envoy_config_cluster_v3.Cluster{Name: n}}
	}
	return &ResourceBundle{Version: version, Items: items}
}

func resourceNames(t *testing.T, resp *envoy_service_discovery_v3.DiscoveryResponse) []string {
	t.Helper()
	names := make([]string, 0, len(resp.GetResources()))
	for _, a := range resp.GetResources() {
		var c envoy_config_cluster_v3.Cluster
		require.NoError(t, a.UnmarshalTo(&c))
		names = append(names, c.GetName())
	}
	return names
}

func TestBuildResponseNilBundle(t *testing.T) {
	req := &envoy_service_discovery_v3.DiscoveryRequest{TypeUrl: ClusterType}

	resp, err := BuildResponse(req, nil, "v1")
	require.NoError(t, err)
	assert.Equal(t, ClusterType, resp.GetTypeUrl())
	assert.Equal(t, "v1", resp.GetVersionInfo())
	assert.Empty(t, resp.GetNonce())
	assert.Empty(t, resp.GetResources())
}

func TestBuildResponseWildcardReturnsEverything(t *testing.T) {
	req := &envoy_service_discovery_v3.DiscoveryRequest{TypeUrl: ClusterType}
	bundle := clusterBundle("v2", "c1", "c2", "c3")

	resp, err := BuildResponse(req, bundle, "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", resp.GetVersionInfo())
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, resourceNames(t, resp))
}

func TestBuildResponseFilteredPreservesRequestOrder(t *testing.T) {
	req := &envoy_service_discovery_v3.DiscoveryRequest{
		TypeUrl:       ClusterType,
		ResourceNames: []string{"c3", "c1"},
	}
	bundle := clusterBundle("v2", "c1", "c2", "c3")

	resp, err := BuildResponse(req, bundle, "v2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c1"}, resourceNames(t, resp))
}

func TestBuildResponseFilteredSkipsUnknownNames(t *testing.T) {
	req := &envoy_service_discovery_v3.DiscoveryRequest{
		TypeUrl:       ClusterType,
		ResourceNames: []string{"c1", "missing"},
	}
	bundle := clusterBundle("v2", "c1", "c2")

	resp, err := BuildResponse(req, bundle, "v2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, resourceNames(t, resp))
}

func TestBuildResponseFilteredDuplicateNamesDuplicateEntries(t *testing.T) {
	req := &envoy_service_discovery_v3.DiscoveryRequest{
		TypeUrl:       ClusterType,
		ResourceNames: []string{"c1", "c1"},
	}
	bundle := clusterBundle("v2", "c1", "c2")

	resp, err := BuildResponse(req, bundle, "v2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c1"}, resourceNames(t, resp))
}
