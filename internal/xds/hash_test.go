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

	envoy_config_core_v3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	envoy_service_discovery_v3 "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	"github.com/stretchr/testify/assert"
)

func TestIDHashReturnsNodeID(t *testing.T) {
	node := &envoy_config_core_v3.Node{Id: "node-1"}
	assert.Equal(t, "node-1", IDHash{}.ID(node))
}

func TestIDHashNilNodeIsEmptyString(t *testing.T) {
	assert.Equal(t, "", IDHash{}.ID(nil))
}

func TestIDHashMissingNodeEnvelopeIsEmptyString(t *testing.T) {
	req := &envoy_service_discovery_v3.DiscoveryRequest{}

	assert.Nil(t, req.GetNode())
	assert.Equal(t, "", IDHash{}.ID(req.GetNode()))
}

func TestDefaultHashIsIDHash(t *testing.T) {
	node := &envoy_config_core_v3.Node{Id: "node-2"}
	assert.Equal(t, "node-2", DefaultHash.ID(node))
	assert.Equal(t, "", DefaultHash.ID(nil))
}
