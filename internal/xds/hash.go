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
	envoy_config_core_v3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
)

// NodeHash derives the cache's node identity from a client-supplied
// node envelope. Unlike a hasher that collapses every client onto one
// key, the cache needs one key per distinct client so that per-node
// watches and snapshots stay independent.
type NodeHash interface {
	ID(*envoy_config_core_v3.Node) string
}

// IDHash is the default NodeHash: the node's own id field, or the
// empty string when the envelope itself is missing.
type IDHash struct{}

// ID implements NodeHash.
func (IDHash) ID(node *envoy_config_core_v3.Node) string {
	if node == nil {
		return ""
	}

	return node.GetId()
}

var DefaultHash NodeHash = IDHash{}
