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

import (
	"fmt"

	envoy_config_core_v3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	envoy_service_discovery_v3 "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	"github.com/sirupsen/logrus"
)

func logStreamOpenDetails(l logrus.FieldLogger, streamID int64, typeURL string) {
	l.WithField("type_url", typeURL).WithField("stream_id", streamID).Debug("stream opened")
}

func logStreamClosedDetails(l logrus.FieldLogger, streamID int64, node *envoy_config_core_v3.Node) {
	log := l.WithField("stream_id", streamID)
	if node != nil {
		log = log.WithField("node_id", node.Id)
	}

	log.Debug("stream closed")
}

func logDiscoveryRequestDetails(l logrus.FieldLogger, req *envoy_service_discovery_v3.DiscoveryRequest) logrus.FieldLogger {
	log := l.WithField("version_info", req.VersionInfo).WithField("response_nonce", req.ResponseNonce)
	if req.Node != nil {
		log = log.WithField("node_id", req.Node.Id)

		if bv := req.Node.GetUserAgentBuildVersion(); bv != nil && bv.Version != nil {
			log = log.WithField("node_version", fmt.Sprintf("v%d.%d.%d", bv.Version.MajorNumber, bv.Version.MinorNumber, bv.Version.Patch))
		}
	}

	if status := req.ErrorDetail; status != nil {
		log.WithField("code", status.Code).Error(status.Message)
	}

	log = log.WithField("resource_names", req.ResourceNames).WithField("type_url", req.GetTypeUrl())

	log.Debug("handling v3 xDS resource request")
	return log
}

// logWatchInstalled and logWatchDispatched extend the request-lifecycle
// logging above to the cache's own watch table, which has no Envoy
// callback hook of its own.
func logWatchInstalled(l logrus.FieldLogger, id WatchID, typeURL string) {
	l.WithField("node_id", id.NodeID).
		WithField("watch_index", id.Index).
		WithField("type_url", typeURL).
		Debug("watch installed")
}

func logWatchDispatched(l logrus.FieldLogger, nodeID string, resp *envoy_service_discovery_v3.DiscoveryResponse) {
	l.WithField("node_id", nodeID).
		WithField("type_url", resp.GetTypeUrl()).
		WithField("version_info", resp.GetVersionInfo()).
		WithField("resource_count", len(resp.GetResources())).
		Debug("watch dispatched")
}

func logWatchCanceled(l logrus.FieldLogger, id WatchID) {
	l.WithField("node_id", id.NodeID).
		WithField("watch_index", id.Index).
		Debug("watch canceled")
}
