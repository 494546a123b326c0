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
	"context"
	"errors"
	"fmt"

	envoy_config_core_v3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	envoy_service_cluster_v3 "github.com/envoyproxy/go-control-plane/envoy/service/cluster/v3"
	envoy_service_discovery_v3 "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	envoy_service_endpoint_v3 "github.com/envoyproxy/go-control-plane/envoy/service/endpoint/v3"
	envoy_service_listener_v3 "github.com/envoyproxy/go-control-plane/envoy/service/listener/v3"
	envoy_service_route_v3 "github.com/envoyproxy/go-control-plane/envoy/service/route/v3"
	envoy_service_runtime_v3 "github.com/envoyproxy/go-control-plane/envoy/service/runtime/v3"
	envoy_service_secret_v3 "github.com/envoyproxy/go-control-plane/envoy/service/secret/v3"
	"github.com/projectcontour/contour/internal/xds"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type grpcStream interface {
	Context() context.Context
	Send(*envoy_service_discovery_v3.DiscoveryResponse) error
	Recv() (*envoy_service_discovery_v3.DiscoveryRequest, error)
}

// CacheServer adapts a SnapshotCache to the xDS gRPC stream contract,
// for both the per-type state-of-the-world streams and the aggregated
// stream. It implements xds.Server.
type CacheServer struct {
	envoy_service_discovery_v3.UnimplementedAggregatedDiscoveryServiceServer
	envoy_service_secret_v3.UnimplementedSecretDiscoveryServiceServer
	envoy_service_runtime_v3.UnimplementedRuntimeDiscoveryServiceServer
	envoy_service_route_v3.UnimplementedRouteDiscoveryServiceServer
	envoy_service_endpoint_v3.UnimplementedEndpointDiscoveryServiceServer
	envoy_service_cluster_v3.UnimplementedClusterDiscoveryServiceServer
	envoy_service_listener_v3.UnimplementedListenerDiscoveryServiceServer

	log   logrus.FieldLogger
	cache *SnapshotCache

	connections xds.Counter
}

// NewCacheServer builds a CacheServer fronting cache.
func NewCacheServer(log logrus.FieldLogger, cache *SnapshotCache) *CacheServer {
	return &CacheServer{log: log, cache: cache}
}

// stream drives one gRPC stream end to end: receive a request, ask the
// cache for a watch or an immediate answer, wait for the answer, send
// it, and loop until the client disconnects. typeURL pins the type for
// a SotW stream; pass the empty string to run the aggregated variant,
// which reads the type from each incoming request instead.
func (s *CacheServer) stream(st grpcStream, typeURL string) (streamErr error) {
	connID := int64(s.connections.Next())
	log := s.log.WithField("connection", connID)

	logStreamOpenDetails(log, connID, typeURL)

	// Recovering below keeps a panic raised while serving this stream
	// (such as one from SnapshotCache.respond) scoped to the one stream
	// instead of the whole server. See DESIGN.md on SnapshotCache.respond.
	var lastNode *envoy_config_core_v3.Node

	defer func() {
		if r := recover(); r != nil {
			streamErr = fmt.Errorf("stream panic: %v", r)
		}

		logStreamClosedDetails(log, connID, lastNode)

		if streamErr != nil {
			log.WithError(streamErr).Error("stream terminated")
		} else {
			log.Info("stream terminated")
		}
	}()

	known := KnownResourceNames{}
	ctx := st.Context()

	for {
		req, err := st.Recv()
		if err != nil {
			return err
		}

		if typeURL != "" {
			req.TypeUrl = typeURL
		}

		lastNode = req.GetNode()
		logDiscoveryRequestDetails(log, req)

		tx := make(chan Response, 1)
		id, watching := s.cache.CreateWatch(req, tx, known)

		if watching {
			logWatchInstalled(log, id, req.GetTypeUrl())

			select {
			case resp := <-tx:
				// SetSnapshot removed the watch before firing it, and its
				// index may already belong to another watch; no cancel here.
				if err := s.deliver(st, log, known, resp); err != nil {
					return err
				}
			case <-ctx.Done():
				s.cache.CancelWatch(id)
				logWatchCanceled(log, id)
				return ctx.Err()
			}

			continue
		}

		resp := <-tx
		if err := s.deliver(st, log, known, resp); err != nil {
			return err
		}
	}
}

func (s *CacheServer) deliver(st grpcStream, log logrus.FieldLogger, known KnownResourceNames, resp Response) error {
	logWatchDispatched(log, resp.Request.GetNode().GetId(), resp.Response)
	recordKnownResourceNames(known, resp)

	return st.Send(resp.Response)
}

// recordKnownResourceNames folds the resource names the answered
// request asked for into known (a wildcard request adds none), so a
// later request asking for one of them again is not mistaken for
// a brand new resource ask by CreateWatch's expansion check.
func recordKnownResourceNames(known KnownResourceNames, resp Response) {
	typeURL := resp.Response.GetTypeUrl()

	set, ok := known[typeURL]
	if !ok {
		set = map[string]struct{}{}
		known[typeURL] = set
	}

	for _, name := range resp.Request.GetResourceNames() {
		set[name] = struct{}{}
	}
}

func (s *CacheServer) StreamAggregatedResources(st envoy_service_discovery_v3.AggregatedDiscoveryService_StreamAggregatedResourcesServer) error {
	return s.stream(st, "")
}

func (s *CacheServer) StreamClusters(st envoy_service_cluster_v3.ClusterDiscoveryService_StreamClustersServer) error {
	return s.stream(st, xds.ClusterType)
}

func (s *CacheServer) StreamEndpoints(st envoy_service_endpoint_v3.EndpointDiscoveryService_StreamEndpointsServer) error {
	return s.stream(st, xds.EndpointType)
}

func (s *CacheServer) StreamListeners(st envoy_service_listener_v3.ListenerDiscoveryService_StreamListenersServer) error {
	return s.stream(st, xds.ListenerType)
}

func (s *CacheServer) StreamRoutes(st envoy_service_route_v3.RouteDiscoveryService_StreamRoutesServer) error {
	return s.stream(st, xds.RouteType)
}

func (s *CacheServer) StreamSecrets(st envoy_service_secret_v3.SecretDiscoveryService_StreamSecretsServer) error {
	return s.stream(st, xds.SecretType)
}

func (s *CacheServer) StreamRuntime(st envoy_service_runtime_v3.RuntimeDiscoveryService_StreamRuntimeServer) error {
	return s.stream(st, xds.RuntimeType)
}

func (s *CacheServer) FetchClusters(_ context.Context, req *envoy_service_discovery_v3.DiscoveryRequest) (*envoy_service_discovery_v3.DiscoveryResponse, error) {
	return s.fetch(req, xds.ClusterType)
}

func (s *CacheServer) FetchEndpoints(_ context.Context, req *envoy_service_discovery_v3.DiscoveryRequest) (*envoy_service_discovery_v3.DiscoveryResponse, error) {
	return s.fetch(req, xds.EndpointType)
}

func (s *CacheServer) fetch(req *envoy_service_discovery_v3.DiscoveryRequest, typeURL string) (*envoy_service_discovery_v3.DiscoveryResponse, error) {
	req.TypeUrl = typeURL

	resp, err := s.cache.Fetch(req, typeURL)
	if err == nil {
		return resp, nil
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return nil, status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrVersionUpToDate):
		// Nothing new for this node/type: a no-op response rather
		// than an error, matching the "already current" case other
		// Fetch callers see as no update available.
		return nil, nil
	default:
		return nil, status.Error(codes.Internal, err.Error())
	}
}
