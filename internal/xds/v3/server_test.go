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
	"io"
	"testing"

	envoy_service_discovery_v3 "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	"github.com/projectcontour/contour/internal/fixture"
	"github.com/projectcontour/contour/internal/xds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeStream struct {
	ctx   context.Context
	reqs  []*envoy_service_discovery_v3.DiscoveryRequest
	sent  []*envoy_service_discovery_v3.DiscoveryResponse
	index int
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func (f *fakeStream) Recv() (*envoy_service_discovery_v3.DiscoveryRequest, error) {
	if f.index >= len(f.reqs) {
		return nil, io.EOF
	}

	req := f.reqs[f.index]
	f.index++
	return req, nil
}

func (f *fakeStream) Send(resp *envoy_service_discovery_v3.DiscoveryResponse) error {
	f.sent = append(f.sent, resp)
	return nil
}

func TestCacheServerStreamDeliversImmediateResponse(t *testing.T) {
	cache := NewSnapshotCache(false)
	cache.SetSnapshot("n1", clusterSnapshot("v1", "c1"))

	srv := NewCacheServer(fixture.NewDiscardLogger(), cache)
	st := &fakeStream{
		ctx:  context.Background(),
		reqs: []*envoy_service_discovery_v3.DiscoveryRequest{nodeRequest("n1", "", "c1")},
	}

	err := srv.stream(st, xds.ClusterType)
	assert.Equal(t, io.EOF, err)
	require.Len(t, st.sent, 1)
	assert.Equal(t, "v1", st.sent[0].GetVersionInfo())
}

func TestCacheServerStreamRecvErrorPropagates(t *testing.T) {
	cache := NewSnapshotCache(false)
	srv := NewCacheServer(fixture.NewDiscardLogger(), cache)

	st := &fakeStream{ctx: context.Background()}

	err := srv.stream(st, xds.ClusterType)
	assert.Equal(t, io.EOF, err)
	assert.Empty(t, st.sent)
}

func TestCacheServerStreamWaitsForWatchThenCancelsOnDisconnect(t *testing.T) {
	cache := NewSnapshotCache(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := NewCacheServer(fixture.NewDiscardLogger(), cache)
	st := &fakeStream{
		ctx:  ctx,
		reqs: []*envoy_service_discovery_v3.DiscoveryRequest{nodeRequest("n1", "", "c1")},
	}

	err := srv.stream(st, xds.ClusterType)
	assert.Equal(t, context.Canceled, err)
	assert.Empty(t, st.sent)
}

func TestFetchClustersMapsNotFoundToGRPCStatus(t *testing.T) {
	cache := NewSnapshotCache(false)
	srv := NewCacheServer(fixture.NewDiscardLogger(), cache)

	resp, err := srv.FetchClusters(context.Background(), nodeRequest("unknown-node", "", "c1"))
	assert.Nil(t, resp)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
}

func TestFetchClustersUpToDateIsNoOpResponse(t *testing.T) {
	cache := NewSnapshotCache(false)
	cache.SetSnapshot("n1", clusterSnapshot("v1", "c1"))

	srv := NewCacheServer(fixture.NewDiscardLogger(), cache)

	resp, err := srv.FetchClusters(context.Background(), nodeRequest("n1", "v1", "c1"))
	assert.NoError(t, err)
	assert.Nil(t, resp)
}

func TestFetchClustersReturnsResponseForStaleVersion(t *testing.T) {
	cache := NewSnapshotCache(false)
	cache.SetSnapshot("n1", clusterSnapshot("v1", "c1"))

	srv := NewCacheServer(fixture.NewDiscardLogger(), cache)

	resp, err := srv.FetchClusters(context.Background(), nodeRequest("n1", "", "c1"))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "v1", resp.GetVersionInfo())
}
