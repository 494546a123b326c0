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
	"errors"
	"sync"
	"time"

	envoy_service_discovery_v3 "github.com/envoyproxy/go-control-plane/envoy/service/discovery/v3"
	"github.com/projectcontour/contour/internal/metrics"
	"github.com/projectcontour/contour/internal/xds"
)

// FetchError is returned by SnapshotCache.Fetch. Callers should compare
// it with errors.Is against ErrNotFound and ErrVersionUpToDate rather
// than matching on message text.
type FetchError struct {
	err error
}

func (e *FetchError) Error() string { return e.err.Error() }

func (e *FetchError) Unwrap() error { return e.err }

var (
	// ErrNotFound means the requesting node has no snapshot at all.
	ErrNotFound = errors.New("xds: no snapshot for node")

	// ErrVersionUpToDate means the request already carries the
	// version the snapshot holds for the requested type; there is
	// nothing new to fetch.
	ErrVersionUpToDate = errors.New("xds: requested version is up to date")
)

func fetchError(err error) *FetchError { return &FetchError{err: err} }

// KnownResourceNames tracks, per type URL, the resource names a
// stream's client has already been answered for; the stream layer
// accumulates it and passes it to every CreateWatch call. It feeds
// the "requesting new resources" check in CreateWatch: if a client asks
// for a name that is not yet in this set but which exists in the
// current snapshot, the cache treats that as a genuinely new ask and
// answers immediately rather than waiting for the next SetSnapshot.
type KnownResourceNames map[string]map[string]struct{}

// WatchID identifies a watch installed by CreateWatch, stable until
// CancelWatch removes it or SetSnapshot fires it. After either, its
// Index may be handed to a later watch for the same node.
type WatchID struct {
	NodeID string
	Index  int
}

// Response pairs the request a watch was created for with the
// DiscoveryResponse produced when that watch fires.
type Response struct {
	Request  *envoy_service_discovery_v3.DiscoveryRequest
	Response *envoy_service_discovery_v3.DiscoveryResponse
}

// Cache is the dynamic-dispatch surface SnapshotCache implements. Code
// that only ever talks to one cache type can use SnapshotCache
// directly; this interface exists for callers that wrap or mock it.
type Cache interface {
	CreateWatch(req *envoy_service_discovery_v3.DiscoveryRequest, tx chan<- Response, known KnownResourceNames) (WatchID, bool)
	CancelWatch(id WatchID)
	Fetch(req *envoy_service_discovery_v3.DiscoveryRequest, typeURL string) (*envoy_service_discovery_v3.DiscoveryResponse, error)
	SetSnapshot(nodeID string, snapshot Snapshot)
	NodeStatus() map[string]time.Time
}

type watch struct {
	req *envoy_service_discovery_v3.DiscoveryRequest
	tx  chan<- Response
}

type nodeStatus struct {
	lastRequestTime time.Time
	watches         Slab[watch]
}

func newNodeStatus() *nodeStatus {
	return &nodeStatus{lastRequestTime: time.Now()}
}

// SnapshotCache is an in-memory, per-node xDS resource cache. A single
// mutex guards every field; every exported method takes and releases it
// within the call, including the path that sends a response on a
// watch's channel. A slow or wedged consumer on the other end of that
// channel therefore blocks every other node's cache operations until it
// drains, which is a real tradeoff, not an oversight — see DESIGN.md.
type SnapshotCache struct {
	mu        sync.Mutex
	ads       bool
	status    map[string]*nodeStatus
	snapshots map[string]Snapshot

	// Metrics is optional; a nil Metrics disables instrumentation.
	Metrics *metrics.Metrics
}

// NewSnapshotCache constructs an empty cache. When ads is true, the
// cache enforces aggregated-discovery-service consistency ordering
// before answering a request immediately; see CheckADSConsistency.
func NewSnapshotCache(ads bool) *SnapshotCache {
	return &SnapshotCache{
		ads:       ads,
		status:    make(map[string]*nodeStatus),
		snapshots: make(map[string]Snapshot),
	}
}

// CreateWatch either answers tx immediately and returns ok=false, or
// installs a watch and returns its id with ok=true. The node identity
// is derived from req.Node via hash.
func (c *SnapshotCache) CreateWatch(req *envoy_service_discovery_v3.DiscoveryRequest, tx chan<- Response, known KnownResourceNames) (WatchID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nodeID := xds.DefaultHash.ID(req.GetNode())
	status := c.touchNodeStatus(nodeID)

	snapshot, ok := c.snapshots[nodeID]
	if !ok {
		return c.setWatch(nodeID, status, req, tx), true
	}

	typeURL := req.GetTypeUrl()
	bundle, _ := snapshot.Resources(typeURL)
	version := snapshot.Version(typeURL)

	if isRequestingNewResources(req, bundle, known[typeURL]) {
		if c.ads && xds.CheckADSConsistency(req, bundle) {
			return c.setWatch(nodeID, status, req, tx), true
		}

		c.respond(req, tx, bundle, version)
		return WatchID{}, false
	}

	if req.GetVersionInfo() == version {
		return c.setWatch(nodeID, status, req, tx), true
	}

	if c.ads && xds.CheckADSConsistency(req, bundle) {
		return c.setWatch(nodeID, status, req, tx), true
	}

	c.respond(req, tx, bundle, version)
	return WatchID{}, false
}

// CancelWatch removes a previously installed watch. Canceling an id
// whose slot is empty, or whose node is unknown, is a safe no-op; an
// id whose slot has since been reused by a later watch for the same
// node removes that later watch.
func (c *SnapshotCache) CancelWatch(id WatchID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status, ok := c.status[id.NodeID]
	if !ok {
		return
	}

	w, removed := status.watches.Remove(id.Index)
	if removed && c.Metrics != nil {
		c.Metrics.WatchCanceled(w.req.GetTypeUrl())
	}
}

// Fetch answers a single poll-style request without installing a
// watch. typeURL is taken as a separate argument rather than read from
// req so that callers routing untyped SotW fetches can pin the type
// the caller actually asked about. Only the returned bundle comes from
// typeURL; the version compared against and reported is the snapshot's
// version for req's own type URL.
func (c *SnapshotCache) Fetch(req *envoy_service_discovery_v3.DiscoveryRequest, typeURL string) (*envoy_service_discovery_v3.DiscoveryResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nodeID := xds.DefaultHash.ID(req.GetNode())

	snapshot, ok := c.snapshots[nodeID]
	if !ok {
		c.recordFetchOutcome("not_found")
		return nil, fetchError(ErrNotFound)
	}

	version := snapshot.Version(req.GetTypeUrl())
	if req.GetVersionInfo() == version {
		c.recordFetchOutcome("up_to_date")
		return nil, fetchError(ErrVersionUpToDate)
	}

	bundle, _ := snapshot.Resources(typeURL)
	resp, err := xds.BuildResponse(req, bundle, version)
	if err != nil {
		c.recordFetchOutcome("error")
		return nil, err
	}

	c.recordFetchOutcome("ok")
	return resp, nil
}

func (c *SnapshotCache) recordFetchOutcome(outcome string) {
	if c.Metrics != nil {
		c.Metrics.FetchOutcome(outcome)
	}
}

// SetSnapshot installs snapshot as the current state for nodeID and
// fires every outstanding watch whose stored request version no longer
// matches the new snapshot's version for that watch's type.
func (c *SnapshotCache) SetSnapshot(nodeID string, snapshot Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshots[nodeID] = snapshot
	if c.Metrics != nil {
		c.Metrics.SnapshotSet(nodeID)
	}

	status, ok := c.status[nodeID]
	if !ok {
		return
	}

	var fire []int
	status.watches.Each(func(idx int, w watch) {
		if snapshot.Version(w.req.GetTypeUrl()) != w.req.GetVersionInfo() {
			fire = append(fire, idx)
		}
	})

	for _, idx := range fire {
		w, ok := status.watches.Remove(idx)
		if !ok {
			continue
		}

		bundle, _ := snapshot.Resources(w.req.GetTypeUrl())
		version := snapshot.Version(w.req.GetTypeUrl())
		c.respond(w.req, w.tx, bundle, version)

		if c.Metrics != nil {
			c.Metrics.WatchDispatched(w.req.GetTypeUrl())
		}
	}
}

// NodeStatus returns, for every node the cache has ever seen a request
// from, the time of its most recent request.
func (c *SnapshotCache) NodeStatus() map[string]time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]time.Time, len(c.status))
	for id, status := range c.status {
		out[id] = status.lastRequestTime
	}

	return out
}

func (c *SnapshotCache) touchNodeStatus(nodeID string) *nodeStatus {
	status, ok := c.status[nodeID]
	if !ok {
		status = newNodeStatus()
		c.status[nodeID] = status
		return status
	}

	status.lastRequestTime = time.Now()
	return status
}

func (c *SnapshotCache) setWatch(nodeID string, status *nodeStatus, req *envoy_service_discovery_v3.DiscoveryRequest, tx chan<- Response) WatchID {
	idx := status.watches.Insert(watch{req: req, tx: tx})

	if c.Metrics != nil {
		c.Metrics.WatchCreated(req.GetTypeUrl())
	}

	return WatchID{NodeID: nodeID, Index: idx}
}

// respond panics if tx is closed, and blocks while tx has no free
// buffer slot and no reader; callers at the gRPC transport boundary
// recover per-stream so one bad watch cannot take down another
// stream's delivery.
func (c *SnapshotCache) respond(req *envoy_service_discovery_v3.DiscoveryRequest, tx chan<- Response, bundle *xds.ResourceBundle, version string) {
	resp, err := xds.BuildResponse(req, bundle, version)
	if err != nil {
		return
	}

	tx <- Response{Request: req, Response: resp}
}

func isRequestingNewResources(req *envoy_service_discovery_v3.DiscoveryRequest, bundle *xds.ResourceBundle, known map[string]struct{}) bool {
	if bundle == nil || known == nil {
		return false
	}

	for _, name := range req.GetResourceNames() {
		if _, alreadyKnown := known[name]; alreadyKnown {
			continue
		}

		if _, inBundle := bundle.Items[name]; inBundle {
			return true
		}
	}

	return false
}
