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

// Package statusprobe exposes liveness and node-status endpoints on top
// of httpsvc.Service.
package statusprobe

import (
	"encoding/json"
	"net/http"
	"time"
)

// NodeStatusFunc reports the last-request time of every node the cache
// has seen, mirroring SnapshotCache.NodeStatus.
type NodeStatusFunc func() map[string]time.Time

// Register installs /healthz and /status handlers on mux. /healthz
// always reports ok; /status dumps the current per-node status as
// JSON, keyed by node id.
func Register(mux *http.ServeMux, nodeStatus NodeStatusFunc) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		status := nodeStatus()

		out := make(map[string]string, len(status))
		for nodeID, t := range status {
			out[nodeID] = t.Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
}
