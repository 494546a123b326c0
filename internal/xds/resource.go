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
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// Resource is an opaque xDS typed resource. The cache only ever reads
// its name; IntoAny is the boundary operation that produces the wire
// envelope carried in a DiscoveryResponse. Loaders implement this once
// per concrete resource type they produce.
type Resource interface {
	// GetName returns the resource's stable name within its type.
	GetName() string

	// IntoAny converts the resource into the typed Any envelope placed
	// in a response. Implementations wrapping a proto.Message can embed
	// AnyResource below instead of writing this by hand.
	IntoAny() (*anypb.Any, error)
}

// AnyResource adapts a named proto.Message into a Resource by
// marshaling it into an anypb.Any on demand. Most loaders can embed
// this rather than implement IntoAny themselves.
type AnyResource struct {
	Name    string
	Message proto.Message
}

// GetName implements Resource.
func (a AnyResource) GetName() string {
	return a.Name
}

// IntoAny implements Resource.
func (a AnyResource) IntoAny() (*anypb.Any, error) {
	return anypb.New(a.Message)
}
