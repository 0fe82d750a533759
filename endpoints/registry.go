// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package endpoints

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"sort"
)

// Category classifies a resource endpoint
type Category string

const (
	CategoryPlatform Category = "Platform"
	CategoryServer   Category = "Server"
)

// PlatformNameField is the parameter name reported when platform resolution fails.
const PlatformNameField = "platformName"

// RawEndpointConfig is an externally supplied endpoint record, as found in
// the view service configuration.
type RawEndpointConfig struct {
	ResourceCategory string `json:"resourceCategory" yaml:"resource_category"`
	PlatformName     string `json:"platformName,omitempty" yaml:"platform_name"`
	ServerName       string `json:"serverName,omitempty" yaml:"server_name"`
	ResourceRootURL  string `json:"resourceRootURL" yaml:"resource_root_url"`
	Description      string `json:"description,omitempty" yaml:"description"`
}

// ResourceEndpoint is a registered, immutable endpoint.
type ResourceEndpoint struct {
	Category     Category `json:"resourceCategory"`
	Name         string   `json:"resourceName"`
	PlatformName string   `json:"platformName,omitempty"`
	ServerName   string   `json:"serverName,omitempty"`
	RootURL      string   `json:"resourceRootURL"`
	Description  string   `json:"resourceDescription,omitempty"`
}

// Endpoints is a snapshot of the registry grouped by category. Both slices
// are non-nil and sorted by name.
type Endpoints struct {
	Platforms []ResourceEndpoint `json:"platformList"`
	Servers   []ResourceEndpoint `json:"serverList"`
}

type serverKey struct {
	serverName  string
	platformURL string
}

// Registry maps logical names to resource endpoints. It is never mutated
// after Build returns, so concurrent readers need no locking.
type Registry struct {
	platforms map[string]ResourceEndpoint
	servers   map[serverKey]ResourceEndpoint
}

var buildLogger = log.New(os.Stdout, "[ENDPOINT_REGISTRY] ", log.LstdFlags)

// Build creates a registry from raw records. Only Platform records are
// registered; every other category, Server included, is dropped without
// error. A later record with the same platform name replaces an earlier one.
func Build(entries []RawEndpointConfig) *Registry {
	r := &Registry{
		platforms: make(map[string]ResourceEndpoint),
		servers:   make(map[serverKey]ResourceEndpoint),
	}

	for _, e := range entries {
		if Category(e.ResourceCategory) != CategoryPlatform {
			continue
		}
		r.platforms[e.PlatformName] = ResourceEndpoint{
			Category:     CategoryPlatform,
			Name:         e.PlatformName,
			PlatformName: e.PlatformName,
			RootURL:      e.ResourceRootURL,
			Description:  e.Description,
		}
	}

	buildLogger.Printf("Registered %d platform(s) from %d endpoint record(s)", len(r.platforms), len(entries))
	return r
}

// Decode parses a JSON array of raw endpoint records. A null or empty
// document yields no records.
func Decode(data []byte) ([]RawEndpointConfig, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var entries []RawEndpointConfig
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, &ConfigError{Cause: err}
	}
	return entries, nil
}

// BuildFromJSON decodes raw records and builds a registry from them.
func BuildFromJSON(data []byte) (*Registry, error) {
	entries, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Build(entries), nil
}

// ResolvePlatformURL returns the root URL registered for a platform name.
// An empty name and an unregistered name fail the same way.
func (r *Registry) ResolvePlatformURL(name string) (string, error) {
	if name != "" {
		if ep, ok := r.platforms[name]; ok {
			return ep.RootURL, nil
		}
	}
	return "", &NotFoundError{Name: name, Field: PlatformNameField}
}

// Platform returns the registered endpoint for a platform name.
func (r *Registry) Platform(name string) (ResourceEndpoint, bool) {
	ep, ok := r.platforms[name]
	return ep, ok
}

// Len returns the number of registered endpoints across categories.
func (r *Registry) Len() int {
	return len(r.platforms) + len(r.servers)
}

// ListResourceEndpoints returns the configured endpoints. Discovered
// endpoints are never included.
func (r *Registry) ListResourceEndpoints() Endpoints {
	out := Endpoints{
		Platforms: make([]ResourceEndpoint, 0, len(r.platforms)),
		Servers:   make([]ResourceEndpoint, 0, len(r.servers)),
	}
	for _, ep := range r.platforms {
		out.Platforms = append(out.Platforms, ep)
	}
	for _, ep := range r.servers {
		out.Servers = append(out.Servers, ep)
	}

	sort.Slice(out.Platforms, func(i, j int) bool { return out.Platforms[i].Name < out.Platforms[j].Name })
	sort.Slice(out.Servers, func(i, j int) bool {
		if out.Servers[i].Name != out.Servers[j].Name {
			return out.Servers[i].Name < out.Servers[j].Name
		}
		return out.Servers[i].RootURL < out.Servers[j].RootURL
	})
	return out
}
