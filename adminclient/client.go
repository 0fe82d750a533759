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

package adminclient

import "context"

// Client performs administrative operations against one server on one
// platform. A Client is scoped to the (user, server, platform) it was bound
// with and is not reused across calls by the orchestrator.
type Client interface {
	SetInMemLocalRepository(ctx context.Context) error
	SetGraphLocalRepository(ctx context.Context, storageProperties map[string]interface{}) error
	SetReadOnlyLocalRepository(ctx context.Context) error

	GetStoredConfiguration(ctx context.Context) (ServerConfig, error)
	GetActiveConfiguration(ctx context.Context) (ServerConfig, error)
	SetServerConfig(ctx context.Context, cfg ServerConfig) error
	DeployServerConfig(ctx context.Context, destinationURL string) error

	ConfigureAccessService(ctx context.Context, serviceURLMarker string, options map[string]interface{}) error
	ConfigureAllAccessServices(ctx context.Context, options map[string]interface{}) error
	SetEnterpriseAccessConfig(ctx context.Context, cfg *EnterpriseAccessConfig) error
	SetEventBus(ctx context.Context, cfg EventBusConfig) error

	SetDefaultAuditLog(ctx context.Context) error
	AddConsoleAuditLogDestination(ctx context.Context, severities []string) error
	AddSLF4JAuditLogDestination(ctx context.Context, severities []string) error
	AddFileAuditLogDestination(ctx context.Context, severities []string) error
	AddEventTopicAuditLogDestination(ctx context.Context, severities []string) error
	AddAuditLogDestination(ctx context.Context, connection *Connection) error
}

// Binder produces a Client scoped to a user, server and platform root URL.
type Binder interface {
	Bind(userID, serverName, rootURL string) Client
}

// BinderFunc adapts a function to Binder.
type BinderFunc func(userID, serverName, rootURL string) Client

func (f BinderFunc) Bind(userID, serverName, rootURL string) Client {
	return f(userID, serverName, rootURL)
}
