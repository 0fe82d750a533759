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

import (
	"encoding/json"
	"fmt"
)

// ServerConfig is an OMAG server configuration document. Its content is
// owned by the governed platform and passed through untouched.
type ServerConfig = json.RawMessage

// LocalRepositoryMode selects the local repository of a metadata server.
type LocalRepositoryMode string

const (
	ModeInMemory   LocalRepositoryMode = "in-memory-repository"
	ModeLocalGraph LocalRepositoryMode = "local-graph-repository"
	ModeReadOnly   LocalRepositoryMode = "read-only-repository"
)

// ParseLocalRepositoryMode validates a mode path segment.
func ParseLocalRepositoryMode(s string) (LocalRepositoryMode, error) {
	switch m := LocalRepositoryMode(s); m {
	case ModeInMemory, ModeLocalGraph, ModeReadOnly:
		return m, nil
	}
	return "", fmt.Errorf("unknown local repository mode: %s", s)
}

// AuditLogDestinationKind names a supported audit log destination.
type AuditLogDestinationKind string

const (
	AuditLogDefault    AuditLogDestinationKind = "default"
	AuditLogConsole    AuditLogDestinationKind = "console"
	AuditLogSLF4J      AuditLogDestinationKind = "slf4j"
	AuditLogFiles      AuditLogDestinationKind = "files"
	AuditLogEventTopic AuditLogDestinationKind = "event-topic"
	AuditLogConnection AuditLogDestinationKind = "connection"
)

// ParseAuditLogDestinationKind validates a destination path segment.
func ParseAuditLogDestinationKind(s string) (AuditLogDestinationKind, error) {
	switch k := AuditLogDestinationKind(s); k {
	case AuditLogDefault, AuditLogConsole, AuditLogSLF4J, AuditLogFiles, AuditLogEventTopic, AuditLogConnection:
		return k, nil
	}
	return "", fmt.Errorf("unknown audit log destination: %s", s)
}

// EventBusConfig configures the event bus of a server.
type EventBusConfig struct {
	ConnectorProvider       string                 `json:"connectorProvider,omitempty"`
	TopicURLRoot            string                 `json:"topicURLRoot,omitempty"`
	ConfigurationProperties map[string]interface{} `json:"configurationProperties,omitempty"`
}

// Bean class names accepted on the wire.
const (
	ClassConnection             = "Connection"
	ClassVirtualConnection      = "VirtualConnection"
	ClassEmbeddedConnection     = "EmbeddedConnection"
	ClassConnectorType          = "ConnectorType"
	ClassEndpoint               = "Endpoint"
	ClassEnterpriseAccessConfig = "EnterpriseAccessConfig"
)

// ConnectorType identifies the connector provider implementation.
type ConnectorType struct {
	Class                      string `json:"class"`
	QualifiedName              string `json:"qualifiedName,omitempty"`
	DisplayName                string `json:"displayName,omitempty"`
	ConnectorProviderClassName string `json:"connectorProviderClassName"`
}

// Endpoint is the network address a connector talks to.
type Endpoint struct {
	Class         string `json:"class"`
	QualifiedName string `json:"qualifiedName,omitempty"`
	Address       string `json:"address"`
	Protocol      string `json:"protocol,omitempty"`
}

// EmbeddedConnection wraps a connection nested in a virtual connection.
type EmbeddedConnection struct {
	Class              string                 `json:"class"`
	Position           int                    `json:"position"`
	DisplayName        string                 `json:"displayName,omitempty"`
	Arguments          map[string]interface{} `json:"arguments,omitempty"`
	EmbeddedConnection *Connection            `json:"embeddedConnection"`
}

// Connection is a generic connection descriptor. Class selects the variant:
// a plain Connection or a VirtualConnection carrying EmbeddedConnections.
type Connection struct {
	Class                   string                 `json:"class"`
	QualifiedName           string                 `json:"qualifiedName,omitempty"`
	DisplayName             string                 `json:"displayName,omitempty"`
	Description             string                 `json:"description,omitempty"`
	ConnectorType           *ConnectorType         `json:"connectorType,omitempty"`
	Endpoint                *Endpoint              `json:"endpoint,omitempty"`
	ConfigurationProperties map[string]interface{} `json:"configurationProperties,omitempty"`
	EmbeddedConnections     []EmbeddedConnection   `json:"embeddedConnections,omitempty"`
}

// Validate checks that the class tags name a supported variant.
func (c *Connection) Validate() error {
	if c == nil {
		return fmt.Errorf("connection is required")
	}
	switch c.Class {
	case ClassConnection:
		if len(c.EmbeddedConnections) > 0 {
			return fmt.Errorf("embedded connections require class %s", ClassVirtualConnection)
		}
	case ClassVirtualConnection:
		for i, ec := range c.EmbeddedConnections {
			if ec.Class != ClassEmbeddedConnection {
				return fmt.Errorf("embedded connection %d: unsupported class %q", i, ec.Class)
			}
			if err := ec.EmbeddedConnection.Validate(); err != nil {
				return fmt.Errorf("embedded connection %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported connection class %q", c.Class)
	}
	if c.ConnectorType != nil && c.ConnectorType.Class != ClassConnectorType {
		return fmt.Errorf("unsupported connector type class %q", c.ConnectorType.Class)
	}
	if c.Endpoint != nil && c.Endpoint.Class != ClassEndpoint {
		return fmt.Errorf("unsupported endpoint class %q", c.Endpoint.Class)
	}
	return nil
}

// EnterpriseAccessConfig configures federated access across the cohorts a
// server belongs to.
type EnterpriseAccessConfig struct {
	Class                              string      `json:"class"`
	EnterpriseMetadataCollectionName   string      `json:"enterpriseMetadataCollectionName,omitempty"`
	EnterpriseMetadataCollectionID     string      `json:"enterpriseMetadataCollectionId,omitempty"`
	EnterpriseOMRSTopicConnection      *Connection `json:"enterpriseOMRSTopicConnection,omitempty"`
	EnterpriseOMRSTopicProtocolVersion string      `json:"enterpriseOMRSTopicProtocolVersion,omitempty"`
}
