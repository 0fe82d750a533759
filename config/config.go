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

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/springborland/egeria/endpoints"
)

// ErrInvalidConfig is returned when a configuration file fails validation
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultPort           = 8090
	DefaultComponent      = "server-author"
	DefaultAdminTimeoutMs = 30000
	DefaultArchivePrefix  = "server-configs"
	DefaultConfigFile     = "config/server-author.yaml"
)

// ServiceConfig is the root of the view service configuration file
type ServiceConfig struct {
	Version       string               `yaml:"version"`
	Server        ServerSection        `yaml:"server"`
	ViewService   ViewServiceSection   `yaml:"view_service"`
	AdminClient   AdminClientSection   `yaml:"admin_client"`
	Auth          AuthSection          `yaml:"auth"`
	Secrets       SecretsSection       `yaml:"secrets"`
	EndpointStore EndpointStoreSection `yaml:"endpoint_store"`
	Journal       JournalSection       `yaml:"journal"`
	Archive       ArchiveSection       `yaml:"archive"`
}

type ServerSection struct {
	Port               int      `yaml:"port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins,omitempty"`
}

// ViewServiceSection identifies the acting user, the default admin
// platform and the configured resource endpoints.
type ViewServiceSection struct {
	Component         string                        `yaml:"component"`
	LocalServerUserID string                        `yaml:"local_server_user_id"`
	MetadataServerURL string                        `yaml:"metadata_server_url"`
	ResourceEndpoints []endpoints.RawEndpointConfig `yaml:"resource_endpoints,omitempty"`
}

type AdminClientSection struct {
	TimeoutMs      int    `yaml:"timeout_ms"`
	TLSSkipVerify  bool   `yaml:"tls_skip_verify"`
	TokenSecretRef string `yaml:"token_secret_ref,omitempty"`
}

// Timeout returns the admin call timeout
func (a AdminClientSection) Timeout() time.Duration {
	return time.Duration(a.TimeoutMs) * time.Millisecond
}

// AuthSection configures bearer token checks on the REST API. Auth is
// disabled when neither field is set.
type AuthSection struct {
	JWTSecret    string `yaml:"jwt_secret,omitempty"`
	JWTSecretRef string `yaml:"jwt_secret_ref,omitempty"`
}

type SecretsSection struct {
	Provider        string `yaml:"provider"`
	Region          string `yaml:"region,omitempty"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds,omitempty"`
}

type EndpointStoreSection struct {
	Driver string `yaml:"driver,omitempty"`
	URL    string `yaml:"url,omitempty"`
}

type JournalSection struct {
	Backend    string `yaml:"backend"`
	URL        string `yaml:"url,omitempty"`
	Database   string `yaml:"database,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	MaxEntries int64  `yaml:"max_entries,omitempty"`
	// Consistency applies to the cassandra backend only.
	Consistency string `yaml:"consistency,omitempty"`
}

// ArchiveSection selects the object store used for configuration archives.
type ArchiveSection struct {
	Backend          string `yaml:"backend"`
	Bucket           string `yaml:"bucket,omitempty"`
	Prefix           string `yaml:"prefix,omitempty"`
	Region           string `yaml:"region,omitempty"`
	Endpoint         string `yaml:"endpoint,omitempty"`
	UsePathStyle     bool   `yaml:"use_path_style,omitempty"`
	AccessKeyID      string `yaml:"access_key_id,omitempty"`
	SecretAccessKey  string `yaml:"secret_access_key,omitempty"`
	CredentialsFile  string `yaml:"credentials_file,omitempty"`
	AccountName      string `yaml:"account_name,omitempty"`
	AccountKey       string `yaml:"account_key,omitempty"`
	ConnectionString string `yaml:"connection_string,omitempty"`
}

// Load reads, expands, parses and validates a configuration file
func Load(path string) (*ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands environment references in data and decodes it
func Parse(data []byte) (*ServiceConfig, error) {
	expanded := expandEnvVars(string(data))

	var cfg ServiceConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	if c.ViewService.Component == "" {
		c.ViewService.Component = DefaultComponent
	}
	if c.AdminClient.TimeoutMs == 0 {
		c.AdminClient.TimeoutMs = DefaultAdminTimeoutMs
	}
	if c.Secrets.Provider == "" {
		c.Secrets.Provider = "env"
	}
	if c.EndpointStore.URL != "" && c.EndpointStore.Driver == "" {
		c.EndpointStore.Driver = endpoints.DriverPostgres
	}
	if c.Journal.Backend == "" {
		c.Journal.Backend = "none"
	}
	if c.Archive.Backend == "" {
		c.Archive.Backend = "none"
	}
	if c.Archive.Prefix == "" {
		c.Archive.Prefix = DefaultArchivePrefix
	}
}

var (
	validSecretProviders = map[string]bool{"env": true, "aws": true, "local": true}
	validStoreDrivers    = map[string]bool{endpoints.DriverPostgres: true, endpoints.DriverMySQL: true}
	validJournalBackends = map[string]bool{"none": true, "memory": true, "postgres": true, "redis": true, "mongodb": true, "cassandra": true}
	validArchiveBackends = map[string]bool{"none": true, "s3": true, "gcs": true, "azure": true}
)

// Validate checks required fields and closed value sets
func Validate(c *ServiceConfig) error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Version == "" {
		return invalid("config file must specify a version")
	}
	if c.ViewService.LocalServerUserID == "" {
		return invalid("view_service.local_server_user_id is required")
	}
	if c.ViewService.MetadataServerURL == "" {
		return invalid("view_service.metadata_server_url is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port %d is out of range", c.Server.Port)
	}
	if c.AdminClient.TimeoutMs < 0 {
		return invalid("admin_client.timeout_ms must not be negative")
	}
	if !validSecretProviders[c.Secrets.Provider] {
		return invalid("secrets.provider '%s' is not supported", c.Secrets.Provider)
	}
	if c.EndpointStore.URL != "" && !validStoreDrivers[c.EndpointStore.Driver] {
		return invalid("endpoint_store.driver '%s' is not supported", c.EndpointStore.Driver)
	}
	if !validJournalBackends[c.Journal.Backend] {
		return invalid("journal.backend '%s' is not supported", c.Journal.Backend)
	}
	if c.Journal.Backend != "none" && c.Journal.Backend != "memory" && c.Journal.URL == "" {
		return invalid("journal.url is required for backend '%s'", c.Journal.Backend)
	}
	if !validArchiveBackends[c.Archive.Backend] {
		return invalid("archive.backend '%s' is not supported", c.Archive.Backend)
	}
	if c.Archive.Backend != "none" && c.Archive.Bucket == "" {
		return invalid("archive.bucket is required for backend '%s'", c.Archive.Backend)
	}
	return nil
}

// envVarRegex matches ${VAR_NAME} or $VAR_NAME patterns
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces ${VAR}, $VAR and ${VAR:-default} references.
// Undefined variables without a default expand to an empty string.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		defaultVal := ""
		if idx := strings.Index(varName, ":-"); idx != -1 {
			defaultVal = varName[idx+2:]
			varName = varName[:idx]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultVal
	})
}

// GetEnv returns the value of key, or defaultValue when it is unset or empty.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ConfigFile is the configuration path named by CONFIG_FILE.
func ConfigFile() string {
	return GetEnv("CONFIG_FILE", DefaultConfigFile)
}

// GenerateExampleConfigFile returns a commented example configuration
func GenerateExampleConfigFile() string {
	return `# Server Author view service configuration
# Environment variables can be referenced using ${VAR_NAME} or ${VAR_NAME:-default} syntax

version: "1.0"

server:
  port: ${PORT:-8090}
  cors_allowed_origins: ["*"]

view_service:
  component: server-author
  local_server_user_id: ${LOCAL_SERVER_USER_ID:-garygeeke}
  # Platform that stores and serves server configuration documents
  metadata_server_url: ${METADATA_SERVER_URL:-https://localhost:9443}
  resource_endpoints:
    - resource_category: Platform
      platform_name: Platform1
      resource_root_url: https://localhost:8082
      description: Development platform
    - resource_category: Platform
      platform_name: Platform2
      resource_root_url: https://localhost:8083

admin_client:
  timeout_ms: 30000
  tls_skip_verify: false
  # token_secret_ref: arn:aws:secretsmanager:us-east-1:123456789012:secret:admin-token

auth:
  jwt_secret: ${JWT_SECRET}

secrets:
  provider: env

endpoint_store:
  driver: postgres
  url: ${ENDPOINT_STORE_URL}

journal:
  backend: ${JOURNAL_BACKEND:-memory}
  url: ${JOURNAL_URL}

archive:
  backend: ${ARCHIVE_BACKEND:-none}
  bucket: ${ARCHIVE_BUCKET}
  region: ${AWS_REGION:-us-east-1}
  prefix: server-configs
`
}
