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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default admin request timeout
	DefaultTimeout = 30 * time.Second

	adminServicesPath = "/open-metadata/admin-services/users/%s/servers/%s"

	// maxResponseSize bounds the body read from a platform.
	maxResponseSize = 10 * 1024 * 1024
)

// Options configure the HTTP binder.
type Options struct {
	Timeout       time.Duration
	TLSSkipVerify bool
	// BearerToken, when set, is sent as an Authorization header on every call.
	BearerToken string
	// HTTPClient replaces the client built from Timeout and TLSSkipVerify.
	HTTPClient *http.Client
}

// HTTPBinder binds HTTPClients that share one connection pool.
type HTTPBinder struct {
	httpClient *http.Client
	token      string
	logger     *log.Logger
}

// NewHTTPBinder creates a binder for the OMAG admin services REST API.
func NewHTTPBinder(opts Options) *HTTPBinder {
	logger := log.New(os.Stdout, "[ADMIN_CLIENT] ", log.LstdFlags)

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		if opts.TLSSkipVerify {
			tlsConfig.InsecureSkipVerify = true
			logger.Printf("WARNING: TLS verification disabled for admin calls")
		}

		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
				MaxIdleConns:    100,
				MaxConnsPerHost: 10,
				IdleConnTimeout: 90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		}
	}

	return &HTTPBinder{httpClient: client, token: opts.BearerToken, logger: logger}
}

// Bind returns a client for one server on one platform.
func (b *HTTPBinder) Bind(userID, serverName, rootURL string) Client {
	return &HTTPClient{
		httpClient: b.httpClient,
		token:      b.token,
		logger:     b.logger,
		userID:     userID,
		serverName: serverName,
		rootURL:    strings.TrimRight(rootURL, "/"),
	}
}

// HTTPClient calls the admin services of a single OMAG server platform.
type HTTPClient struct {
	httpClient *http.Client
	token      string
	logger     *log.Logger

	userID     string
	serverName string
	rootURL    string
}

// response is the envelope every admin services call returns. Only the
// configuration getters populate ServerConfig.
type response struct {
	Class                 string          `json:"class"`
	RelatedHTTPCode       int             `json:"relatedHTTPCode"`
	ExceptionClassName    string          `json:"exceptionClassName,omitempty"`
	ExceptionErrorMessage string          `json:"exceptionErrorMessage,omitempty"`
	ServerConfig          json.RawMessage `json:"omagserverConfig,omitempty"`
}

type urlRequestBody struct {
	Class   string `json:"class"`
	URLRoot string `json:"urlRoot"`
}

func (c *HTTPClient) validate(op string) error {
	switch {
	case c.userID == "":
		return NewError(KindInvalidParameter, op, "userId is required", nil)
	case c.serverName == "":
		return NewError(KindInvalidParameter, op, "serverName is required", nil)
	case c.rootURL == "":
		return NewError(KindInvalidParameter, op, "platform root URL is required", nil)
	}
	return nil
}

func (c *HTTPClient) endpoint(path string, query url.Values) string {
	u := c.rootURL + fmt.Sprintf(adminServicesPath, url.PathEscape(c.userID), url.PathEscape(c.serverName)) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// call performs one request and decodes the envelope. No retry is attempted.
func (c *HTTPClient) call(ctx context.Context, op, method, path string, query url.Values, body interface{}) (*response, error) {
	if err := c.validate(op); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, NewError(KindInvalidParameter, op, "failed to encode request body", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), bodyReader)
	if err != nil {
		return nil, NewError(KindConfigurationError, op, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewError(KindConfigurationError, op, "platform unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, NewError(KindConfigurationError, op, "failed to read response", err)
	}
	c.logger.Printf("%s %s %s: status=%d, %v", op, method, path, resp.StatusCode, time.Since(start))

	var env response
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, NewError(KindConfigurationError, op, "malformed response", err)
		}
	}

	code := env.RelatedHTTPCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code = resp.StatusCode
	}
	if code != 0 && code != http.StatusOK {
		msg := env.ExceptionErrorMessage
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &Error{
			Kind:               classifyFailure(code, env.ExceptionClassName),
			Operation:          op,
			HTTPCode:           code,
			ExceptionClassName: env.ExceptionClassName,
			Message:            msg,
		}
	}
	return &env, nil
}

func (c *HTTPClient) post(ctx context.Context, op, path string, query url.Values, body interface{}) error {
	_, err := c.call(ctx, op, http.MethodPost, path, query, body)
	return err
}

func (c *HTTPClient) getConfig(ctx context.Context, op, path string) (ServerConfig, error) {
	env, err := c.call(ctx, op, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return ServerConfig(env.ServerConfig), nil
}

func (c *HTTPClient) SetInMemLocalRepository(ctx context.Context) error {
	return c.post(ctx, "setInMemLocalRepository", "/local-repository/mode/"+string(ModeInMemory), nil, nil)
}

func (c *HTTPClient) SetGraphLocalRepository(ctx context.Context, storageProperties map[string]interface{}) error {
	return c.post(ctx, "setGraphLocalRepository", "/local-repository/mode/"+string(ModeLocalGraph), nil, storageProperties)
}

func (c *HTTPClient) SetReadOnlyLocalRepository(ctx context.Context) error {
	return c.post(ctx, "setReadOnlyLocalRepository", "/local-repository/mode/"+string(ModeReadOnly), nil, nil)
}

func (c *HTTPClient) GetStoredConfiguration(ctx context.Context) (ServerConfig, error) {
	return c.getConfig(ctx, "getStoredConfiguration", "/configuration")
}

func (c *HTTPClient) GetActiveConfiguration(ctx context.Context) (ServerConfig, error) {
	return c.getConfig(ctx, "getActiveConfiguration", "/instance/configuration")
}

func (c *HTTPClient) SetServerConfig(ctx context.Context, cfg ServerConfig) error {
	if len(bytes.TrimSpace(cfg)) == 0 {
		return NewError(KindInvalidParameter, "setOMAGServerConfig", "configuration document is required", nil)
	}
	return c.post(ctx, "setOMAGServerConfig", "/configuration", nil, cfg)
}

// DeployServerConfig asks the bound platform to push the stored
// configuration to the platform at destinationURL.
func (c *HTTPClient) DeployServerConfig(ctx context.Context, destinationURL string) error {
	return c.post(ctx, "deployOMAGServerConfig", "/configuration/deploy", nil,
		urlRequestBody{Class: "URLRequestBody", URLRoot: destinationURL})
}

func (c *HTTPClient) ConfigureAccessService(ctx context.Context, serviceURLMarker string, options map[string]interface{}) error {
	if serviceURLMarker == "" {
		return NewError(KindInvalidParameter, "configureAccessService", "serviceURLMarker is required", nil)
	}
	return c.post(ctx, "configureAccessService", "/access-services/"+url.PathEscape(serviceURLMarker), nil, options)
}

func (c *HTTPClient) ConfigureAllAccessServices(ctx context.Context, options map[string]interface{}) error {
	return c.post(ctx, "configureAllAccessServices", "/access-services", nil, options)
}

func (c *HTTPClient) SetEnterpriseAccessConfig(ctx context.Context, cfg *EnterpriseAccessConfig) error {
	if cfg == nil {
		return NewError(KindInvalidParameter, "setEnterpriseAccessConfig", "enterprise access configuration is required", nil)
	}
	if cfg.EnterpriseOMRSTopicConnection != nil {
		if err := cfg.EnterpriseOMRSTopicConnection.Validate(); err != nil {
			return NewError(KindInvalidParameter, "setEnterpriseAccessConfig", "invalid topic connection", err)
		}
	}
	body := *cfg
	if body.Class == "" {
		body.Class = ClassEnterpriseAccessConfig
	}
	return c.post(ctx, "setEnterpriseAccessConfig", "/enterprise-access/configuration", nil, body)
}

func (c *HTTPClient) SetEventBus(ctx context.Context, cfg EventBusConfig) error {
	query := url.Values{}
	if cfg.ConnectorProvider != "" {
		query.Set("connectorProvider", cfg.ConnectorProvider)
	}
	if cfg.TopicURLRoot != "" {
		query.Set("topicURLRoot", cfg.TopicURLRoot)
	}
	props := cfg.ConfigurationProperties
	if props == nil {
		props = map[string]interface{}{}
	}
	return c.post(ctx, "setEventBus", "/event-bus", query, props)
}

func (c *HTTPClient) SetDefaultAuditLog(ctx context.Context) error {
	return c.post(ctx, "setDefaultAuditLog", "/audit-log-destinations/"+string(AuditLogDefault), nil, nil)
}

func (c *HTTPClient) addSeverityDestination(ctx context.Context, op string, kind AuditLogDestinationKind, severities []string) error {
	if severities == nil {
		severities = []string{}
	}
	return c.post(ctx, op, "/audit-log-destinations/"+string(kind), nil, severities)
}

func (c *HTTPClient) AddConsoleAuditLogDestination(ctx context.Context, severities []string) error {
	return c.addSeverityDestination(ctx, "addConsoleAuditLogDestination", AuditLogConsole, severities)
}

func (c *HTTPClient) AddSLF4JAuditLogDestination(ctx context.Context, severities []string) error {
	return c.addSeverityDestination(ctx, "addSLF4JAuditLogDestination", AuditLogSLF4J, severities)
}

func (c *HTTPClient) AddFileAuditLogDestination(ctx context.Context, severities []string) error {
	return c.addSeverityDestination(ctx, "addFileAuditLogDestination", AuditLogFiles, severities)
}

func (c *HTTPClient) AddEventTopicAuditLogDestination(ctx context.Context, severities []string) error {
	return c.addSeverityDestination(ctx, "addEventTopicAuditLogDestination", AuditLogEventTopic, severities)
}

func (c *HTTPClient) AddAuditLogDestination(ctx context.Context, connection *Connection) error {
	if err := connection.Validate(); err != nil {
		return NewError(KindInvalidParameter, "addAuditLogDestination", "invalid connection", err)
	}
	return c.post(ctx, "addAuditLogDestination", "/audit-log-destinations/"+string(AuditLogConnection), nil, connection)
}
