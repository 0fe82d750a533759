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

package orchestrator

import (
	"context"
	"time"

	"github.com/springborland/egeria/adminclient"
	"github.com/springborland/egeria/endpoints"
	"github.com/springborland/egeria/journal"
	"github.com/springborland/egeria/shared/logger"
)

// DefaultComponent names the view service in errors and logs.
const DefaultComponent = "server-author"

// Handler is an orchestration session: an acting user, a default platform
// and the registry of known platforms. Every operation binds a fresh admin
// client, makes one call, and classifies any failure.
type Handler struct {
	userID      string
	platformURL string
	component   string

	registry *endpoints.Registry
	binder   adminclient.Binder

	logger  *logger.Logger
	journal journal.Recorder
	metrics *Metrics
}

// Option configures a Handler.
type Option func(*Handler)

func WithComponent(name string) Option {
	return func(h *Handler) { h.component = name }
}

func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithJournal records one entry per operation. Journal failures are logged
// and never change an operation's result.
func WithJournal(r journal.Recorder) Option {
	return func(h *Handler) { h.journal = r }
}

func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler builds the session and its endpoint registry.
func NewHandler(userID, platformURL string, entries []endpoints.RawEndpointConfig, binder adminclient.Binder, opts ...Option) *Handler {
	h := &Handler{
		userID:      userID,
		platformURL: platformURL,
		component:   DefaultComponent,
		registry:    endpoints.Build(entries),
		binder:      binder,
		metrics:     defaultMetrics,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.New(h.component)
	}
	return h
}

// ForUser returns a session acting as userID that shares this session's
// registry, binder and sinks.
func (h *Handler) ForUser(userID string) *Handler {
	if userID == "" || userID == h.userID {
		return h
	}
	clone := *h
	clone.userID = userID
	return &clone
}

func (h *Handler) UserID() string      { return h.userID }
func (h *Handler) PlatformURL() string { return h.platformURL }

// Registry exposes the read-only endpoint registry.
func (h *Handler) Registry() *endpoints.Registry { return h.registry }

// ResolvePlatformURL returns the root URL registered for platformName.
func (h *Handler) ResolvePlatformURL(platformName string) (string, error) {
	rootURL, err := h.registry.ResolvePlatformURL(platformName)
	if err != nil {
		return "", missingPlatform(h.component, "resolvePlatformURL", err)
	}
	return rootURL, nil
}

// ResourceEndpoints lists the registered platforms and servers.
func (h *Handler) ResourceEndpoints() endpoints.Endpoints {
	return h.registry.ListResourceEndpoints()
}

// invoke binds a client to rootURL, runs call, and records the outcome.
func (h *Handler) invoke(ctx context.Context, operation, serverName, rootURL string, call func(adminclient.Client) error) error {
	start := time.Now()

	client := h.binder.Bind(h.userID, serverName, rootURL)
	if err := call(client); err != nil {
		svcErr := classify(h.component, operation, err)
		h.observe(ctx, operation, serverName, rootURL, start, svcErr)
		return svcErr
	}

	h.observe(ctx, operation, serverName, rootURL, start, nil)
	return nil
}

// invokeDefault runs call against the session's default platform.
func (h *Handler) invokeDefault(ctx context.Context, operation, serverName string, call func(adminclient.Client) error) error {
	return h.invoke(ctx, operation, serverName, h.platformURL, call)
}

func (h *Handler) observe(ctx context.Context, operation, serverName, rootURL string, start time.Time, svcErr *ServiceError) {
	elapsed := time.Since(start)
	durationMS := float64(elapsed.Microseconds()) / 1000.0

	outcome := journal.OutcomeSuccess
	message := ""
	fields := map[string]interface{}{
		"operation":    operation,
		"platform_url": rootURL,
	}
	if svcErr != nil {
		outcome = string(svcErr.Kind)
		message = svcErr.Message
		h.logger.ErrorWithKind(h.userID, serverName, "Operation failed", outcome, svcErr, fields)
	} else {
		h.logger.InfoWithDuration(h.userID, serverName, "Operation completed", durationMS, fields)
	}

	h.metrics.observe(operation, outcome, elapsed)

	if h.journal == nil {
		return
	}
	entry := journal.NewEntry(h.userID, serverName, rootURL, operation)
	entry.Outcome = outcome
	entry.Message = message
	entry.DurationMS = elapsed.Milliseconds()
	if err := h.journal.Record(ctx, entry); err != nil {
		h.logger.Warn(h.userID, serverName, "Failed to record journal entry", map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		})
	}
}

// SetInMemLocalRepository configures an in-memory local repository.
func (h *Handler) SetInMemLocalRepository(ctx context.Context, serverName string) error {
	return h.invokeDefault(ctx, "setInMemLocalRepository", serverName, func(c adminclient.Client) error {
		return c.SetInMemLocalRepository(ctx)
	})
}

// SetGraphLocalRepository configures a graph local repository with the
// given storage properties.
func (h *Handler) SetGraphLocalRepository(ctx context.Context, serverName string, storageProperties map[string]interface{}) error {
	return h.invokeDefault(ctx, "setGraphLocalRepository", serverName, func(c adminclient.Client) error {
		return c.SetGraphLocalRepository(ctx, storageProperties)
	})
}

// SetReadOnlyLocalRepository configures a read-only local repository.
func (h *Handler) SetReadOnlyLocalRepository(ctx context.Context, serverName string) error {
	return h.invokeDefault(ctx, "setReadOnlyLocalRepository", serverName, func(c adminclient.Client) error {
		return c.SetReadOnlyLocalRepository(ctx)
	})
}

// SetLocalRepositoryMode dispatches to the setter for mode. Storage
// properties are only used by the graph repository.
func (h *Handler) SetLocalRepositoryMode(ctx context.Context, serverName string, mode adminclient.LocalRepositoryMode, storageProperties map[string]interface{}) error {
	switch mode {
	case adminclient.ModeInMemory:
		return h.SetInMemLocalRepository(ctx, serverName)
	case adminclient.ModeLocalGraph:
		return h.SetGraphLocalRepository(ctx, serverName, storageProperties)
	case adminclient.ModeReadOnly:
		return h.SetReadOnlyLocalRepository(ctx, serverName)
	}
	return &ServiceError{
		Kind:      KindInvalidParameter,
		Component: h.component,
		Operation: "setLocalRepositoryMode",
		Field:     "mode",
		Message:   "unknown local repository mode " + string(mode),
	}
}

func (h *Handler) GetStoredConfiguration(ctx context.Context, serverName string) (adminclient.ServerConfig, error) {
	var cfg adminclient.ServerConfig
	err := h.invokeDefault(ctx, "getStoredConfiguration", serverName, func(c adminclient.Client) error {
		var err error
		cfg, err = c.GetStoredConfiguration(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h *Handler) GetActiveConfiguration(ctx context.Context, serverName string) (adminclient.ServerConfig, error) {
	var cfg adminclient.ServerConfig
	err := h.invokeDefault(ctx, "getActiveConfiguration", serverName, func(c adminclient.Client) error {
		var err error
		cfg, err = c.GetActiveConfiguration(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetServerConfig replaces the stored configuration document of a server.
func (h *Handler) SetServerConfig(ctx context.Context, serverName string, cfg adminclient.ServerConfig) error {
	return h.invokeDefault(ctx, "setOMAGServerConfig", serverName, func(c adminclient.Client) error {
		return c.SetServerConfig(ctx, cfg)
	})
}

// DeployServerConfig pushes the stored configuration of a server to the
// platform registered as destinationPlatform. The name is resolved before
// any client is bound.
func (h *Handler) DeployServerConfig(ctx context.Context, destinationPlatform, serverName string) error {
	const operation = "deployOMAGServerConfig"

	destinationURL, err := h.registry.ResolvePlatformURL(destinationPlatform)
	if err != nil {
		svcErr := missingPlatform(h.component, operation, err)
		h.observe(ctx, operation, serverName, "", time.Now(), svcErr)
		return svcErr
	}

	return h.invokeDefault(ctx, operation, serverName, func(c adminclient.Client) error {
		return c.DeployServerConfig(ctx, destinationURL)
	})
}

// ConfigureAccessService enables the access service at serviceURLMarker.
func (h *Handler) ConfigureAccessService(ctx context.Context, serverName, serviceURLMarker string, options map[string]interface{}) error {
	if options == nil {
		options = map[string]interface{}{}
	}
	return h.invokeDefault(ctx, "configureAccessService", serverName, func(c adminclient.Client) error {
		return c.ConfigureAccessService(ctx, serviceURLMarker, options)
	})
}

// ConfigureAllAccessServices enables every registered access service.
func (h *Handler) ConfigureAllAccessServices(ctx context.Context, serverName string, options map[string]interface{}) error {
	if options == nil {
		options = map[string]interface{}{}
	}
	return h.invokeDefault(ctx, "configureAllAccessServices", serverName, func(c adminclient.Client) error {
		return c.ConfigureAllAccessServices(ctx, options)
	})
}

func (h *Handler) SetEnterpriseAccessConfig(ctx context.Context, serverName string, cfg *adminclient.EnterpriseAccessConfig) error {
	return h.invokeDefault(ctx, "setEnterpriseAccessConfig", serverName, func(c adminclient.Client) error {
		return c.SetEnterpriseAccessConfig(ctx, cfg)
	})
}

func (h *Handler) SetEventBus(ctx context.Context, serverName string, cfg adminclient.EventBusConfig) error {
	return h.invokeDefault(ctx, "setEventBus", serverName, func(c adminclient.Client) error {
		return c.SetEventBus(ctx, cfg)
	})
}

func (h *Handler) SetDefaultAuditLog(ctx context.Context, serverName string) error {
	return h.invokeDefault(ctx, "setDefaultAuditLog", serverName, func(c adminclient.Client) error {
		return c.SetDefaultAuditLog(ctx)
	})
}

func (h *Handler) AddConsoleAuditLogDestination(ctx context.Context, serverName string, severities []string) error {
	return h.invokeDefault(ctx, "addConsoleAuditLogDestination", serverName, func(c adminclient.Client) error {
		return c.AddConsoleAuditLogDestination(ctx, severities)
	})
}

func (h *Handler) AddSLF4JAuditLogDestination(ctx context.Context, serverName string, severities []string) error {
	return h.invokeDefault(ctx, "addSLF4JAuditLogDestination", serverName, func(c adminclient.Client) error {
		return c.AddSLF4JAuditLogDestination(ctx, severities)
	})
}

func (h *Handler) AddFileAuditLogDestination(ctx context.Context, serverName string, severities []string) error {
	return h.invokeDefault(ctx, "addFileAuditLogDestination", serverName, func(c adminclient.Client) error {
		return c.AddFileAuditLogDestination(ctx, severities)
	})
}

func (h *Handler) AddEventTopicAuditLogDestination(ctx context.Context, serverName string, severities []string) error {
	return h.invokeDefault(ctx, "addEventTopicAuditLogDestination", serverName, func(c adminclient.Client) error {
		return c.AddEventTopicAuditLogDestination(ctx, severities)
	})
}

// AddAuditLogDestination adds a destination described by a full connection.
func (h *Handler) AddAuditLogDestination(ctx context.Context, serverName string, connection *adminclient.Connection) error {
	return h.invokeDefault(ctx, "addAuditLogDestination", serverName, func(c adminclient.Client) error {
		return c.AddAuditLogDestination(ctx, connection)
	})
}

// AddSeverityAuditLogDestination dispatches on the destination kind. The
// connection kind is not accepted here since it takes a Connection.
func (h *Handler) AddSeverityAuditLogDestination(ctx context.Context, serverName string, kind adminclient.AuditLogDestinationKind, severities []string) error {
	switch kind {
	case adminclient.AuditLogDefault:
		return h.SetDefaultAuditLog(ctx, serverName)
	case adminclient.AuditLogConsole:
		return h.AddConsoleAuditLogDestination(ctx, serverName, severities)
	case adminclient.AuditLogSLF4J:
		return h.AddSLF4JAuditLogDestination(ctx, serverName, severities)
	case adminclient.AuditLogFiles:
		return h.AddFileAuditLogDestination(ctx, serverName, severities)
	case adminclient.AuditLogEventTopic:
		return h.AddEventTopicAuditLogDestination(ctx, serverName, severities)
	}
	return &ServiceError{
		Kind:      KindInvalidParameter,
		Component: h.component,
		Operation: "addAuditLogDestination",
		Field:     "kind",
		Message:   "unsupported severity audit log destination " + string(kind),
	}
}

// ActivateWithStoredConfig is not supported. No platform is contacted.
func (h *Handler) ActivateWithStoredConfig(ctx context.Context, platformName, serverName string) error {
	return h.lifecycleStub(ctx, "activateWithStoredConfig", serverName)
}

// DeactivateServerPermanently is not supported. No platform is contacted.
func (h *Handler) DeactivateServerPermanently(ctx context.Context, platformName, serverName string) error {
	return h.lifecycleStub(ctx, "deactivateServerPermanently", serverName)
}

// DeactivateServerTemporarily is not supported. No platform is contacted.
func (h *Handler) DeactivateServerTemporarily(ctx context.Context, platformName, serverName string) error {
	return h.lifecycleStub(ctx, "deactivateServerTemporarily", serverName)
}

func (h *Handler) lifecycleStub(ctx context.Context, operation, serverName string) error {
	svcErr := notImplemented(h.component, operation)
	h.observe(ctx, operation, serverName, "", time.Now(), svcErr)
	return svcErr
}
