// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/springborland/egeria/adminclient"
	"github.com/springborland/egeria/endpoints"
	"github.com/springborland/egeria/shared/logger"
)

// binding records one Bind call.
type binding struct {
	UserID     string
	ServerName string
	RootURL    string
}

// call records one admin operation.
type call struct {
	Method string
	Args   []interface{}
}

// fakeAdmin is a Binder whose clients record calls and fail on demand.
type fakeAdmin struct {
	mu       sync.Mutex
	bindings []binding
	calls    []call

	// failures maps a Client method name to the error it returns.
	failures map[string]error
	stored   adminclient.ServerConfig
	active   adminclient.ServerConfig
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{failures: make(map[string]error)}
}

func (f *fakeAdmin) Bind(userID, serverName, rootURL string) adminclient.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings = append(f.bindings, binding{userID, serverName, rootURL})
	return &fakeClient{admin: f}
}

func (f *fakeAdmin) record(method string, args ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: method, Args: args})
	return f.failures[method]
}

func (f *fakeAdmin) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeAdmin) bindCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bindings)
}

type fakeClient struct {
	admin *fakeAdmin
}

func (c *fakeClient) SetInMemLocalRepository(ctx context.Context) error {
	return c.admin.record("SetInMemLocalRepository")
}

func (c *fakeClient) SetGraphLocalRepository(ctx context.Context, props map[string]interface{}) error {
	return c.admin.record("SetGraphLocalRepository", props)
}

func (c *fakeClient) SetReadOnlyLocalRepository(ctx context.Context) error {
	return c.admin.record("SetReadOnlyLocalRepository")
}

func (c *fakeClient) GetStoredConfiguration(ctx context.Context) (adminclient.ServerConfig, error) {
	if err := c.admin.record("GetStoredConfiguration"); err != nil {
		return nil, err
	}
	return c.admin.stored, nil
}

func (c *fakeClient) GetActiveConfiguration(ctx context.Context) (adminclient.ServerConfig, error) {
	if err := c.admin.record("GetActiveConfiguration"); err != nil {
		return nil, err
	}
	return c.admin.active, nil
}

func (c *fakeClient) SetServerConfig(ctx context.Context, cfg adminclient.ServerConfig) error {
	return c.admin.record("SetServerConfig", string(cfg))
}

func (c *fakeClient) DeployServerConfig(ctx context.Context, destinationURL string) error {
	return c.admin.record("DeployServerConfig", destinationURL)
}

func (c *fakeClient) ConfigureAccessService(ctx context.Context, marker string, options map[string]interface{}) error {
	return c.admin.record("ConfigureAccessService", marker, options)
}

func (c *fakeClient) ConfigureAllAccessServices(ctx context.Context, options map[string]interface{}) error {
	return c.admin.record("ConfigureAllAccessServices", options)
}

func (c *fakeClient) SetEnterpriseAccessConfig(ctx context.Context, cfg *adminclient.EnterpriseAccessConfig) error {
	return c.admin.record("SetEnterpriseAccessConfig", cfg)
}

func (c *fakeClient) SetEventBus(ctx context.Context, cfg adminclient.EventBusConfig) error {
	return c.admin.record("SetEventBus", cfg)
}

func (c *fakeClient) SetDefaultAuditLog(ctx context.Context) error {
	return c.admin.record("SetDefaultAuditLog")
}

func (c *fakeClient) AddConsoleAuditLogDestination(ctx context.Context, severities []string) error {
	return c.admin.record("AddConsoleAuditLogDestination", severities)
}

func (c *fakeClient) AddSLF4JAuditLogDestination(ctx context.Context, severities []string) error {
	return c.admin.record("AddSLF4JAuditLogDestination", severities)
}

func (c *fakeClient) AddFileAuditLogDestination(ctx context.Context, severities []string) error {
	return c.admin.record("AddFileAuditLogDestination", severities)
}

func (c *fakeClient) AddEventTopicAuditLogDestination(ctx context.Context, severities []string) error {
	return c.admin.record("AddEventTopicAuditLogDestination", severities)
}

func (c *fakeClient) AddAuditLogDestination(ctx context.Context, connection *adminclient.Connection) error {
	return c.admin.record("AddAuditLogDestination", connection)
}

const (
	testUser        = "garygeeke"
	testPlatformURL = "https://localhost:9443"
)

func testEntries() []endpoints.RawEndpointConfig {
	return []endpoints.RawEndpointConfig{
		{ResourceCategory: "Platform", PlatformName: "Platform1", ResourceRootURL: "https://localhost:8082"},
		{ResourceCategory: "Platform", PlatformName: "Platform2", ResourceRootURL: "https://localhost:8083"},
		{ResourceCategory: "Server", ServerName: "cocoMDS1", ResourceRootURL: "https://localhost:8084"},
	}
}

func quietLogger() *logger.Logger {
	l := logger.New(DefaultComponent)
	l.SetOutput(io.Discard)
	return l
}

func newTestHandler(admin *fakeAdmin, opts ...Option) *Handler {
	base := []Option{
		WithLogger(quietLogger()),
		WithMetrics(NewMetrics(prometheus.NewRegistry())),
	}
	return NewHandler(testUser, testPlatformURL, testEntries(), admin, append(base, opts...)...)
}
