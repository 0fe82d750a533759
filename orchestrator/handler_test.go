// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/springborland/egeria/adminclient"
	"github.com/springborland/egeria/endpoints"
	"github.com/springborland/egeria/journal"
)

func TestHandler_ResolvePlatformURL(t *testing.T) {
	h := newTestHandler(newFakeAdmin())

	url, err := h.ResolvePlatformURL("Platform1")
	require.NoError(t, err)
	assert.Equal(t, "https://localhost:8082", url)

	for _, name := range []string{"Platform9", ""} {
		t.Run(fmt.Sprintf("missing %q", name), func(t *testing.T) {
			_, err := h.ResolvePlatformURL(name)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingPlatform)
			assert.Equal(t, KindMissingPlatform, KindOf(err))

			var svcErr *ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, endpoints.PlatformNameField, svcErr.Field)
			assert.Equal(t, DefaultComponent, svcErr.Component)
		})
	}
}

func TestHandler_ResourceEndpointsKeepsOnlyPlatforms(t *testing.T) {
	h := newTestHandler(newFakeAdmin())

	eps := h.ResourceEndpoints()
	require.Len(t, eps.Platforms, 2)
	assert.Equal(t, "Platform1", eps.Platforms[0].Name)
	assert.Equal(t, "Platform2", eps.Platforms[1].Name)
	assert.NotNil(t, eps.Servers)
	assert.Empty(t, eps.Servers)
}

func TestHandler_OperationsBindAndForward(t *testing.T) {
	ctx := context.Background()
	conn := &adminclient.Connection{Class: adminclient.ClassConnection}
	eac := &adminclient.EnterpriseAccessConfig{EnterpriseMetadataCollectionName: "coco"}
	bus := adminclient.EventBusConfig{ConnectorProvider: "kafka", TopicURLRoot: "egeria"}
	severities := []string{"Error", "Exception"}

	tests := []struct {
		name       string
		run        func(h *Handler) error
		wantMethod string
		wantArgs   []interface{}
	}{
		{"in-memory repository", func(h *Handler) error { return h.SetInMemLocalRepository(ctx, "cocoMDS1") }, "SetInMemLocalRepository", nil},
		{"graph repository", func(h *Handler) error {
			return h.SetGraphLocalRepository(ctx, "cocoMDS1", map[string]interface{}{"storagePath": "/data"})
		}, "SetGraphLocalRepository", []interface{}{map[string]interface{}{"storagePath": "/data"}}},
		{"read-only repository", func(h *Handler) error { return h.SetReadOnlyLocalRepository(ctx, "cocoMDS1") }, "SetReadOnlyLocalRepository", nil},
		{"set server config", func(h *Handler) error {
			return h.SetServerConfig(ctx, "cocoMDS1", adminclient.ServerConfig(`{"a":1}`))
		}, "SetServerConfig", []interface{}{`{"a":1}`}},
		{"configure access service", func(h *Handler) error {
			return h.ConfigureAccessService(ctx, "cocoMDS1", "asset-consumer", map[string]interface{}{"k": "v"})
		}, "ConfigureAccessService", []interface{}{"asset-consumer", map[string]interface{}{"k": "v"}}},
		{"nil access service options become empty", func(h *Handler) error {
			return h.ConfigureAccessService(ctx, "cocoMDS1", "asset-owner", nil)
		}, "ConfigureAccessService", []interface{}{"asset-owner", map[string]interface{}{}}},
		{"nil all-access-services options become empty", func(h *Handler) error {
			return h.ConfigureAllAccessServices(ctx, "cocoMDS1", nil)
		}, "ConfigureAllAccessServices", []interface{}{map[string]interface{}{}}},
		{"enterprise access", func(h *Handler) error { return h.SetEnterpriseAccessConfig(ctx, "cocoMDS1", eac) }, "SetEnterpriseAccessConfig", []interface{}{eac}},
		{"event bus", func(h *Handler) error { return h.SetEventBus(ctx, "cocoMDS1", bus) }, "SetEventBus", []interface{}{bus}},
		{"default audit log", func(h *Handler) error { return h.SetDefaultAuditLog(ctx, "cocoMDS1") }, "SetDefaultAuditLog", nil},
		{"console audit log", func(h *Handler) error { return h.AddConsoleAuditLogDestination(ctx, "cocoMDS1", severities) }, "AddConsoleAuditLogDestination", []interface{}{severities}},
		{"slf4j audit log", func(h *Handler) error { return h.AddSLF4JAuditLogDestination(ctx, "cocoMDS1", severities) }, "AddSLF4JAuditLogDestination", []interface{}{severities}},
		{"file audit log", func(h *Handler) error { return h.AddFileAuditLogDestination(ctx, "cocoMDS1", severities) }, "AddFileAuditLogDestination", []interface{}{severities}},
		{"event topic audit log", func(h *Handler) error { return h.AddEventTopicAuditLogDestination(ctx, "cocoMDS1", severities) }, "AddEventTopicAuditLogDestination", []interface{}{severities}},
		{"connection audit log", func(h *Handler) error { return h.AddAuditLogDestination(ctx, "cocoMDS1", conn) }, "AddAuditLogDestination", []interface{}{conn}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin := newFakeAdmin()
			h := newTestHandler(admin)

			require.NoError(t, tt.run(h))
			require.Len(t, admin.bindings, 1)
			assert.Equal(t, binding{testUser, "cocoMDS1", testPlatformURL}, admin.bindings[0])

			got := admin.lastCall()
			assert.Equal(t, tt.wantMethod, got.Method)
			if tt.wantArgs != nil {
				assert.Equal(t, tt.wantArgs, got.Args)
			}
		})
	}
}

func TestHandler_ConfigurationGetters(t *testing.T) {
	admin := newFakeAdmin()
	admin.stored = adminclient.ServerConfig(`{"localServerName":"cocoMDS1"}`)
	admin.active = adminclient.ServerConfig(`{"localServerName":"cocoMDS1","active":true}`)
	h := newTestHandler(admin)

	stored, err := h.GetStoredConfiguration(context.Background(), "cocoMDS1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"localServerName":"cocoMDS1"}`, string(stored))

	active, err := h.GetActiveConfiguration(context.Background(), "cocoMDS1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"localServerName":"cocoMDS1","active":true}`, string(active))
}

func TestHandler_SetLocalRepositoryMode(t *testing.T) {
	tests := []struct {
		mode       adminclient.LocalRepositoryMode
		wantMethod string
	}{
		{adminclient.ModeInMemory, "SetInMemLocalRepository"},
		{adminclient.ModeLocalGraph, "SetGraphLocalRepository"},
		{adminclient.ModeReadOnly, "SetReadOnlyLocalRepository"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			admin := newFakeAdmin()
			require.NoError(t, newTestHandler(admin).SetLocalRepositoryMode(context.Background(), "cocoMDS1", tt.mode, nil))
			assert.Equal(t, tt.wantMethod, admin.lastCall().Method)
		})
	}

	t.Run("unknown mode", func(t *testing.T) {
		admin := newFakeAdmin()
		err := newTestHandler(admin).SetLocalRepositoryMode(context.Background(), "cocoMDS1", "in-flash", nil)
		assert.ErrorIs(t, err, ErrInvalidParameter)
		assert.Zero(t, admin.bindCount())
	})
}

func TestHandler_FailureClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantIs   error
	}{
		{
			name:     "not authorized",
			err:      adminclient.NewError(adminclient.KindNotAuthorized, "setEventBus", "user garygeeke is not permitted", nil),
			wantKind: KindUnauthorized,
			wantIs:   ErrUnauthorized,
		},
		{
			name:     "invalid parameter",
			err:      adminclient.NewError(adminclient.KindInvalidParameter, "setEventBus", "bad topic root", nil),
			wantKind: KindInvalidParameter,
			wantIs:   ErrInvalidParameter,
		},
		{
			name:     "configuration error",
			err:      adminclient.NewError(adminclient.KindConfigurationError, "setEventBus", "server not known", nil),
			wantKind: KindConfiguration,
			wantIs:   ErrConfiguration,
		},
		{
			name:     "unclassified error is a configuration error",
			err:      errors.New("connection reset"),
			wantKind: KindConfiguration,
			wantIs:   ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin := newFakeAdmin()
			admin.failures["SetEventBus"] = tt.err
			h := newTestHandler(admin)

			err := h.SetEventBus(context.Background(), "cocoMDS1", adminclient.EventBusConfig{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.ErrorIs(t, err, tt.err)

			var svcErr *ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, tt.wantKind, svcErr.Kind)
			assert.Equal(t, "setEventBus", svcErr.Operation)
			assert.Equal(t, DefaultComponent, svcErr.Component)
			assert.Equal(t, 1, admin.bindCount(), "no retry")
		})
	}
}

func TestHandler_UnauthorizedKeepsPlatformMessage(t *testing.T) {
	admin := newFakeAdmin()
	admin.failures["SetEventBus"] = adminclient.NewError(adminclient.KindNotAuthorized, "setEventBus", "user garygeeke is not permitted", nil)

	err := newTestHandler(admin).SetEventBus(context.Background(), "cocoMDS1", adminclient.EventBusConfig{})

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "user garygeeke is not permitted", svcErr.Message)
	assert.Equal(t, "server-author setEventBus: Unauthorized: user garygeeke is not permitted", svcErr.Error())
}

func TestHandler_DeployServerConfig(t *testing.T) {
	t.Run("resolves destination and binds default platform", func(t *testing.T) {
		admin := newFakeAdmin()
		h := newTestHandler(admin)

		require.NoError(t, h.DeployServerConfig(context.Background(), "Platform2", "cocoMDS1"))
		require.Len(t, admin.bindings, 1)
		assert.Equal(t, testPlatformURL, admin.bindings[0].RootURL)
		assert.Equal(t, call{Method: "DeployServerConfig", Args: []interface{}{"https://localhost:8083"}}, admin.lastCall())
	})

	t.Run("unknown destination fails before binding", func(t *testing.T) {
		admin := newFakeAdmin()
		h := newTestHandler(admin)

		err := h.DeployServerConfig(context.Background(), "Platform9", "cocoMDS1")
		assert.ErrorIs(t, err, ErrMissingPlatform)
		assert.Equal(t, "deployOMAGServerConfig", err.(*ServiceError).Operation)
		assert.Zero(t, admin.bindCount())
	})
}

func TestHandler_LifecycleStubs(t *testing.T) {
	stubs := map[string]func(h *Handler) error{
		"activateWithStoredConfig": func(h *Handler) error {
			return h.ActivateWithStoredConfig(context.Background(), "Platform1", "cocoMDS1")
		},
		"deactivateServerPermanently": func(h *Handler) error {
			return h.DeactivateServerPermanently(context.Background(), "Platform1", "cocoMDS1")
		},
		"deactivateServerTemporarily": func(h *Handler) error {
			return h.DeactivateServerTemporarily(context.Background(), "Platform9", "cocoMDS1")
		},
	}

	for operation, run := range stubs {
		t.Run(operation, func(t *testing.T) {
			admin := newFakeAdmin()
			err := run(newTestHandler(admin))

			assert.ErrorIs(t, err, ErrNotImplemented)
			assert.Equal(t, KindNotImplemented, KindOf(err))
			assert.Equal(t, operation, err.(*ServiceError).Operation)
			assert.Zero(t, admin.bindCount())
		})
	}
}

func TestHandler_AddSeverityAuditLogDestination(t *testing.T) {
	tests := []struct {
		kind       adminclient.AuditLogDestinationKind
		wantMethod string
	}{
		{adminclient.AuditLogDefault, "SetDefaultAuditLog"},
		{adminclient.AuditLogConsole, "AddConsoleAuditLogDestination"},
		{adminclient.AuditLogSLF4J, "AddSLF4JAuditLogDestination"},
		{adminclient.AuditLogFiles, "AddFileAuditLogDestination"},
		{adminclient.AuditLogEventTopic, "AddEventTopicAuditLogDestination"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			admin := newFakeAdmin()
			require.NoError(t, newTestHandler(admin).AddSeverityAuditLogDestination(context.Background(), "cocoMDS1", tt.kind, nil))
			assert.Equal(t, tt.wantMethod, admin.lastCall().Method)
		})
	}

	err := newTestHandler(newFakeAdmin()).AddSeverityAuditLogDestination(context.Background(), "cocoMDS1", adminclient.AuditLogConnection, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestHandler_ForUser(t *testing.T) {
	admin := newFakeAdmin()
	h := newTestHandler(admin)

	assert.Same(t, h, h.ForUser(""))
	assert.Same(t, h, h.ForUser(testUser))

	other := h.ForUser("erinoverview")
	assert.Equal(t, "erinoverview", other.UserID())
	assert.Equal(t, testUser, h.UserID())
	assert.Same(t, h.Registry(), other.Registry())

	require.NoError(t, other.SetDefaultAuditLog(context.Background(), "cocoMDS1"))
	assert.Equal(t, "erinoverview", admin.bindings[0].UserID)
}

func TestHandler_JournalRecordsOutcomes(t *testing.T) {
	admin := newFakeAdmin()
	admin.failures["SetEventBus"] = adminclient.NewError(adminclient.KindNotAuthorized, "setEventBus", "denied", nil)
	recorder := journal.NewMemoryJournal(10)
	h := newTestHandler(admin, WithJournal(recorder))
	ctx := context.Background()

	require.NoError(t, h.SetDefaultAuditLog(ctx, "cocoMDS1"))
	require.Error(t, h.SetEventBus(ctx, "cocoMDS1", adminclient.EventBusConfig{}))
	require.Error(t, h.DeployServerConfig(ctx, "Platform9", "cocoMDS2"))

	entries, err := recorder.List(ctx, journal.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "deployOMAGServerConfig", entries[0].Operation)
	assert.Equal(t, string(KindMissingPlatform), entries[0].Outcome)
	assert.Equal(t, "cocoMDS2", entries[0].ServerName)

	assert.Equal(t, "setEventBus", entries[1].Operation)
	assert.Equal(t, string(KindUnauthorized), entries[1].Outcome)
	assert.Equal(t, "denied", entries[1].Message)

	assert.Equal(t, "setDefaultAuditLog", entries[2].Operation)
	assert.Equal(t, journal.OutcomeSuccess, entries[2].Outcome)
	assert.Equal(t, testUser, entries[2].UserID)
	assert.Equal(t, testPlatformURL, entries[2].PlatformURL)
}

type failingRecorder struct{ journal.MemoryJournal }

func (f *failingRecorder) Record(context.Context, *journal.Entry) error {
	return errors.New("journal unavailable")
}

func TestHandler_JournalFailureDoesNotChangeResult(t *testing.T) {
	admin := newFakeAdmin()
	h := newTestHandler(admin, WithJournal(&failingRecorder{}))

	assert.NoError(t, h.SetDefaultAuditLog(context.Background(), "cocoMDS1"))
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	admin := newFakeAdmin()
	admin.failures["SetReadOnlyLocalRepository"] = adminclient.NewError(adminclient.KindInvalidParameter, "setReadOnlyLocalRepository", "bad", nil)
	h := newTestHandler(admin, WithMetrics(metrics))
	ctx := context.Background()

	require.NoError(t, h.SetInMemLocalRepository(ctx, "cocoMDS1"))
	require.NoError(t, h.SetInMemLocalRepository(ctx, "cocoMDS2"))
	require.Error(t, h.SetReadOnlyLocalRepository(ctx, "cocoMDS1"))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.operations.WithLabelValues("setInMemLocalRepository", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues("setReadOnlyLocalRepository", "InvalidParameter")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.duration))
}

func TestHandler_BuildIsDeterministic(t *testing.T) {
	a := newTestHandler(newFakeAdmin())
	b := newTestHandler(newFakeAdmin())

	assert.Equal(t, a.ResourceEndpoints(), b.ResourceEndpoints())
	for _, name := range []string{"Platform1", "Platform2"} {
		ua, _ := a.ResolvePlatformURL(name)
		ub, _ := b.ResolvePlatformURL(name)
		assert.Equal(t, ua, ub)
	}
}
