package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adminPlatform emulates the admin services of one OMAG server platform.
type adminPlatform struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	stored   string
	denied   bool
}

func (p *adminPlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, r.Method+" "+r.URL.Path)
	p.bodies = append(p.bodies, string(body))

	w.Header().Set("Content-Type", "application/json")
	if p.denied {
		_, _ = io.WriteString(w, `{"class":"VoidResponse","relatedHTTPCode":403,"exceptionClassName":"org.odpi.openmetadata.frameworks.connectors.ffdc.UserNotAuthorizedException","exceptionErrorMessage":"user not permitted"}`)
		return
	}
	if r.Method == http.MethodGet {
		fmt.Fprintf(w, `{"class":"OMAGServerConfigResponse","relatedHTTPCode":200,"omagserverConfig":%s}`, p.stored)
		return
	}
	_, _ = io.WriteString(w, `{"class":"VoidResponse","relatedHTTPCode":200}`)
}

func (p *adminPlatform) last() (string, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return "", ""
	}
	return p.requests[len(p.requests)-1], p.bodies[len(p.bodies)-1]
}

func writeConfig(t *testing.T, platformURL string) string {
	t.Helper()
	content := fmt.Sprintf(`version: "1.0"
view_service:
  local_server_user_id: garygeeke
  metadata_server_url: %s
  resource_endpoints:
    - resource_category: Platform
      platform_name: Platform1
      resource_root_url: https://localhost:8082
    - resource_category: Platform
      platform_name: Platform2
      resource_root_url: https://localhost:8083
journal:
  backend: memory
`, platformURL)
	path := filepath.Join(t.TempDir(), "server-author.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_EndpointsList(t *testing.T) {
	cfg := writeConfig(t, "https://localhost:9443")

	out, err := runCLI(t, "--config", cfg, "endpoints", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered platforms (2)")
	assert.Contains(t, out, "Platform1")
	assert.Contains(t, out, "https://localhost:8083")
}

func TestCLI_ConfigGet(t *testing.T) {
	platform := &adminPlatform{stored: `{"localServerName":"cocoMDS1"}`}
	server := httptest.NewServer(platform)
	defer server.Close()
	cfg := writeConfig(t, server.URL)

	out, err := runCLI(t, "--config", cfg, "--server", "cocoMDS1", "config", "get")
	require.NoError(t, err)
	assert.JSONEq(t, `{"localServerName":"cocoMDS1"}`, out)

	req, _ := platform.last()
	assert.Equal(t, "GET /open-metadata/admin-services/users/garygeeke/servers/cocoMDS1/configuration", req)
}

func TestCLI_UserOverride(t *testing.T) {
	platform := &adminPlatform{}
	server := httptest.NewServer(platform)
	defer server.Close()
	cfg := writeConfig(t, server.URL)

	_, err := runCLI(t, "--config", cfg, "--server", "cocoMDS1", "--user", "erinoverview", "repository", "in-memory")
	require.NoError(t, err)

	req, _ := platform.last()
	assert.Equal(t, "POST /open-metadata/admin-services/users/erinoverview/servers/cocoMDS1/local-repository/mode/in-memory-repository", req)
}

func TestCLI_Deploy(t *testing.T) {
	platform := &adminPlatform{}
	server := httptest.NewServer(platform)
	defer server.Close()
	cfg := writeConfig(t, server.URL)

	out, err := runCLI(t, "--config", cfg, "--server", "cocoMDS1", "config", "deploy", "--platform", "Platform2")
	require.NoError(t, err)
	assert.Contains(t, out, "deployed to Platform2")

	req, body := platform.last()
	assert.Equal(t, "POST /open-metadata/admin-services/users/garygeeke/servers/cocoMDS1/configuration/deploy", req)
	var deploy map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &deploy))
	assert.Equal(t, "https://localhost:8083", deploy["urlRoot"])

	_, err = runCLI(t, "--config", cfg, "--server", "cocoMDS1", "config", "deploy", "--platform", "Platform9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MissingPlatform")
}

func TestCLI_AuditLogSeverities(t *testing.T) {
	platform := &adminPlatform{}
	server := httptest.NewServer(platform)
	defer server.Close()
	cfg := writeConfig(t, server.URL)

	_, err := runCLI(t, "--config", cfg, "--server", "cocoMDS1", "audit-log", "console", "--severity", "Error", "--severity", "Exception")
	require.NoError(t, err)

	req, body := platform.last()
	assert.True(t, strings.HasSuffix(req, "/audit-log-destinations/console"))
	assert.JSONEq(t, `["Error","Exception"]`, body)

	_, err = runCLI(t, "--config", cfg, "--server", "cocoMDS1", "audit-log", "syslog")
	assert.Error(t, err)
}

func TestCLI_UnauthorizedIsReported(t *testing.T) {
	platform := &adminPlatform{denied: true}
	server := httptest.NewServer(platform)
	defer server.Close()
	cfg := writeConfig(t, server.URL)

	_, err := runCLI(t, "--config", cfg, "--server", "cocoMDS1", "event-bus", "set", "--topic-root", "egeria")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
	assert.Contains(t, err.Error(), "user not permitted")
}

func TestCLI_Validation(t *testing.T) {
	cfg := writeConfig(t, "https://localhost:9443")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"server required", []string{"--config", cfg, "config", "get"}, "--server is required"},
		{"file required", []string{"--config", cfg, "--server", "s", "config", "set"}, "--file is required"},
		{"bad options", []string{"--config", cfg, "--server", "s", "access-service", "enable", "--options", "[1]"}, "--options must be a JSON object"},
		{"archive not configured", []string{"--config", cfg, "--server", "s", "archive", "save"}, "archive backend is not configured"},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "endpoints", "list"}, "none.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCLI_ConfigExample(t *testing.T) {
	out, err := runCLI(t, "config", "example")
	require.NoError(t, err)
	assert.Contains(t, out, "view_service:")
	assert.Contains(t, out, "resource_endpoints:")
}
