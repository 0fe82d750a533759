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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/springborland/egeria/adminclient"
	"github.com/springborland/egeria/archive"
	"github.com/springborland/egeria/journal"
)

// maxRequestBody bounds configuration documents and option maps.
const maxRequestBody = 10 * 1024 * 1024

type contextKey string

const (
	userContextKey      contextKey = "user_id"
	requestIDContextKey contextKey = "request_id"
)

// APIResponse is the envelope of every /api/v1 response.
type APIResponse struct {
	Success   bool        `json:"success"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Kind      string      `json:"kind,omitempty"`
	Operation string      `json:"operation,omitempty"`
}

// RestoreRequest names the archive to restore.
type RestoreRequest struct {
	Key string `json:"key"`
}

// APIServer exposes a Handler over REST.
type APIServer struct {
	handler       *Handler
	archiveStore  archive.Store
	archivePrefix string
	journal       journal.Recorder
	jwtSecret     []byte
	logger        *log.Logger
}

// APIOption configures an APIServer.
type APIOption func(*APIServer)

// WithArchive enables the archive and restore routes.
func WithArchive(store archive.Store, prefix string) APIOption {
	return func(s *APIServer) {
		s.archiveStore = store
		s.archivePrefix = prefix
	}
}

// WithJournalReader enables GET /api/v1/journal.
func WithJournalReader(r journal.Recorder) APIOption {
	return func(s *APIServer) { s.journal = r }
}

// WithJWTSecret requires an HS256 bearer token on /api/v1. The token
// subject becomes the acting user.
func WithJWTSecret(secret []byte) APIOption {
	return func(s *APIServer) { s.jwtSecret = secret }
}

func NewAPIServer(h *Handler, opts ...APIOption) *APIServer {
	s := &APIServer{
		handler: h,
		logger:  log.New(os.Stdout, "[SERVER_AUTHOR_API] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes mounts the API on r under /api/v1.
func (s *APIServer) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requestIDMiddleware)
	if len(s.jwtSecret) > 0 {
		api.Use(s.authMiddleware)
	}

	api.HandleFunc("/resource-endpoints", s.listResourceEndpoints).Methods("GET")
	api.HandleFunc("/platforms/{platform}", s.getPlatform).Methods("GET")

	api.HandleFunc("/servers/{server}/local-repository/mode/{mode}", s.setLocalRepositoryMode).Methods("POST")
	api.HandleFunc("/servers/{server}/configuration", s.getStoredConfiguration).Methods("GET")
	api.HandleFunc("/servers/{server}/configuration", s.setServerConfig).Methods("POST")
	api.HandleFunc("/servers/{server}/instance/configuration", s.getActiveConfiguration).Methods("GET")
	api.HandleFunc("/platforms/{platform}/servers/{server}/configuration/deploy", s.deployServerConfig).Methods("POST")

	api.HandleFunc("/servers/{server}/access-services", s.configureAllAccessServices).Methods("POST")
	api.HandleFunc("/servers/{server}/access-services/{marker}", s.configureAccessService).Methods("POST")
	api.HandleFunc("/servers/{server}/enterprise-access/configuration", s.setEnterpriseAccessConfig).Methods("POST")
	api.HandleFunc("/servers/{server}/event-bus", s.setEventBus).Methods("POST")
	api.HandleFunc("/servers/{server}/audit-log-destinations/{kind}", s.addAuditLogDestination).Methods("POST")

	api.HandleFunc("/platforms/{platform}/servers/{server}/instance", s.activateServer).Methods("POST")
	api.HandleFunc("/platforms/{platform}/servers/{server}/instance", s.deactivateServerTemporarily).Methods("DELETE")
	api.HandleFunc("/platforms/{platform}/servers/{server}", s.deactivateServerPermanently).Methods("DELETE")

	api.HandleFunc("/servers/{server}/configuration/archive", s.archiveConfiguration).Methods("POST")
	api.HandleFunc("/servers/{server}/configuration/archives", s.listArchives).Methods("GET")
	api.HandleFunc("/servers/{server}/configuration/restore", s.restoreConfiguration).Methods("POST")

	api.HandleFunc("/journal", s.listJournal).Methods("GET")
}

func (s *APIServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *APIServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || tokenString == authHeader {
			sendErrorResponse(w, r, "missing bearer token", string(KindUnauthorized), "", http.StatusUnauthorized)
			return
		}

		userID, err := s.validateToken(tokenString)
		if err != nil {
			s.logger.Printf("Rejected token: %v", err)
			sendErrorResponse(w, r, "invalid token", string(KindUnauthorized), "", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateToken returns the subject of an HS256 token signed with the
// configured secret.
func (s *APIServer) validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %v", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}

// session returns the handler acting as the authenticated user, or as the
// configured local user when auth is disabled.
func (s *APIServer) session(r *http.Request) *Handler {
	if userID, ok := r.Context().Value(userContextKey).(string); ok {
		return s.handler.ForUser(userID)
	}
	return s.handler
}

func (s *APIServer) listResourceEndpoints(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, r, http.StatusOK, s.handler.ResourceEndpoints())
}

func (s *APIServer) getPlatform(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["platform"]
	if _, err := s.handler.ResolvePlatformURL(name); err != nil {
		s.sendError(w, r, err)
		return
	}
	platform, _ := s.handler.Registry().Platform(name)
	sendJSON(w, r, http.StatusOK, platform)
}

func (s *APIServer) setLocalRepositoryMode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mode, err := adminclient.ParseLocalRepositoryMode(vars["mode"])
	if err != nil {
		sendErrorResponse(w, r, err.Error(), string(KindInvalidParameter), "setLocalRepositoryMode", http.StatusBadRequest)
		return
	}

	var props map[string]interface{}
	if mode == adminclient.ModeLocalGraph {
		if !decodeOptionalBody(w, r, &props) {
			return
		}
	}

	if err := s.session(r).SetLocalRepositoryMode(r.Context(), vars["server"], mode, props); err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, nil)
}

func (s *APIServer) getStoredConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.session(r).GetStoredConfiguration(r.Context(), mux.Vars(r)["server"])
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, rawDocument(cfg))
}

func (s *APIServer) getActiveConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.session(r).GetActiveConfiguration(r.Context(), mux.Vars(r)["server"])
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, rawDocument(cfg))
}

func (s *APIServer) setServerConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil || !json.Valid(body) {
		sendErrorResponse(w, r, "request body must be a JSON configuration document", string(KindInvalidParameter), "setOMAGServerConfig", http.StatusBadRequest)
		return
	}

	if err := s.session(r).SetServerConfig(r.Context(), mux.Vars(r)["server"], adminclient.ServerConfig(body)); err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, nil)
}

func (s *APIServer) deployServerConfig(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.session(r).DeployServerConfig(r.Context(), vars["platform"], vars["server"]); err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, nil)
}

func (s *APIServer) configureAllAccessServices(w http.ResponseWriter, r *http.Request) {
	var options map[string]interface{}
	if !decodeOptionalBody(w, r, &options) {
		return
	}
	if err := s.session(r).ConfigureAllAccessServices(r.Context(), mux.Vars(r)["server"], options); err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, nil)
}

func (s *APIServer) configureAccessService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var options map[string]interface{}
	if !decodeOptionalBody(w, r, &options) {
		return
	}
	if err := s.session(r).ConfigureAccessService(r.Context(), vars["server"], vars["marker"], options); err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, nil)
}

func (s *APIServer) setEnterpriseAccessConfig(w http.ResponseWriter, r *http.Request) {
	var cfg adminclient.EnterpriseAccessConfig
	if !decodeBody(w, r, &cfg, "setEnterpriseAccessConfig") {
		return
	}
	if err := s.session(r).SetEnterpriseAccessConfig(r.Context(), mux.Vars(r)["server"], &cfg); err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, nil)
}

func (s *APIServer) setEventBus(w http.ResponseWriter, r *http.Request) {
	var cfg adminclient.EventBusConfig
	if !decodeBody(w, r, &cfg, "setEventBus") {
		return
	}
	if err := s.session(r).SetEventBus(r.Context(), mux.Vars(r)["server"], cfg); err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, nil)
}

func (s *APIServer) addAuditLogDestination(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, err := adminclient.ParseAuditLogDestinationKind(vars["kind"])
	if err != nil {
		sendErrorResponse(w, r, err.Error(), string(KindInvalidParameter), "addAuditLogDestination", http.StatusBadRequest)
		return
	}

	session := s.session(r)
	switch kind {
	case adminclient.AuditLogConnection:
		var conn adminclient.Connection
		if !decodeBody(w, r, &conn, "addAuditLogDestination") {
			return
		}
		err = session.AddAuditLogDestination(r.Context(), vars["server"], &conn)
	case adminclient.AuditLogDefault:
		err = session.SetDefaultAuditLog(r.Context(), vars["server"])
	default:
		var severities []string
		if !decodeOptionalBody(w, r, &severities) {
			return
		}
		err = session.AddSeverityAuditLogDestination(r.Context(), vars["server"], kind, severities)
	}
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, nil)
}

func (s *APIServer) activateServer(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.sendError(w, r, s.session(r).ActivateWithStoredConfig(r.Context(), vars["platform"], vars["server"]))
}

func (s *APIServer) deactivateServerTemporarily(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.sendError(w, r, s.session(r).DeactivateServerTemporarily(r.Context(), vars["platform"], vars["server"]))
}

func (s *APIServer) deactivateServerPermanently(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.sendError(w, r, s.session(r).DeactivateServerPermanently(r.Context(), vars["platform"], vars["server"]))
}

func (s *APIServer) archiver(r *http.Request) (*archive.Archiver, bool) {
	if s.archiveStore == nil {
		return nil, false
	}
	return archive.NewArchiver(s.archiveStore, s.session(r), s.archivePrefix), true
}

func (s *APIServer) archiveConfiguration(w http.ResponseWriter, r *http.Request) {
	a, ok := s.archiver(r)
	if !ok {
		sendErrorResponse(w, r, "configuration archive is not enabled", string(KindNotImplemented), "archiveConfiguration", http.StatusNotImplemented)
		return
	}
	key, err := a.Archive(r.Context(), mux.Vars(r)["server"])
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusCreated, map[string]string{"key": key})
}

func (s *APIServer) listArchives(w http.ResponseWriter, r *http.Request) {
	a, ok := s.archiver(r)
	if !ok {
		sendErrorResponse(w, r, "configuration archive is not enabled", string(KindNotImplemented), "listArchives", http.StatusNotImplemented)
		return
	}
	keys, err := a.List(r.Context(), mux.Vars(r)["server"])
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, keys)
}

func (s *APIServer) restoreConfiguration(w http.ResponseWriter, r *http.Request) {
	a, ok := s.archiver(r)
	if !ok {
		sendErrorResponse(w, r, "configuration archive is not enabled", string(KindNotImplemented), "restoreConfiguration", http.StatusNotImplemented)
		return
	}
	var req RestoreRequest
	if !decodeBody(w, r, &req, "restoreConfiguration") {
		return
	}
	if err := a.Restore(r.Context(), mux.Vars(r)["server"], req.Key); err != nil {
		s.sendError(w, r, err)
		return
	}
	sendJSON(w, r, http.StatusOK, nil)
}

func (s *APIServer) listJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		sendErrorResponse(w, r, "operations journal is not enabled", string(KindNotImplemented), "listJournal", http.StatusNotImplemented)
		return
	}

	filter := journal.Filter{
		ServerName: r.URL.Query().Get("server"),
		Operation:  r.URL.Query().Get("operation"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			sendErrorResponse(w, r, "limit must be a non-negative integer", string(KindInvalidParameter), "listJournal", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	entries, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Printf("Failed to list journal: %v", err)
		sendErrorResponse(w, r, "failed to read journal", "", "listJournal", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}
	sendJSON(w, r, http.StatusOK, entries)
}

// statusFor maps an error onto the HTTP status a caller sees.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingPlatform):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidParameter), errors.Is(err, archive.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, ErrConfiguration):
		return http.StatusBadGateway
	case errors.Is(err, archive.ErrObjectNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *APIServer) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	operation := ""
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		operation = svcErr.Operation
	}
	if status == http.StatusInternalServerError {
		s.logger.Printf("Request %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	sendErrorResponse(w, r, err.Error(), string(KindOf(err)), operation, status)
}

// rawDocument keeps an empty configuration from breaking the envelope.
func rawDocument(cfg adminclient.ServerConfig) interface{} {
	if len(cfg) == 0 {
		return nil
	}
	return json.RawMessage(cfg)
}

// decodeBody decodes a required JSON body, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}, operation string) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v); err != nil {
		sendErrorResponse(w, r, "invalid request body: "+err.Error(), string(KindInvalidParameter), operation, http.StatusBadRequest)
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody that accepts an empty body.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		sendErrorResponse(w, r, "invalid request body: "+err.Error(), string(KindInvalidParameter), "", http.StatusBadRequest)
		return false
	}
	return true
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDContextKey).(string)
	return id
}

func sendJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeResponse(w, status, APIResponse{
		Success:   true,
		RequestID: requestID(r),
		Data:      data,
	})
}

func sendErrorResponse(w http.ResponseWriter, r *http.Request, message, kind, operation string, statusCode int) {
	writeResponse(w, statusCode, APIResponse{
		Success:   false,
		RequestID: requestID(r),
		Error:     message,
		Kind:      kind,
		Operation: operation,
	})
}

func writeResponse(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
