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
	"errors"
	"fmt"
	"log"

	"github.com/springborland/egeria/adminclient"
	"github.com/springborland/egeria/archive"
	"github.com/springborland/egeria/config"
	"github.com/springborland/egeria/endpoints"
	"github.com/springborland/egeria/journal"
)

// Service is a fully wired view service.
type Service struct {
	Config  *config.ServiceConfig
	Handler *Handler
	API     *APIServer

	Journal       journal.Recorder
	Archive       archive.Store
	EndpointStore *endpoints.SQLStorage
}

// Bootstrap wires the handler and its optional sinks from cfg. Endpoints
// from the endpoint store are appended to the file-configured ones before
// the registry is built.
func Bootstrap(ctx context.Context, cfg *config.ServiceConfig, opts ...Option) (*Service, error) {
	svc := &Service{Config: cfg}

	secrets, err := config.NewSecretsManager(ctx, cfg.Secrets)
	if err != nil {
		return nil, err
	}

	entries := append([]endpoints.RawEndpointConfig(nil), cfg.ViewService.ResourceEndpoints...)
	if cfg.EndpointStore.URL != "" {
		driver := cfg.EndpointStore.Driver
		if driver == "" {
			driver = endpoints.DriverPostgres
		}
		store, err := endpoints.NewSQLStorage(driver, cfg.EndpointStore.URL)
		if err != nil {
			return nil, fmt.Errorf("endpoint store: %w", err)
		}
		svc.EndpointStore = store

		stored, err := store.ListEndpoints(ctx)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("endpoint store: %w", err)
		}
		entries = append(entries, stored...)
		log.Printf("Loaded %d resource endpoints from the endpoint store", len(stored))
	}

	binderOpts := adminclient.Options{
		Timeout:       cfg.AdminClient.Timeout(),
		TLSSkipVerify: cfg.AdminClient.TLSSkipVerify,
	}
	if ref := cfg.AdminClient.TokenSecretRef; ref != "" {
		token, err := config.ResolveSecretRef(ctx, secrets, ref)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("admin client token: %w", err)
		}
		binderOpts.BearerToken = token
	}

	recorder, err := journal.NewRecorder(ctx, journal.Options{
		Backend:     cfg.Journal.Backend,
		URL:         cfg.Journal.URL,
		Database:    cfg.Journal.Database,
		Collection:  cfg.Journal.Collection,
		MaxEntries:  cfg.Journal.MaxEntries,
		Consistency: cfg.Journal.Consistency,
	})
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	svc.Journal = recorder

	store, err := archive.NewStore(ctx, cfg.Archive)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("archive: %w", err)
	}
	svc.Archive = store

	jwtSecret := cfg.Auth.JWTSecret
	if ref := cfg.Auth.JWTSecretRef; ref != "" {
		jwtSecret, err = config.ResolveSecretRef(ctx, secrets, ref)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("jwt secret: %w", err)
		}
	}

	handlerOpts := []Option{WithComponent(cfg.ViewService.Component)}
	if recorder != nil {
		handlerOpts = append(handlerOpts, WithJournal(recorder))
	}
	handlerOpts = append(handlerOpts, opts...)

	svc.Handler = NewHandler(
		cfg.ViewService.LocalServerUserID,
		cfg.ViewService.MetadataServerURL,
		entries,
		adminclient.NewHTTPBinder(binderOpts),
		handlerOpts...,
	)

	var apiOpts []APIOption
	if store != nil {
		apiOpts = append(apiOpts, WithArchive(store, cfg.Archive.Prefix))
	}
	if recorder != nil {
		apiOpts = append(apiOpts, WithJournalReader(recorder))
	}
	if jwtSecret != "" {
		apiOpts = append(apiOpts, WithJWTSecret([]byte(jwtSecret)))
	}
	svc.API = NewAPIServer(svc.Handler, apiOpts...)

	return svc, nil
}

// Close releases the journal and endpoint store connections.
func (s *Service) Close() error {
	var errs []error
	if s.Journal != nil {
		errs = append(errs, s.Journal.Close())
	}
	if s.EndpointStore != nil {
		errs = append(errs, s.EndpointStore.Close())
	}
	if closer, ok := s.Archive.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
