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
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/springborland/egeria/config"
)

// Run is the exported entry point for the Server Author view service.
//
// It loads the configuration file, wires the handler and its optional
// journal and archive, and serves the REST API. The function blocks until
// the server fails.
//
// Environment variables used:
//   - CONFIG_FILE: path of the YAML configuration (default: config/server-author.yaml)
//   - PORT: HTTP server port (default: server.port from the configuration)
func Run() {
	log.Println("Starting Server Author view service...")

	configFile := config.ConfigFile()
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", configFile, err)
	}

	svc, err := Bootstrap(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize view service: %v", err)
	}
	log.Printf("Registered %d platforms; default platform %s",
		svc.Handler.Registry().Len(), cfg.ViewService.MetadataServerURL)

	port := config.GetEnv("PORT", strconv.Itoa(cfg.Server.Port))
	log.Printf("Server Author view service listening on port %s", port)
	if err := http.ListenAndServe(":"+port, NewRouter(svc)); err != nil {
		_ = svc.Close()
		log.Fatal(err)
	}
}

// NewRouter builds the HTTP handler serving health, metrics and the API.
func NewRouter(svc *Service) http.Handler {
	r := mux.NewRouter()

	origins := svc.Config.Server.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r.HandleFunc("/health", healthHandler(svc)).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	svc.API.RegisterRoutes(r)

	return c.Handler(r)
}

func healthHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":    "healthy",
			"service":   "server-author",
			"timestamp": time.Now().UTC(),
			"components": map[string]bool{
				"endpoint_store": svc.EndpointStore != nil,
				"journal":        svc.Journal != nil,
				"archive":        svc.Archive != nil,
			},
			"platforms": svc.Handler.Registry().Len(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(health); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
	}
}
