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

package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/springborland/egeria/adminclient"
	"github.com/springborland/egeria/config"
)

var (
	// ErrObjectNotFound is returned when an archive key does not exist
	ErrObjectNotFound = errors.New("archive object not found")

	// ErrInvalidKey is returned when a key does not belong to the named server
	ErrInvalidKey = errors.New("invalid archive key")
)

// Store is an object store holding archived configuration documents.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Backend() string
}

// StoreError wraps a failed object store call.
type StoreError struct {
	Backend   string
	Operation string
	Key       string
	Cause     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("[%s] %s %s: %v", e.Backend, e.Operation, e.Key, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

func newStoreError(backend, op, key string, cause error) *StoreError {
	return &StoreError{Backend: backend, Operation: op, Key: key, Cause: cause}
}

// ConfigSource reads and writes stored server configuration documents.
type ConfigSource interface {
	GetStoredConfiguration(ctx context.Context, serverName string) (adminclient.ServerConfig, error)
	SetServerConfig(ctx context.Context, serverName string, cfg adminclient.ServerConfig) error
}

// NewStore builds the object store named in the archive section. The
// "none" backend returns a nil Store.
func NewStore(ctx context.Context, cfg config.ArchiveSection) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "s3":
		return NewS3Store(ctx, cfg)
	case "gcs":
		return NewGCSStore(ctx, cfg)
	case "azure":
		return NewAzureBlobStore(cfg)
	}
	return nil, fmt.Errorf("unsupported archive backend: %s", cfg.Backend)
}

// Archiver copies stored configuration documents to and from a Store.
type Archiver struct {
	store  Store
	source ConfigSource
	prefix string
	now    func() time.Time
	logger *log.Logger
}

func NewArchiver(store Store, source ConfigSource, prefix string) *Archiver {
	if prefix == "" {
		prefix = config.DefaultArchivePrefix
	}
	return &Archiver{
		store:  store,
		source: source,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		logger: log.New(os.Stdout, "[CONFIG_ARCHIVE] ", log.LstdFlags),
	}
}

func (a *Archiver) serverPrefix(serverName string) string {
	return path.Join(a.prefix, serverName) + "/"
}

// Archive reads the stored configuration of a server and writes it under
// <prefix>/<server>/<UTC timestamp>.json. It returns the key written.
func (a *Archiver) Archive(ctx context.Context, serverName string) (string, error) {
	if serverName == "" {
		return "", fmt.Errorf("%w: server name is required", ErrInvalidKey)
	}

	doc, err := a.source.GetStoredConfiguration(ctx, serverName)
	if err != nil {
		return "", err
	}
	if !json.Valid(doc) {
		return "", fmt.Errorf("stored configuration for %s is not valid JSON", serverName)
	}

	key := a.serverPrefix(serverName) + a.now().UTC().Format("20060102T150405.000Z") + ".json"
	if err := a.store.Put(ctx, key, doc); err != nil {
		return "", err
	}

	a.logger.Printf("Archived configuration of %s to %s://%s", serverName, a.store.Backend(), key)
	return key, nil
}

// Restore replaces the stored configuration of a server with an archived
// document. The key must belong to the same server.
func (a *Archiver) Restore(ctx context.Context, serverName, key string) error {
	if serverName == "" || !strings.HasPrefix(key, a.serverPrefix(serverName)) {
		return fmt.Errorf("%w: %q is not an archive of server %q", ErrInvalidKey, key, serverName)
	}

	doc, err := a.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !json.Valid(doc) {
		return fmt.Errorf("archived document %s is not valid JSON", key)
	}

	if err := a.source.SetServerConfig(ctx, serverName, adminclient.ServerConfig(doc)); err != nil {
		return err
	}

	a.logger.Printf("Restored configuration of %s from %s://%s", serverName, a.store.Backend(), key)
	return nil
}

// List returns the archive keys of a server, oldest first.
func (a *Archiver) List(ctx context.Context, serverName string) ([]string, error) {
	if serverName == "" {
		return nil, fmt.Errorf("%w: server name is required", ErrInvalidKey)
	}
	return a.store.List(ctx, a.serverPrefix(serverName))
}
