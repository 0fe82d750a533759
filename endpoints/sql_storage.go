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

package endpoints

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// SQLStorage persists raw endpoint records so that endpoints added at
// runtime survive restarts. Records are read once at startup and merged
// with file configuration before Build.
type SQLStorage struct {
	db     *sql.DB
	driver string
	logger *log.Logger
}

// NewSQLStorage connects to PostgreSQL or MySQL and creates the endpoint
// table when missing.
func NewSQLStorage(driver, dsn string) (*SQLStorage, error) {
	if driver != DriverPostgres && driver != DriverMySQL {
		return nil, fmt.Errorf("unsupported endpoint store driver: %s", driver)
	}

	db, err := connectWithRetry(func() (*sql.DB, error) { return sql.Open(driver, dsn) }, driver, connectAttempts, connectBackoff)
	if err != nil {
		return nil, err
	}

	s, err := newSQLStorage(db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DNS inside a fresh container can lag the process start by a few seconds.
const connectAttempts = 5

func connectBackoff(attempt int) time.Duration {
	return time.Duration(attempt*2) * time.Second
}

// connectWithRetry opens and pings until one attempt succeeds. Every handle
// from a failed attempt is closed before the next one.
func connectWithRetry(open func() (*sql.DB, error), driver string, maxRetries int, backoff func(int) time.Duration) (*sql.DB, error) {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		var db *sql.DB
		db, err = open()
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Printf("[EndpointStorage] Connected to %s (attempt %d/%d)", driver, attempt, maxRetries)
				return db, nil
			}
			_ = db.Close()
		}

		if attempt < maxRetries {
			wait := backoff(attempt)
			log.Printf("[EndpointStorage] Database connection failed (attempt %d/%d): %v, retrying in %v", attempt, maxRetries, err, wait)
			time.Sleep(wait)
		}
	}
	return nil, fmt.Errorf("failed to connect to endpoint store after %d attempts: %w", maxRetries, err)
}

func newSQLStorage(db *sql.DB, driver string) (*SQLStorage, error) {
	s := &SQLStorage{
		db:     db,
		driver: driver,
		logger: log.New(log.Writer(), "[EndpointStorage] ", log.LstdFlags),
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStorage) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS resource_endpoints (
		id VARCHAR(512) PRIMARY KEY,
		resource_category VARCHAR(50) NOT NULL,
		platform_name VARCHAR(255) NOT NULL DEFAULT '',
		server_name VARCHAR(255) NOT NULL DEFAULT '',
		resource_root_url VARCHAR(1024) NOT NULL,
		description VARCHAR(1024) NOT NULL DEFAULT ''
	)`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// recordID keys a record by category and the name that category resolves on.
func recordID(e RawEndpointConfig) string {
	if Category(e.ResourceCategory) == CategoryServer {
		return e.ResourceCategory + "/" + e.ServerName + "@" + e.ResourceRootURL
	}
	return e.ResourceCategory + "/" + e.PlatformName
}

func (s *SQLStorage) upsertQuery() string {
	if s.driver == DriverMySQL {
		return `
		INSERT INTO resource_endpoints (id, resource_category, platform_name, server_name, resource_root_url, description)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			resource_root_url = VALUES(resource_root_url),
			description = VALUES(description)`
	}
	return `
		INSERT INTO resource_endpoints (id, resource_category, platform_name, server_name, resource_root_url, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			resource_root_url = EXCLUDED.resource_root_url,
			description = EXCLUDED.description`
}

// SaveEndpoint inserts or replaces a raw endpoint record.
func (s *SQLStorage) SaveEndpoint(ctx context.Context, e RawEndpointConfig) error {
	if e.ResourceCategory == "" || e.ResourceRootURL == "" {
		return &ConfigError{Cause: fmt.Errorf("resource category and root URL are required")}
	}

	_, err := s.db.ExecContext(ctx, s.upsertQuery(),
		recordID(e),
		e.ResourceCategory,
		e.PlatformName,
		e.ServerName,
		e.ResourceRootURL,
		e.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to save endpoint: %w", err)
	}

	s.logger.Printf("Saved endpoint: %s", recordID(e))
	return nil
}

// ListEndpoints returns every stored record ordered by id.
func (s *SQLStorage) ListEndpoints(ctx context.Context) ([]RawEndpointConfig, error) {
	query := `SELECT resource_category, platform_name, server_name, resource_root_url, description
		FROM resource_endpoints ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RawEndpointConfig
	for rows.Next() {
		var e RawEndpointConfig
		if err := rows.Scan(&e.ResourceCategory, &e.PlatformName, &e.ServerName, &e.ResourceRootURL, &e.Description); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// DeleteEndpoint removes a stored record.
func (s *SQLStorage) DeleteEndpoint(ctx context.Context, e RawEndpointConfig) error {
	query := `DELETE FROM resource_endpoints WHERE id = $1`
	if s.driver == DriverMySQL {
		query = `DELETE FROM resource_endpoints WHERE id = ?`
	}

	result, err := s.db.ExecContext(ctx, query, recordID(e))
	if err != nil {
		return fmt.Errorf("failed to delete endpoint: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return &NotFoundError{Name: e.PlatformName, Field: PlatformNameField}
	}
	return nil
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
