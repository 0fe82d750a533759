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

package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/lib/pq"
)

// SQLJournal stores entries in PostgreSQL.
type SQLJournal struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSQLJournal connects to PostgreSQL and creates the journal table.
func NewSQLJournal(databaseURL string) (*SQLJournal, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to journal database: %w", err)
	}
	j, err := newSQLJournal(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func newSQLJournal(db *sql.DB) (*SQLJournal, error) {
	j := &SQLJournal{
		db:     db,
		logger: log.New(log.Writer(), "[Journal] ", log.LstdFlags),
	}
	if err := j.createTables(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *SQLJournal) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS server_author_journal (
		id VARCHAR(36) PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		server_name VARCHAR(255) NOT NULL,
		platform_url VARCHAR(1024),
		operation VARCHAR(100) NOT NULL,
		outcome VARCHAR(50) NOT NULL,
		message TEXT,
		duration_ms BIGINT NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_journal_server ON server_author_journal(server_name);
	CREATE INDEX IF NOT EXISTS idx_journal_timestamp ON server_author_journal(timestamp);
	`
	if _, err := j.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

func (j *SQLJournal) Record(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO server_author_journal (
			id, timestamp, user_id, server_name, platform_url, operation, outcome, message, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := j.db.ExecContext(ctx, query,
		e.ID, e.Timestamp, e.UserID, e.ServerName, e.PlatformURL,
		e.Operation, e.Outcome, e.Message, e.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

func (j *SQLJournal) List(ctx context.Context, f Filter) ([]*Entry, error) {
	var conditions []string
	var args []interface{}
	if f.ServerName != "" {
		args = append(args, f.ServerName)
		conditions = append(conditions, fmt.Sprintf("server_name = $%d", len(args)))
	}
	if f.Operation != "" {
		args = append(args, f.Operation)
		conditions = append(conditions, fmt.Sprintf("operation = $%d", len(args)))
	}

	query := `SELECT id, timestamp, user_id, server_name, COALESCE(platform_url, ''), operation, outcome, COALESCE(message, ''), duration_ms
		FROM server_author_journal`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, f.limit())
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args))

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*Entry, 0)
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserID, &e.ServerName, &e.PlatformURL,
			&e.Operation, &e.Outcome, &e.Message, &e.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (j *SQLJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
