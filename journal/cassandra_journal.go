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
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gocql/gocql" // Cassandra/Scylla driver
)

const cassandraTimeout = 5 * time.Second

// cqlSession is the slice of gocql the journal needs. Rows are returned as
// column maps so they can be decoded without a live cluster.
type cqlSession interface {
	Exec(ctx context.Context, stmt string, values ...interface{}) error
	Rows(ctx context.Context, stmt string, values ...interface{}) ([]map[string]interface{}, error)
	Close()
}

type gocqlSession struct {
	session *gocql.Session
}

func (s *gocqlSession) Exec(ctx context.Context, stmt string, values ...interface{}) error {
	return s.session.Query(stmt, values...).WithContext(ctx).Exec()
}

func (s *gocqlSession) Rows(ctx context.Context, stmt string, values ...interface{}) ([]map[string]interface{}, error) {
	iter := s.session.Query(stmt, values...).WithContext(ctx).Iter()
	rows := make([]map[string]interface{}, 0)
	for {
		row := make(map[string]interface{})
		if !iter.MapScan(row) {
			break
		}
		rows = append(rows, row)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *gocqlSession) Close() {
	s.session.Close()
}

// CassandraJournal stores entries in a wide-column table partitioned by
// server name and clustered newest first on a timeuuid.
type CassandraJournal struct {
	session cqlSession
	logger  *log.Logger
}

// NewCassandraJournal connects to the cluster named by a URL of the form
// cassandra://[user:password@]host1:port,host2:port/keyspace. The keyspace
// must already exist; the journal table is created when missing.
func NewCassandraJournal(connectionURL, consistency string) (*CassandraJournal, error) {
	hosts, keyspace, username, password, err := parseCassandraURL(connectionURL)
	if err != nil {
		return nil, err
	}

	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Timeout = cassandraTimeout
	cluster.NumConns = 2
	if consistency == "" {
		consistency = "QUORUM"
	}
	cluster.Consistency = parseConsistency(consistency)
	if username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: username,
			Password: password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
	}

	j, err := newCassandraJournal(&gocqlSession{session: session})
	if err != nil {
		session.Close()
		return nil, err
	}
	j.logger.Printf("Connected to Cassandra (keyspace=%s, consistency=%s)", keyspace, consistency)
	return j, nil
}

func newCassandraJournal(session cqlSession) (*CassandraJournal, error) {
	j := &CassandraJournal{
		session: session,
		logger:  log.New(os.Stdout, "[Journal] ", log.LstdFlags),
	}
	ctx, cancel := context.WithTimeout(context.Background(), cassandraTimeout)
	defer cancel()
	if err := j.session.Exec(ctx, cassandraSchema); err != nil {
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return j, nil
}

const cassandraSchema = `CREATE TABLE IF NOT EXISTS server_author_journal (
	server_name text,
	event_id timeuuid,
	id text,
	timestamp timestamp,
	user_id text,
	platform_url text,
	operation text,
	outcome text,
	message text,
	duration_ms bigint,
	PRIMARY KEY ((server_name), event_id)
) WITH CLUSTERING ORDER BY (event_id DESC)`

const cassandraColumns = `id, timestamp, user_id, server_name, platform_url, operation, outcome, message, duration_ms`

func (j *CassandraJournal) Record(ctx context.Context, e *Entry) error {
	stmt := `INSERT INTO server_author_journal (event_id, ` + cassandraColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	err := j.session.Exec(ctx, stmt,
		gocql.UUIDFromTime(e.Timestamp), e.ID, e.Timestamp, e.UserID, e.ServerName,
		e.PlatformURL, e.Operation, e.Outcome, e.Message, e.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// listStatement builds the SELECT for a filter. Only a server-scoped query
// with no operation filter can push the limit into the cluster; every other
// shape is filtered and ordered after the read.
func listStatement(f Filter) (string, []interface{}, bool) {
	stmt := `SELECT ` + cassandraColumns + ` FROM server_author_journal`
	if f.ServerName == "" {
		return stmt, nil, false
	}
	stmt += ` WHERE server_name = ?`
	if f.Operation != "" {
		return stmt, []interface{}{f.ServerName}, false
	}
	return stmt + ` LIMIT ?`, []interface{}{f.ServerName, f.limit()}, true
}

func (j *CassandraJournal) List(ctx context.Context, f Filter) ([]*Entry, error) {
	stmt, args, limited := listStatement(f)
	rows, err := j.session.Rows(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	out := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		e := entryFromRow(row)
		if f.matches(e) {
			out = append(out, e)
		}
	}
	if limited {
		return out, nil
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp.After(out[b].Timestamp)
	})
	if len(out) > f.limit() {
		out = out[:f.limit()]
	}
	return out, nil
}

func (j *CassandraJournal) Close() error {
	j.session.Close()
	return nil
}

func entryFromRow(row map[string]interface{}) *Entry {
	e := &Entry{}
	e.ID, _ = row["id"].(string)
	if ts, ok := row["timestamp"].(time.Time); ok {
		e.Timestamp = ts.UTC()
	}
	e.UserID, _ = row["user_id"].(string)
	e.ServerName, _ = row["server_name"].(string)
	e.PlatformURL, _ = row["platform_url"].(string)
	e.Operation, _ = row["operation"].(string)
	e.Outcome, _ = row["outcome"].(string)
	e.Message, _ = row["message"].(string)
	e.DurationMS, _ = row["duration_ms"].(int64)
	return e
}

// parseCassandraURL splits cassandra://[user:password@]hosts/keyspace.
func parseCassandraURL(connectionURL string) (hosts []string, keyspace, username, password string, err error) {
	rest := strings.TrimPrefix(connectionURL, "cassandra://")

	if creds, after, found := strings.Cut(rest, "@"); found {
		username, password, _ = strings.Cut(creds, ":")
		rest = after
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return nil, "", "", "", fmt.Errorf("invalid Cassandra URL (expected cassandra://host:port/keyspace)")
	}
	for _, h := range strings.Split(parts[0], ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	keyspace = parts[1]
	if len(hosts) == 0 || keyspace == "" {
		return nil, "", "", "", fmt.Errorf("invalid Cassandra URL: missing hosts or keyspace")
	}
	return hosts, keyspace, username, password, nil
}

func parseConsistency(level string) gocql.Consistency {
	switch strings.ToUpper(level) {
	case "ANY":
		return gocql.Any
	case "ONE":
		return gocql.One
	case "TWO":
		return gocql.Two
	case "THREE":
		return gocql.Three
	case "ALL":
		return gocql.All
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "EACH_QUORUM":
		return gocql.EachQuorum
	case "LOCAL_ONE":
		return gocql.LocalOne
	default:
		return gocql.Quorum
	}
}
