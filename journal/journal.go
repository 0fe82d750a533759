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
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutcomeSuccess marks an entry for a call that completed. Failed calls
// carry their error category as the outcome instead.
const OutcomeSuccess = "success"

// DefaultLimit caps List results when the filter sets no limit.
const DefaultLimit = 100

// ErrUnknownBackend is returned by NewRecorder for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown journal backend")

// Entry records one orchestrated administrative call.
type Entry struct {
	ID          string    `json:"id" bson:"_id"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	UserID      string    `json:"user_id" bson:"user_id"`
	ServerName  string    `json:"server_name" bson:"server_name"`
	PlatformURL string    `json:"platform_url,omitempty" bson:"platform_url,omitempty"`
	Operation   string    `json:"operation" bson:"operation"`
	Outcome     string    `json:"outcome" bson:"outcome"`
	Message     string    `json:"message,omitempty" bson:"message,omitempty"`
	DurationMS  int64     `json:"duration_ms" bson:"duration_ms"`
}

// NewEntry stamps a fresh entry with an id and the current time.
func NewEntry(userID, serverName, platformURL, operation string) *Entry {
	return &Entry{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		UserID:      userID,
		ServerName:  serverName,
		PlatformURL: platformURL,
		Operation:   operation,
	}
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	ServerName string
	Operation  string
	Limit      int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}

func (f Filter) matches(e *Entry) bool {
	if f.ServerName != "" && e.ServerName != f.ServerName {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	return true
}

// Recorder persists journal entries. List returns newest entries first.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) ([]*Entry, error)
	Close() error
}

// Options select and configure a journal backend.
type Options struct {
	Backend    string
	URL        string
	Database   string
	Collection string
	MaxEntries int64
	// Consistency is the Cassandra consistency level; QUORUM when empty.
	Consistency string
}

// NewRecorder builds the configured backend. An empty or "none" backend
// returns a nil Recorder and no error.
func NewRecorder(ctx context.Context, opts Options) (Recorder, error) {
	switch opts.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryJournal(int(opts.MaxEntries)), nil
	case "postgres":
		return NewSQLJournal(opts.URL)
	case "redis":
		return NewRedisJournal(ctx, opts.URL, opts.MaxEntries)
	case "mongodb":
		return NewMongoJournal(ctx, opts.URL, opts.Database, opts.Collection)
	case "cassandra":
		return NewCassandraJournal(opts.URL, opts.Consistency)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, opts.Backend)
}
