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
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "serverauthor:journal"

// RedisJournal keeps capped lists of entries: one across all servers and
// one per server.
type RedisJournal struct {
	client     *redis.Client
	maxEntries int64
}

// NewRedisJournal connects using a redis:// URL.
func NewRedisJournal(ctx context.Context, redisURL string, maxEntries int64) (*RedisJournal, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisJournal(client, maxEntries), nil
}

func newRedisJournal(client *redis.Client, maxEntries int64) *RedisJournal {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &RedisJournal{client: client, maxEntries: maxEntries}
}

func serverKey(serverName string) string {
	return fmt.Sprintf("%s:%s", redisKeyPrefix, serverName)
}

func (j *RedisJournal) Record(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}

	pipe := j.client.TxPipeline()
	pipe.LPush(ctx, redisKeyPrefix, data)
	pipe.LTrim(ctx, redisKeyPrefix, 0, j.maxEntries-1)
	pipe.LPush(ctx, serverKey(e.ServerName), data)
	pipe.LTrim(ctx, serverKey(e.ServerName), 0, j.maxEntries-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

func (j *RedisJournal) List(ctx context.Context, f Filter) ([]*Entry, error) {
	key := redisKeyPrefix
	if f.ServerName != "" {
		key = serverKey(f.ServerName)
	}

	values, err := j.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	out := make([]*Entry, 0)
	for _, v := range values {
		if len(out) >= f.limit() {
			break
		}
		e := &Entry{}
		if err := json.Unmarshal([]byte(v), e); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry: %w", err)
		}
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *RedisJournal) Close() error {
	return j.client.Close()
}
