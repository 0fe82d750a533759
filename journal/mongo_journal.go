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
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultMongoDatabase   = "serverauthor"
	defaultMongoCollection = "journal"
	mongoConnectTimeout    = 10 * time.Second
)

// MongoJournal stores entries as documents in one collection.
type MongoJournal struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoJournal connects to MongoDB and selects the journal collection.
func NewMongoJournal(ctx context.Context, uri, database, collection string) (*MongoJournal, error) {
	if database == "" {
		database = defaultMongoDatabase
	}
	if collection == "" {
		collection = defaultMongoCollection
	}

	clientOpts := options.Client().ApplyURI(uri).
		SetConnectTimeout(mongoConnectTimeout).
		SetAppName("server-author-journal").
		SetRetryWrites(true)

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoJournal{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func filterDocument(f Filter) bson.M {
	doc := bson.M{}
	if f.ServerName != "" {
		doc["server_name"] = f.ServerName
	}
	if f.Operation != "" {
		doc["operation"] = f.Operation
	}
	return doc
}

func findOptions(f Filter) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(f.limit()))
}

func (j *MongoJournal) Record(ctx context.Context, e *Entry) error {
	if _, err := j.collection.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

func (j *MongoJournal) List(ctx context.Context, f Filter) ([]*Entry, error) {
	cursor, err := j.collection.Find(ctx, filterDocument(f), findOptions(f))
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	out := make([]*Entry, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}
	return out, nil
}

func (j *MongoJournal) Close() error {
	return j.client.Disconnect(context.Background())
}
