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
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T, driver string) (*SQLStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS resource_endpoints").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := newSQLStorage(db, driver)
	require.NoError(t, err)
	return s, mock
}

func noBackoff(int) time.Duration { return 0 }

func TestConnectWithRetryClosesFailedHandles(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		attempts   int
		wantErr    bool
		wantOpened int
	}{
		{name: "first attempt connects", failures: 0, attempts: 3, wantOpened: 1},
		{name: "connects after two failures", failures: 2, attempts: 3, wantOpened: 3},
		{name: "every attempt fails", failures: 3, attempts: 3, wantErr: true, wantOpened: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mocks []sqlmock.Sqlmock
			open := func() (*sql.DB, error) {
				db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
				require.NoError(t, err)
				if len(mocks) < tt.failures {
					mock.ExpectPing().WillReturnError(errors.New("connection refused"))
					mock.ExpectClose()
				} else {
					mock.ExpectPing()
					t.Cleanup(func() { _ = db.Close() })
				}
				mocks = append(mocks, mock)
				return db, nil
			}

			db, err := connectWithRetry(open, DriverPostgres, tt.attempts, noBackoff)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "after 3 attempts")
				assert.Contains(t, err.Error(), "connection refused")
				assert.Nil(t, db)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, db)
			}

			assert.Len(t, mocks, tt.wantOpened)
			for _, mock := range mocks {
				assert.NoError(t, mock.ExpectationsWereMet())
			}
		})
	}
}

func TestConnectWithRetryOpenError(t *testing.T) {
	calls := 0
	open := func() (*sql.DB, error) {
		calls++
		return nil, errors.New("bad dsn")
	}

	_, err := connectWithRetry(open, DriverMySQL, 2, noBackoff)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad dsn")
	assert.Equal(t, 2, calls)
}

func TestNewSQLStorageRejectsUnknownDriver(t *testing.T) {
	_, err := NewSQLStorage("sqlite", "file::memory:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported endpoint store driver")
}

func TestSQLStorageSchemaFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS resource_endpoints").WillReturnError(errors.New("permission denied"))
	_, err = newSQLStorage(db, DriverPostgres)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize schema")
}

func TestSaveEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		upsert string
	}{
		{name: "postgres", driver: DriverPostgres, upsert: "ON CONFLICT"},
		{name: "mysql", driver: DriverMySQL, upsert: "ON DUPLICATE KEY UPDATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t, tt.driver)
			mock.ExpectExec("INSERT INTO resource_endpoints .*"+tt.upsert).
				WithArgs("Platform/Platform1", "Platform", "Platform1", "", "https://localhost:8082", "").
				WillReturnResult(sqlmock.NewResult(1, 1))

			err := s.SaveEndpoint(context.Background(), RawEndpointConfig{
				ResourceCategory: "Platform",
				PlatformName:     "Platform1",
				ResourceRootURL:  "https://localhost:8082",
			})
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSaveEndpointValidation(t *testing.T) {
	s, mock := newMockStorage(t, DriverPostgres)

	err := s.SaveEndpoint(context.Background(), RawEndpointConfig{PlatformName: "P"})
	assert.ErrorIs(t, err, ErrConfig)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEndpoints(t *testing.T) {
	s, mock := newMockStorage(t, DriverPostgres)

	rows := sqlmock.NewRows([]string{"resource_category", "platform_name", "server_name", "resource_root_url", "description"}).
		AddRow("Platform", "Platform1", "", "https://localhost:8082", "dev").
		AddRow("Server", "", "cocoMDS1", "https://localhost:8082", "")
	mock.ExpectQuery("SELECT resource_category, platform_name").WillReturnRows(rows)

	entries, err := s.ListEndpoints(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Platform1", entries[0].PlatformName)
	assert.Equal(t, "cocoMDS1", entries[1].ServerName)

	r := Build(entries)
	url, err := r.ResolvePlatformURL("Platform1")
	require.NoError(t, err)
	assert.Equal(t, "https://localhost:8082", url)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "deleted", affected: 1},
		{name: "missing", affected: 0, wantErr: ErrMissingPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t, DriverPostgres)
			mock.ExpectExec("DELETE FROM resource_endpoints").
				WithArgs("Platform/Platform1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := s.DeleteEndpoint(context.Background(), RawEndpointConfig{ResourceCategory: "Platform", PlatformName: "Platform1"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
