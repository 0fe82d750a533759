// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cqlCall struct {
	stmt   string
	values []interface{}
}

// fakeCQLSession keeps inserted rows in memory and answers SELECTs by
// partition, honouring the clustering order and LIMIT.
type fakeCQLSession struct {
	execs   []cqlCall
	queries []cqlCall
	rows    []map[string]interface{}
	execErr error
	closed  bool
}

func (s *fakeCQLSession) Exec(_ context.Context, stmt string, values ...interface{}) error {
	s.execs = append(s.execs, cqlCall{stmt: stmt, values: values})
	if s.execErr != nil {
		return s.execErr
	}
	if strings.HasPrefix(strings.TrimSpace(stmt), "INSERT") {
		s.rows = append(s.rows, map[string]interface{}{
			"id":           values[1],
			"timestamp":    values[2],
			"user_id":      values[3],
			"server_name":  values[4],
			"platform_url": values[5],
			"operation":    values[6],
			"outcome":      values[7],
			"message":      values[8],
			"duration_ms":  values[9],
		})
	}
	return nil
}

func (s *fakeCQLSession) Rows(_ context.Context, stmt string, values ...interface{}) ([]map[string]interface{}, error) {
	s.queries = append(s.queries, cqlCall{stmt: stmt, values: values})
	out := make([]map[string]interface{}, 0)
	for i := len(s.rows) - 1; i >= 0; i-- {
		row := s.rows[i]
		if len(values) > 0 && row["server_name"] != values[0] {
			continue
		}
		out = append(out, row)
	}
	if len(values) == 2 {
		if limit := values[1].(int); len(out) > limit {
			out = out[:limit]
		}
	}
	return out, nil
}

func (s *fakeCQLSession) Close() { s.closed = true }

func TestCassandraJournalCreatesSchema(t *testing.T) {
	session := &fakeCQLSession{}
	_, err := newCassandraJournal(session)
	require.NoError(t, err)
	require.Len(t, session.execs, 1)
	assert.Contains(t, session.execs[0].stmt, "PRIMARY KEY ((server_name), event_id)")
	assert.Contains(t, session.execs[0].stmt, "CLUSTERING ORDER BY (event_id DESC)")

	_, err = newCassandraJournal(&fakeCQLSession{execErr: errors.New("keyspace missing")})
	assert.ErrorContains(t, err, "failed to create journal schema")
}

func TestCassandraJournalRecordAndList(t *testing.T) {
	ctx := context.Background()
	session := &fakeCQLSession{}
	j, err := newCassandraJournal(session)
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ops := []struct{ server, op string }{
		{"cocoMDS1", "setEventBus"},
		{"cocoMDS2", "setDefaultAuditLog"},
		{"cocoMDS1", "setInMemLocalRepository"},
	}
	for i, o := range ops {
		e := NewEntry("garygeeke", o.server, "https://localhost:9443", o.op)
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		e.Outcome = OutcomeSuccess
		e.DurationMS = int64(10 + i)
		require.NoError(t, j.Record(ctx, e))
	}

	insert := session.execs[1]
	assert.Equal(t, gocql.UUIDFromTime(base).Time(), insert.values[0].(gocql.UUID).Time())

	all, err := j.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "setInMemLocalRepository", all[0].Operation)
	assert.Equal(t, "setEventBus", all[2].Operation)
	assert.Equal(t, int64(12), all[0].DurationMS)
	assert.Equal(t, "garygeeke", all[0].UserID)

	server, err := j.List(ctx, Filter{ServerName: "cocoMDS1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, server, 1)
	assert.Equal(t, "setInMemLocalRepository", server[0].Operation)
	last := session.queries[len(session.queries)-1]
	assert.Contains(t, last.stmt, "WHERE server_name = ? LIMIT ?")
	assert.Equal(t, []interface{}{"cocoMDS1", 1}, last.values)

	byOp, err := j.List(ctx, Filter{ServerName: "cocoMDS1", Operation: "setEventBus"})
	require.NoError(t, err)
	require.Len(t, byOp, 1)
	assert.Equal(t, "cocoMDS1", byOp[0].ServerName)

	capped, err := j.List(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, "setDefaultAuditLog", capped[1].Operation)

	require.NoError(t, j.Close())
	assert.True(t, session.closed)
}

func TestListStatement(t *testing.T) {
	tests := []struct {
		name        string
		filter      Filter
		wantWhere   bool
		wantArgs    []interface{}
		wantLimited bool
	}{
		{name: "all servers", filter: Filter{}, wantArgs: nil},
		{name: "one server", filter: Filter{ServerName: "cocoMDS1"}, wantWhere: true, wantArgs: []interface{}{"cocoMDS1", DefaultLimit}, wantLimited: true},
		{name: "server and operation", filter: Filter{ServerName: "cocoMDS1", Operation: "setEventBus"}, wantWhere: true, wantArgs: []interface{}{"cocoMDS1"}},
		{name: "operation only", filter: Filter{Operation: "setEventBus"}, wantArgs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, args, limited := listStatement(tt.filter)
			assert.Equal(t, tt.wantWhere, strings.Contains(stmt, "WHERE"))
			assert.Equal(t, tt.wantArgs, args)
			assert.Equal(t, tt.wantLimited, limited)
		})
	}
}

func TestParseCassandraURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		wantHosts    []string
		wantKeyspace string
		wantUser     string
		wantPassword string
		wantErr      bool
	}{
		{name: "single host", url: "cassandra://10.0.1.50:9042/serverauthor", wantHosts: []string{"10.0.1.50:9042"}, wantKeyspace: "serverauthor"},
		{name: "several hosts", url: "cassandra://a:9042,b:9042/ks", wantHosts: []string{"a:9042", "b:9042"}, wantKeyspace: "ks"},
		{name: "credentials", url: "cassandra://admin:s3cret@a:9042/ks", wantHosts: []string{"a:9042"}, wantKeyspace: "ks", wantUser: "admin", wantPassword: "s3cret"},
		{name: "no keyspace", url: "cassandra://a:9042", wantErr: true},
		{name: "empty keyspace", url: "cassandra://a:9042/", wantErr: true},
		{name: "no hosts", url: "cassandra:///ks", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hosts, keyspace, user, password, err := parseCassandraURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHosts, hosts)
			assert.Equal(t, tt.wantKeyspace, keyspace)
			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantPassword, password)
		})
	}
}

func TestParseConsistency(t *testing.T) {
	assert.Equal(t, gocql.One, parseConsistency("one"))
	assert.Equal(t, gocql.LocalQuorum, parseConsistency("LOCAL_QUORUM"))
	assert.Equal(t, gocql.Quorum, parseConsistency("bogus"))
}
