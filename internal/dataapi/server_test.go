// internal/dataapi/server_test.go
package dataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger Implementation
// ==========================

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{
		t:      t,
		fields: make(map[string]interface{}),
	}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	newLogger := &TestLogger{
		t:      l.t,
		fields: make(map[string]interface{}),
	}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

func (l *TestLogger) mergeFields(fields map[string]interface{}) map[string]interface{} {
	allFields := make(map[string]interface{})
	for k, v := range l.fields {
		allFields[k] = v
	}
	for k, v := range fields {
		allFields[k] = v
	}
	return allFields
}

// ==========================
// Fakes and Helpers
// ==========================

type fakeAlerts struct {
	emails []string
	scores []int
}

func (f *fakeAlerts) SAMCaseDetected(ctx context.Context, email string, riskScore int) {
	f.emails = append(f.emails, email)
	f.scores = append(f.scores, riskScore)
}

func newTestServer(t *testing.T, alerts AlertSender) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewServer(db, alerts, NewTestLogger(t)), mock
}

func postQuery(t *testing.T, server *Server, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	server.handleQuery(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) queryResponse {
	t.Helper()
	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ==========================
// Handler Tests
// ==========================

func TestHandleQuery_ConnectionTest(t *testing.T) {
	server, mock := newTestServer(t, nil)

	mock.ExpectQuery("SELECT version").WillReturnRows(
		sqlmock.NewRows([]string{"version", "current_database", "now"}).
			AddRow("PostgreSQL 15.4", "nutrisaur", time.Now()))

	rec := postQuery(t, server, map[string]interface{}{"action": "connection_test"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "connected", data["status"])
	assert.Equal(t, "nutrisaur", data["database"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleQuery_ScreeningRecords(t *testing.T) {
	server, mock := newTestServer(t, nil)

	mock.ExpectQuery("SELECT u.email").WillReturnRows(
		sqlmock.NewRows([]string{"email", "name", "username", "barangay", "age", "gender", "risk_score", "screening_data"}).
			AddRow("kevin@example.com", "Kevin Reyes", "kev", "Bagumbayan", 4, "male", 62, []byte(`{"swelling":"yes"}`)).
			AddRow("ana@example.com", "Ana Cruz", "ana_d", "San Isidro", 5, "female", 8, []byte(`{}`)))

	rec := postQuery(t, server, map[string]interface{}{"action": "screening_records"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)
	assert.Equal(t, 2, resp.RowCount)

	records := resp.Data.([]interface{})
	require.Len(t, records, 2)
	first := records[0].(map[string]interface{})
	assert.Equal(t, "kevin@example.com", first["email"])
	screeningData := first["screening_data"].(map[string]interface{})
	assert.Equal(t, "yes", screeningData["swelling"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleQuery_CommunityMetricsViaGET(t *testing.T) {
	server, mock := newTestServer(t, nil)

	mock.ExpectQuery("SELECT COUNT").WithArgs("Bagumbayan").WillReturnRows(
		sqlmock.NewRows([]string{"count", "sam", "avg"}).AddRow(40, 3, 19.5))

	req := httptest.NewRequest(http.MethodGet, "/api/query?type=community_metrics&barangay=Bagumbayan", nil)
	rec := httptest.NewRecorder()
	server.handleQuery(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Bagumbayan", data["barangay"])
	assert.Equal(t, float64(40), data["total_screenings"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleQuery_ValidationFailures(t *testing.T) {
	server, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"unknown action", map[string]interface{}{"action": "drop_tables"}},
		{"missing action", map[string]interface{}{}},
		{"community metrics without barangay", map[string]interface{}{"action": "community_metrics"}},
		{"save screening without email", map[string]interface{}{
			"action": "save_screening",
			"params": map[string]interface{}{"risk_score": 10},
		}},
		{"save screening bad email", map[string]interface{}{
			"action": "save_screening",
			"params": map[string]interface{}{"email": "not-an-email", "risk_score": 10},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postQuery(t, server, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, decodeEnvelope(t, rec).Success)
		})
	}
}

func TestHandleQuery_ExecutionErrorKeepsEnvelope(t *testing.T) {
	server, mock := newTestServer(t, nil)

	mock.ExpectQuery("SELECT version").WillReturnError(assert.AnError)

	rec := postQuery(t, server, map[string]interface{}{"action": "connection_test"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestHandleQuery_SaveScreeningTriggersSAMAlert(t *testing.T) {
	alerts := &fakeAlerts{}
	server, mock := newTestServer(t, alerts)

	mock.ExpectExec("INSERT INTO screenings").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postQuery(t, server, map[string]interface{}{
		"action": "save_screening",
		"params": map[string]interface{}{
			"email":          "kevin@example.com",
			"risk_score":     62,
			"screening_data": map[string]interface{}{"swelling": "yes"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeEnvelope(t, rec).Success)

	require.Len(t, alerts.emails, 1)
	assert.Equal(t, "kevin@example.com", alerts.emails[0])
	assert.Equal(t, 62, alerts.scores[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleQuery_SaveScreeningBelowThresholdNoAlert(t *testing.T) {
	alerts := &fakeAlerts{}
	server, mock := newTestServer(t, alerts)

	mock.ExpectExec("INSERT INTO screenings").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postQuery(t, server, map[string]interface{}{
		"action": "save_screening",
		"params": map[string]interface{}{
			"email":      "ana@example.com",
			"risk_score": 12,
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeEnvelope(t, rec).Success)
	assert.Empty(t, alerts.emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}
