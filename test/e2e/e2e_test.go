// test/e2e/e2e_test.go
package e2e

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

	buildcontext "nutrisaur-workers/internal/chat/build-context"
	"nutrisaur-workers/internal/chat/conversation"
	"nutrisaur-workers/internal/chat/genai"
	"nutrisaur-workers/internal/chat/respond"
	"nutrisaur-workers/internal/common/logger"
	"nutrisaur-workers/internal/dataapi"
	"nutrisaur-workers/internal/facade"
)

// Logger adapters to bridge logger.Logger to package-specific Logger interfaces
type facadeLoggerAdapter struct {
	logger.Logger
}

func (a *facadeLoggerAdapter) With(fields map[string]interface{}) facade.Logger {
	return &facadeLoggerAdapter{a.Logger.With(fields)}
}

type buildContextLoggerAdapter struct {
	logger.Logger
}

func (a *buildContextLoggerAdapter) With(fields map[string]interface{}) buildcontext.Logger {
	return &buildContextLoggerAdapter{a.Logger.With(fields)}
}

type genaiLoggerAdapter struct {
	logger.Logger
}

func (a *genaiLoggerAdapter) With(fields map[string]interface{}) genai.Logger {
	return &genaiLoggerAdapter{a.Logger.With(fields)}
}

type respondLoggerAdapter struct {
	logger.Logger
}

func (a *respondLoggerAdapter) With(fields map[string]interface{}) respond.Logger {
	return &respondLoggerAdapter{a.Logger.With(fields)}
}

type conversationLoggerAdapter struct {
	logger.Logger
}

func (a *conversationLoggerAdapter) With(fields map[string]interface{}) conversation.Logger {
	return &conversationLoggerAdapter{a.Logger.With(fields)}
}

type dataapiLoggerAdapter struct {
	logger.Logger
}

func (a *dataapiLoggerAdapter) With(fields map[string]interface{}) dataapi.Logger {
	return &dataapiLoggerAdapter{a.Logger.With(fields)}
}

type fakeAlerts struct {
	emails []string
	scores []int
}

func (f *fakeAlerts) SAMCaseDetected(ctx context.Context, email string, riskScore int) {
	f.emails = append(f.emails, email)
	f.scores = append(f.scores, riskScore)
}

// pipeline wires the whole chat stack against a real (mocked-DB) data API
// and a stub generative service, exactly as the two binaries do.
type pipeline struct {
	chatServer *httptest.Server
	dataAPI    *httptest.Server
	dbMock     sqlmock.Sqlmock
	alerts     *fakeAlerts
}

func newPipeline(t *testing.T, genaiHandler http.HandlerFunc) *pipeline {
	t.Helper()

	log := logger.NewZapAdapter(logger.New("error", "console"))

	// Data API over a mocked database
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	alerts := &fakeAlerts{}
	apiServer := dataapi.NewServer(db, alerts, &dataapiLoggerAdapter{log})
	apiMux := http.NewServeMux()
	apiServer.RegisterRoutes(apiMux)
	dataAPI := httptest.NewServer(apiMux)
	t.Cleanup(dataAPI.Close)

	// Stub generative service
	genaiSrv := httptest.NewServer(genaiHandler)
	t.Cleanup(genaiSrv.Close)

	// Chat service wiring
	facadeClient := facade.NewClient(&facade.Config{
		BaseURL:  dataAPI.URL,
		Timeout:  5 * time.Second,
		CacheTTL: time.Minute,
	}, nil, &facadeLoggerAdapter{log})

	builder := buildcontext.NewBuilder(&buildcontext.Config{
		Timeout: 5 * time.Second,
	}, facadeClient, &buildContextLoggerAdapter{log})

	genaiConfig := genai.DefaultConfig()
	genaiConfig.BaseURL = genaiSrv.URL
	genaiConfig.Timeout = 5 * time.Second
	generator := genai.NewClient(genaiConfig, &genaiLoggerAdapter{log})

	responder := respond.NewResponder(respond.DefaultConfig(), facadeClient, builder, generator, &respondLoggerAdapter{log})

	surface := conversation.NewSurface(&conversation.Config{
		MinReplyDelayFast:     10 * time.Millisecond,
		MinReplyDelayFallback: 20 * time.Millisecond,
	}, responder, &conversationLoggerAdapter{log})

	chatMux := http.NewServeMux()
	surface.RegisterRoutes(chatMux)
	chatServer := httptest.NewServer(chatMux)
	t.Cleanup(chatServer.Close)

	return &pipeline{chatServer: chatServer, dataAPI: dataAPI, dbMock: dbMock, alerts: alerts}
}

func (p *pipeline) chat(t *testing.T, message, session string) conversation.ChatResponse {
	t.Helper()
	body, err := json.Marshal(map[string]string{"message": message, "session": session})
	require.NoError(t, err)

	resp, err := http.Post(p.chatServer.URL+"/api/chat", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chatResp conversation.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chatResp))
	return chatResp
}

func screeningRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"email", "name", "username", "barangay", "age", "gender", "risk_score", "screening_data"}).
		AddRow("kevin@example.com", "Kevin Reyes", "kev", "Bagumbayan", 4, "male", 62, []byte(`{"swelling":"yes"}`)).
		AddRow("maria@example.com", "Maria Santos", "msantos", "San Isidro", 35, "female", 41, []byte(`{}`)).
		AddRow("ana@example.com", "Ana Cruz", "ana_d", "San Isidro", 5, "female", 8, []byte(`{}`))
}

func TestChatPipeline_HealthConditionQuery(t *testing.T) {
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("generative service must not be called for a data-backed branch")
	})

	p.dbMock.ExpectQuery("SELECT u.email").WillReturnRows(screeningRows())

	resp := p.chat(t, "How many SAM cases are there?", "session-1")

	assert.Contains(t, resp.Reply, "SAM (Severe)")
	assert.Contains(t, resp.Reply, "Kevin Reyes")
	assert.NoError(t, p.dbMock.ExpectationsWereMet())
}

func TestChatPipeline_NamedUserLookup(t *testing.T) {
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("generative service must not be called for a data-backed branch")
	})

	p.dbMock.ExpectQuery("SELECT u.email").WillReturnRows(screeningRows())

	resp := p.chat(t, "show me kevin", "session-2")

	assert.Contains(t, resp.Reply, "Kevin Reyes")
	assert.Contains(t, resp.Reply, "Bagumbayan")
}

func TestChatPipeline_GenericAdviceDegradedContext(t *testing.T) {
	var seenPrompt string
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		seenPrompt, _ = req["prompt"].(string)
		json.NewEncoder(w).Encode(map[string]string{"text": "Offer **iron-rich** foods like monggo."})
	})

	// No database expectations: every facade fetch fails, so the builder
	// must fall back to the static context and the answer still flows.
	resp := p.chat(t, "what should a toddler eat for breakfast", "session-3")

	assert.Contains(t, resp.Reply, "<b>iron-rich</b>")
	assert.Contains(t, seenPrompt, "toddler")
}

func TestDataAPI_SaveScreeningFiresAlert(t *testing.T) {
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {})

	p.dbMock.ExpectExec("INSERT INTO screenings").WillReturnResult(sqlmock.NewResult(1, 1))

	// Drive the data API directly the way the screening app does.
	body, err := json.Marshal(map[string]interface{}{
		"action": "save_screening",
		"params": map[string]interface{}{
			"email":      "kevin@example.com",
			"risk_score": 62,
		},
	})
	require.NoError(t, err)

	resp, err := http.Post(p.dataAPI.URL+"/api/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, p.alerts.emails, 1)
	assert.Equal(t, "kevin@example.com", p.alerts.emails[0])
	assert.Equal(t, 62, p.alerts.scores[0])
	assert.NoError(t, p.dbMock.ExpectationsWereMet())
}
