// internal/chat/genai/client_test.go
package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

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
// Test Helper Functions
// ==========================

func createTestConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Timeout:     5 * time.Second,
		MaxRetries:  1,
		MaxTokens:   500,
		Temperature: 0.7,
	}
}

func generateResponse(text string) string {
	data, _ := json.Marshal(map[string]interface{}{"text": text})
	return string(data)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what should toddlers eat", body["prompt"])

		w.Write([]byte(generateResponse("Offer a variety of vegetables.")))
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), NewTestLogger(t))
	text, err := client.Generate(context.Background(), "what should toddlers eat")

	require.NoError(t, err)
	assert.Equal(t, "Offer a variety of vegetables.", text)
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(generateResponse("second try")))
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), NewTestLogger(t))
	text, err := client.Generate(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "second try", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenerate_FailsAfterRetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), NewTestLogger(t))
	_, err := client.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenAIFailed)
}

func TestGenerate_TimeoutReturnsSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(generateResponse("too late")))
	}))
	defer server.Close()

	config := createTestConfig(server.URL)
	config.Timeout = 100 * time.Millisecond

	client := NewClient(config, NewTestLogger(t))
	_, err := client.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenAITimeout)
}

func TestGenerate_EmptyTextGetsFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(generateResponse("   ")))
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), NewTestLogger(t))
	text, err := client.Generate(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "I don't have enough information to answer that question.", text)
}

func TestGenerate_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), NewTestLogger(t))
	_, err := client.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenAIFailed)
}
