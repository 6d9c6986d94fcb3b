// internal/chat/conversation/surface.go
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"time"

	classifyintent "nutrisaur-workers/internal/chat/classify-intent"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Answerer settles a classified query into a display string.
type Answerer interface {
	Respond(ctx context.Context, intent classifyintent.Intent, query, email string) string
}

type ChatRequest struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	Session string `json:"session"`
}

type ChatResponse struct {
	Reply  string                `json:"reply"`
	Intent classifyintent.Intent `json:"intent"`
}

// Surface exposes the chat over HTTP and owns the transcript.
type Surface struct {
	config     *Config
	transcript *Transcript
	responder  Answerer
	logger     Logger
}

func NewSurface(config *Config, responder Answerer, log Logger) *Surface {
	return &Surface{
		config:     config,
		transcript: NewTranscript(),
		responder:  responder,
		logger: log.With(map[string]interface{}{
			"component": "conversation",
		}),
	}
}

// RegisterRoutes mounts the chat endpoints on mux.
func (s *Surface) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/chat/history", s.handleHistory)
}

func (s *Surface) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	session := req.Session
	if session == "" {
		session = req.Email
	}
	if session == "" {
		writeError(w, http.StatusBadRequest, "session or email is required")
		return
	}

	pendingID, err := s.transcript.Begin(session, html.EscapeString(req.Message))
	if errors.Is(err, ErrBusy) {
		writeError(w, http.StatusConflict, "a previous query is still being answered")
		return
	}

	intent := classifyintent.Classify(req.Message)
	start := time.Now()
	reply := s.responder.Respond(r.Context(), intent, req.Message, req.Email)

	s.waitMinimumDelay(r.Context().Done(), intent.Kind, start)
	s.transcript.Resolve(session, pendingID, reply)

	s.logger.Info("query answered", map[string]interface{}{
		"session": session,
		"intent":  string(intent.Kind),
		"elapsed": time.Since(start).String(),
	})

	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply, Intent: intent})
}

// waitMinimumDelay holds the reply back so the typing indicator stays
// visible for at least the configured floor.
func (s *Surface) waitMinimumDelay(done <-chan struct{}, kind classifyintent.Kind, start time.Time) {
	minDelay := s.config.MinReplyDelayFast
	if kind == classifyintent.KindGenericAdvice {
		minDelay = s.config.MinReplyDelayFallback
	}
	remaining := minDelay - time.Since(start)
	if remaining <= 0 {
		return
	}
	select {
	case <-time.After(remaining):
	case <-done:
	}
}

func (s *Surface) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	session := r.URL.Query().Get("session")
	if session == "" {
		writeError(w, http.StatusBadRequest, "session is required")
		return
	}
	turns := s.transcript.History(session)
	if turns == nil {
		turns = []Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"turns": turns})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
