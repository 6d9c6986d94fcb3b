// internal/dataapi/server.go
package dataapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "nutrisaur-workers/internal/common/errors"
	"nutrisaur-workers/internal/common/metrics"
	"nutrisaur-workers/internal/dataapi/queries"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// AlertSender is notified when a saved screening crosses the SAM threshold.
type AlertSender interface {
	SAMCaseDetected(ctx context.Context, email string, riskScore int)
}

type queryRequest struct {
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type queryResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	RowCount int         `json:"row_count,omitempty"`
	ExecMS   int64       `json:"execution_ms,omitempty"`
}

const samAlertThreshold = 50

// Server exposes the screening database as the single /api/query endpoint
// the chat service reads through.
type Server struct {
	db     *sql.DB
	alerts AlertSender
	logger Logger
}

// NewServer creates the query server. alerts may be nil to disable SAM
// notifications.
func NewServer(db *sql.DB, alerts AlertSender, log Logger) *Server {
	return &Server{
		db:     db,
		alerts: alerts,
		logger: log.With(map[string]interface{}{
			"component": "dataapi",
		}),
	}
}

// RegisterRoutes mounts the query endpoint on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/query", s.handleQuery)
}

// handleQuery accepts POST {action, params} bodies and GET
// ?type=<action>&<filters> queries and answers both with the same
// {success, data, error} envelope.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest

	switch r.Method {
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "", "invalid request body")
			return
		}
	case http.MethodGet:
		req.Action = r.URL.Query().Get("type")
		req.Params = map[string]interface{}{}
		for key, values := range r.URL.Query() {
			if key == "type" || len(values) == 0 {
				continue
			}
			req.Params[key] = values[0]
		}
	default:
		s.writeError(w, http.StatusMethodNotAllowed, req.Action, "method not allowed")
		return
	}

	body := map[string]interface{}{"action": req.Action}
	if req.Params != nil {
		body["params"] = req.Params
	}
	if err := validateRequest(req.Action, body); err != nil {
		s.logger.Warn("request validation failed", map[string]interface{}{
			"action":    req.Action,
			"errorCode": string(apperrors.ErrCodeRequestValidationFailed),
			"error":     err.Error(),
		})
		s.writeError(w, http.StatusBadRequest, req.Action, err.Error())
		return
	}

	start := time.Now()
	data, rowCount, execMS, err := queries.Execute(r.Context(), s.db, req.Action, req.Params)
	metrics.DataAPIQueryDuration.WithLabelValues(req.Action).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, queries.ErrUnknownQueryType) || errors.Is(err, queries.ErrMissingParam) {
			s.writeError(w, http.StatusBadRequest, req.Action, err.Error())
			return
		}
		stdErr := apperrors.NewQueryExecutionFailedError(req.Action, err)
		s.logger.Error("query execution failed", map[string]interface{}{
			"action":    req.Action,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		metrics.DataAPIRequestsTotal.WithLabelValues(req.Action, "error").Inc()
		s.writeJSON(w, http.StatusOK, queryResponse{Success: false, Error: stdErr.Message})
		return
	}

	if req.Action == queries.ActionSaveScreening {
		s.maybeAlert(r.Context(), data)
	}

	metrics.DataAPIRequestsTotal.WithLabelValues(req.Action, "ok").Inc()
	s.logger.Info("query executed", map[string]interface{}{
		"action":   req.Action,
		"rowCount": rowCount,
		"execMs":   execMS,
	})
	s.writeJSON(w, http.StatusOK, queryResponse{
		Success:  true,
		Data:     data,
		RowCount: rowCount,
		ExecMS:   execMS,
	})
}

func (s *Server) maybeAlert(ctx context.Context, data interface{}) {
	if s.alerts == nil {
		return
	}
	saved, ok := data.(map[string]interface{})
	if !ok {
		return
	}
	email, _ := saved["email"].(string)
	riskScore, _ := saved["risk_score"].(int)
	if email == "" || riskScore < samAlertThreshold {
		return
	}
	s.alerts.SAMCaseDetected(ctx, email, riskScore)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body queryResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, action, msg string) {
	if action != "" {
		metrics.DataAPIRequestsTotal.WithLabelValues(action, "invalid").Inc()
	}
	s.writeJSON(w, status, queryResponse{Success: false, Error: msg})
}
