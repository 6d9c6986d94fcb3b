// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_queries_total",
			Help: "Total number of chat queries handled, by classified intent",
		},
		[]string{"intent"},
	)

	ChatBranchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_branch_duration_seconds",
			Help: "Duration of responder branch execution in seconds",
		},
		[]string{"intent"},
	)

	ChatDegradedResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_degraded_responses_total",
			Help: "Responses that fell back to an apology string, by intent and error code",
		},
		[]string{"intent", "error_code"},
	)

	GenAIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genai_requests_total",
			Help: "Generative-AI fallback calls by outcome",
		},
		[]string{"outcome"},
	)

	DataAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataapi_requests_total",
			Help: "Data API requests by action and status",
		},
		[]string{"action", "status"},
	)

	DataAPIQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dataapi_query_duration_seconds",
			Help: "Duration of data API query execution in seconds",
		},
		[]string{"action"},
	)
)
