// internal/dataapi/queries/registry.go
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

// Action names accepted on the wire.
const (
	ActionConnectionTest     = "connection_test"
	ActionDashboardAggregate = "dashboard_aggregate"
	ActionScreeningRecords   = "screening_records"
	ActionSampleRecord       = "sample_record"
	ActionCommunityMetrics   = "community_metrics"
	ActionRiskDistribution   = "risk_distribution"
	ActionSaveScreening      = "save_screening"
)

// QueryFunc returns: data, rowCount, executionTime (ms), error
type QueryFunc func(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error)

var Registry = map[string]QueryFunc{
	ActionConnectionTest:     ConnectionTest,
	ActionDashboardAggregate: DashboardAggregate,
	ActionScreeningRecords:   ScreeningRecords,
	ActionSampleRecord:       SampleRecord,
	ActionCommunityMetrics:   CommunityMetrics,
	ActionRiskDistribution:   RiskDistribution,
	ActionSaveScreening:      SaveScreening,
}

func Execute(ctx context.Context, db *sql.DB, action string, params map[string]interface{}) (interface{}, int, int64, error) {
	fn, exists := Registry[action]
	if !exists {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, action)
	}
	return fn(ctx, db, params)
}
