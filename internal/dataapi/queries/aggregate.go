// internal/dataapi/queries/aggregate.go
package queries

import (
	"context"
	"database/sql"
	"time"
)

func ConnectionTest(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	start := time.Now()

	var version, dbName string
	var now time.Time
	err := db.QueryRowContext(ctx,
		`SELECT version(), current_database(), now()`).Scan(&version, &dbName, &now)
	if err != nil {
		return nil, 0, 0, err
	}

	result := map[string]interface{}{
		"status":   "connected",
		"database": dbName,
		"version":  version,
		"time":     now.Format(time.RFC3339),
	}
	return result, 1, time.Since(start).Milliseconds(), nil
}

func DashboardAggregate(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	start := time.Now()

	var totalUsers int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&totalUsers); err != nil {
		return nil, 0, 0, err
	}

	var totalScreenings, samCases, mamCases, lowRisk, veryLow int
	var avgRisk float64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(risk_score), 0),
		       COUNT(*) FILTER (WHERE risk_score >= 50),
		       COUNT(*) FILTER (WHERE risk_score BETWEEN 30 AND 49),
		       COUNT(*) FILTER (WHERE risk_score BETWEEN 15 AND 29),
		       COUNT(*) FILTER (WHERE risk_score < 15)
		FROM screenings`).Scan(&totalScreenings, &avgRisk, &samCases, &mamCases, &lowRisk, &veryLow)
	if err != nil {
		return nil, 0, 0, err
	}

	barangayCounts, err := countsByColumn(ctx, db, `SELECT barangay, COUNT(*) FROM users WHERE barangay <> '' GROUP BY barangay`)
	if err != nil {
		return nil, 0, 0, err
	}

	ageGroupCounts, err := countsByColumn(ctx, db, `
		SELECT CASE WHEN age < 3 THEN '0-2' WHEN age < 6 THEN '3-5' ELSE '6+' END, COUNT(*)
		FROM users GROUP BY 1`)
	if err != nil {
		return nil, 0, 0, err
	}

	genderCounts, err := countsByColumn(ctx, db, `SELECT gender, COUNT(*) FROM users WHERE gender <> '' GROUP BY gender`)
	if err != nil {
		return nil, 0, 0, err
	}

	result := map[string]interface{}{
		"total_users":         totalUsers,
		"total_screenings":    totalScreenings,
		"high_risk_cases":     samCases,
		"moderate_risk_cases": mamCases,
		"low_risk_cases":      lowRisk,
		"sam_cases":           samCases,
		"mam_cases":           mamCases,
		"barangay_counts":     barangayCounts,
		"age_group_counts":    ageGroupCounts,
		"gender_counts":       genderCounts,
		"average_risk_score":  avgRisk,
	}
	return result, 1, time.Since(start).Milliseconds(), nil
}

func CommunityMetrics(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	barangay, ok := params["barangay"].(string)
	if !ok || barangay == "" {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	var total, samCases int
	var avgRisk float64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(s.id),
		       COUNT(*) FILTER (WHERE s.risk_score >= 50),
		       COALESCE(AVG(s.risk_score), 0)
		FROM screenings s
		JOIN users u ON u.email = s.email
		WHERE u.barangay ILIKE $1`, barangay).Scan(&total, &samCases, &avgRisk)
	if err != nil {
		return nil, 0, 0, err
	}

	result := map[string]interface{}{
		"barangay":         barangay,
		"total_screenings": total,
		"sam_cases":        samCases,
		"average_risk":     avgRisk,
	}
	return result, 1, time.Since(start).Milliseconds(), nil
}

func RiskDistribution(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	barangay, ok := params["barangay"].(string)
	if !ok || barangay == "" {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	var veryLow, low, moderate, high, total int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE s.risk_score < 15),
		       COUNT(*) FILTER (WHERE s.risk_score BETWEEN 15 AND 29),
		       COUNT(*) FILTER (WHERE s.risk_score BETWEEN 30 AND 49),
		       COUNT(*) FILTER (WHERE s.risk_score >= 50),
		       COUNT(*)
		FROM screenings s
		JOIN users u ON u.email = s.email
		WHERE u.barangay ILIKE $1`, barangay).Scan(&veryLow, &low, &moderate, &high, &total)
	if err != nil {
		return nil, 0, 0, err
	}

	result := map[string]interface{}{
		"barangay": barangay,
		"very_low": veryLow,
		"low":      low,
		"moderate": moderate,
		"high":     high,
		"total":    total,
	}
	return result, 1, time.Since(start).Milliseconds(), nil
}

func countsByColumn(ctx context.Context, db *sql.DB, query string) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}
