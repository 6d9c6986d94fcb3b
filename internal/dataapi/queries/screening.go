// internal/dataapi/queries/screening.go
package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const latestScreeningsQuery = `
	SELECT u.email, u.name, u.username, u.barangay, u.age, u.gender,
	       s.risk_score, s.screening_data
	FROM users u
	JOIN LATERAL (
		SELECT risk_score, screening_data
		FROM screenings
		WHERE email = u.email
		ORDER BY created_at DESC
		LIMIT 1
	) s ON true
	ORDER BY u.email`

func ScreeningRecords(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	start := time.Now()

	rows, err := db.QueryContext(ctx, latestScreeningsQuery)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	records := []map[string]interface{}{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, 0, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	return records, len(records), time.Since(start).Milliseconds(), nil
}

// SampleRecord returns one record with the screening answers flattened in,
// so callers can introspect the live field names.
func SampleRecord(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	start := time.Now()

	rows, err := db.QueryContext(ctx, latestScreeningsQuery+` LIMIT 1`)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, 0, 0, err
		}
		return map[string]interface{}{}, 0, time.Since(start).Milliseconds(), nil
	}

	record, err := scanRecord(rows)
	if err != nil {
		return nil, 0, 0, err
	}

	flat := make(map[string]interface{}, len(record))
	for k, v := range record {
		if k == "screening_data" {
			if data, ok := v.(map[string]interface{}); ok {
				for dk, dv := range data {
					flat[dk] = dv
				}
			}
			continue
		}
		flat[k] = v
	}

	return flat, 1, time.Since(start).Milliseconds(), nil
}

func SaveScreening(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	email, ok := params["email"].(string)
	if !ok || email == "" {
		return nil, 0, 0, ErrMissingParam
	}
	riskScore, ok := params["risk_score"].(float64)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	screeningData := map[string]interface{}{}
	if data, ok := params["screening_data"].(map[string]interface{}); ok {
		screeningData = data
	}
	dataJSON, err := json.Marshal(screeningData)
	if err != nil {
		return nil, 0, 0, err
	}

	start := time.Now()
	id := uuid.New().String()

	_, err = db.ExecContext(ctx, `
		INSERT INTO screenings (id, email, risk_score, screening_data, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		id, email, int(riskScore), dataJSON)
	if err != nil {
		return nil, 0, 0, err
	}

	result := map[string]interface{}{
		"id":         id,
		"email":      email,
		"risk_score": int(riskScore),
	}
	return result, 1, time.Since(start).Milliseconds(), nil
}

func scanRecord(rows *sql.Rows) (map[string]interface{}, error) {
	var email, name, username, barangay, gender string
	var age, riskScore int
	var rawData []byte

	if err := rows.Scan(&email, &name, &username, &barangay, &age, &gender, &riskScore, &rawData); err != nil {
		return nil, err
	}

	screeningData := map[string]interface{}{}
	if len(rawData) > 0 {
		// Tolerate malformed JSON in old rows; the answers just come back empty.
		_ = json.Unmarshal(rawData, &screeningData)
	}

	return map[string]interface{}{
		"email":          email,
		"name":           name,
		"username":       username,
		"barangay":       barangay,
		"age":            age,
		"gender":         gender,
		"risk_score":     riskScore,
		"screening_data": screeningData,
	}, nil
}
