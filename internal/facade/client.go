// internal/facade/client.go
package facade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	commonhttp "nutrisaur-workers/internal/common/http"
	"nutrisaur-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRequestFailed = errors.New("FACADE_REQUEST_FAILED")
	ErrBadEnvelope   = errors.New("FACADE_BAD_ENVELOPE")
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client talks to the Data Access Facade. Every dispatcher branch reads
// through it; it owns no state beyond an optional short-TTL record cache.
type Client struct {
	config      *Config
	httpClient  *commonhttp.Client
	redisClient *redis.Client
	logger      Logger
}

const recordCacheKey = "nutrisaur:chat:records"

// NewClient creates a facade client. redisClient may be nil; the record
// cache is then skipped entirely.
func NewClient(config *Config, redisClient *redis.Client, log Logger) *Client {
	return &Client{
		config:      config,
		httpClient:  commonhttp.NewClient(config.Timeout),
		redisClient: redisClient,
		logger: log.With(map[string]interface{}{
			"component": "facade",
		}),
	}
}

// ConnectionTest verifies the facade is reachable and returns its live
// status fields. Never served from cache.
func (c *Client) ConnectionTest(ctx context.Context) (*ConnectionStatus, error) {
	var status ConnectionStatus
	if err := c.post(ctx, "connection_test", nil, &status); err != nil {
		return nil, err
	}
	if status.Status == "" {
		status.Status = "N/A"
	}
	if status.Database == "" {
		status.Database = "N/A"
	}
	return &status, nil
}

// DashboardAggregate fetches the current aggregate snapshot. Always fresh:
// the context builder depends on this embedding current counts.
func (c *Client) DashboardAggregate(ctx context.Context) (*models.AggregateSnapshot, error) {
	var snap models.AggregateSnapshot
	if err := c.post(ctx, "dashboard_aggregate", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ScreeningRecords fetches the full per-record screening list. Served from
// the Redis cache when one is configured and warm.
func (c *Client) ScreeningRecords(ctx context.Context) ([]models.ScreeningRecord, error) {
	if c.redisClient != nil {
		if val, err := c.redisClient.Get(ctx, recordCacheKey).Result(); err == nil {
			var cached []models.ScreeningRecord
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached, nil
			}
		}
	}

	var records []models.ScreeningRecord
	if err := c.post(ctx, "screening_records", nil, &records); err != nil {
		return nil, err
	}

	if c.redisClient != nil && len(records) > 0 {
		data, _ := json.Marshal(records)
		if err := c.redisClient.Set(ctx, recordCacheKey, data, c.config.CacheTTL).Err(); err != nil {
			c.logger.Warn("record cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return records, nil
}

// SampleRecord fetches one raw record for field-name introspection.
// Bypasses the cache: the context builder wants the facade's current shape.
func (c *Client) SampleRecord(ctx context.Context) (map[string]interface{}, error) {
	var record map[string]interface{}
	if err := c.post(ctx, "sample_record", nil, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// CommunityMetrics fetches per-barangay screening metrics.
func (c *Client) CommunityMetrics(ctx context.Context, barangay string) (*models.CommunityMetrics, error) {
	var cm models.CommunityMetrics
	err := c.post(ctx, "community_metrics", map[string]interface{}{"barangay": barangay}, &cm)
	if err != nil {
		return nil, err
	}
	if cm.Barangay == "" {
		cm.Barangay = barangay
	}
	return &cm, nil
}

// RiskDistribution fetches the per-tier breakdown for one barangay.
func (c *Client) RiskDistribution(ctx context.Context, barangay string) (*models.RiskDistribution, error) {
	var rd models.RiskDistribution
	err := c.post(ctx, "risk_distribution", map[string]interface{}{"barangay": barangay}, &rd)
	if err != nil {
		return nil, err
	}
	if rd.Barangay == "" {
		rd.Barangay = barangay
	}
	return &rd, nil
}

func (c *Client) post(ctx context.Context, action string, params map[string]interface{}, out interface{}) error {
	body, _ := json.Marshal(request{Action: action, Params: params})
	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/api/query", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode error: %v", ErrBadEnvelope, err)
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", ErrRequestFailed, env.Error)
	}
	if len(env.Data) == 0 {
		// Missing data field is tolerated; leave the zero value.
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: data decode: %v", ErrBadEnvelope, err)
	}
	return nil
}
