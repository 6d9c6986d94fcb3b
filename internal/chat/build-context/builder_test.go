// internal/chat/build-context/builder_test.go
package buildcontext

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrisaur-workers/internal/models"
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
// Fake Data Source
// ==========================

type fakeSource struct {
	snapshot    *models.AggregateSnapshot
	snapshotErr error
	sample      map[string]interface{}
	sampleErr   error
}

func (f *fakeSource) DashboardAggregate(ctx context.Context) (*models.AggregateSnapshot, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeSource) SampleRecord(ctx context.Context) (map[string]interface{}, error) {
	return f.sample, f.sampleErr
}

func testSnapshot() *models.AggregateSnapshot {
	return &models.AggregateSnapshot{
		TotalUsers:       120,
		TotalScreenings:  340,
		HighRiskCases:    14,
		ModerateRisk:     22,
		LowRisk:          84,
		SAMCases:         9,
		MAMCases:         22,
		AverageRiskScore: 21.5,
	}
}

func testSample() map[string]interface{} {
	return map[string]interface{}{
		"email":          "kevin@example.com",
		"name":           "Kevin Reyes",
		"age":            4,
		"barangay":       "Bagumbayan",
		"risk_score":     12,
		"swelling":       "no",
		"weight_kg":      14.2,
		"height_cm":      98.0,
		"muac_cm":        13.5,
		"screening_date": "2026-08-01",
		"notes":          "follow up next month",
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestBuild_Success(t *testing.T) {
	source := &fakeSource{snapshot: testSnapshot(), sample: testSample()}
	builder := NewBuilder(DefaultConfig(), source, NewTestLogger(t))

	blob := builder.Build(context.Background())

	require.NotEmpty(t, blob)
	assert.Contains(t, blob, "NutriSaur")
	assert.Contains(t, blob, "120 registered users")
	assert.Contains(t, blob, "9 SAM cases")
	assert.Contains(t, blob, "average risk score 21.5")
	assert.NotContains(t, blob, "basic functionality available")
}

func TestBuild_FieldCategorization(t *testing.T) {
	source := &fakeSource{snapshot: testSnapshot(), sample: testSample()}
	builder := NewBuilder(DefaultConfig(), source, NewTestLogger(t))

	blob := builder.Build(context.Background())

	// demographics picks up name/email/age/barangay, health picks up
	// risk_score/swelling, clinical picks up muac_cm, physical picks up
	// weight/height, leftovers land in other.
	demoLine := lineFor(t, blob, "- demographics:")
	assert.Contains(t, demoLine, "email")
	assert.Contains(t, demoLine, "barangay")

	healthLine := lineFor(t, blob, "- health:")
	assert.Contains(t, healthLine, "risk_score")
	assert.Contains(t, healthLine, "swelling")

	physicalLine := lineFor(t, blob, "- physical:")
	assert.Contains(t, physicalLine, "weight_kg")
	assert.Contains(t, physicalLine, "height_cm")

	assert.Contains(t, lineFor(t, blob, "- clinical:"), "muac_cm")
	assert.Contains(t, lineFor(t, blob, "- screening:"), "screening_date")
	assert.Contains(t, lineFor(t, blob, "- other:"), "notes")
}

func TestBuild_FallbackOnSnapshotError(t *testing.T) {
	source := &fakeSource{
		snapshotErr: errors.New("connection refused"),
		sample:      testSample(),
	}
	builder := NewBuilder(DefaultConfig(), source, NewTestLogger(t))

	blob := builder.Build(context.Background())
	assert.Contains(t, blob, "basic functionality available")
}

func TestBuild_FallbackOnSampleError(t *testing.T) {
	source := &fakeSource{
		snapshot:  testSnapshot(),
		sampleErr: errors.New("bad gateway"),
	}
	builder := NewBuilder(DefaultConfig(), source, NewTestLogger(t))

	blob := builder.Build(context.Background())
	assert.Contains(t, blob, "basic functionality available")
}

func TestBuild_NeverFailsEvenWhenBothFetchesFail(t *testing.T) {
	source := &fakeSource{
		snapshotErr: errors.New("down"),
		sampleErr:   errors.New("down"),
	}
	builder := NewBuilder(DefaultConfig(), source, NewTestLogger(t))

	blob := builder.Build(context.Background())
	require.NotEmpty(t, blob)
	assert.Contains(t, blob, "basic functionality available")
}

func lineFor(t *testing.T, blob, prefix string) string {
	t.Helper()
	for _, line := range strings.Split(blob, "\n") {
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
	t.Fatalf("no line with prefix %q in context blob:\n%s", prefix, blob)
	return ""
}
