// internal/chat/build-context/builder.go
package buildcontext

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"nutrisaur-workers/internal/models"
)

// fallbackContext is returned whenever live data cannot be assembled. The
// generic-advice path must never hard-fail because of context assembly.
const fallbackContext = "NutriSaur community nutrition assistant - basic functionality available. " +
	"Live dashboard data is temporarily unreachable; answer from general nutrition knowledge only."

const architecturePreamble = `NutriSaur is a community malnutrition screening platform used by barangay health workers in the Philippines. It stores per-user screening records (anthropometric measurements, risk scores, screening answers) and exposes dashboard aggregates over them. Risk scores map to tiers: below 15 Very Low, 15-29 Low, 30-49 Moderate, 50 and above High. SAM means Severe Acute Malnutrition (score >= 50), MAM means Moderate Acute Malnutrition (score 30-49).`

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// DataSource is the slice of the facade the builder needs.
type DataSource interface {
	DashboardAggregate(ctx context.Context) (*models.AggregateSnapshot, error)
	SampleRecord(ctx context.Context) (map[string]interface{}, error)
}

// Builder assembles the system-context blob injected into generic-advice
// prompts. Rebuilt fresh on every call: the blob embeds current counts, so
// caching it would serve stale numbers.
type Builder struct {
	config *Config
	source DataSource
	logger Logger
}

func NewBuilder(config *Config, source DataSource, log Logger) *Builder {
	return &Builder{
		config: config,
		source: source,
		logger: log.With(map[string]interface{}{
			"component": "context-builder",
		}),
	}
}

// Build returns the context blob. Never returns an error: any fetch failure
// degrades to the minimal fallback string.
func (b *Builder) Build(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	var wg sync.WaitGroup
	var snapshot *models.AggregateSnapshot
	var sample map[string]interface{}
	errChan := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		snap, err := b.source.DashboardAggregate(ctx)
		if err != nil {
			errChan <- fmt.Errorf("aggregate: %w", err)
			return
		}
		snapshot = snap
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		rec, err := b.source.SampleRecord(ctx)
		if err != nil {
			errChan <- fmt.Errorf("sample record: %w", err)
			return
		}
		sample = rec
	}()

	wg.Wait()
	close(errChan)

	for err := range errChan {
		b.logger.Warn("context build degraded to fallback", map[string]interface{}{
			"error": err.Error(),
		})
		return fallbackContext
	}

	var sb strings.Builder
	sb.WriteString(architecturePreamble)
	sb.WriteString("\n\n")
	sb.WriteString(formatFieldCategories(sample))
	sb.WriteString("\n")
	sb.WriteString(formatHeadlineNumbers(snapshot))
	return sb.String()
}

// fieldCategories maps a category label to the key substrings that select
// it. Checked in categoryOrder; first hit wins, leftovers land in "other".
var fieldCategories = map[string][]string{
	"demographics": {"name", "email", "age", "gender", "birthday", "barangay", "municipality", "address"},
	"health":       {"risk", "swelling", "edema", "malnutrition", "diagnosis", "condition"},
	"screening":    {"screening", "answer", "question", "assessment"},
	"clinical":     {"muac", "whz", "bmi", "blood", "clinical"},
	"physical":     {"weight", "height", "arm", "circumference"},
}

var categoryOrder = []string{"demographics", "health", "screening", "clinical", "physical"}

func formatFieldCategories(sample map[string]interface{}) string {
	buckets := make(map[string][]string)
	for key := range sample {
		lower := strings.ToLower(key)
		category := "other"
		for _, cat := range categoryOrder {
			if containsAny(lower, fieldCategories[cat]) {
				category = cat
				break
			}
		}
		buckets[category] = append(buckets[category], key)
	}

	var sb strings.Builder
	sb.WriteString("Available record fields by category:\n")
	for _, cat := range append(categoryOrder, "other") {
		fields := buckets[cat]
		if len(fields) == 0 {
			continue
		}
		sort.Strings(fields)
		sb.WriteString(fmt.Sprintf("- %s: %s\n", cat, strings.Join(fields, ", ")))
	}
	return sb.String()
}

func formatHeadlineNumbers(snap *models.AggregateSnapshot) string {
	return fmt.Sprintf(
		"Current live numbers: %d registered users, %d screenings, %d high risk, %d moderate risk, %d low risk, %d SAM cases, %d MAM cases, average risk score %.1f.",
		snap.TotalUsers, snap.TotalScreenings, snap.HighRiskCases, snap.ModerateRisk,
		snap.LowRisk, snap.SAMCases, snap.MAMCases, snap.AverageRiskScore,
	)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
