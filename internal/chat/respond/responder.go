// internal/chat/respond/responder.go
package respond

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	classifyintent "nutrisaur-workers/internal/chat/classify-intent"
	"nutrisaur-workers/internal/chat/genai"
	apperrors "nutrisaur-workers/internal/common/errors"
	"nutrisaur-workers/internal/common/metrics"
	"nutrisaur-workers/internal/facade"
	"nutrisaur-workers/internal/models"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// DataSource is the slice of the facade the responder branches read from.
type DataSource interface {
	ConnectionTest(ctx context.Context) (*facade.ConnectionStatus, error)
	DashboardAggregate(ctx context.Context) (*models.AggregateSnapshot, error)
	ScreeningRecords(ctx context.Context) ([]models.ScreeningRecord, error)
	CommunityMetrics(ctx context.Context, barangay string) (*models.CommunityMetrics, error)
	RiskDistribution(ctx context.Context, barangay string) (*models.RiskDistribution, error)
}

// ContextBuilder assembles the prompt context for the generic-advice branch.
type ContextBuilder interface {
	Build(ctx context.Context) string
}

// Generator is the external generative-AI call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Responder turns a classified intent into the final HTML display string.
// No branch ever returns an error to the caller: every failure degrades to
// a branch-specific apology string.
type Responder struct {
	config    *Config
	source    DataSource
	builder   ContextBuilder
	generator Generator
	logger    Logger
}

func NewResponder(config *Config, source DataSource, builder ContextBuilder, generator Generator, log Logger) *Responder {
	return &Responder{
		config:    config,
		source:    source,
		builder:   builder,
		generator: generator,
		logger: log.With(map[string]interface{}{
			"component": "responder",
		}),
	}
}

// Respond produces the display string for one classified query. email
// identifies the current session's own record for the personal branch.
func (r *Responder) Respond(ctx context.Context, intent classifyintent.Intent, query, email string) string {
	start := time.Now()
	metrics.ChatQueriesTotal.WithLabelValues(string(intent.Kind)).Inc()
	defer func() {
		metrics.ChatBranchDuration.WithLabelValues(string(intent.Kind)).Observe(time.Since(start).Seconds())
	}()

	// Data-backed branches share one deadline. The generative branch manages
	// its own: the generator's timeout is the sole authority there.
	dataCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	switch intent.Kind {
	case classifyintent.KindSystemInfo:
		return r.systemInfo(dataCtx)
	case classifyintent.KindAggregateStats:
		return r.aggregateStats(dataCtx)
	case classifyintent.KindHealthCondition:
		return r.healthCondition(dataCtx, intent.Condition)
	case classifyintent.KindPersonalData:
		return r.personalData(dataCtx, email)
	case classifyintent.KindNamedUserLookup:
		return r.namedUserLookup(dataCtx, intent.Name)
	case classifyintent.KindLocationLookup:
		return r.locationLookup(dataCtx, intent.Place)
	default:
		return r.genericAdvice(ctx, query)
	}
}

func (r *Responder) systemInfo(ctx context.Context) string {
	var sb strings.Builder
	sb.WriteString("<b>NutriSaur Assistant</b><br>I can help you with:<br>")
	sb.WriteString("- Dashboard statistics and screening totals<br>")
	sb.WriteString("- Edema and malnutrition case counts<br>")
	sb.WriteString("- Your personal risk data<br>")
	sb.WriteString("- Looking up a user by name<br>")
	sb.WriteString("- Community health by barangay<br>")
	sb.WriteString("- General nutrition advice<br><br>")

	status, err := r.source.ConnectionTest(ctx)
	if err != nil {
		r.degrade("system_info", err)
		sb.WriteString("Live system status is unavailable right now.")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("<b>System status:</b> %s (database: %s)", status.Status, status.Database))
	return sb.String()
}

func (r *Responder) aggregateStats(ctx context.Context) string {
	snap, err := r.source.DashboardAggregate(ctx)
	if err != nil {
		r.degrade("aggregate_stats", err)
		return "Sorry, I couldn't load the dashboard statistics right now. Please try again in a moment."
	}

	records, err := r.source.ScreeningRecords(ctx)
	if err != nil {
		r.degrade("aggregate_stats", err)
		return "Sorry, I couldn't load the screening records right now. Please try again in a moment."
	}

	critical := 0
	for _, rec := range records {
		if rec.HasSwelling() || rec.RiskScore >= models.SAMThreshold {
			critical++
		}
	}

	var sb strings.Builder
	sb.WriteString("<b>Community Nutrition Overview</b><br><br>")
	sb.WriteString(fmt.Sprintf("<b>Totals:</b> %d registered users, %d screenings<br>", snap.TotalUsers, snap.TotalScreenings))
	sb.WriteString(fmt.Sprintf("<b>Critical conditions:</b> %d (edema or SAM-level risk)<br>", critical))
	sb.WriteString(fmt.Sprintf("<b>Risk levels:</b> %d high, %d moderate, %d low<br>", snap.HighRiskCases, snap.ModerateRisk, snap.LowRisk))

	if len(snap.BarangayCounts) > 0 {
		sb.WriteString("<b>Top locations:</b><br>")
		for _, entry := range topCounts(snap.BarangayCounts, r.config.TopLocations) {
			sb.WriteString(fmt.Sprintf("- %s: %d<br>", entry.key, entry.count))
		}
	}

	if len(snap.AgeGroupCounts) > 0 {
		sb.WriteString("<b>Age groups:</b> ")
		sb.WriteString(joinCounts(snap.AgeGroupCounts))
		sb.WriteString("<br>")
	}

	if len(snap.GenderCounts) > 0 {
		sb.WriteString("<b>Gender:</b> ")
		sb.WriteString(joinCounts(snap.GenderCounts))
		sb.WriteString("<br>")
	}

	return sb.String()
}

func (r *Responder) healthCondition(ctx context.Context, condition string) string {
	records, err := r.source.ScreeningRecords(ctx)
	if err != nil {
		r.degrade("health_condition", err)
		return "Sorry, I couldn't load the screening records right now. Please try again in a moment."
	}

	switch condition {
	case "edema":
		return r.edemaReport(records)
	default:
		return r.malnutritionReport(records)
	}
}

func (r *Responder) edemaReport(records []models.ScreeningRecord) string {
	var matches []models.ScreeningRecord
	for _, rec := range records {
		if rec.HasSwelling() {
			matches = append(matches, rec)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Edema cases:</b> %d of %d screened users show swelling.<br>", len(matches), len(records)))
	if len(matches) > 0 {
		sb.WriteString("<b>Examples:</b><br>")
		for i, rec := range matches {
			if i >= r.config.MaxExampleRecords {
				break
			}
			sb.WriteString(fmt.Sprintf("- %s (%s, risk score %d)<br>", rec.DisplayName(), rec.Barangay, rec.RiskScore))
		}
	}
	return sb.String()
}

func (r *Responder) malnutritionReport(records []models.ScreeningRecord) string {
	var sam, mam []models.ScreeningRecord
	for _, rec := range records {
		switch models.MalnutritionClass(rec.RiskScore) {
		case models.ClassSAM:
			sam = append(sam, rec)
		case models.ClassMAM:
			mam = append(mam, rec)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Malnutrition cases:</b> %d of %d screened users at risk score 30 or above.<br><br>", len(sam)+len(mam), len(records)))

	sb.WriteString(fmt.Sprintf("<b>%s:</b> %d<br>", models.ClassSAM, len(sam)))
	for i, rec := range sam {
		if i >= r.config.MaxExampleRecords {
			break
		}
		sb.WriteString(fmt.Sprintf("- %s (%s, risk score %d)<br>", rec.DisplayName(), rec.Barangay, rec.RiskScore))
	}

	sb.WriteString(fmt.Sprintf("<b>%s:</b> %d<br>", models.ClassMAM, len(mam)))
	for i, rec := range mam {
		if i >= r.config.MaxExampleRecords {
			break
		}
		sb.WriteString(fmt.Sprintf("- %s (%s, risk score %d)<br>", rec.DisplayName(), rec.Barangay, rec.RiskScore))
	}

	return sb.String()
}

func (r *Responder) personalData(ctx context.Context, email string) string {
	if email == "" {
		return "I don't know who you are yet. Sign in so I can look up your screening record."
	}

	records, err := r.source.ScreeningRecords(ctx)
	if err != nil {
		r.degrade("personal_data", err)
		return "Sorry, I couldn't load your screening record right now. Please try again in a moment."
	}

	for _, rec := range records {
		if strings.EqualFold(rec.Email, email) {
			tier := models.TierForScore(rec.RiskScore)
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("<b>Your screening data</b> (%s)<br>", rec.DisplayName()))
			sb.WriteString(fmt.Sprintf("Risk score: %d - <b>%s</b><br>", rec.RiskScore, tier))
			sb.WriteString(tier.Recommendation())
			return sb.String()
		}
	}

	r.degrade("personal_data", apperrors.NewNoMatchFailure("screening record", email))
	return "I couldn't find a screening record for your account yet. Complete a screening to see your personal risk data."
}

func (r *Responder) namedUserLookup(ctx context.Context, name string) string {
	records, err := r.source.ScreeningRecords(ctx)
	if err != nil {
		r.degrade("named_user_lookup", err)
		return "Sorry, I couldn't search the user records right now. Please try again in a moment."
	}

	for _, rec := range records {
		if rec.MatchesName(name) {
			tier := models.TierForScore(rec.RiskScore)
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("<b>%s</b><br>", rec.DisplayName()))
			if rec.Barangay != "" {
				sb.WriteString(fmt.Sprintf("Barangay: %s<br>", rec.Barangay))
			}
			if rec.Age > 0 {
				sb.WriteString(fmt.Sprintf("Age: %d<br>", rec.Age))
			}
			sb.WriteString(fmt.Sprintf("Risk score: %d - <b>%s</b>", rec.RiskScore, tier))
			return sb.String()
		}
	}

	r.degrade("named_user_lookup", apperrors.NewNoMatchFailure("user", name))
	return fmt.Sprintf("No user found with name containing \"%s\". We currently have %d registered users.", name, len(records))
}

func (r *Responder) locationLookup(ctx context.Context, place string) string {
	cm, err := r.source.CommunityMetrics(ctx, place)
	if err != nil {
		r.degrade("location_lookup", err)
		return fmt.Sprintf("Sorry, I couldn't load community data for \"%s\" right now. Please try again in a moment.", place)
	}

	rd, err := r.source.RiskDistribution(ctx, place)
	if err != nil {
		r.degrade("location_lookup", err)
		return fmt.Sprintf("Sorry, I couldn't load the risk distribution for \"%s\" right now. Please try again in a moment.", place)
	}

	if cm.TotalScreenings == 0 {
		r.degrade("location_lookup", apperrors.NewNoMatchFailure("barangay screening", place))
		return fmt.Sprintf("No screening data found for \"%s\" yet.", place)
	}

	samRate := float64(cm.SAMCases) / float64(cm.TotalScreenings) * 100
	highRiskRate := 0.0
	if rd.Total > 0 {
		highRiskRate = float64(rd.High) / float64(rd.Total) * 100
	}

	label := "Healthy"
	switch {
	case samRate > 5:
		label = "Critical"
	case highRiskRate > 30:
		label = "High Risk"
	case highRiskRate > 15:
		label = "Moderate"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b> - health status: <b>%s</b><br>", cm.Barangay, label))
	sb.WriteString(fmt.Sprintf("Screenings: %d, SAM cases: %d (%.1f%%)<br>", cm.TotalScreenings, cm.SAMCases, samRate))
	sb.WriteString(fmt.Sprintf("High-risk rate: %.1f%% (%d of %d)<br>", highRiskRate, rd.High, rd.Total))
	sb.WriteString(fmt.Sprintf("Average risk score: %.1f", cm.AverageRisk))
	return sb.String()
}

const adviceInstructions = "You are NutriSaur, a friendly community nutrition assistant for barangay health workers and parents. Answer in plain language, keep it short and practical, and never give a medical diagnosis. Recommend consulting a health worker for high-risk cases."

func (r *Responder) genericAdvice(ctx context.Context, query string) string {
	systemContext := r.builder.Build(ctx)

	var sb strings.Builder
	sb.WriteString(adviceInstructions)
	sb.WriteString("\n\nSystem context:\n")
	sb.WriteString(systemContext)
	sb.WriteString("\n\nUser question: ")
	sb.WriteString(query)

	text, err := r.generator.Generate(ctx, sb.String())
	if err != nil {
		r.degrade("generic_advice", err)
		if errors.Is(err, genai.ErrGenAITimeout) {
			return "Sorry, I couldn't connect to the nutrition advice service in time. Please try again later."
		}
		return "Sorry, I couldn't connect to the nutrition advice service right now. Please try again later."
	}

	return FormatHTML(text)
}

func (r *Responder) degrade(branch string, err error) {
	stdErr := standardize(err)
	metrics.ChatDegradedResponses.WithLabelValues(branch, string(stdErr.Code)).Inc()
	r.logger.Warn("branch degraded to apology", map[string]interface{}{
		"branch":    branch,
		"errorCode": string(stdErr.Code),
		"retryable": apperrors.IsRetryable(stdErr),
		"error":     err.Error(),
	})
}

// standardize folds a branch failure into the shared error taxonomy so the
// degraded-response metric and log carry one code vocabulary.
func standardize(err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	switch {
	case errors.As(err, &stdErr):
		return stdErr
	case errors.Is(err, genai.ErrGenAITimeout):
		return apperrors.NewGenAITimeout(err)
	case errors.Is(err, genai.ErrGenAIFailed):
		return apperrors.NewGenAIFailed(err)
	case errors.Is(err, facade.ErrBadEnvelope):
		return apperrors.NewDataShapeFailure("facade envelope", err)
	default:
		return apperrors.NewNetworkFailure("data facade", err)
	}
}

type countEntry struct {
	key   string
	count int
}

func topCounts(counts map[string]int, limit int) []countEntry {
	entries := make([]countEntry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, countEntry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func joinCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}
