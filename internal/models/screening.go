package models

import "strings"

// ScreeningRecord is one community member's screening entry as returned by
// the Data API. The screening answers live in a free-form JSON object; the
// dispatcher must tolerate missing keys.
type ScreeningRecord struct {
	Email         string                 `json:"email"`
	Name          string                 `json:"name"`
	Username      string                 `json:"username"`
	Barangay      string                 `json:"barangay"`
	Age           int                    `json:"age"`
	Gender        string                 `json:"gender"`
	RiskScore     int                    `json:"risk_score"`
	ScreeningData map[string]interface{} `json:"screening_data"`
}

// DisplayName prefers the full name, falling back to the username.
func (r ScreeningRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.Username != "" {
		return r.Username
	}
	return "N/A"
}

// MatchesName reports a case-insensitive substring match against the
// record's name or username.
func (r ScreeningRecord) MatchesName(needle string) bool {
	needle = strings.ToLower(needle)
	return strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(r.Username), needle)
}

// HasSwelling reports whether the screening answers mark bilateral edema.
func (r ScreeningRecord) HasSwelling() bool {
	v, ok := r.ScreeningData["swelling"]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && strings.EqualFold(s, "yes")
}

// AggregateSnapshot is the dashboard aggregate served by the Data API.
// Eventually consistent, read-only; the dispatcher never mutates it.
type AggregateSnapshot struct {
	TotalUsers       int            `json:"total_users"`
	TotalScreenings  int            `json:"total_screenings"`
	HighRiskCases    int            `json:"high_risk_cases"`
	ModerateRisk     int            `json:"moderate_risk_cases"`
	LowRisk          int            `json:"low_risk_cases"`
	SAMCases         int            `json:"sam_cases"`
	MAMCases         int            `json:"mam_cases"`
	BarangayCounts   map[string]int `json:"barangay_counts"`
	AgeGroupCounts   map[string]int `json:"age_group_counts"`
	GenderCounts     map[string]int `json:"gender_counts"`
	AverageRiskScore float64        `json:"average_risk_score"`
}

// CommunityMetrics is the per-barangay slice of the snapshot.
type CommunityMetrics struct {
	Barangay        string  `json:"barangay"`
	TotalScreenings int     `json:"total_screenings"`
	SAMCases        int     `json:"sam_cases"`
	AverageRisk     float64 `json:"average_risk"`
}

// RiskDistribution buckets one location's screenings by tier.
type RiskDistribution struct {
	Barangay string `json:"barangay"`
	VeryLow  int    `json:"very_low"`
	Low      int    `json:"low"`
	Moderate int    `json:"moderate"`
	High     int    `json:"high"`
	Total    int    `json:"total"`
}
