package models

// RiskTier is the four-level classification used across the screening
// program. Thresholds: SAM at score >=50, MAM in 30-49.
type RiskTier string

const (
	RiskVeryLow  RiskTier = "Very Low"
	RiskLow      RiskTier = "Low"
	RiskModerate RiskTier = "Moderate"
	RiskHigh     RiskTier = "High"
)

const (
	SAMThreshold          = 50
	MAMThreshold          = 30
	LowRiskThreshold      = 15
	MalnutritionThreshold = 30
)

// TierForScore partitions [0, inf) into the four tiers. Total and
// non-overlapping: 14 -> Very Low, 15..29 -> Low, 30..49 -> Moderate,
// 50+ -> High.
func TierForScore(score int) RiskTier {
	switch {
	case score < LowRiskThreshold:
		return RiskVeryLow
	case score < MAMThreshold:
		return RiskLow
	case score < SAMThreshold:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// Recommendation returns the tier-specific guidance text shown on the
// personal-data branch.
func (t RiskTier) Recommendation() string {
	switch t {
	case RiskVeryLow:
		return "Keep up the balanced diet and regular screenings."
	case RiskLow:
		return "Maintain current nutrition habits and attend the next scheduled screening."
	case RiskModerate:
		return "Please visit your barangay health worker for a follow-up assessment within two weeks."
	default:
		return "Urgent: please contact your barangay nutrition scholar immediately for referral."
	}
}

const (
	ClassSAM = "SAM (Severe)"
	ClassMAM = "MAM (Moderate)"
)

// MalnutritionClass sub-classifies a malnutrition-range score.
// Empty string for scores below the MAM threshold.
func MalnutritionClass(score int) string {
	switch {
	case score >= SAMThreshold:
		return ClassSAM
	case score >= MAMThreshold:
		return ClassMAM
	default:
		return ""
	}
}
