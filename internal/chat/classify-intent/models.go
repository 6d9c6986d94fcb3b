// internal/chat/classify-intent/models.go
package classifyintent

// Kind enumerates the handling branches a query can be routed to.
type Kind string

const (
	KindSystemInfo      Kind = "system_info"
	KindAggregateStats  Kind = "aggregate_stats"
	KindHealthCondition Kind = "health_condition"
	KindPersonalData    Kind = "personal_data"
	KindNamedUserLookup Kind = "named_user_lookup"
	KindLocationLookup  Kind = "location_lookup"
	KindGenericAdvice   Kind = "generic_advice"
)

// Intent is the classification result. Exactly one Intent per query.
// Condition is set for health_condition ("edema" or "malnutrition"),
// Name for named_user_lookup, Place for location_lookup.
type Intent struct {
	Kind      Kind   `json:"kind"`
	Condition string `json:"condition,omitempty"`
	Name      string `json:"name,omitempty"`
	Place     string `json:"place,omitempty"`
}
