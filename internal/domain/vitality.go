package domain

// ComponentScore is the per-component breakdown entry of a Vitality Score.
// The breakdown is part of the contract: consumers need it to explain the
// composite number, so it is never omitted.
type ComponentScore struct {
	Score int `json:"score"`

	// Weight is the effective weight after redistribution, rounded to two
	// decimals. Unavailable components carry weight 0.
	Weight float64 `json:"weight"`

	// Value is a human-readable rendering of the raw input,
	// e.g. "7.5h" or "HRV 45ms / RHR 58".
	Value string `json:"value"`

	Available bool `json:"available"`
}

// VitalityScore is the composite 0-100 daily wellness score with its
// explanatory breakdown.
//
// Invariant: the effective weights of available components sum to 1.0
// (within rounding) whenever at least one component is available. When no
// component is available the score is 0 and every component is flagged
// unavailable — a state callers must render as "no data", never as a
// confident zero.
type VitalityScore struct {
	Date       string                          `json:"date"`
	Score      int                             `json:"score"`
	Components map[ComponentKey]ComponentScore `json:"components"`
}

// Available reports whether at least one component contributed to the score.
func (v *VitalityScore) Available() bool {
	for _, c := range v.Components {
		if c.Available {
			return true
		}
	}
	return false
}

// CorrelationInsight is a derived finding from a fixed conjunction of
// biomarker statuses matching a known clinical pattern. Insights are
// ephemeral: recomputed on demand, never persisted as source of truth.
type CorrelationInsight struct {
	Markers   []string `json:"markers"`
	Insight   string   `json:"insight"`
	Severity  Severity `json:"severity"`
	Condition string   `json:"condition,omitempty"`
}

// WellnessResult is the simple penalty-based aggregate over a classified
// biomarker set: 100 minus 10 per out-of-range marker, clamped to [0,100].
// The counts let consumers distinguish "no classifiable data" from
// "perfect labs".
type WellnessResult struct {
	Score            int `json:"score"`
	MarkersEvaluated int `json:"markers_evaluated"`
	LowCount         int `json:"low_count"`
	HighCount        int `json:"high_count"`
	Unclassified     int `json:"unclassified"`
}
