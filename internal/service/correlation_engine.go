package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vitality-score-server/internal/domain"
)

// markerPredicate is one condition of a correlation rule: the named marker
// must be present and classified with the given status.
type markerPredicate struct {
	Marker string
	Status domain.BiomarkerStatus
}

// correlationRule is a conjunction of marker-status predicates. Rules are
// independent of one another; any marker missing from the input simply
// keeps the rule from firing. New rules must follow the same shape so the
// engine stays a flat, auditable table rather than branching code.
type correlationRule struct {
	Condition  string
	Severity   domain.Severity
	Insight    string
	Predicates []markerPredicate
}

// CorrelationRuleEngine scans a classified biomarker set for known
// multi-marker patterns and emits structured insights.
type CorrelationRuleEngine struct {
	logger *logrus.Logger
	rules  []correlationRule
}

// NewCorrelationRuleEngine creates a new correlation rule engine
func NewCorrelationRuleEngine(logger *logrus.Logger) *CorrelationRuleEngine {
	return &CorrelationRuleEngine{
		logger: logger,
		rules:  correlationRules(),
	}
}

// correlationRules is the fixed, ordered rule table. Evaluation order does
// not affect which rules fire, but output follows table order so results
// are deterministic.
func correlationRules() []correlationRule {
	return []correlationRule{
		{
			Condition: "Iron Deficiency Anemia",
			Severity:  domain.SEVERITY_WARNING,
			Insight:   "Low ferritin together with low hemoglobin suggests an iron-deficiency pattern. Consider discussing iron intake with a clinician.",
			Predicates: []markerPredicate{
				{Marker: "ferritin", Status: domain.STATUS_LOW},
				{Marker: "hemoglobin", Status: domain.STATUS_LOW},
			},
		},
		{
			Condition: "Metabolic Syndrome Risk",
			Severity:  domain.SEVERITY_WARNING,
			Insight:   "Elevated glucose and triglycerides combined with low HDL match a metabolic-syndrome risk pattern.",
			Predicates: []markerPredicate{
				{Marker: "glucose", Status: domain.STATUS_HIGH},
				{Marker: "triglycerides", Status: domain.STATUS_HIGH},
				{Marker: "hdl", Status: domain.STATUS_LOW},
			},
		},
		{
			Condition: "Hypothyroid Pattern",
			Severity:  domain.SEVERITY_WARNING,
			Insight:   "High TSH with low free T3 is consistent with reduced thyroid output.",
			Predicates: []markerPredicate{
				{Marker: "tsh", Status: domain.STATUS_HIGH},
				{Marker: "free t3", Status: domain.STATUS_LOW},
			},
		},
		{
			Condition: "Cardiovascular Risk",
			Severity:  domain.SEVERITY_CRITICAL,
			Insight:   "Elevated LDL alongside elevated CRP indicates combined lipid and inflammatory load on the cardiovascular system.",
			Predicates: []markerPredicate{
				{Marker: "ldl", Status: domain.STATUS_HIGH},
				{Marker: "crp", Status: domain.STATUS_HIGH},
			},
		},
		{
			Condition: "Methylation Pattern",
			Severity:  domain.SEVERITY_INFO,
			Insight:   "Low B12 with elevated homocysteine can point at an under-supported methylation cycle.",
			Predicates: []markerPredicate{
				{Marker: "b12", Status: domain.STATUS_LOW},
				{Marker: "homocysteine", Status: domain.STATUS_HIGH},
			},
		},
	}
}

// Detect evaluates every rule against the classified biomarker set and
// returns the insights of all rules whose predicates hold, in table order.
// Unknown or missing markers never error; the affected rules simply do not
// fire.
func (e *CorrelationRuleEngine) Detect(readings []domain.BiomarkerReading) []domain.CorrelationInsight {
	byName := indexReadings(readings)

	insights := make([]domain.CorrelationInsight, 0)
	for _, rule := range e.rules {
		if !rule.matches(byName) {
			continue
		}
		markers := make([]string, 0, len(rule.Predicates))
		for _, p := range rule.Predicates {
			markers = append(markers, byName[p.Marker].Name)
		}
		insights = append(insights, domain.CorrelationInsight{
			Markers:   markers,
			Insight:   rule.Insight,
			Severity:  rule.Severity,
			Condition: rule.Condition,
		})
	}

	e.logger.WithFields(logrus.Fields{
		"total_rules":    len(e.rules),
		"insights_found": len(insights),
		"readings":       len(readings),
	}).Debug("Completed correlation rule evaluation")

	return insights
}

// matches reports whether every predicate of the rule holds.
func (r *correlationRule) matches(byName map[string]*domain.BiomarkerReading) bool {
	for _, p := range r.Predicates {
		reading, ok := byName[p.Marker]
		if !ok || reading.Status != p.Status {
			return false
		}
	}
	return true
}

// indexReadings builds a case-insensitive map from canonical marker name to
// reading. Exact normalized matches win; otherwise the first reading whose
// name contains the canonical name as a substring is used, in input order,
// since lab naming varies ("HDL Cholesterol", "Vitamin B12").
func indexReadings(readings []domain.BiomarkerReading) map[string]*domain.BiomarkerReading {
	byName := make(map[string]*domain.BiomarkerReading, len(readings))
	for i := range readings {
		name := normalizeMarker(readings[i].Name)
		if _, exists := byName[name]; !exists {
			byName[name] = &readings[i]
		}
	}
	for _, canonical := range canonicalMarkers {
		if _, exists := byName[canonical]; exists {
			continue
		}
		for i := range readings {
			if strings.Contains(normalizeMarker(readings[i].Name), canonical) {
				byName[canonical] = &readings[i]
				break
			}
		}
	}
	return byName
}

// canonicalMarkers are the marker names the rule table predicates on.
var canonicalMarkers = []string{
	"ferritin", "hemoglobin", "glucose", "triglycerides", "hdl",
	"tsh", "free t3", "ldl", "crp", "b12", "homocysteine",
}

func normalizeMarker(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
