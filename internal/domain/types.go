// Package domain contains core business entities and types for the wellness
// scoring engine: biomarker classification, correlation insights, and the
// composite Vitality Score derived from wearable and lab data.
//
// All scores produced here are wellness heuristics, not diagnoses.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// BiomarkerStatus represents the classification of a biomarker value
// against its laboratory reference range. A reading without a reference
// range carries no status and is excluded from downstream scoring; it is
// never defaulted to optimal.
type BiomarkerStatus string

const (
	STATUS_LOW     BiomarkerStatus = "low"
	STATUS_OPTIMAL BiomarkerStatus = "optimal"
	STATUS_HIGH    BiomarkerStatus = "high"
)

// Severity represents the severity of a correlation insight.
type Severity string

const (
	SEVERITY_INFO     Severity = "info"
	SEVERITY_WARNING  Severity = "warning"
	SEVERITY_CRITICAL Severity = "critical"
)

// ComponentKey identifies one of the five Vitality Score components.
type ComponentKey string

const (
	COMPONENT_SLEEP       ComponentKey = "sleep"
	COMPONENT_RECOVERY    ComponentKey = "recovery"
	COMPONENT_ACTIVITY    ComponentKey = "activity"
	COMPONENT_CLINICAL    ComponentKey = "clinical"
	COMPONENT_CONSISTENCY ComponentKey = "consistency"
)

// ComponentKeys lists all Vitality Score components in their canonical
// order. Aggregation and reporting iterate this slice so output order is
// deterministic.
var ComponentKeys = []ComponentKey{
	COMPONENT_SLEEP,
	COMPONENT_RECOVERY,
	COMPONENT_ACTIVITY,
	COMPONENT_CLINICAL,
	COMPONENT_CONSISTENCY,
}

// ReportStatus represents the processing state of an uploaded lab report.
type ReportStatus string

const (
	REPORT_PROCESSING ReportStatus = "processing"
	REPORT_COMPLETED  ReportStatus = "completed"
	REPORT_FAILED     ReportStatus = "failed"
)

// Validation errors for wellness data integrity
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidStatus    = errors.New("invalid biomarker status")
	ErrInvalidSeverity  = errors.New("invalid insight severity")
	ErrInvalidComponent = errors.New("invalid vitality component")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrAlreadyVerified  = errors.New("reading already verified")
)

// DateLayout is the canonical calendar-day format used throughout the
// engine. Daily records are keyed by (user, date) strings; the engine never
// reads the wall clock itself.
const DateLayout = "2006-01-02"

// ParseDay parses a canonical YYYY-MM-DD date string. Malformed dates fail
// fast rather than being coerced, since silently bent dates would corrupt
// streak math.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, ErrInvalidDate)
	}
	return t, nil
}

// IsValid validates the biomarker status.
func (s BiomarkerStatus) IsValid() bool {
	switch s {
	case STATUS_LOW, STATUS_OPTIMAL, STATUS_HIGH:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s BiomarkerStatus) String() string {
	return string(s)
}

// IsAbnormal reports whether the status costs wellness-score points.
// Low and high deviations are penalized equally.
func (s BiomarkerStatus) IsAbnormal() bool {
	return s == STATUS_LOW || s == STATUS_HIGH
}

// IsValid validates the insight severity.
func (sv Severity) IsValid() bool {
	switch sv {
	case SEVERITY_INFO, SEVERITY_WARNING, SEVERITY_CRITICAL:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (sv Severity) String() string {
	return string(sv)
}

// IsValid validates the component key.
func (k ComponentKey) IsValid() bool {
	switch k {
	case COMPONENT_SLEEP, COMPONENT_RECOVERY, COMPONENT_ACTIVITY, COMPONENT_CLINICAL, COMPONENT_CONSISTENCY:
		return true
	default:
		return false
	}
}

// String returns the string representation of the component key.
func (k ComponentKey) String() string {
	return string(k)
}

// IsValid validates the report status.
func (rs ReportStatus) IsValid() bool {
	switch rs {
	case REPORT_PROCESSING, REPORT_COMPLETED, REPORT_FAILED:
		return true
	default:
		return false
	}
}

// String returns the string representation of the report status.
func (rs ReportStatus) String() string {
	return string(rs)
}
