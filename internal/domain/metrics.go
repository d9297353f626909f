package domain

import (
	"errors"
	"fmt"
	"time"
)

// DailyMetric is one wearable-derived day record owned by (user, date).
// At most one record exists per user per calendar date; writes upsert.
// Every field is independently optional — a nil pointer means the wearable
// reported nothing for that field, which is distinct from a zero value.
type DailyMetric struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`

	Steps            *float64 `json:"steps,omitempty"`
	SleepHours       *float64 `json:"sleep_hours,omitempty"`
	HRVAvgMS         *float64 `json:"hrv_avg_ms,omitempty"`
	RestingHeartRate *float64 `json:"resting_heart_rate,omitempty"`
	ActiveEnergyKcal *float64 `json:"active_energy_kcal,omitempty"`
	WeightKG         *float64 `json:"weight_kg,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Validate ensures the metric record is well-formed.
func (m *DailyMetric) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("daily metric validation: %w", errors.New("user ID is required"))
	}
	if _, err := ParseDay(m.Date); err != nil {
		return fmt.Errorf("daily metric validation: %w", err)
	}
	for name, v := range map[string]*float64{
		"steps":              m.Steps,
		"sleep_hours":        m.SleepHours,
		"hrv_avg_ms":         m.HRVAvgMS,
		"resting_heart_rate": m.RestingHeartRate,
		"active_energy_kcal": m.ActiveEnergyKcal,
		"weight_kg":          m.WeightKG,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("daily metric validation: %s must not be negative, got %g", name, *v)
		}
	}
	return nil
}

// QuickLog is one subjective mood/energy entry owned by (user, date),
// upsert semantics like DailyMetric.
type QuickLog struct {
	UserID   string   `json:"user_id"`
	Date     string   `json:"date"`
	Mood     int      `json:"mood"`
	Energy   int      `json:"energy"`
	Symptoms []string `json:"symptoms,omitempty"`
	Notes    string   `json:"notes,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Validate ensures the log entry is well-formed.
func (q *QuickLog) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("quick log validation: %w", errors.New("user ID is required"))
	}
	if _, err := ParseDay(q.Date); err != nil {
		return fmt.Errorf("quick log validation: %w", err)
	}
	if q.Mood < 1 || q.Mood > 5 {
		return fmt.Errorf("quick log validation: mood %d outside [1,5]", q.Mood)
	}
	if q.Energy < 1 || q.Energy > 5 {
		return fmt.Errorf("quick log validation: energy %d outside [1,5]", q.Energy)
	}
	return nil
}

// Float64Ptr is a helper for building optional metric fields.
func Float64Ptr(v float64) *float64 {
	return &v
}
