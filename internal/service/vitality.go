package service

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/vitality-score-server/internal/domain"
)

// Base component weights. They sum to 1.0; when a component is unavailable
// its weight is redistributed proportionally among the available ones so
// effective weights always sum to 1.0 again.
var baseWeights = map[domain.ComponentKey]float64{
	domain.COMPONENT_SLEEP:       0.30,
	domain.COMPONENT_RECOVERY:    0.25,
	domain.COMPONENT_ACTIVITY:    0.20,
	domain.COMPONENT_CLINICAL:    0.15,
	domain.COMPONENT_CONSISTENCY: 0.10,
}

// VitalityService combines the five component scorers into the composite
// daily Vitality Score. The service is stateless; every computation is a
// deterministic reduction over the snapshots passed in.
type VitalityService struct {
	logger *logrus.Logger
}

// NewVitalityService creates a new vitality service
func NewVitalityService(logger *logrus.Logger) *VitalityService {
	return &VitalityService{logger: logger}
}

// componentInput is one component's resolved raw score before weighting.
type componentInput struct {
	score     int
	value     string
	available bool
}

// Compute derives the Vitality Score for one day. The daily metric and
// wellness score may be absent; consistency is always available since a
// zero streak is data, not absence. With zero available components the
// result is score 0 with every component flagged unavailable — a defined
// degenerate state, never a division by zero and never a confident number.
func (s *VitalityService) Compute(date string, metric *domain.DailyMetric, wellnessScore *int, currentStreak int) *domain.VitalityScore {
	inputs := map[domain.ComponentKey]componentInput{
		domain.COMPONENT_SLEEP:       sleepInput(metric),
		domain.COMPONENT_RECOVERY:    recoveryInput(metric),
		domain.COMPONENT_ACTIVITY:    activityInput(metric),
		domain.COMPONENT_CLINICAL:    clinicalInput(wellnessScore),
		domain.COMPONENT_CONSISTENCY: consistencyInput(currentStreak),
	}

	availableWeight := 0.0
	for key, in := range inputs {
		if in.available {
			availableWeight += baseWeights[key]
		}
	}

	components := make(map[domain.ComponentKey]domain.ComponentScore, len(inputs))
	weighted := 0.0
	for _, key := range domain.ComponentKeys {
		in := inputs[key]
		if !in.available {
			components[key] = domain.ComponentScore{Value: in.value}
			continue
		}
		effective := baseWeights[key] / availableWeight
		weighted += float64(in.score) * effective
		components[key] = domain.ComponentScore{
			Score:     in.score,
			Weight:    round2(effective),
			Value:     in.value,
			Available: true,
		}
	}

	score := 0
	if availableWeight > 0 {
		score = round(weighted)
	}

	result := &domain.VitalityScore{
		Date:       date,
		Score:      score,
		Components: components,
	}

	s.logger.WithFields(logrus.Fields{
		"date":             date,
		"score":            score,
		"available_weight": availableWeight,
	}).Debug("Computed vitality score")

	return result
}

// ComputeTrend produces a rolling series by repeating the single-day
// computation over a window ending at the reference date. There is no
// separate trend algorithm; per-day streaks are recomputed against the
// same log-date set.
func (s *VitalityService) ComputeTrend(
	from string,
	days int,
	metrics map[string]*domain.DailyMetric,
	wellnessScore *int,
	logDates []string,
) ([]domain.VitalityScore, error) {
	if days <= 0 {
		return nil, domain.NewValidationError("days", "must be positive", days)
	}
	end, err := domain.ParseDay(from)
	if err != nil {
		return nil, fmt.Errorf("compute trend: %w", err)
	}

	series := make([]domain.VitalityScore, 0, days)
	for offset := days - 1; offset >= 0; offset-- {
		day := end.AddDate(0, 0, -offset).Format(domain.DateLayout)
		streak, err := CurrentStreak(logDates, day)
		if err != nil {
			return nil, fmt.Errorf("compute trend: %w", err)
		}
		series = append(series, *s.Compute(day, metrics[day], wellnessScore, streak))
	}
	return series, nil
}

func sleepInput(metric *domain.DailyMetric) componentInput {
	if metric == nil || metric.SleepHours == nil {
		return componentInput{value: "no data"}
	}
	return componentInput{
		score:     SleepScore(*metric.SleepHours),
		value:     fmt.Sprintf("%.1fh", *metric.SleepHours),
		available: true,
	}
}

func recoveryInput(metric *domain.DailyMetric) componentInput {
	if metric == nil {
		return componentInput{value: "no data"}
	}
	score, ok := RecoveryScore(metric.HRVAvgMS, metric.RestingHeartRate)
	if !ok {
		return componentInput{value: "no data"}
	}

	var value string
	switch {
	case metric.HRVAvgMS != nil && metric.RestingHeartRate != nil:
		value = fmt.Sprintf("HRV %.0fms / RHR %.0f", *metric.HRVAvgMS, *metric.RestingHeartRate)
	case metric.HRVAvgMS != nil:
		value = fmt.Sprintf("HRV %.0fms", *metric.HRVAvgMS)
	default:
		value = fmt.Sprintf("RHR %.0f", *metric.RestingHeartRate)
	}
	return componentInput{score: score, value: value, available: true}
}

func activityInput(metric *domain.DailyMetric) componentInput {
	if metric == nil || metric.Steps == nil {
		return componentInput{value: "no data"}
	}
	return componentInput{
		score:     ActivityScore(*metric.Steps),
		value:     fmt.Sprintf("%.0f steps", *metric.Steps),
		available: true,
	}
}

func clinicalInput(wellnessScore *int) componentInput {
	if wellnessScore == nil || *wellnessScore <= 0 {
		return componentInput{value: "no lab data"}
	}
	return componentInput{
		score:     *wellnessScore,
		value:     fmt.Sprintf("%d/100", *wellnessScore),
		available: true,
	}
}

func consistencyInput(currentStreak int) componentInput {
	return componentInput{
		score:     ConsistencyScore(currentStreak),
		value:     fmt.Sprintf("%d-day streak", currentStreak),
		available: true,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
