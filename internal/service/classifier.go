package service

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/vitality-score-server/internal/domain"
)

// Wellness score constants. The flat penalty per abnormal marker is a
// deliberately simple heuristic; severity-weighted penalties are out of
// scope.
const (
	wellnessBase    = 100
	wellnessPenalty = 10

	healthAgeFloor     = 18
	healthAgeMaxOffset = 20
)

// ClassifierService assigns biomarker statuses against reference ranges and
// derives the aggregate wellness score.
type ClassifierService struct {
	logger *logrus.Logger
}

// NewClassifierService creates a new classifier service
func NewClassifierService(logger *logrus.Logger) *ClassifierService {
	return &ClassifierService{logger: logger}
}

// Classify assigns a status to a value against an inclusive reference
// range. Values exactly at either bound are optimal.
func Classify(value, min, max float64) domain.BiomarkerStatus {
	switch {
	case value < min:
		return domain.STATUS_LOW
	case value > max:
		return domain.STATUS_HIGH
	default:
		return domain.STATUS_OPTIMAL
	}
}

// ClassifyReading derives and sets the reading's status from its current
// value and reference range. Readings without a range stay unclassified
// (empty status) and are excluded from downstream scoring — never defaulted
// to optimal.
func (c *ClassifierService) ClassifyReading(reading *domain.BiomarkerReading) bool {
	if !reading.Classifiable() {
		reading.Status = ""
		return false
	}
	reading.Status = Classify(reading.Value, reading.ReferenceRange.Min, reading.ReferenceRange.Max)
	return true
}

// ClassifyAll classifies every reading in place and returns the number of
// readings that could be classified.
func (c *ClassifierService) ClassifyAll(readings []domain.BiomarkerReading) int {
	classified := 0
	for i := range readings {
		if c.ClassifyReading(&readings[i]) {
			classified++
		}
	}

	c.logger.WithFields(logrus.Fields{
		"total_readings": len(readings),
		"classified":     classified,
	}).Debug("Classified biomarker readings")

	return classified
}

// WellnessScore computes the penalty-based aggregate over a biomarker set:
// start at 100, subtract 10 per non-optimal marker, clamp to [0,100]. Low
// and high deviations cost the same. Unclassifiable readings are counted
// but never penalized; an empty or fully unclassifiable set scores 100 with
// MarkersEvaluated 0 so callers can render "no data" instead of a perfect
// score.
func (c *ClassifierService) WellnessScore(readings []domain.BiomarkerReading) domain.WellnessResult {
	result := domain.WellnessResult{Score: wellnessBase}

	for i := range readings {
		r := &readings[i]
		if !r.Classifiable() {
			result.Unclassified++
			continue
		}
		result.MarkersEvaluated++
		switch Classify(r.Value, r.ReferenceRange.Min, r.ReferenceRange.Max) {
		case domain.STATUS_LOW:
			result.LowCount++
		case domain.STATUS_HIGH:
			result.HighCount++
		}
	}

	result.Score = wellnessBase - wellnessPenalty*(result.LowCount+result.HighCount)
	if result.Score < 0 {
		result.Score = 0
	}

	c.logger.WithFields(logrus.Fields{
		"score":             result.Score,
		"markers_evaluated": result.MarkersEvaluated,
		"low":               result.LowCount,
		"high":              result.HighCount,
		"unclassified":      result.Unclassified,
	}).Debug("Computed wellness score")

	return result
}

// HealthAge adjusts chronological age by the wellness score: one extra year
// per five points below 100, one bounded year of credit at a perfect score.
// Monotonic non-increasing in the wellness score, floored at 18 and capped
// at chronological age plus a small offset. The curve is a heuristic, not a
// clinically validated model.
func (c *ClassifierService) HealthAge(chronologicalAge, wellnessScore int) int {
	if wellnessScore < 0 {
		wellnessScore = 0
	}
	if wellnessScore > 100 {
		wellnessScore = 100
	}

	adjusted := chronologicalAge + int(math.Round(float64(100-wellnessScore)/5.0))
	if wellnessScore == 100 {
		adjusted = chronologicalAge - 1
	}

	if adjusted < healthAgeFloor {
		adjusted = healthAgeFloor
	}
	if max := chronologicalAge + healthAgeMaxOffset; adjusted > max {
		adjusted = max
	}
	return adjusted
}
