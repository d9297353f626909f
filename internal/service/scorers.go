package service

import "math"

// Component scorers map one raw metric to a 0-100 sub-score via
// piecewise-linear interpolation with saturation. The breakpoints below are
// heuristics kept stable for compatibility; they are not clinically
// validated and must not be "improved" silently.

// lerp interpolates value from [domainMin, domainMax] onto
// [scoreMin, scoreMax], clamping the domain fraction to [0,1] before
// scaling so outputs saturate instead of extrapolating. Every scorer goes
// through this single primitive to keep rounding behavior consistent.
func lerp(value, domainMin, domainMax, scoreMin, scoreMax float64) float64 {
	fraction := (value - domainMin) / (domainMax - domainMin)
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return scoreMin + fraction*(scoreMax-scoreMin)
}

// SleepScore scores sleep duration in hours. 7-9h is the ideal band at a
// flat 100; short sleep ramps from 20 at 5h; oversleep decays from 100 at
// 9h to a floor of 60 at 10h and beyond.
func SleepScore(hours float64) int {
	switch {
	case hours >= 7 && hours <= 9:
		return 100
	case hours < 7:
		return round(lerp(hours, 5, 7, 20, 100))
	default:
		return round(lerp(hours, 9, 10, 100, 60))
	}
}

// hrvScore scores average heart-rate variability in milliseconds.
func hrvScore(hrvMS float64) int {
	return round(lerp(hrvMS, 20, 60, 20, 100))
}

// rhrScore scores resting heart rate in bpm; lower is better, so the score
// range is inverted.
func rhrScore(bpm float64) int {
	return round(lerp(bpm, 60, 80, 100, 30))
}

// RecoveryScore combines HRV and resting heart rate: the simple average of
// both sub-scores when both are present, either alone otherwise. The
// second return is false when neither input is present.
func RecoveryScore(hrvMS, restingHR *float64) (int, bool) {
	switch {
	case hrvMS != nil && restingHR != nil:
		return round(float64(hrvScore(*hrvMS)+rhrScore(*restingHR)) / 2), true
	case hrvMS != nil:
		return hrvScore(*hrvMS), true
	case restingHR != nil:
		return rhrScore(*restingHR), true
	default:
		return 0, false
	}
}

// ActivityScore scores daily steps.
func ActivityScore(steps float64) int {
	return round(lerp(steps, 2000, 8000, 20, 100))
}

// ConsistencyScore scores the current logging streak: a 7-day streak or
// longer is a full score, scaled linearly below that. A streak of 0 is
// valid data scoring 0, not absence.
func ConsistencyScore(currentStreak int) int {
	return round(lerp(float64(currentStreak), 0, 7, 0, 100))
}

func round(v float64) int {
	return int(math.Round(v))
}
