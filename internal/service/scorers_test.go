package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitality-score-server/internal/domain"
)

func TestLerp(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{name: "domain minimum", value: 2000, want: 20},
		{name: "domain maximum", value: 8000, want: 100},
		{name: "midpoint", value: 5000, want: 60},
		{name: "saturates below domain", value: -5000, want: 20},
		{name: "saturates above domain", value: 50000, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, lerp(tt.value, 2000, 8000, 20, 100), 1e-9)
		})
	}
}

func TestLerp_InvertedRange(t *testing.T) {
	// RHR-style curves map upward domain movement to a falling score.
	assert.InDelta(t, 100, lerp(60, 60, 80, 100, 30), 1e-9)
	assert.InDelta(t, 30, lerp(80, 60, 80, 100, 30), 1e-9)
	assert.InDelta(t, 65, lerp(70, 60, 80, 100, 30), 1e-9)
	// Saturation holds on inverted ranges too.
	assert.InDelta(t, 30, lerp(200, 60, 80, 100, 30), 1e-9)
}

func TestSleepScore(t *testing.T) {
	tests := []struct {
		name  string
		hours float64
		want  int
	}{
		{name: "ideal band lower edge", hours: 7, want: 100},
		{name: "ideal band middle", hours: 8, want: 100},
		{name: "ideal band upper edge", hours: 9, want: 100},
		{name: "short sleep floor", hours: 5, want: 20},
		{name: "below floor saturates", hours: 3, want: 20},
		{name: "six hours", hours: 6, want: 60},
		{name: "oversleep midpoint", hours: 9.5, want: 80},
		{name: "oversleep cap", hours: 10, want: 60},
		{name: "beyond ten hours clamps at sixty", hours: 12, want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SleepScore(tt.hours))
		})
	}
}

func TestRecoveryScore(t *testing.T) {
	t.Run("both inputs average", func(t *testing.T) {
		// HRV 60 → 100, RHR 70 → 65, average 83 (rounded).
		score, ok := RecoveryScore(domain.Float64Ptr(60), domain.Float64Ptr(70))
		assert.True(t, ok)
		assert.Equal(t, 83, score)
	})

	t.Run("hrv alone", func(t *testing.T) {
		score, ok := RecoveryScore(domain.Float64Ptr(40), nil)
		assert.True(t, ok)
		assert.Equal(t, 60, score)
	})

	t.Run("rhr alone", func(t *testing.T) {
		score, ok := RecoveryScore(nil, domain.Float64Ptr(55))
		assert.True(t, ok)
		assert.Equal(t, 100, score)
	})

	t.Run("neither input", func(t *testing.T) {
		_, ok := RecoveryScore(nil, nil)
		assert.False(t, ok)
	})

	t.Run("saturation at extremes", func(t *testing.T) {
		score, ok := RecoveryScore(domain.Float64Ptr(200), domain.Float64Ptr(30))
		assert.True(t, ok)
		assert.Equal(t, 100, score)

		score, ok = RecoveryScore(domain.Float64Ptr(5), domain.Float64Ptr(120))
		assert.True(t, ok)
		assert.Equal(t, 25, score)
	})
}

func TestActivityScore(t *testing.T) {
	assert.Equal(t, 100, ActivityScore(8000))
	assert.Equal(t, 100, ActivityScore(15000))
	assert.Equal(t, 20, ActivityScore(2000))
	assert.Equal(t, 20, ActivityScore(0))
	assert.Equal(t, 60, ActivityScore(5000))
}

func TestConsistencyScore(t *testing.T) {
	assert.Equal(t, 0, ConsistencyScore(0))
	assert.Equal(t, 100, ConsistencyScore(7))
	assert.Equal(t, 100, ConsistencyScore(30))
	assert.Equal(t, 43, ConsistencyScore(3))
	assert.Equal(t, 14, ConsistencyScore(1))
}

func TestScorers_BoundsNeverExceeded(t *testing.T) {
	for hours := -5.0; hours <= 30; hours += 0.25 {
		score := SleepScore(hours)
		assert.GreaterOrEqual(t, score, 20)
		assert.LessOrEqual(t, score, 100)
	}
	for steps := -10000.0; steps <= 100000; steps += 500 {
		score := ActivityScore(steps)
		assert.GreaterOrEqual(t, score, 20)
		assert.LessOrEqual(t, score, 100)
	}
	for streak := 0; streak <= 400; streak++ {
		score := ConsistencyScore(streak)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
}
