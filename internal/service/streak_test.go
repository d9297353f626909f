package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitality-score-server/internal/domain"
)

func TestCurrentStreak(t *testing.T) {
	tests := []struct {
		name   string
		logged []string
		from   string
		want   int
	}{
		{
			name:   "unbroken run ending on the reference date",
			logged: []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"},
			from:   "2024-01-05",
			want:   5,
		},
		{
			name:   "gap on the reference date yields zero",
			logged: []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"},
			from:   "2024-01-10",
			want:   0,
		},
		{
			name:   "streak stops at first gap",
			logged: []string{"2024-01-01", "2024-01-03", "2024-01-04", "2024-01-05"},
			from:   "2024-01-05",
			want:   3,
		},
		{
			name:   "single day",
			logged: []string{"2024-01-05"},
			from:   "2024-01-05",
			want:   1,
		},
		{
			name:   "empty set",
			logged: nil,
			from:   "2024-01-05",
			want:   0,
		},
		{
			name:   "crosses month boundary",
			logged: []string{"2024-01-30", "2024-01-31", "2024-02-01"},
			from:   "2024-02-01",
			want:   3,
		},
		{
			name:   "crosses leap day",
			logged: []string{"2024-02-28", "2024-02-29", "2024-03-01"},
			from:   "2024-03-01",
			want:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CurrentStreak(tt.logged, tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentStreak_MalformedDates(t *testing.T) {
	_, err := CurrentStreak([]string{"2024-01-01"}, "01/05/2024")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = CurrentStreak([]string{"not-a-date"}, "2024-01-05")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestLongestStreak(t *testing.T) {
	tests := []struct {
		name   string
		logged []string
		want   int
	}{
		{
			name:   "five day run",
			logged: []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"},
			want:   5,
		},
		{
			name:   "picks the longest of several runs",
			logged: []string{"2024-01-01", "2024-01-02", "2024-01-10", "2024-01-11", "2024-01-12"},
			want:   3,
		},
		{
			name:   "unsorted input",
			logged: []string{"2024-01-03", "2024-01-01", "2024-01-02"},
			want:   3,
		},
		{
			name:   "duplicates do not inflate the run",
			logged: []string{"2024-01-01", "2024-01-01", "2024-01-02"},
			want:   2,
		},
		{
			name:   "isolated days",
			logged: []string{"2024-01-01", "2024-01-05", "2024-01-09"},
			want:   1,
		},
		{
			name:   "empty set",
			logged: nil,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LongestStreak(tt.logged)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLongestStreak_MalformedDate(t *testing.T) {
	_, err := LongestStreak([]string{"2024-01-01", "garbage"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestLongestStreak_NeverBelowCurrentStreak(t *testing.T) {
	logged := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-07", "2024-01-08"}

	longest, err := LongestStreak(logged)
	require.NoError(t, err)

	for _, from := range []string{"2024-01-03", "2024-01-08", "2024-01-15"} {
		current, err := CurrentStreak(logged, from)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, longest, current)
	}
}
