package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/vitality-score-server/internal/domain"
)

// Streak calculation over sets of logged calendar dates. Both functions are
// pure: no mutation, no I/O, no wall-clock reads. The reference date is
// always passed in by the caller.

// CurrentStreak walks backward day by day from the reference date and
// counts consecutive logged days. A gap on the reference date itself yields
// 0. Malformed date strings fail fast instead of being coerced.
func CurrentStreak(loggedDates []string, from string) (int, error) {
	logged, err := dateSet(loggedDates)
	if err != nil {
		return 0, err
	}

	day, err := domain.ParseDay(from)
	if err != nil {
		return 0, fmt.Errorf("current streak: %w", err)
	}

	streak := 0
	for {
		if _, ok := logged[day.Format(domain.DateLayout)]; !ok {
			return streak, nil
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// LongestStreak returns the length of the longest run of consecutive
// calendar days in the set: minimum 1 if any dates exist, 0 for an empty
// set.
func LongestStreak(loggedDates []string) (int, error) {
	if len(loggedDates) == 0 {
		return 0, nil
	}

	days := make([]time.Time, 0, len(loggedDates))
	seen := make(map[string]struct{}, len(loggedDates))
	for _, s := range loggedDates {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		day, err := domain.ParseDay(s)
		if err != nil {
			return 0, fmt.Errorf("longest streak: %w", err)
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}
	return longest, nil
}

// dateSet validates and indexes a list of date strings.
func dateSet(dates []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(dates))
	for _, s := range dates {
		if _, err := domain.ParseDay(s); err != nil {
			return nil, fmt.Errorf("date set: %w", err)
		}
		set[s] = struct{}{}
	}
	return set, nil
}
