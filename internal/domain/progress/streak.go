// Package progress implements the progress derivation engine: streak
// computation over the practice history, the level/points curve, and
// achievement-rule evaluation. Everything in this package is a pure
// function of its inputs - no I/O, no shared mutable state - so any
// function here is safe to call concurrently.
package progress

import (
	"sort"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/practice"
	"github.com/signalschool/practice-hub/pkg/timeutil"
)

// ComputeStreak returns the current consecutive-day practice streak.
//
// The history may be unordered and may contain multiple events per day;
// events without a usable timestamp are ignored. Day boundaries are
// taken in the location carried by now, which the caller fixes to the
// application timezone. The rules:
//
//   - several events on one calendar day count as a single day,
//   - a streak is alive only if the most recent practice day is today
//     or yesterday; otherwise the streak is 0,
//   - walking backward from the most recent practice day, every
//     consecutive day with activity extends the streak, and the first
//     gap ends it.
//
// Never panics and never returns a negative value.
func ComputeStreak(events []practice.Event, now time.Time) int {
	days := distinctDays(events, now.Location())
	if len(days) == 0 {
		return 0
	}

	// Most recent first.
	sort.Slice(days, func(i, j int) bool {
		return days[i].After(days[j])
	})

	// Inactive for two or more full days: the streak is gone,
	// regardless of how long it once was.
	yesterday := timeutil.Yesterday(now, now.Location())
	if days[0].Before(yesterday) {
		return 0
	}

	streak := 0
	cursor := days[0]
	for _, day := range days {
		if !day.Equal(cursor) {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// BestStreak returns the longest consecutive-day run anywhere in the
// history, including runs that have since been broken.
func BestStreak(events []practice.Event, loc *time.Location) int {
	days := distinctDays(events, loc)
	if len(days) == 0 {
		return 0
	}

	// Oldest first.
	sort.Slice(days, func(i, j int) bool {
		return days[i].Before(days[j])
	})

	best := 1
	run := 1
	for i := 1; i < len(days); i++ {
		if days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}
	return best
}

// distinctDays reduces a history to the set of distinct calendar days
// with at least one usable event, as midnight markers in loc.
func distinctDays(events []practice.Event, loc *time.Location) []time.Time {
	seen := make(map[string]time.Time, len(events))
	for _, e := range events {
		if !e.HasTimestamp() {
			continue
		}
		key := timeutil.DayKey(e.OccurredAt, loc)
		if _, ok := seen[key]; !ok {
			seen[key] = timeutil.Day(e.OccurredAt, loc)
		}
	}

	days := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	return days
}
