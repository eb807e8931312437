package progress

import (
	"sort"
	"time"

	"github.com/signalschool/practice-hub/internal/domain/practice"
	"github.com/signalschool/practice-hub/pkg/timeutil"
)

// DefaultBreakdownDays is how far back the daily breakdown reaches.
const DefaultBreakdownDays = 30

// DayActivity summarizes one calendar day of practice.
type DayActivity struct {
	Date           time.Time
	Sessions       int
	QuizSessions   int
	VoiceSessions  int
	CorrectAnswers int
	Points         int
}

// DailyBreakdown aggregates the history into per-day summaries for the
// last DefaultBreakdownDays days, oldest first. Days without activity
// are omitted. Like every derivation here, the result is recomputed in
// full from the history on each call.
func (e *Engine) DailyBreakdown(history []practice.Event, now time.Time) []DayActivity {
	events := practice.Sanitize(history)
	if len(events) == 0 {
		return nil
	}

	loc := now.Location()
	cutoff := timeutil.Day(now, loc).AddDate(0, 0, -(DefaultBreakdownDays - 1))

	byDay := make(map[string]*DayActivity)
	for _, ev := range events {
		day := timeutil.Day(ev.OccurredAt, loc)
		if day.Before(cutoff) {
			continue
		}

		key := timeutil.DayKey(ev.OccurredAt, loc)
		entry, ok := byDay[key]
		if !ok {
			entry = &DayActivity{Date: day}
			byDay[key] = entry
		}

		entry.Sessions++
		switch ev.Kind {
		case practice.KindQuiz:
			entry.QuizSessions++
			entry.CorrectAnswers += ev.CorrectCount
		case practice.KindVoice:
			entry.VoiceSessions++
		}
		entry.Points += e.Scoring.PointsFor(ev)
	}

	result := make([]DayActivity, 0, len(byDay))
	for _, entry := range byDay {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}
