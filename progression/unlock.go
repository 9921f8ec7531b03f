package progression

import (
	"math"
	"time"
)

// Midnight truncates t to the start of its calendar day in its own
// location. Unlocks are calendar-date decisions; time-of-day must never
// shift a boundary within a single day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// UnlockedDayCount returns how many days of a programme are viewable at
// `now` for an enrollment that started on `startDate`. Day 1 unlocks the
// moment the start date is reached; one more day unlocks at each following
// midnight. The result is clamped to [1, durationDays]: a future start
// date still reports 1, and the count never exceeds the programme length.
//
// Locking is purely time-based. Completion state plays no part here; a
// user cannot unlock day 5 early by skipping day 4, nor fall behind the
// calendar by pausing.
func UnlockedDayCount(startDate, now time.Time, durationDays int) int {
	if durationDays < 1 {
		return 1
	}
	// Rounding absorbs the 23h/25h days that DST transitions produce.
	daysSinceStart := int(math.Round(Midnight(now).Sub(Midnight(startDate)).Hours() / 24))
	unlocked := daysSinceStart + 1
	if unlocked < 1 {
		return 1
	}
	if unlocked > durationDays {
		return durationDays
	}
	return unlocked
}
