package progression

import (
	"time"

	programmeModels "wellspring/models/programme"
)

// NextDayToShow picks the day a returning user should land on: the
// earliest unlocked day they have not completed, or, once fully caught up,
// the latest unlocked day for review. Catch-up beats skipping ahead.
func NextDayToShow(enrollment *programmeModels.Enrollment, durationDays int, now time.Time) int {
	maxUnlocked := UnlockedDayCount(enrollment.StartDate, now, durationDays)
	for day := 1; day <= maxUnlocked; day++ {
		if !enrollment.HasCompletedDay(day) {
			return day
		}
	}
	return maxUnlocked
}
