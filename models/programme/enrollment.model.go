package programme

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Enrollment status values
const (
	StatusActive    = "ACTIVE"
	StatusPaused    = "PAUSED"
	StatusCompleted = "COMPLETED"
)

// Fasting types
const (
	FastingNone         = "NONE"
	FastingIntermittent = "INTERMITTENT" // eating window required
	FastingFullDay      = "FULL_DAY"
)

// Enrollment tracks a user's participation in a programme with progress.
// There is at most one row per (user, programme) pair; withdrawing and
// re-enrolling reactivates the same row with an incremented round, so the
// unique index doubles as the single-active-enrollment guarantee.
type Enrollment struct {
	gorm.Model
	UserID               uint                     `json:"user_id" gorm:"not null;uniqueIndex:uidx_user_programme"`
	ProgrammeID          uint                     `json:"programme_id" gorm:"not null;uniqueIndex:uidx_user_programme"`
	StartDate            time.Time                `json:"start_date" gorm:"type:date;not null"` // Day 1, midnight-normalized
	Status               string                   `json:"status" gorm:"default:'ACTIVE'"`       // ACTIVE, PAUSED, COMPLETED
	CompletedDays        datatypes.JSONSlice[int] `json:"completed_days"`
	CompletionPercentage int                      `json:"completion_percentage" gorm:"default:0"` // derived from CompletedDays
	CurrentDay           int                      `json:"current_day" gorm:"default:1"`           // informational pointer, not a gate
	FastingType          string                   `json:"fasting_type" gorm:"default:'NONE'"`
	FastingWindowStart   string                   `json:"fasting_window_start" gorm:"default:''"` // "HH:MM", INTERMITTENT only
	FastingWindowEnd     string                   `json:"fasting_window_end" gorm:"default:''"`
	EnrollmentRound      int                      `json:"enrollment_round" gorm:"default:1"`
	CompletedAt          *time.Time               `json:"completed_at"`
	IsDeleted            bool                     `gorm:"default:false"`
}

// HasCompletedDay reports whether dayNumber is in the completed-day set.
func (e *Enrollment) HasCompletedDay(dayNumber int) bool {
	for _, d := range e.CompletedDays {
		if d == dayNumber {
			return true
		}
	}
	return false
}
