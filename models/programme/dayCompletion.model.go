package programme

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DayCompletion is the durable record behind Enrollment.CompletedDays: one
// row per (enrollment, round, day). Repeat submissions of the same day
// update this row in place instead of creating a second one.
type DayCompletion struct {
	gorm.Model
	EnrollmentID      uint           `json:"enrollment_id" gorm:"not null;uniqueIndex:uidx_enrollment_round_day"`
	EnrollmentRound   int            `json:"enrollment_round" gorm:"not null;default:1;uniqueIndex:uidx_enrollment_round_day"`
	DayNumber         int            `json:"day_number" gorm:"not null;uniqueIndex:uidx_enrollment_round_day"`
	UserID            uint           `json:"user_id" gorm:"index;not null"`
	ProgrammeID       uint           `json:"programme_id" gorm:"index;not null"`
	ReflectionAnswers datatypes.JSON `json:"reflection_answers"`
	ActionCompleted   bool           `json:"action_completed" gorm:"default:false"`
	IsDeleted         bool           `gorm:"default:false"`
}
