package programme

import (
	"time"

	"gorm.io/gorm"
)

// FastingLog captures one day of fasting compliance: one row per
// (user, enrollment, calendar date).
type FastingLog struct {
	gorm.Model
	UserID       uint      `json:"user_id" gorm:"not null;uniqueIndex:uidx_fasting_user_enrollment_date"`
	EnrollmentID uint      `json:"enrollment_id" gorm:"not null;uniqueIndex:uidx_fasting_user_enrollment_date"`
	Date         time.Time `json:"date" gorm:"type:date;not null;uniqueIndex:uidx_fasting_user_enrollment_date"`
	Followed     bool      `json:"followed" gorm:"default:false"`
	FastingType  string    `json:"fasting_type" gorm:"default:'NONE'"` // snapshot at log time
	Notes        string    `json:"notes" gorm:"type:text"`
	IsDeleted    bool      `gorm:"default:false"`
}
