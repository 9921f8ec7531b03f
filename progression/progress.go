package progression

import (
	"fmt"
	"time"

	programmeModels "wellspring/models/programme"

	"gorm.io/gorm/clause"
)

// ProgressView is the caller-facing snapshot of an enrollment's state:
// what is unlocked right now, what is done, and where to send the user
// next.
type ProgressView struct {
	EnrollmentID         uint       `json:"enrollment_id"`
	ProgrammeID          uint       `json:"programme_id"`
	Status               string     `json:"status"`
	StartDate            time.Time  `json:"start_date"`
	EnrollmentRound      int        `json:"enrollment_round"`
	DurationDays         int        `json:"duration_days"`
	UnlockedDayCount     int        `json:"unlocked_day_count"`
	CompletedDays        []int      `json:"completed_days"`
	CompletionPercentage int        `json:"completion_percentage"`
	NextDayToShow        int        `json:"next_day_to_show"`
	CurrentDay           int        `json:"current_day"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	FastingType          string     `json:"fasting_type,omitempty"`
	FastingWindowStart   string     `json:"fasting_window_start,omitempty"`
	FastingWindowEnd     string     `json:"fasting_window_end,omitempty"`
}

// Progress assembles the progress view for one enrollment.
func (e *Engine) Progress(enrollmentID uint) (*ProgressView, error) {
	enrollment, err := e.loadEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	prog, err := e.loadProgramme(enrollment.ProgrammeID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	return &ProgressView{
		EnrollmentID:         enrollment.ID,
		ProgrammeID:          enrollment.ProgrammeID,
		Status:               enrollment.Status,
		StartDate:            enrollment.StartDate,
		EnrollmentRound:      enrollment.EnrollmentRound,
		DurationDays:         prog.DurationDays,
		UnlockedDayCount:     UnlockedDayCount(enrollment.StartDate, now, prog.DurationDays),
		CompletedDays:        enrollment.CompletedDays,
		CompletionPercentage: enrollment.CompletionPercentage,
		NextDayToShow:        NextDayToShow(enrollment, prog.DurationDays, now),
		CurrentDay:           enrollment.CurrentDay,
		CompletedAt:          enrollment.CompletedAt,
		FastingType:          enrollment.FastingType,
		FastingWindowStart:   enrollment.FastingWindowStart,
		FastingWindowEnd:     enrollment.FastingWindowEnd,
	}, nil
}

// GetUnlockedDayCount reports how many days are viewable right now.
func (e *Engine) GetUnlockedDayCount(enrollmentID uint) (int, error) {
	enrollment, err := e.loadEnrollment(enrollmentID)
	if err != nil {
		return 0, err
	}
	prog, err := e.loadProgramme(enrollment.ProgrammeID)
	if err != nil {
		return 0, err
	}
	return UnlockedDayCount(enrollment.StartDate, e.clock.Now(), prog.DurationDays), nil
}

// GetNextDayToShow picks the landing day for a returning user.
func (e *Engine) GetNextDayToShow(enrollmentID uint) (int, error) {
	enrollment, err := e.loadEnrollment(enrollmentID)
	if err != nil {
		return 0, err
	}
	prog, err := e.loadProgramme(enrollment.ProgrammeID)
	if err != nil {
		return 0, err
	}
	return NextDayToShow(enrollment, prog.DurationDays, e.clock.Now()), nil
}

// LogFasting upserts the compliance record for one calendar date, keyed on
// (user, enrollment, date).
func (e *Engine) LogFasting(enrollmentID uint, date time.Time, followed bool, notes string) (*programmeModels.FastingLog, error) {
	enrollment, err := e.loadEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.FastingType == programmeModels.FastingNone {
		return nil, fmt.Errorf("%w: enrollment has no fasting configuration", ErrBadFastingConfig)
	}
	entry := programmeModels.FastingLog{
		UserID:       enrollment.UserID,
		EnrollmentID: enrollment.ID,
		Date:         Midnight(date),
		Followed:     followed,
		FastingType:  enrollment.FastingType,
		Notes:        notes,
	}
	if err := e.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "enrollment_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"followed", "fasting_type", "notes", "updated_at"}),
	}).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("upsert fasting log: %w", err)
	}
	return &entry, nil
}

// FastingComplianceSummary counts how many logged days followed the fast.
type FastingComplianceSummary struct {
	TotalLogged  int64 `json:"total_logged"`
	DaysFollowed int64 `json:"days_followed"`
}

// FastingCompliance summarizes the fasting logs of one enrollment.
func (e *Engine) FastingCompliance(enrollmentID uint) (*FastingComplianceSummary, error) {
	enrollment, err := e.loadEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	var summary FastingComplianceSummary
	if err := e.db.Model(&programmeModels.FastingLog{}).
		Where("enrollment_id = ? AND is_deleted = ?", enrollment.ID, false).
		Count(&summary.TotalLogged).Error; err != nil {
		return nil, fmt.Errorf("count fasting logs: %w", err)
	}
	if err := e.db.Model(&programmeModels.FastingLog{}).
		Where("enrollment_id = ? AND is_deleted = ? AND followed = ?", enrollment.ID, false, true).
		Count(&summary.DaysFollowed).Error; err != nil {
		return nil, fmt.Errorf("count followed days: %w", err)
	}
	return &summary, nil
}
