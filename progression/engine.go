package progression

import (
	"errors"
	"fmt"
	"math"
	"time"

	"wellspring/events"
	programmeModels "wellspring/models/programme"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine is the programme progression core: enrollment lifecycle,
// time-based day unlocking, idempotent completion tracking and
// mid-programme fasting changes. It is stateless between calls; every
// operation reads and writes through the injected *gorm.DB.
type Engine struct {
	db    *gorm.DB
	clock Clock
	sink  events.Sink
}

func New(db *gorm.DB, clock Clock, sink events.Sink) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{db: db, clock: clock, sink: sink}
}

// FastingConfig is the user-elected sub-configuration of a fasting-capable
// programme. WindowStart/WindowEnd are "HH:MM" and only meaningful for
// the INTERMITTENT type.
type FastingConfig struct {
	Type        string `json:"fasting_type"`
	WindowStart string `json:"fasting_window_start"`
	WindowEnd   string `json:"fasting_window_end"`
}

func validateFastingConfig(cfg FastingConfig) error {
	switch cfg.Type {
	case programmeModels.FastingNone, programmeModels.FastingFullDay:
		if cfg.WindowStart != "" || cfg.WindowEnd != "" {
			return fmt.Errorf("%w: eating window only applies to %s fasting", ErrBadFastingConfig, programmeModels.FastingIntermittent)
		}
		return nil
	case programmeModels.FastingIntermittent:
		start, err := time.Parse("15:04", cfg.WindowStart)
		if err != nil {
			return fmt.Errorf("%w: window start must be HH:MM", ErrBadFastingConfig)
		}
		end, err := time.Parse("15:04", cfg.WindowEnd)
		if err != nil {
			return fmt.Errorf("%w: window end must be HH:MM", ErrBadFastingConfig)
		}
		if !end.After(start) {
			return fmt.Errorf("%w: window end must be after window start", ErrBadFastingConfig)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown fasting type %q", ErrBadFastingConfig, cfg.Type)
	}
}

func (e *Engine) emit(event events.Event) {
	if e.sink != nil {
		e.sink.Emit(event)
	}
}

func (e *Engine) loadProgramme(programmeID uint) (*programmeModels.Programme, error) {
	var prog programmeModels.Programme
	if err := e.db.Where("id = ? AND is_deleted = ?", programmeID, false).First(&prog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProgrammeNotFound
		}
		return nil, fmt.Errorf("load programme: %w", err)
	}
	return &prog, nil
}

func (e *Engine) loadEnrollment(enrollmentID uint) (*programmeModels.Enrollment, error) {
	var enrollment programmeModels.Enrollment
	if err := e.db.Where("id = ? AND is_deleted = ?", enrollmentID, false).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	return &enrollment, nil
}

// Enroll creates a user's enrollment in a programme, or reactivates a
// previously withdrawn/completed one in place with a fresh start date and
// an incremented round. An enrollment that is still ACTIVE or PAUSED is a
// duplicate and is rejected; the unique (user_id, programme_id) index
// backs this check against racing calls.
func (e *Engine) Enroll(userID, programmeID uint, startDate time.Time, fasting *FastingConfig) (*programmeModels.Enrollment, error) {
	prog, err := e.loadProgramme(programmeID)
	if err != nil {
		return nil, err
	}
	if prog.Status != "ACTIVE" || !prog.IsPublished {
		return nil, ErrProgrammeNotFound
	}

	cfg := FastingConfig{Type: programmeModels.FastingNone}
	if fasting != nil {
		if !prog.HasFasting {
			return nil, fmt.Errorf("%w: programme has no fasting component", ErrBadFastingConfig)
		}
		if err := validateFastingConfig(*fasting); err != nil {
			return nil, err
		}
		cfg = *fasting
	}

	startDate = Midnight(startDate)

	var existing programmeModels.Enrollment
	err = e.db.Where("user_id = ? AND programme_id = ?", userID, programmeID).First(&existing).Error
	switch {
	case err == nil:
		if !existing.IsDeleted && (existing.Status == programmeModels.StatusActive || existing.Status == programmeModels.StatusPaused) {
			return nil, ErrAlreadyEnrolled
		}
		// Reactivate in place: same row, next round, progress reset.
		updates := map[string]interface{}{
			"status":                programmeModels.StatusActive,
			"start_date":            startDate,
			"completed_days":        datatypes.JSONSlice[int]{},
			"completion_percentage": 0,
			"current_day":           1,
			"enrollment_round":      existing.EnrollmentRound + 1,
			"completed_at":          nil,
			"fasting_type":          cfg.Type,
			"fasting_window_start":  cfg.WindowStart,
			"fasting_window_end":    cfg.WindowEnd,
			"is_deleted":            false,
		}
		if err := e.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("reactivate enrollment: %w", err)
		}
		reloaded, err := e.loadEnrollment(existing.ID)
		if err != nil {
			return nil, err
		}
		e.emit(events.New(events.EventEnrollmentCreated, userID, existing.ID, programmeID, map[string]interface{}{
			"enrollment_round": reloaded.EnrollmentRound,
			"start_date":       startDate.Format("2006-01-02"),
			"reactivated":      true,
		}))
		return reloaded, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		enrollment := programmeModels.Enrollment{
			UserID:             userID,
			ProgrammeID:        programmeID,
			StartDate:          startDate,
			Status:             programmeModels.StatusActive,
			CompletedDays:      datatypes.JSONSlice[int]{},
			CurrentDay:         1,
			EnrollmentRound:    1,
			FastingType:        cfg.Type,
			FastingWindowStart: cfg.WindowStart,
			FastingWindowEnd:   cfg.WindowEnd,
		}
		if err := e.db.Create(&enrollment).Error; err != nil {
			// A racing Enroll for the same pair got there first.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrAlreadyEnrolled
			}
			return nil, fmt.Errorf("create enrollment: %w", err)
		}
		e.emit(events.New(events.EventEnrollmentCreated, userID, enrollment.ID, programmeID, map[string]interface{}{
			"enrollment_round": 1,
			"start_date":       startDate.Format("2006-01-02"),
		}))
		return &enrollment, nil

	default:
		return nil, fmt.Errorf("lookup enrollment: %w", err)
	}
}

// Pause suspends an active enrollment. Pausing does not freeze the unlock
// schedule; days keep unlocking with the calendar.
func (e *Engine) Pause(enrollmentID uint) (*programmeModels.Enrollment, error) {
	enrollment, err := e.loadEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != programmeModels.StatusActive {
		return nil, ErrNotActive
	}
	if err := e.db.Model(enrollment).Update("status", programmeModels.StatusPaused).Error; err != nil {
		return nil, fmt.Errorf("pause enrollment: %w", err)
	}
	enrollment.Status = programmeModels.StatusPaused
	return enrollment, nil
}

// Resume reactivates a paused enrollment.
func (e *Engine) Resume(enrollmentID uint) (*programmeModels.Enrollment, error) {
	enrollment, err := e.loadEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != programmeModels.StatusPaused {
		return nil, ErrNotPaused
	}
	if err := e.db.Model(enrollment).Update("status", programmeModels.StatusActive).Error; err != nil {
		return nil, fmt.Errorf("resume enrollment: %w", err)
	}
	enrollment.Status = programmeModels.StatusActive
	return enrollment, nil
}

// Withdraw soft-deletes an enrollment so the same user can later re-enroll
// with a fresh round. Progress history stays on the row and its completion
// records.
func (e *Engine) Withdraw(enrollmentID uint) (*programmeModels.Enrollment, error) {
	enrollment, err := e.loadEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := e.db.Model(enrollment).Update("is_deleted", true).Error; err != nil {
		return nil, fmt.Errorf("withdraw enrollment: %w", err)
	}
	enrollment.IsDeleted = true
	return enrollment, nil
}

// upsertDayCompletion writes the durable completion record for one day,
// updating it in place when it already exists.
func upsertDayCompletion(db *gorm.DB, enrollment *programmeModels.Enrollment, dayNumber int, answers datatypes.JSON, actionDone bool) error {
	completion := programmeModels.DayCompletion{
		EnrollmentID:      enrollment.ID,
		EnrollmentRound:   enrollment.EnrollmentRound,
		DayNumber:         dayNumber,
		UserID:            enrollment.UserID,
		ProgrammeID:       enrollment.ProgrammeID,
		ReflectionAnswers: answers,
		ActionCompleted:   actionDone,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "enrollment_id"}, {Name: "enrollment_round"}, {Name: "day_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"reflection_answers", "action_completed", "updated_at",
		}),
	}).Create(&completion).Error; err != nil {
		return fmt.Errorf("upsert day completion: %w", err)
	}
	return nil
}

// MarkDayComplete records a day's completion with its reflection answers.
// The completion record and the enrollment's derived progress are written
// in one transaction, so repeated or concurrent submissions of the same
// day converge to a single record and a single set entry.
func (e *Engine) MarkDayComplete(enrollmentID uint, dayNumber int, answers datatypes.JSON, actionDone bool) (*programmeModels.Enrollment, error) {
	enrollment, err := e.loadEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != programmeModels.StatusActive {
		// A retried submission of an already-completed day arrives after
		// the programme auto-flipped to COMPLETED (the final day's flaky
		// resend). It must converge, not error: refresh the record and
		// leave the derived progress alone.
		if enrollment.Status == programmeModels.StatusCompleted && enrollment.HasCompletedDay(dayNumber) {
			if err := upsertDayCompletion(e.db, enrollment, dayNumber, answers, actionDone); err != nil {
				return nil, err
			}
			e.emit(events.New(events.EventDayCompleted, enrollment.UserID, enrollment.ID, enrollment.ProgrammeID, map[string]interface{}{
				"day_number":            dayNumber,
				"completion_percentage": enrollment.CompletionPercentage,
			}))
			return enrollment, nil
		}
		return nil, ErrNotActive
	}
	prog, err := e.loadProgramme(enrollment.ProgrammeID)
	if err != nil {
		return nil, err
	}
	if dayNumber < 1 || dayNumber > prog.DurationDays {
		return nil, ErrDayOutOfRange
	}

	now := e.clock.Now()
	if dayNumber > UnlockedDayCount(enrollment.StartDate, now, prog.DurationDays) {
		return nil, ErrDayLocked
	}

	completedAll := false
	err = e.db.Transaction(func(tx *gorm.DB) error {
		// Take the enrollment row lock before anything else; concurrent
		// completions for different days serialize here, so the recompute
		// below always sees the other call's committed record.
		if err := tx.Model(&programmeModels.Enrollment{}).
			Where("id = ?", enrollment.ID).
			Update("updated_at", now).Error; err != nil {
			return fmt.Errorf("lock enrollment: %w", err)
		}
		var current programmeModels.Enrollment
		if err := tx.First(&current, enrollment.ID).Error; err != nil {
			return fmt.Errorf("reload enrollment: %w", err)
		}

		if err := upsertDayCompletion(tx, &current, dayNumber, answers, actionDone); err != nil {
			return err
		}

		// completed_days is rebuilt from the durable DayCompletion rows
		// on every write; the set and its evidence cannot drift apart.
		var completedDays []int
		if err := tx.Model(&programmeModels.DayCompletion{}).
			Where("enrollment_id = ? AND enrollment_round = ? AND is_deleted = ?", current.ID, current.EnrollmentRound, false).
			Order("day_number asc").
			Pluck("day_number", &completedDays).Error; err != nil {
			return fmt.Errorf("recompute completed days: %w", err)
		}

		current.CompletedDays = datatypes.JSONSlice[int](completedDays)
		total := len(completedDays)
		current.CompletionPercentage = int(math.Round(float64(total) / float64(prog.DurationDays) * 100))
		current.CurrentDay = dayNumber + 1
		if current.CurrentDay > prog.DurationDays {
			current.CurrentDay = prog.DurationDays
		}

		updates := map[string]interface{}{
			"completed_days":        current.CompletedDays,
			"completion_percentage": current.CompletionPercentage,
			"current_day":           current.CurrentDay,
		}
		if total == prog.DurationDays && current.Status != programmeModels.StatusCompleted {
			completedAll = true
			current.Status = programmeModels.StatusCompleted
			completedAt := now
			current.CompletedAt = &completedAt
			updates["status"] = programmeModels.StatusCompleted
			updates["completed_at"] = current.CompletedAt
		}

		if err := tx.Model(&current).Updates(updates).Error; err != nil {
			// The completion upsert above rolls back with us; the two
			// records never drift apart.
			return fmt.Errorf("%w: %v", ErrPartialWrite, err)
		}
		*enrollment = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emit(events.New(events.EventDayCompleted, enrollment.UserID, enrollment.ID, enrollment.ProgrammeID, map[string]interface{}{
		"day_number":            dayNumber,
		"completion_percentage": enrollment.CompletionPercentage,
	}))
	if completedAll {
		e.emit(events.New(events.EventProgrammeCompleted, enrollment.UserID, enrollment.ID, enrollment.ProgrammeID, map[string]interface{}{
			"enrollment_round": enrollment.EnrollmentRound,
		}))
	}
	return enrollment, nil
}

// ChangeFastingType swaps the elected fasting configuration mid-programme.
// Progress is never reset by a configuration change: completed days, start
// date and status are untouched. The transition is emitted as a discrete
// event carrying the old and new values.
func (e *Engine) ChangeFastingType(enrollmentID uint, cfg FastingConfig) (*programmeModels.Enrollment, error) {
	enrollment, err := e.loadEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	prog, err := e.loadProgramme(enrollment.ProgrammeID)
	if err != nil {
		return nil, err
	}
	if !prog.HasFasting {
		return nil, fmt.Errorf("%w: programme has no fasting component", ErrBadFastingConfig)
	}
	if err := validateFastingConfig(cfg); err != nil {
		return nil, err
	}

	oldType := enrollment.FastingType
	oldStart, oldEnd := enrollment.FastingWindowStart, enrollment.FastingWindowEnd

	if err := e.db.Model(enrollment).Updates(map[string]interface{}{
		"fasting_type":         cfg.Type,
		"fasting_window_start": cfg.WindowStart,
		"fasting_window_end":   cfg.WindowEnd,
	}).Error; err != nil {
		return nil, fmt.Errorf("change fasting type: %w", err)
	}
	enrollment.FastingType = cfg.Type
	enrollment.FastingWindowStart = cfg.WindowStart
	enrollment.FastingWindowEnd = cfg.WindowEnd

	e.emit(events.New(events.EventFastingTypeChanged, enrollment.UserID, enrollment.ID, enrollment.ProgrammeID, map[string]interface{}{
		"old_type":         oldType,
		"new_type":         cfg.Type,
		"old_window_start": oldStart,
		"old_window_end":   oldEnd,
		"new_window_start": cfg.WindowStart,
		"new_window_end":   cfg.WindowEnd,
		"changed_at":       e.clock.Now().Format(time.RFC3339),
	}))
	return enrollment, nil
}
