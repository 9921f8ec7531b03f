package progression

import (
	"sync"
	"testing"
	"time"

	"wellspring/events"
	"wellspring/models"
	programmeModels "wellspring/models/programme"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Emit(event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) byType(eventType events.EventType) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestDb(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A pooled second connection would see a different :memory: database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&programmeModels.Programme{},
		&programmeModels.ProgrammeDay{},
		&programmeModels.Enrollment{},
		&programmeModels.DayCompletion{},
		&programmeModels.FastingLog{},
	))
	return db
}

func seedProgramme(t *testing.T, db *gorm.DB, durationDays int, hasFasting bool) *programmeModels.Programme {
	t.Helper()
	prog := &programmeModels.Programme{
		Title:        "14-Day Reset",
		DurationDays: durationDays,
		HasFasting:   hasFasting,
		Status:       "ACTIVE",
		IsPublished:  true,
	}
	require.NoError(t, db.Create(prog).Error)
	return prog
}

func newTestEngine(t *testing.T, start time.Time) (*Engine, *FixedClock, *recordingSink, *gorm.DB) {
	t.Helper()
	db := newTestDb(t)
	clock := &FixedClock{Time: start}
	sink := &recordingSink{}
	return New(db, clock, sink), clock, sink, db
}

func TestEnrollCreatesActiveEnrollment(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, _, sink, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate.Add(10*time.Hour), nil)
	require.NoError(t, err)

	assert.Equal(t, programmeModels.StatusActive, enrollment.Status)
	assert.Equal(t, 1, enrollment.EnrollmentRound)
	assert.Empty(t, enrollment.CompletedDays)
	assert.Equal(t, startDate, enrollment.StartDate, "start date is midnight-normalized")
	assert.Equal(t, programmeModels.FastingNone, enrollment.FastingType)
	assert.Len(t, sink.byType(events.EventEnrollmentCreated), 1)
}

func TestEnrollDuplicateActiveRejected(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, _, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	_, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)

	_, err = engine.Enroll(1, prog.ID, startDate, nil)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	var count int64
	db.Model(&programmeModels.Enrollment{}).Where("user_id = ? AND programme_id = ?", 1, prog.ID).Count(&count)
	assert.EqualValues(t, 1, count, "exactly one enrollment row exists")
}

func TestEnrollWhilePausedRejected(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, _, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)
	_, err = engine.Pause(enrollment.ID)
	require.NoError(t, err)

	_, err = engine.Enroll(1, prog.ID, startDate, nil)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
}

func TestEnrollReactivatesAfterWithdrawal(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	first, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)

	clock.Time = date(2024, time.January, 3)
	_, err = engine.MarkDayComplete(first.ID, 1, datatypes.JSON("{}"), false)
	require.NoError(t, err)

	_, err = engine.Withdraw(first.ID)
	require.NoError(t, err)

	newStart := date(2024, time.February, 1)
	second, err := engine.Enroll(1, prog.ID, newStart, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same row is reactivated")
	assert.Equal(t, 2, second.EnrollmentRound)
	assert.Equal(t, programmeModels.StatusActive, second.Status)
	assert.Empty(t, second.CompletedDays, "progress reset for the new round")
	assert.Equal(t, 0, second.CompletionPercentage)
	assert.True(t, newStart.Equal(second.StartDate), "start date reset to %s, got %s", newStart, second.StartDate)
	assert.Nil(t, second.CompletedAt)
}

func TestEnrollFastingValidation(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, _, _, db := newTestEngine(t, startDate)
	plain := seedProgramme(t, db, 14, false)
	fasting := seedProgramme(t, db, 14, true)

	// Fasting config against a programme with no fasting component.
	_, err := engine.Enroll(1, plain.ID, startDate, &FastingConfig{Type: programmeModels.FastingFullDay})
	assert.ErrorIs(t, err, ErrBadFastingConfig)

	// INTERMITTENT needs a window.
	_, err = engine.Enroll(1, fasting.ID, startDate, &FastingConfig{Type: programmeModels.FastingIntermittent})
	assert.ErrorIs(t, err, ErrBadFastingConfig)

	// Window end must come after window start.
	_, err = engine.Enroll(1, fasting.ID, startDate, &FastingConfig{
		Type: programmeModels.FastingIntermittent, WindowStart: "18:00", WindowEnd: "12:00",
	})
	assert.ErrorIs(t, err, ErrBadFastingConfig)

	// Window only applies to INTERMITTENT.
	_, err = engine.Enroll(1, fasting.ID, startDate, &FastingConfig{
		Type: programmeModels.FastingFullDay, WindowStart: "12:00", WindowEnd: "18:00",
	})
	assert.ErrorIs(t, err, ErrBadFastingConfig)

	enrollment, err := engine.Enroll(1, fasting.ID, startDate, &FastingConfig{
		Type: programmeModels.FastingIntermittent, WindowStart: "12:00", WindowEnd: "18:00",
	})
	require.NoError(t, err)
	assert.Equal(t, programmeModels.FastingIntermittent, enrollment.FastingType)
	assert.Equal(t, "12:00", enrollment.FastingWindowStart)
	assert.Equal(t, "18:00", enrollment.FastingWindowEnd)
}

func TestPauseResumeGuards(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, _, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)

	// Resuming an active enrollment fails.
	_, err = engine.Resume(enrollment.ID)
	assert.ErrorIs(t, err, ErrNotPaused)

	paused, err := engine.Pause(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, programmeModels.StatusPaused, paused.Status)

	// Pausing twice fails.
	_, err = engine.Pause(enrollment.ID)
	assert.ErrorIs(t, err, ErrNotActive)

	resumed, err := engine.Resume(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, programmeModels.StatusActive, resumed.Status)
}

func TestPauseDoesNotFreezeUnlockClock(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)
	_, err = engine.Pause(enrollment.ID)
	require.NoError(t, err)

	clock.Time = date(2024, time.January, 6)
	unlocked, err := engine.GetUnlockedDayCount(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, unlocked, "unlocks keep advancing with the calendar while paused")
}

func TestMarkDayCompleteIdempotent(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, sink, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)

	clock.Time = date(2024, time.January, 5)

	first, err := engine.MarkDayComplete(enrollment.ID, 3, datatypes.JSON(`{"q1":"a"}`), false)
	require.NoError(t, err)
	second, err := engine.MarkDayComplete(enrollment.ID, 3, datatypes.JSON(`{"q1":"revised"}`), true)
	require.NoError(t, err)

	assert.Equal(t, []int{3}, []int(first.CompletedDays))
	assert.Equal(t, []int{3}, []int(second.CompletedDays), "no duplicate set entry")
	assert.Equal(t, first.CompletionPercentage, second.CompletionPercentage)

	var completions []programmeModels.DayCompletion
	db.Where("enrollment_id = ? AND day_number = ?", enrollment.ID, 3).Find(&completions)
	require.Len(t, completions, 1, "one record, updated in place")
	assert.True(t, completions[0].ActionCompleted)
	assert.JSONEq(t, `{"q1":"revised"}`, string(completions[0].ReflectionAnswers))

	assert.Len(t, sink.byType(events.EventDayCompleted), 2)
}

func TestMarkDayCompleteLockedDayRejected(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)

	clock.Time = date(2024, time.January, 5)
	_, err = engine.MarkDayComplete(enrollment.ID, 6, datatypes.JSON("{}"), false)
	assert.ErrorIs(t, err, ErrDayLocked)

	// Nothing was mutated.
	var reloaded programmeModels.Enrollment
	require.NoError(t, db.First(&reloaded, enrollment.ID).Error)
	assert.Empty(t, reloaded.CompletedDays)
	assert.Equal(t, 0, reloaded.CompletionPercentage)

	var count int64
	db.Model(&programmeModels.DayCompletion{}).Where("enrollment_id = ?", enrollment.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestMarkDayCompleteOutOfRange(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)
	clock.Time = date(2024, time.March, 1)

	_, err = engine.MarkDayComplete(enrollment.ID, 15, datatypes.JSON("{}"), false)
	assert.ErrorIs(t, err, ErrDayOutOfRange)
	_, err = engine.MarkDayComplete(enrollment.ID, 0, datatypes.JSON("{}"), false)
	assert.ErrorIs(t, err, ErrDayOutOfRange)
}

func TestMarkDayCompleteRequiresActiveEnrollment(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)
	_, err = engine.Pause(enrollment.ID)
	require.NoError(t, err)

	clock.Time = date(2024, time.January, 5)
	_, err = engine.MarkDayComplete(enrollment.ID, 1, datatypes.JSON("{}"), false)
	assert.ErrorIs(t, err, ErrNotActive)

	_, err = engine.MarkDayComplete(9999, 1, datatypes.JSON("{}"), false)
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)
}

func TestFastingChangePreservesProgress(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, sink, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, true)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, &FastingConfig{Type: programmeModels.FastingFullDay})
	require.NoError(t, err)

	clock.Time = date(2024, time.January, 4)
	for day := 1; day <= 3; day++ {
		_, err = engine.MarkDayComplete(enrollment.ID, day, datatypes.JSON("{}"), true)
		require.NoError(t, err)
	}

	var before programmeModels.Enrollment
	require.NoError(t, db.First(&before, enrollment.ID).Error)

	_, err = engine.ChangeFastingType(enrollment.ID, FastingConfig{
		Type: programmeModels.FastingIntermittent, WindowStart: "11:00", WindowEnd: "19:00",
	})
	require.NoError(t, err)

	var after programmeModels.Enrollment
	require.NoError(t, db.First(&after, enrollment.ID).Error)

	assert.Equal(t, []int(before.CompletedDays), []int(after.CompletedDays))
	assert.True(t, before.StartDate.Equal(after.StartDate))
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.EnrollmentRound, after.EnrollmentRound)
	assert.Equal(t, before.CompletionPercentage, after.CompletionPercentage)

	assert.Equal(t, programmeModels.FastingIntermittent, after.FastingType)
	assert.Equal(t, "11:00", after.FastingWindowStart)
	assert.Equal(t, "19:00", after.FastingWindowEnd)

	changes := sink.byType(events.EventFastingTypeChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, "FULL_DAY", changes[0].Payload["old_type"])
	assert.Equal(t, "INTERMITTENT", changes[0].Payload["new_type"])
	assert.NotEmpty(t, changes[0].Payload["changed_at"])
}

func TestFourteenDayScenario(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, sink, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)

	unlocked, err := engine.GetUnlockedDayCount(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unlocked)

	clock.Time = date(2024, time.January, 5)
	unlocked, err = engine.GetUnlockedDayCount(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, unlocked)

	for day := 1; day <= 4; day++ {
		_, err = engine.MarkDayComplete(enrollment.ID, day, datatypes.JSON("{}"), true)
		require.NoError(t, err)
	}

	next, err := engine.GetNextDayToShow(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, next)

	clock.Time = date(2024, time.January, 14)
	var final *programmeModels.Enrollment
	for day := 5; day <= 14; day++ {
		final, err = engine.MarkDayComplete(enrollment.ID, day, datatypes.JSON("{}"), true)
		require.NoError(t, err)
	}

	assert.Equal(t, programmeModels.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.CompletionPercentage)
	require.NotNil(t, final.CompletedAt)
	assert.Equal(t, clock.Time, *final.CompletedAt)

	assert.Len(t, sink.byType(events.EventProgrammeCompleted), 1)

	view, err := engine.Progress(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, 14, view.UnlockedDayCount)
	assert.Equal(t, 14, view.NextDayToShow, "finished programme lands on the final day for review")
	assert.Len(t, view.CompletedDays, 14)
}

func TestCompletionPercentageRounding(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)

	clock.Time = date(2024, time.January, 3)
	updated, err := engine.MarkDayComplete(enrollment.ID, 1, datatypes.JSON("{}"), false)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.CompletionPercentage, "1/14 rounds to 7")

	updated, err = engine.MarkDayComplete(enrollment.ID, 2, datatypes.JSON("{}"), false)
	require.NoError(t, err)
	assert.Equal(t, 14, updated.CompletionPercentage, "2/14 rounds to 14")
	assert.Equal(t, 3, updated.CurrentDay)
}

func TestLogFastingUpsertAndCompliance(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, _, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, true)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, &FastingConfig{Type: programmeModels.FastingFullDay})
	require.NoError(t, err)

	day1 := date(2024, time.January, 1)
	_, err = engine.LogFasting(enrollment.ID, day1, false, "struggled")
	require.NoError(t, err)
	// Same date again: updated in place, not duplicated.
	_, err = engine.LogFasting(enrollment.ID, day1, true, "made it after all")
	require.NoError(t, err)
	_, err = engine.LogFasting(enrollment.ID, date(2024, time.January, 2), false, "")
	require.NoError(t, err)

	var count int64
	db.Model(&programmeModels.FastingLog{}).Where("enrollment_id = ?", enrollment.ID).Count(&count)
	assert.EqualValues(t, 2, count)

	summary, err := engine.FastingCompliance(enrollment.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.TotalLogged)
	assert.EqualValues(t, 1, summary.DaysFollowed)
}

func TestMarkDayCompleteFinalDayRetryConverges(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, sink, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 3, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)

	clock.Time = date(2024, time.January, 3)
	for day := 1; day <= 3; day++ {
		enrollment, err = engine.MarkDayComplete(enrollment.ID, day, datatypes.JSON("{}"), true)
		require.NoError(t, err)
	}
	require.Equal(t, programmeModels.StatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)
	completedAt := *enrollment.CompletedAt

	// The final day's submission comes in again after the programme already
	// flipped to COMPLETED.
	clock.Time = date(2024, time.January, 4)
	retried, err := engine.MarkDayComplete(enrollment.ID, 3, datatypes.JSON(`{"q1":"revised"}`), true)
	require.NoError(t, err)

	assert.Equal(t, programmeModels.StatusCompleted, retried.Status)
	assert.Equal(t, []int{1, 2, 3}, []int(retried.CompletedDays))
	assert.Equal(t, 100, retried.CompletionPercentage)
	require.NotNil(t, retried.CompletedAt)
	assert.True(t, completedAt.Equal(*retried.CompletedAt), "retry does not move the completion timestamp")

	var completions []programmeModels.DayCompletion
	db.Where("enrollment_id = ? AND day_number = ?", enrollment.ID, 3).Find(&completions)
	require.Len(t, completions, 1, "one record, refreshed in place")
	assert.JSONEq(t, `{"q1":"revised"}`, string(completions[0].ReflectionAnswers))

	assert.Len(t, sink.byType(events.EventProgrammeCompleted), 1)
	assert.Len(t, sink.byType(events.EventDayCompleted), 4)

	_, err = engine.MarkDayComplete(enrollment.ID, 2, datatypes.JSON("{}"), false)
	require.NoError(t, err, "earlier days converge the same way")
}

func TestMarkDayCompleteRebuildsSetFromRecords(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, clock, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)

	clock.Time = date(2024, time.January, 5)
	for day := 1; day <= 2; day++ {
		_, err = engine.MarkDayComplete(enrollment.ID, day, datatypes.JSON("{}"), false)
		require.NoError(t, err)
	}

	// Knock the derived set out of sync with the completion records, the
	// way an interleaved stale write would.
	require.NoError(t, db.Model(&programmeModels.Enrollment{}).
		Where("id = ?", enrollment.ID).
		Update("completed_days", datatypes.JSONSlice[int]{2}).Error)

	updated, err := engine.MarkDayComplete(enrollment.ID, 3, datatypes.JSON("{}"), false)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, []int(updated.CompletedDays), "set is rebuilt from the completion records")
	assert.Equal(t, 21, updated.CompletionPercentage, "3/14 rounds to 21")
}

func TestLogFastingRequiresFastingEnrollment(t *testing.T) {
	startDate := date(2024, time.January, 1)
	engine, _, _, db := newTestEngine(t, startDate)
	prog := seedProgramme(t, db, 14, false)

	enrollment, err := engine.Enroll(1, prog.ID, startDate, nil)
	require.NoError(t, err)

	_, err = engine.LogFasting(enrollment.ID, startDate, true, "")
	assert.ErrorIs(t, err, ErrBadFastingConfig)
}
