package utils

import (
	"log"

	"wellspring/config"
	"wellspring/database"
	"wellspring/models"
	programmeModels "wellspring/models/programme"
	"wellspring/progression"

	"github.com/robfig/cron/v3"
)

// InitializeReminderScheduler sets up the daily unlock-reminder job. The
// progression engine itself never schedules anything; this is an outer
// collaborator that reads engine state once a day.
func InitializeReminderScheduler() {
	log.Println("[REMINDER-SCHEDULER] Initializing reminder scheduler...")

	c := cron.New()

	if _, err := c.AddFunc(config.AppConfig.ReminderCronSpec, func() {
		log.Println("[REMINDER-SCHEDULER] Running daily unlock reminder check...")
		ProcessUnlockReminders()
	}); err != nil {
		log.Printf("[REMINDER-SCHEDULER] Invalid REMINDER_CRON %q: %v", config.AppConfig.ReminderCronSpec, err)
		return
	}

	c.Start()
	log.Printf("[REMINDER-SCHEDULER] Reminder scheduler started (%s)", config.AppConfig.ReminderCronSpec)
}

// ProcessUnlockReminders mails every active enrollee whose unlocked-day
// count has moved past the day they last worked on.
func ProcessUnlockReminders() {
	db := database.Database.Db
	clock := progression.SystemClock{}

	var enrollments []programmeModels.Enrollment
	if err := db.
		Where("status = ? AND is_deleted = ?", programmeModels.StatusActive, false).
		Find(&enrollments).Error; err != nil {
		log.Printf("[REMINDER-SCHEDULER] Error fetching active enrollments: %v", err)
		return
	}

	log.Printf("[REMINDER-SCHEDULER] Checking %d active enrollments", len(enrollments))

	for _, enrollment := range enrollments {
		var prog programmeModels.Programme
		if err := db.Where("id = ? AND is_deleted = ?", enrollment.ProgrammeID, false).First(&prog).Error; err != nil {
			log.Printf("[REMINDER-SCHEDULER] Error fetching programme %d: %v", enrollment.ProgrammeID, err)
			continue
		}

		next := progression.NextDayToShow(&enrollment, prog.DurationDays, clock.Now())
		if enrollment.HasCompletedDay(next) {
			continue // fully caught up, nothing to nudge about
		}

		var user models.User
		if err := db.Where("id = ? AND is_deleted = ?", enrollment.UserID, false).First(&user).Error; err != nil {
			log.Printf("[REMINDER-SCHEDULER] Error fetching user %d: %v", enrollment.UserID, err)
			continue
		}

		SendDailyReminder(user.Name, user.Email, prog.Title, next)
	}
}
