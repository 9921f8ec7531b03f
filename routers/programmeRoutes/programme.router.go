package programmeRoutes

import (
	controllers "wellspring/controllers/programme"
	"wellspring/middleware"
	validators "wellspring/validators/programme"

	"github.com/gofiber/fiber/v2"
)

// SetupProgrammeRoutes sets up all programme and enrollment routes
func SetupProgrammeRoutes(app *fiber.App) {
	programmeGroup := app.Group("/programme")

	// Programme listing and details
	programmeGroup.Get("/list", middleware.JWTMiddleware, controllers.GetAllProgrammes)
	programmeGroup.Get("/:id", middleware.JWTMiddleware, validators.ProgrammeID(), controllers.GetProgrammeDetails)

	// Day content (time-gated)
	programmeGroup.Get("/:id/day/:day", middleware.JWTMiddleware, validators.DayContent(), controllers.GetDayContent)

	// Enrollment
	programmeGroup.Post("/:id/enroll", middleware.JWTMiddleware, validators.Enroll(), controllers.EnrollInProgramme)

	enrollmentGroup := app.Group("/enrollment")

	// Lifecycle
	enrollmentGroup.Post("/:id/pause", middleware.JWTMiddleware, validators.EnrollmentID(), controllers.PauseEnrollment)
	enrollmentGroup.Post("/:id/resume", middleware.JWTMiddleware, validators.EnrollmentID(), controllers.ResumeEnrollment)
	enrollmentGroup.Delete("/:id", middleware.JWTMiddleware, validators.EnrollmentID(), controllers.WithdrawEnrollment)

	// Completion and progress
	enrollmentGroup.Post("/:id/day/:day/complete", middleware.JWTMiddleware, validators.CompleteDay(), controllers.MarkDayComplete)
	enrollmentGroup.Get("/:id/progress", middleware.JWTMiddleware, validators.EnrollmentID(), controllers.GetProgress)

	// Fasting configuration and compliance
	enrollmentGroup.Put("/:id/fasting", middleware.JWTMiddleware, validators.ChangeFasting(), controllers.ChangeFastingType)
	enrollmentGroup.Post("/:id/fasting-log", middleware.JWTMiddleware, validators.LogFasting(), controllers.LogFastingDay)
	enrollmentGroup.Get("/:id/fasting-log", middleware.JWTMiddleware, validators.EnrollmentID(), controllers.GetFastingCompliance)

	// User enrollments
	userGroup := app.Group("/user")
	userGroup.Get("/enrollments", middleware.JWTMiddleware, validators.EnrollmentList(), controllers.GetEnrollments)
}
