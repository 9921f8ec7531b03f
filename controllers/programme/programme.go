package controllers

import (
	"wellspring/database"
	"wellspring/middleware"
	programmeModels "wellspring/models/programme"
	"wellspring/progression"

	"github.com/gofiber/fiber/v2"
)

// GetAllProgrammes lists published programmes.
func GetAllProgrammes(c *fiber.Ctx) error {
	if _, ok := currentUser(c); !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var programmes []programmeModels.Programme
	if err := database.Database.Db.
		Where("is_deleted = ? AND is_published = ? AND status = ?", false, true, "ACTIVE").
		Order("created_at desc").Find(&programmes).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch programmes!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Programmes fetched successfully!", programmes)
}

// GetProgrammeDetails returns one programme with its day list and the
// user's enrollment, if any.
func GetProgrammeDetails(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	programmeID := c.Locals("programmeID").(int)

	var prog programmeModels.Programme
	if err := database.Database.Db.
		Where("id = ? AND is_deleted = ? AND is_published = ?", programmeID, false, true).
		First(&prog).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Programme not found!", nil)
	}

	var days []programmeModels.ProgrammeDay
	database.Database.Db.
		Where("programme_id = ? AND is_deleted = ? AND is_published = ?", programmeID, false, true).
		Order("day_number asc, order_index asc").
		Select("id", "programme_id", "day_number", "title", "order_index").
		Find(&days)

	var enrollment programmeModels.Enrollment
	isEnrolled := database.Database.Db.
		Where("user_id = ? AND programme_id = ? AND is_deleted = ?", user.ID, programmeID, false).
		First(&enrollment).Error == nil

	resp := fiber.Map{
		"programme":   prog,
		"days":        days,
		"is_enrolled": isEnrolled,
	}
	if isEnrolled {
		resp["enrollment"] = enrollment
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Programme details fetched successfully!", resp)
}

// GetDayContent serves one day's content, gated by the unlock schedule.
// The unlock calculator is the sole authority here; completing earlier
// days is never required to view an unlocked one.
func GetDayContent(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	programmeID := c.Locals("programmeID").(int)
	dayNumber := c.Locals("dayNumber").(int)

	var prog programmeModels.Programme
	if err := database.Database.Db.
		Where("id = ? AND is_deleted = ? AND is_published = ?", programmeID, false, true).
		First(&prog).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Programme not found!", nil)
	}

	var enrollment programmeModels.Enrollment
	if err := database.Database.Db.
		Where("user_id = ? AND programme_id = ? AND is_deleted = ?", user.ID, programmeID, false).
		First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Please enroll in this programme first!", nil)
	}

	if dayNumber < 1 || dayNumber > prog.DurationDays {
		return engineError(c, progression.ErrDayOutOfRange)
	}
	unlocked, err := engine.GetUnlockedDayCount(enrollment.ID)
	if err != nil {
		return engineError(c, err)
	}
	if dayNumber > unlocked {
		return engineError(c, progression.ErrDayLocked)
	}

	var day programmeModels.ProgrammeDay
	if err := database.Database.Db.
		Where("programme_id = ? AND day_number = ? AND is_deleted = ? AND is_published = ?", programmeID, dayNumber, false, true).
		First(&day).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Day content not found!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Day content fetched successfully!", fiber.Map{
		"day":          day,
		"is_completed": enrollment.HasCompletedDay(dayNumber),
	})
}
