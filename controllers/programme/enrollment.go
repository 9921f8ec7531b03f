package controllers

import (
	"errors"
	"time"

	"wellspring/database"
	"wellspring/middleware"
	"wellspring/models"
	programmeModels "wellspring/models/programme"
	"wellspring/progression"
	programmeValidator "wellspring/validators/programme"

	"github.com/gofiber/fiber/v2"
)

// engine is wired from main once the database connection exists.
var engine *progression.Engine

// Init installs the progression engine used by all handlers in this
// package.
func Init(e *progression.Engine) {
	engine = e
}

// currentUser resolves the authenticated user set by the JWT middleware.
func currentUser(c *fiber.Ctx) (*models.User, bool) {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return nil, false
	}
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// engineError maps progression errors onto the response envelope so the
// caller can tell "this day isn't unlocked yet" from "you're already
// enrolled" from "please try again".
func engineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, progression.ErrAlreadyEnrolled):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "You are already enrolled in this programme!", nil)
	case errors.Is(err, progression.ErrDayLocked):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "This day isn't unlocked yet!", nil)
	case errors.Is(err, progression.ErrDayOutOfRange):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Day number is out of range for this programme!", nil)
	case errors.Is(err, progression.ErrNotActive):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Enrollment is not active!", nil)
	case errors.Is(err, progression.ErrNotPaused):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Enrollment is not paused!", nil)
	case errors.Is(err, progression.ErrBadFastingConfig):
		return middleware.JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Invalid fasting configuration!", nil)
	case errors.Is(err, progression.ErrEnrollmentNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Enrollment not found!", nil)
	case errors.Is(err, progression.ErrProgrammeNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Programme not found or not active!", nil)
	case errors.Is(err, progression.ErrPartialWrite):
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Progress update incomplete. Please refresh and try again.", nil)
	default:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Something went wrong. Please try again.", nil)
	}
}

// ownedEnrollment loads the enrollment from c.Locals and checks it belongs
// to the authenticated user.
func ownedEnrollment(c *fiber.Ctx, userID uint) (*programmeModels.Enrollment, error) {
	enrollmentID := c.Locals("enrollmentID").(int)
	var enrollment programmeModels.Enrollment
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", enrollmentID, false).First(&enrollment).Error; err != nil {
		return nil, progression.ErrEnrollmentNotFound
	}
	if enrollment.UserID != userID {
		return nil, progression.ErrEnrollmentNotFound
	}
	return &enrollment, nil
}

// EnrollInProgramme creates or reactivates the user's enrollment.
func EnrollInProgramme(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	programmeID := c.Locals("programmeID").(int)
	reqData := c.Locals("validatedEnroll").(*programmeValidator.EnrollRequest)
	startDate := c.Locals("startDate").(time.Time)

	var fasting *progression.FastingConfig
	if reqData.FastingType != "" {
		fasting = &progression.FastingConfig{
			Type:        reqData.FastingType,
			WindowStart: reqData.FastingWindowStart,
			WindowEnd:   reqData.FastingWindowEnd,
		}
	}

	enrollment, err := engine.Enroll(user.ID, uint(programmeID), startDate, fasting)
	if err != nil {
		return engineError(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrolled in programme successfully!", enrollment)
}

// PauseEnrollment suspends an active enrollment.
func PauseEnrollment(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := ownedEnrollment(c, user.ID)
	if err != nil {
		return engineError(c, err)
	}

	updated, err := engine.Pause(enrollment.ID)
	if err != nil {
		return engineError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment paused!", updated)
}

// ResumeEnrollment reactivates a paused enrollment.
func ResumeEnrollment(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := ownedEnrollment(c, user.ID)
	if err != nil {
		return engineError(c, err)
	}

	updated, err := engine.Resume(enrollment.ID)
	if err != nil {
		return engineError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment resumed!", updated)
}

// WithdrawEnrollment soft-deletes an enrollment; the user can re-enroll
// later with a fresh round.
func WithdrawEnrollment(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := ownedEnrollment(c, user.ID)
	if err != nil {
		return engineError(c, err)
	}

	if _, err := engine.Withdraw(enrollment.ID); err != nil {
		return engineError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Withdrawn from programme.", nil)
}

// GetEnrollments lists the user's enrollments with pagination.
func GetEnrollments(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, _ := c.Locals("validatedEnrollmentList").(*struct {
		Page  *int `json:"page"`
		Limit *int `json:"limit"`
	})

	page := 1
	limit := 10
	if reqData != nil && reqData.Page != nil {
		page = *reqData.Page
	}
	if reqData != nil && reqData.Limit != nil {
		limit = *reqData.Limit
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&programmeModels.Enrollment{}).Where("user_id = ? AND is_deleted = ?", user.ID, false)

	var total int64
	db.Count(&total)

	var enrollments []programmeModels.Enrollment
	if err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&enrollments).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
	}

	response := map[string]interface{}{
		"enrollments": enrollments,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", response)
}

// GetProgress returns unlocked-day count, completed days, percentage and
// the next day to show.
func GetProgress(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := ownedEnrollment(c, user.ID)
	if err != nil {
		return engineError(c, err)
	}

	view, err := engine.Progress(enrollment.ID)
	if err != nil {
		return engineError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", view)
}
