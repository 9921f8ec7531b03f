package controllers

import (
	"time"

	"wellspring/middleware"
	"wellspring/progression"
	programmeValidator "wellspring/validators/programme"

	"github.com/gofiber/fiber/v2"
)

// ChangeFastingType swaps the fasting configuration mid-programme without
// touching progress.
func ChangeFastingType(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := ownedEnrollment(c, user.ID)
	if err != nil {
		return engineError(c, err)
	}

	reqData := c.Locals("validatedFastingChange").(*programmeValidator.FastingChangeRequest)

	updated, err := engine.ChangeFastingType(enrollment.ID, progression.FastingConfig{
		Type:        reqData.FastingType,
		WindowStart: reqData.FastingWindowStart,
		WindowEnd:   reqData.FastingWindowEnd,
	})
	if err != nil {
		return engineError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Fasting type updated!", updated)
}

// LogFastingDay upserts one calendar day's fasting compliance.
func LogFastingDay(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := ownedEnrollment(c, user.ID)
	if err != nil {
		return engineError(c, err)
	}

	reqData := c.Locals("validatedFastingLog").(*programmeValidator.FastingLogRequest)
	date := c.Locals("fastingLogDate").(time.Time)

	entry, err := engine.LogFasting(enrollment.ID, date, reqData.Followed, reqData.Notes)
	if err != nil {
		return engineError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Fasting day logged!", entry)
}

// GetFastingCompliance summarizes logged fasting days for an enrollment.
func GetFastingCompliance(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := ownedEnrollment(c, user.ID)
	if err != nil {
		return engineError(c, err)
	}

	summary, err := engine.FastingCompliance(enrollment.ID)
	if err != nil {
		return engineError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Fasting compliance fetched successfully!", summary)
}
