package controllers

import (
	"encoding/json"

	"wellspring/middleware"
	programmeModels "wellspring/models/programme"
	programmeValidator "wellspring/validators/programme"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

// MarkDayComplete records a day's completion with reflection answers.
// Repeat submissions of the same day are safe; the engine upserts.
func MarkDayComplete(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := ownedEnrollment(c, user.ID)
	if err != nil {
		return engineError(c, err)
	}

	dayNumber := c.Locals("dayNumber").(int)
	reqData := c.Locals("validatedCompleteDay").(*programmeValidator.CompleteDayRequest)

	answers := datatypes.JSON("{}")
	if reqData.ReflectionAnswers != nil {
		raw, err := json.Marshal(reqData.ReflectionAnswers)
		if err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid reflection answers!", nil)
		}
		answers = datatypes.JSON(raw)
	}

	updated, err := engine.MarkDayComplete(enrollment.ID, dayNumber, answers, reqData.ActionCompleted)
	if err != nil {
		return engineError(c, err)
	}

	message := "Day marked complete!"
	if updated.Status == programmeModels.StatusCompleted {
		message = "Congratulations, you finished the programme!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, updated)
}
