package programmeValidator

import (
	"time"

	"wellspring/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CompleteDayRequest is the body for POST /enrollment/:id/day/:day/complete.
type CompleteDayRequest struct {
	ReflectionAnswers map[string]string `json:"reflection_answers"`
	ActionCompleted   bool              `json:"action_completed"`
}

// CompleteDay validates the enrollment ID, day number and completion body.
func CompleteDay() fiber.Handler {
	return func(c *fiber.Ctx) error {
		enrollmentID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Enrollment ID!", nil)
		}
		day, ok := parseIDParam(c, "day")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid day number!", nil)
		}

		reqData := new(CompleteDayRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		c.Locals("enrollmentID", enrollmentID)
		c.Locals("dayNumber", day)
		c.Locals("validatedCompleteDay", reqData)
		return c.Next()
	}
}

// DayContent validates the programme ID and day number for content routes.
func DayContent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		programmeID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Programme ID!", nil)
		}
		day, ok := parseIDParam(c, "day")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid day number!", nil)
		}
		c.Locals("programmeID", programmeID)
		c.Locals("dayNumber", day)
		return c.Next()
	}
}

// FastingChangeRequest is the body for PUT /enrollment/:id/fasting.
type FastingChangeRequest struct {
	FastingType        string `json:"fasting_type" validate:"required,oneof=NONE INTERMITTENT FULL_DAY"`
	FastingWindowStart string `json:"fasting_window_start" validate:"omitempty,datetime=15:04"`
	FastingWindowEnd   string `json:"fasting_window_end" validate:"omitempty,datetime=15:04"`
}

// ChangeFasting validates the fasting-change body.
func ChangeFasting() fiber.Handler {
	return func(c *fiber.Ctx) error {
		enrollmentID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Enrollment ID!", nil)
		}

		reqData := new(FastingChangeRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if err := validate.Struct(reqData); err != nil {
			for _, fieldErr := range err.(validator.ValidationErrors) {
				switch fieldErr.Field() {
				case "FastingType":
					errors["fasting_type"] = "Fasting type must be NONE, INTERMITTENT or FULL_DAY!"
				case "FastingWindowStart":
					errors["fasting_window_start"] = "Window start must be HH:MM!"
				case "FastingWindowEnd":
					errors["fasting_window_end"] = "Window end must be HH:MM!"
				}
			}
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("enrollmentID", enrollmentID)
		c.Locals("validatedFastingChange", reqData)
		return c.Next()
	}
}

// FastingLogRequest is the body for POST /enrollment/:id/fasting-log.
type FastingLogRequest struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Followed bool   `json:"followed"`
	Notes    string `json:"notes"`
}

// LogFasting validates the fasting-log body.
func LogFasting() fiber.Handler {
	return func(c *fiber.Ctx) error {
		enrollmentID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Enrollment ID!", nil)
		}

		reqData := new(FastingLogRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"date": "Date must be YYYY-MM-DD!",
			})
		}

		date, _ := time.Parse("2006-01-02", reqData.Date)

		c.Locals("enrollmentID", enrollmentID)
		c.Locals("validatedFastingLog", reqData)
		c.Locals("fastingLogDate", date)
		return c.Next()
	}
}
