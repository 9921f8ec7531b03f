package programmeValidator

import (
	"strconv"
	"strings"
	"time"

	"wellspring/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// EnrollRequest is the body for POST /programme/:id/enroll.
type EnrollRequest struct {
	StartDate          string `json:"start_date" validate:"required,datetime=2006-01-02"`
	FastingType        string `json:"fasting_type" validate:"omitempty,oneof=NONE INTERMITTENT FULL_DAY"`
	FastingWindowStart string `json:"fasting_window_start" validate:"omitempty,datetime=15:04"`
	FastingWindowEnd   string `json:"fasting_window_end" validate:"omitempty,datetime=15:04"`
}

// parseIDParam validates a positive integer path parameter.
func parseIDParam(c *fiber.Ctx, name string) (int, bool) {
	raw := strings.TrimSpace(c.Params(name))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Enroll validates the programme ID and enrollment body.
func Enroll() fiber.Handler {
	return func(c *fiber.Ctx) error {
		programmeID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Programme ID!", nil)
		}

		reqData := new(EnrollRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)
		if err := validate.Struct(reqData); err != nil {
			for _, fieldErr := range err.(validator.ValidationErrors) {
				switch fieldErr.Field() {
				case "StartDate":
					errors["start_date"] = "Start date must be YYYY-MM-DD!"
				case "FastingType":
					errors["fasting_type"] = "Fasting type must be NONE, INTERMITTENT or FULL_DAY!"
				case "FastingWindowStart":
					errors["fasting_window_start"] = "Window start must be HH:MM!"
				case "FastingWindowEnd":
					errors["fasting_window_end"] = "Window end must be HH:MM!"
				}
			}
		}
		if reqData.FastingType == "INTERMITTENT" && (reqData.FastingWindowStart == "" || reqData.FastingWindowEnd == "") {
			errors["fasting_window_start"] = "Eating window is required for INTERMITTENT fasting!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		startDate, _ := time.Parse("2006-01-02", reqData.StartDate)

		c.Locals("programmeID", programmeID)
		c.Locals("validatedEnroll", reqData)
		c.Locals("startDate", startDate)
		return c.Next()
	}
}

// ProgrammeID validates the :id path parameter for programme routes.
func ProgrammeID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		programmeID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Programme ID!", nil)
		}
		c.Locals("programmeID", programmeID)
		return c.Next()
	}
}

// EnrollmentID validates the :id path parameter for enrollment routes.
func EnrollmentID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		enrollmentID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Enrollment ID!", nil)
		}
		c.Locals("enrollmentID", enrollmentID)
		return c.Next()
	}
}

// EnrollmentList validates pagination for GET /user/enrollments.
func EnrollmentList() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Page  *int `json:"page"`
			Limit *int `json:"limit"`
		})

		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}

		errors := make(map[string]string)

		if reqData.Page != nil && *reqData.Page < 1 {
			errors["page"] = "Page must be greater than 0!"
		}
		if reqData.Limit != nil && *reqData.Limit < 1 {
			errors["limit"] = "Limit must be greater than 0!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedEnrollmentList", reqData)
		return c.Next()
	}
}
