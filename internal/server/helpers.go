package server

import (
	"errors"

	"campusfeed/internal/middleware"
	"campusfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respond maps a service error onto its HTTP status and writes the error body.
func respond(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.HTTPStatus(err), err)
}

// parseBody decodes the JSON body into v or writes a 400.
// Callers should check: if !ok { return err }
func parseBody(c *fiber.Ctx, v interface{}) (bool, error) {
	if err := c.BodyParser(v); err != nil {
		return false, models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}
	return true, nil
}

// errorHandler renders errors that escape handlers, such as unknown routes,
// in the same shape as service errors.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusMethodNotAllowed:
			code = models.CodeValidation
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}
