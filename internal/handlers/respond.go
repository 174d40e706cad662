package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/middleware"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/repository"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

// StatusFor maps an error code to its HTTP status.
func StatusFor(code apperr.Code) int {
	switch code.Kind() {
	case apperr.CodeValidation:
		return fiber.StatusBadRequest
	case apperr.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case apperr.CodeNotAuthorized:
		return fiber.StatusForbidden
	case apperr.CodeNotFound:
		return fiber.StatusNotFound
	case apperr.CodeInvalidTransition, apperr.CodeDuplicateBid, apperr.CodeAlreadyResolved, apperr.CodeConflict:
		return fiber.StatusConflict
	case apperr.CodeRateLimited:
		return fiber.StatusTooManyRequests
	case apperr.CodeStoreUnavailable:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error in the {"success": false} envelope.
// Handlers return errors instead of writing failure responses themselves.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"success": false,
				"message": fe.Message,
				"code":    codeForStatus(fe.Code),
			})
		}

		var ae *apperr.AppError
		if !errors.As(err, &ae) {
			ae = apperr.Wrap(err, apperr.CodeInternal, "internal server error")
		}
		status := StatusFor(ae.Code)
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("code", string(ae.Code)),
				zap.Error(err),
			)
		}

		body := fiber.Map{
			"success": false,
			"message": ae.Message,
			"code":    ae.Code,
		}
		if len(ae.Fields) > 0 {
			body["errors"] = ae.Fields
		}
		return c.Status(status).JSON(body)
	}
}

func codeForStatus(status int) apperr.Code {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return apperr.CodeValidation
	case fiber.StatusUnauthorized:
		return apperr.CodeUnauthenticated
	case fiber.StatusForbidden:
		return apperr.CodeNotAuthorized
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return apperr.CodeNotFound
	case fiber.StatusTooManyRequests:
		return apperr.CodeRateLimited
	}
	return apperr.CodeInternal
}

func ok(c *fiber.Ctx, message string, data any) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func invalidBody() error {
	return apperr.New(apperr.CodeValidation, "invalid body")
}

// currentActor returns the authenticated caller, or the zero Actor.
func currentActor(c *fiber.Ctx) workflow.Actor {
	uid, role, ok := middleware.CurrentUser(c)
	if !ok {
		return workflow.Actor{}
	}
	return workflow.Actor{ID: uid, Role: role}
}

func paramUUID(c *fiber.Ctx, name string, notFound apperr.Code, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		// an id that cannot exist is reported like a missing one
		return uuid.Nil, apperr.New(notFound, what+" not found")
	}
	return id, nil
}

func pageFrom(c *fiber.Ctx) repository.Page {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if limit < 0 || limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return repository.Page{Limit: limit, Offset: offset}
}
