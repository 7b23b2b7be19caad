package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"fileflow/internal/http/middleware"
	"fileflow/internal/service"
	"fileflow/internal/storage"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if s, ok := c.Locals(middleware.RequestIDLocalKey).(string); ok {
		return s
	}
	return ""
}

// writeError writes the error envelope. message must be safe to show to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

type errorMapping struct {
	target error
	status int
	code   string
}

var serviceErrors = []errorMapping{
	{service.ErrInvalidRecipient, fiber.StatusBadRequest, "INVALID_RECIPIENT"},
	{service.ErrInvalidRequest, fiber.StatusBadRequest, "INVALID_REQUEST"},
	{service.ErrContentNotReady, fiber.StatusBadRequest, "CONTENT_NOT_READY"},
	{service.ErrFileTooLarge, fiber.StatusBadRequest, "FILE_TOO_LARGE"},
	{service.ErrFileTypeNotAllowed, fiber.StatusBadRequest, "FILE_TYPE_NOT_ALLOWED"},
	{service.ErrUploadIncomplete, fiber.StatusBadRequest, "UPLOAD_INCOMPLETE"},
	{service.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{service.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{service.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{service.ErrQuotaExceeded, fiber.StatusInsufficientStorage, "QUOTA_EXCEEDED"},
	{storage.ErrInvalidSignature, fiber.StatusForbidden, "INVALID_SIGNATURE"},
	{storage.ErrURLExpired, fiber.StatusForbidden, "URL_EXPIRED"},
	{storage.ErrInvalidKey, fiber.StatusBadRequest, "INVALID_KEY"},
	{storage.ErrObjectNotFound, fiber.StatusNotFound, "NOT_FOUND"},
}

// writeServiceError maps a service or storage error to its status and code. Anything
// unrecognized is a 500 whose detail goes to the request log only.
func writeServiceError(c *fiber.Ctx, err error) error {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			return writeError(c, m.status, m.code, err.Error())
		}
	}
	c.Locals(middleware.ErrorLocalKey, err.Error())
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "authentication required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			c.Locals(middleware.ErrorLocalKey, err.Error())
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
