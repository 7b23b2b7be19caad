package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ErrorLocalKey holds the internal error detail of a failed request. It is logged but
// never sent to the client.
const ErrorLocalKey = "error_detail"

// Logger logs one "http_request" entry per request with request_id, method, path,
// status and latency in milliseconds. It must run after RequestID.
func Logger(log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		rid, _ := c.Locals(RequestIDLocalKey).(string)
		entry := log.WithFields(logrus.Fields{
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
		})
		if id := AccountID(c); id != "" {
			entry = entry.WithField("account_id", id)
		}
		if detail, ok := c.Locals(ErrorLocalKey).(string); ok {
			entry = entry.WithField("error", detail)
		}
		if status >= fiber.StatusInternalServerError {
			entry.Error("http_request")
		} else {
			entry.Info("http_request")
		}
		return err
	}
}
