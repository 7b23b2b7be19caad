package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"fileflow/internal/auth"
)

// AccountIDLocalKey is the key of the authenticated account id in Fiber's context locals.
const AccountIDLocalKey = "account_id"

// Auth requires an "Authorization: Bearer <jwt>" header signed with secret and stores
// the token subject under AccountIDLocalKey. Failures surface as 401 through the
// app's ErrorHandler.
func Auth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		id, err := auth.AccountIDFromToken(strings.TrimSpace(token), secret)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid bearer token")
		}
		c.Locals(AccountIDLocalKey, id)
		return c.Next()
	}
}

// AccountID returns the account stored by Auth, or "" on unauthenticated routes.
func AccountID(c *fiber.Ctx) string {
	id, _ := c.Locals(AccountIDLocalKey).(string)
	return id
}
