package handler

import (
	"bytes"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"fileflow/internal/storage"
)

// localRequest unescapes the object key from the wildcard and verifies the URL
// signature for the request method.
func localRequest(c *fiber.Ctx, local *storage.Local) (string, url.Values, error) {
	key, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return "", nil, storage.ErrInvalidKey
	}
	q, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return "", nil, storage.ErrInvalidSignature
	}
	if err := local.Verify(c.Method(), key, q); err != nil {
		return "", nil, err
	}
	return key, q, nil
}

// PutLocalObject accepts the body of a presigned upload for the local byte store.
func PutLocalObject(local *storage.Local) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, _, err := localRequest(c, local)
		if err != nil {
			return writeServiceError(c, err)
		}
		if _, err := local.Put(c.UserContext(), key, bytes.NewReader(c.Body())); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusOK)
	}
}

// GetLocalObject serves a presigned download from the local byte store.
func GetLocalObject(local *storage.Local) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, q, err := localRequest(c, local)
		if err != nil {
			return writeServiceError(c, err)
		}
		body, info, err := local.Open(c.UserContext(), key)
		if err != nil {
			return writeServiceError(c, err)
		}
		if name := q.Get("filename"); name != "" {
			c.Attachment(name)
		}
		return c.SendStream(body, int(info.Size))
	}
}
