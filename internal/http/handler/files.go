package handler

import (
	"github.com/gofiber/fiber/v2"

	"fileflow/internal/http/middleware"
	"fileflow/internal/service"
)

// InitUpload godoc
// @Summary Start an upload and get a presigned PUT URL
// @Tags files
// @Accept json
// @Produce json
// @Param body body initUploadRequest true "Upload metadata"
// @Success 200 {object} service.UploadTicket
// @Failure 400 {object} errorPayload
// @Failure 507 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/files/upload/init [post]
func InitUpload(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body initUploadRequest
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		ticket, err := svc.InitUpload(c.UserContext(), service.UploadRequest{
			OwnerID:  middleware.AccountID(c),
			Filename: body.Filename,
			Size:     body.Size,
			MimeType: body.MimeType,
			FolderID: body.FolderID,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(ticket)
	}
}

// CompleteUpload godoc
// @Summary Mark an upload as complete once the bytes are in storage
// @Tags files
// @Accept json
// @Produce json
// @Param id path string true "File id"
// @Param body body completeUploadRequest false "Client-computed checksum"
// @Success 200 {object} model.Content
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/files/upload/{id}/complete [post]
func CompleteUpload(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body completeUploadRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
			}
		}
		content, err := svc.CompleteUpload(c.UserContext(), middleware.AccountID(c), c.Params("id"), body.Checksum)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(content)
	}
}

// AbortUpload godoc
// @Summary Cancel an upload that was never completed
// @Tags files
// @Param id path string true "File id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/files/upload/{id} [delete]
func AbortUpload(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.AbortUpload(c.UserContext(), middleware.AccountID(c), c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListFiles godoc
// @Summary List the caller's files, newest first
// @Tags files
// @Produce json
// @Param folder_id query string false "Only files in this folder"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} service.ContentListResult
// @Security BearerAuth
// @Router /api/v1/files [get]
func ListFiles(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, bad := parsePage(c)
		if bad != nil {
			return writeError(c, fiber.StatusBadRequest, bad.code, bad.message)
		}
		res, err := svc.List(c.UserContext(), middleware.AccountID(c), c.Query("folder_id"), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// DownloadFile godoc
// @Summary Get a presigned download URL
// @Tags files
// @Produce json
// @Param id path string true "File id"
// @Success 200 {object} service.DownloadLink
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/files/{id}/download [get]
func DownloadFile(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		link, err := svc.DownloadURL(c.UserContext(), middleware.AccountID(c), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(link)
	}
}

// DeleteFile godoc
// @Summary Delete a file from the caller's library
// @Description Shares and other owners' copies of the same bytes are not affected.
// @Tags files
// @Param id path string true "File id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/files/{id} [delete]
func DeleteFile(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), middleware.AccountID(c), c.Params("id")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
