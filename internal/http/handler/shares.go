package handler

import (
	"github.com/gofiber/fiber/v2"

	"fileflow/internal/http/middleware"
	"fileflow/internal/service"
)

// SendShare godoc
// @Summary Send a file to a recipient
// @Tags shares
// @Accept json
// @Produce json
// @Param body body sendShareRequest true "Share request"
// @Success 201 {object} shareResponse
// @Failure 400 {object} errorPayload
// @Failure 507 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/shares [post]
func SendShare(svc service.LedgerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body sendShareRequest
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		share, err := svc.Send(c.UserContext(), service.SendRequest{
			ContentID:        body.FileID,
			SenderID:         middleware.AccountID(c),
			RecipientEmail:   body.RecipientEmail,
			RecipientPhone:   body.RecipientPhone,
			TargetFolderName: body.TargetFolderName,
			Message:          body.Message,
			Type:             body.ShareType,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(newShareResponse(*share))
	}
}

// ListSentShares godoc
// @Summary List shares sent by the caller, newest first
// @Tags shares
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} shareListResponse
// @Security BearerAuth
// @Router /api/v1/shares/sent [get]
func ListSentShares(svc service.LedgerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, bad := parsePage(c)
		if bad != nil {
			return writeError(c, fiber.StatusBadRequest, bad.code, bad.message)
		}
		res, err := svc.ListSent(c.UserContext(), middleware.AccountID(c), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newShareListResponse(res.Items, res.Total))
	}
}

// ListReceivedShares godoc
// @Summary List shares received by the caller, including ones sent to their email before they registered
// @Tags shares
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} shareListResponse
// @Security BearerAuth
// @Router /api/v1/shares/received [get]
func ListReceivedShares(svc service.LedgerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, bad := parsePage(c)
		if bad != nil {
			return writeError(c, fiber.StatusBadRequest, bad.code, bad.message)
		}
		res, err := svc.ListReceived(c.UserContext(), middleware.AccountID(c), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newShareListResponse(res.Items, res.Total))
	}
}

// GetShare godoc
// @Summary Look up a share by transaction id
// @Tags shares
// @Produce json
// @Param transaction_id path string true "Transaction id"
// @Success 200 {object} shareResponse
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/shares/{transaction_id} [get]
func GetShare(svc service.LedgerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		share, err := svc.Lookup(c.UserContext(), c.Params("transaction_id"), middleware.AccountID(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newShareResponse(*share))
	}
}

// ViewShare godoc
// @Summary Record that the recipient opened a delivered share
// @Tags shares
// @Produce json
// @Param transaction_id path string true "Transaction id"
// @Success 200 {object} shareResponse
// @Failure 403 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/shares/{transaction_id}/view [post]
func ViewShare(svc service.LedgerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		share, err := svc.MarkViewed(c.UserContext(), c.Params("transaction_id"), middleware.AccountID(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newShareResponse(*share))
	}
}

// GetReceipt godoc
// @Summary Get the signed receipt of a share
// @Tags shares
// @Produce json
// @Param transaction_id path string true "Transaction id"
// @Success 200 {object} model.Receipt
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /api/v1/shares/{transaction_id}/receipt [get]
func GetReceipt(svc service.LedgerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		receipt, err := svc.GetReceipt(c.UserContext(), c.Params("transaction_id"), middleware.AccountID(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(receipt)
	}
}
