package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"fileflow/internal/model"
)

// sendShareRequest is the body of POST /api/v1/shares.
type sendShareRequest struct {
	FileID           string `json:"file_id"`
	RecipientEmail   string `json:"recipient_email"`
	RecipientPhone   string `json:"recipient_phone"`
	TargetFolderName string `json:"target_folder_name"`
	Message          string `json:"message"`
	ShareType        string `json:"share_type"`
}

// initUploadRequest is the body of POST /api/v1/files/upload/init.
type initUploadRequest struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size_bytes"`
	MimeType string `json:"mime_type"`
	FolderID string `json:"folder_id"`
}

// completeUploadRequest is the optional body of POST /api/v1/files/upload/:id/complete.
type completeUploadRequest struct {
	Checksum string `json:"checksum_sha256"`
}

// recipientResponse flattens model.Recipient. ID is null and Registered false for a
// contact that had no account at send time.
type recipientResponse struct {
	ID         *string `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Registered bool    `json:"registered"`
}

type shareResponse struct {
	ID               string            `json:"id"`
	TransactionID    string            `json:"transaction_id"`
	FileID           string            `json:"file_id"`
	Sender           model.Sender      `json:"sender"`
	Recipient        recipientResponse `json:"recipient"`
	TargetFolderName string            `json:"target_folder_name"`
	Message          string            `json:"message"`
	ShareType        model.ShareType   `json:"share_type"`
	Status           model.Status      `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	DeliveredAt      *time.Time        `json:"delivered_at"`
	FirstViewedAt    *time.Time        `json:"first_viewed_at"`
}

type shareListResponse struct {
	Data  []shareResponse `json:"data"`
	Total int             `json:"total"`
}

func newShareResponse(s model.Share) shareResponse {
	res := shareResponse{
		ID:               s.ID,
		TransactionID:    s.TransactionID,
		FileID:           s.ContentID,
		Sender:           s.Sender,
		TargetFolderName: s.TargetFolderName,
		Message:          s.Message,
		ShareType:        s.Type,
		Status:           s.Status,
		CreatedAt:        s.CreatedAt,
		DeliveredAt:      s.DeliveredAt,
		FirstViewedAt:    s.FirstViewedAt,
	}
	if s.Recipient != nil {
		contact := s.Recipient.Contact()
		res.Recipient = recipientResponse{
			Name:  s.Recipient.DisplayName(),
			Email: contact.Email,
			Phone: contact.Phone,
		}
	}
	if id, ok := s.RecipientAccountID(); ok {
		res.Recipient.ID = &id
		res.Recipient.Registered = true
	}
	return res
}

func newShareListResponse(items []model.Share, total int) shareListResponse {
	out := shareListResponse{Data: make([]shareResponse, 0, len(items)), Total: total}
	for _, s := range items {
		out.Data = append(out.Data, newShareResponse(s))
	}
	return out
}

// badParam describes a malformed request parameter.
type badParam struct {
	code    string
	message string
}

// parsePage reads limit and offset query parameters. Range clamping is left to the
// services; only malformed numbers are rejected here.
func parsePage(c *fiber.Ctx) (limit, offset int, bad *badParam) {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil {
		return 0, 0, &badParam{"INVALID_LIMIT", "invalid limit"}
	}
	offset, err = strconv.Atoi(c.Query("offset", "0"))
	if err != nil {
		return 0, 0, &badParam{"INVALID_OFFSET", "invalid offset"}
	}
	return limit, offset, nil
}
