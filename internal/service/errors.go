package service

import (
	"errors"

	"fileflow/internal/model"
)

var (
	ErrInvalidRecipient       = errors.New("recipient email or phone is required")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrContentNotReady        = errors.New("content is not ready to be shared")
	ErrQuotaExceeded          = errors.New("storage quota exceeded")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidTransition      = model.ErrInvalidTransition
	ErrTransactionIDCollision = errors.New("could not allocate a unique transaction id")
	ErrFileTooLarge           = errors.New("file exceeds the maximum upload size")
	ErrFileTypeNotAllowed     = errors.New("file type is not allowed")
	ErrUploadIncomplete       = errors.New("upload has not reached storage")
)
