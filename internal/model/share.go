package model

import (
	"errors"
	"fmt"
	"time"
)

// Status is the delivery state of a share.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusViewed    Status = "viewed"
	StatusFailed    Status = "failed"
)

// ErrInvalidTransition is returned when a status change is not in the transition table.
var ErrInvalidTransition = errors.New("invalid share status transition")

// ParseStatus validates a persisted status value.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusSent, StatusDelivered, StatusViewed, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown share status %q", s)
}

// CanTransition reports whether the state machine allows s -> to.
// Statuses only move forward; failed and viewed are terminal.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusSent:
		return to == StatusDelivered || to == StatusFailed
	case StatusDelivered:
		return to == StatusViewed
	case StatusViewed, StatusFailed:
		return false
	}
	return false
}

// ShareType is how the share was initiated.
type ShareType string

const (
	ShareDirect ShareType = "direct"
	ShareLink   ShareType = "link"
	ShareQR     ShareType = "qr"
)

// ParseShareType validates t; the empty string means direct.
func ParseShareType(t string) (ShareType, error) {
	switch st := ShareType(t); st {
	case "":
		return ShareDirect, nil
	case ShareDirect, ShareLink, ShareQR:
		return st, nil
	}
	return "", fmt.Errorf("unknown share type %q", t)
}

// Sender is the sender identity captured at send time. It is never refreshed so
// receipts stay valid after the account is renamed.
type Sender struct {
	AccountID string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// Share is one ledger entry. Shares are never deleted.
type Share struct {
	ID               string     `json:"id"`
	TransactionID    string     `json:"transaction_id"`
	ContentID        string     `json:"file_id"`
	Sender           Sender     `json:"sender"`
	Recipient        Recipient  `json:"-"`
	TargetFolderName string     `json:"target_folder_name"`
	Message          string     `json:"message"`
	Type             ShareType  `json:"share_type"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	DeliveredAt      *time.Time `json:"delivered_at"`
	FirstViewedAt    *time.Time `json:"first_viewed_at"`
}

// Transition moves the share to status to, stamping delivered_at or first_viewed_at.
// Timestamps are only written when they are still unset.
func (s *Share) Transition(to Status, at time.Time) error {
	if !s.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	switch to {
	case StatusDelivered:
		if s.DeliveredAt == nil {
			s.DeliveredAt = &at
		}
	case StatusViewed:
		if s.FirstViewedAt == nil {
			s.FirstViewedAt = &at
		}
	}
	s.Status = to
	return nil
}

// RecipientAccountID returns the resolved recipient's account id.
func (s Share) RecipientAccountID() (string, bool) {
	if r, ok := s.Recipient.(ResolvedAccount); ok {
		return r.AccountID, true
	}
	return "", false
}

// VisibleTo reports whether accountID is a party to the share.
func (s Share) VisibleTo(accountID string) bool {
	if accountID == "" {
		return false
	}
	if s.Sender.AccountID == accountID {
		return true
	}
	id, ok := s.RecipientAccountID()
	return ok && id == accountID
}
