package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"fileflow/internal/model"
)

const (
	receiptIDPrefix = "RCPT-"

	// ReceiptDisclaimer is printed on every receipt.
	ReceiptDisclaimer = "This is a computer generated receipt and does not require a physical signature. Verified by FileFlow."
)

// SignatureFields is the ordered tuple a receipt signature covers. None of the fields can
// change after the share is created.
type SignatureFields struct {
	TransactionID string
	CreatedAt     time.Time
	SenderID      string
	RecipientID   string
	Checksum      string
}

// FieldsOf extracts the signed fields from a share and its source content.
func FieldsOf(share model.Share, content model.Content) SignatureFields {
	recipientID, _ := share.RecipientAccountID()
	return SignatureFields{
		TransactionID: share.TransactionID,
		CreatedAt:     share.CreatedAt,
		SenderID:      share.Sender.AccountID,
		RecipientID:   recipientID,
		Checksum:      content.Checksum,
	}
}

// Canonical is the exact byte string that is hashed.
func (f SignatureFields) Canonical() string {
	return strings.Join([]string{
		f.TransactionID,
		f.CreatedAt.UTC().Format(time.RFC3339Nano),
		f.SenderID,
		f.RecipientID,
		f.Checksum,
	}, ":")
}

// SignFields returns the lowercase hex SHA-256 of f.Canonical().
func SignFields(f SignatureFields) string {
	sum := sha256.Sum256([]byte(f.Canonical()))
	return hex.EncodeToString(sum[:])
}

// Sign derives the receipt signature for share. It is a pure function of its inputs.
func Sign(share model.Share, content model.Content) string {
	return SignFields(FieldsOf(share, content))
}

// Verify recomputes the signature over f and compares it in constant time.
func Verify(f SignatureFields, signature string) bool {
	want := SignFields(f)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(signature))) == 1
}

// ReceiptID derives the display id from the last 8 characters of the transaction id.
func ReceiptID(transactionID string) string {
	if len(transactionID) > 8 {
		transactionID = transactionID[len(transactionID)-8:]
	}
	return receiptIDPrefix + transactionID
}

// ReceiptStatus maps a share status to the status printed on the receipt.
func ReceiptStatus(st model.Status) string {
	switch st {
	case model.StatusSent, model.StatusDelivered, model.StatusViewed:
		return "SUCCESS"
	}
	return strings.ToUpper(string(st))
}

// BuildReceipt assembles the receipt document for share.
func BuildReceipt(share model.Share, content model.Content) model.Receipt {
	senderID := share.Sender.AccountID
	r := model.Receipt{
		ReceiptID:     ReceiptID(share.TransactionID),
		TransactionID: share.TransactionID,
		Timestamp:     share.CreatedAt.UTC().Format(time.RFC3339Nano),
		Status:        ReceiptStatus(share.Status),
		Sender:        model.ReceiptParty{Name: share.Sender.Name, ID: &senderID},
		Item: model.ReceiptItem{
			Name:     content.Filename,
			Size:     content.Size,
			Checksum: content.Checksum,
		},
		Signature:  Sign(share, content),
		Disclaimer: ReceiptDisclaimer,
	}
	if share.Recipient != nil {
		r.Recipient.Name = share.Recipient.DisplayName()
	}
	if id, ok := share.RecipientAccountID(); ok {
		r.Recipient.ID = &id
	}
	return r
}
