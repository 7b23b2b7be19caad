package model

// ReceiptParty identifies one side of a receipt. ID is nil for a pending recipient.
type ReceiptParty struct {
	Name string  `json:"name"`
	ID   *string `json:"id"`
}

// ReceiptItem describes the transferred content.
type ReceiptItem struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Receipt is the proof-of-transaction document. Signature can be recomputed from the
// share and content fields it was derived from.
type Receipt struct {
	ReceiptID     string       `json:"receipt_id"`
	TransactionID string       `json:"transaction_id"`
	Timestamp     string       `json:"timestamp"`
	Status        string       `json:"status"`
	Sender        ReceiptParty `json:"sender"`
	Recipient     ReceiptParty `json:"recipient"`
	Item          ReceiptItem  `json:"item"`
	Signature     string       `json:"verification_signature"`
	Disclaimer    string       `json:"legal_disclaimer"`
}
