package model

// Contact is the raw address a share was sent to.
type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Recipient is either a ResolvedAccount or a PendingContact.
type Recipient interface {
	Contact() Contact
	DisplayName() string
	isRecipient()
}

// ResolvedAccount is a recipient matched to a registered account at send time.
type ResolvedAccount struct {
	AccountID string
	Name      string
	Address   Contact
}

// PendingContact is a recipient with no matching account; the share stays sent.
type PendingContact struct {
	Address Contact
}

func (r ResolvedAccount) Contact() Contact { return r.Address }

// DisplayName is the account's name at send time, or the raw address if it had none.
func (r ResolvedAccount) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return PendingContact{Address: r.Address}.DisplayName()
}
func (ResolvedAccount) isRecipient() {}

func (p PendingContact) Contact() Contact { return p.Address }

// DisplayName falls back to the raw address.
func (p PendingContact) DisplayName() string {
	if p.Address.Email != "" {
		return p.Address.Email
	}
	return p.Address.Phone
}
func (PendingContact) isRecipient() {}

// RecipientFromColumns rebuilds the variant from persisted columns.
func RecipientFromColumns(accountID *string, name, email, phone string) Recipient {
	c := Contact{Email: email, Phone: phone}
	if accountID != nil && *accountID != "" {
		return ResolvedAccount{AccountID: *accountID, Name: name, Address: c}
	}
	return PendingContact{Address: c}
}
