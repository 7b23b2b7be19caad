package model

import "time"

// Account is a registered user as seen by the ledger: contact details for resolution and
// the storage counters the quota ledger maintains.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	DisplayName  string    `json:"display_name"`
	StorageUsed  int64     `json:"storage_used"`
	StorageQuota int64     `json:"storage_quota"`
	CreatedAt    time.Time `json:"created_at"`
}

// Available returns the bytes the account may still receive. Legacy rows that are already
// over quota report zero.
func (a Account) Available() int64 {
	if a.StorageUsed >= a.StorageQuota {
		return 0
	}
	return a.StorageQuota - a.StorageUsed
}
