package domain

import "time"

// Invoice represents a payment invoice record as stored by the data service.
type Invoice struct {
	ID        int64  `json:"id"`
	UID       string `json:"uid"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	AccountID int64  `json:"account_id"`
	Address   string `json:"address,omitempty"`
	Hash      string `json:"hash,omitempty"`
	Complete  bool   `json:"complete"`
}

// CreateInvoiceRequest carries the fields needed to create a new invoice.
// UID, Status and the timestamps are filled in by the store, not the caller.
type CreateInvoiceRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Currency  string `json:"currency" validate:"required,len=3"`
	AccountID int64  `json:"account_id" validate:"required,gt=0"`
	Status    string `json:"status"`
	UID       string `json:"uid"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Timestamp formats t the way invoice records store their timestamps.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
