package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common data-service failures.
var (
	ErrInvoiceNotFound = errors.New("Invoice not found")
	ErrSessionClosed   = errors.New("session closed")
)
