package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/anypay/events-server/internal/domain"
)

// InvoiceStore is the contract the relay holds against the record store.
// The connection handler only ever sees this interface, so tests can stub
// the store without a running database.
type InvoiceStore interface {
	// GetInvoice fetches an invoice by its uid. expandRelated also resolves
	// the linked account record. Returns domain.ErrInvoiceNotFound when no
	// record exists.
	GetInvoice(ctx context.Context, id string, expandRelated bool) (*domain.Invoice, error)
	// CreateInvoice persists a new invoice and returns the stored record.
	CreateInvoice(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.Invoice, error)
}

// SurrealInvoiceStore implements InvoiceStore on SurrealDB.
type SurrealInvoiceStore struct {
	db *surrealdb.DB
}

// NewSurrealInvoiceStore creates an invoice store backed by the given connection.
func NewSurrealInvoiceStore(db *surrealdb.DB) *SurrealInvoiceStore {
	return &SurrealInvoiceStore{db: db}
}

func (s *SurrealInvoiceStore) GetInvoice(ctx context.Context, id string, expandRelated bool) (*domain.Invoice, error) {
	query := "SELECT * FROM invoice WHERE uid = $uid"
	if expandRelated {
		query += " FETCH account"
	}

	invoice, err := QueryOne[domain.Invoice](ctx, s.db, query, map[string]any{"uid": id})
	if err != nil {
		return nil, fmt.Errorf("fetching invoice %s: %w", id, err)
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *SurrealInvoiceStore) CreateInvoice(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.Invoice, error) {
	now := domain.Timestamp(time.Now())
	req.UID = uuid.New().String()
	req.Status = "unpaid"
	req.CreatedAt = now
	req.UpdatedAt = now

	invoice, err := QueryOne[domain.Invoice](ctx, s.db, "CREATE invoice CONTENT $data", map[string]any{"data": req})
	if err != nil {
		return nil, fmt.Errorf("creating invoice: %w", err)
	}
	if invoice == nil {
		return nil, fmt.Errorf("creating invoice: no record returned")
	}
	return invoice, nil
}
