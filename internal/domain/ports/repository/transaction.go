package repository

import (
	"context"

	"eventpass-backend/internal/domain/model"
)

// TransactionRepository persists purchase attempts.
//
// MarkPaidIfCreated and MarkFailedIfCreated are atomic conditional
// updates ("... WHERE status='created'") so that two concurrent
// transition attempts on the same order are serialized by the store and
// exactly one observes won=true. They never touch a terminal row.
type TransactionRepository interface {
	// Create inserts a transaction in status created.
	// Returns domain.ErrDuplicateOrder if the order id already exists.
	Create(ctx context.Context, tx Tx, t *model.Transaction) error

	// FindByOrderID loads by gateway order id alone (webhook path; no
	// authenticated user context). Returns domain.ErrNotFound if missing.
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.Transaction, error)

	// FindByOrderAndUser loads by (order id, user id). Returns
	// domain.ErrNotFound when absent or owned by a different user.
	FindByOrderAndUser(ctx context.Context, tx Tx, orderID, userID string) (*model.Transaction, error)

	// MarkPaidIfCreated transitions created→paid, recording payment id and
	// signature. won=false means the row was no longer in created.
	MarkPaidIfCreated(ctx context.Context, tx Tx, orderID, paymentID, signature string) (won bool, err error)

	// MarkFailedIfCreated transitions created→failed.
	MarkFailedIfCreated(ctx context.Context, tx Tx, orderID string) (won bool, err error)
}
