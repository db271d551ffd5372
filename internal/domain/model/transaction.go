package model

import "time"

type TransactionStatus string

const (
	TransactionStatusCreated TransactionStatus = "created" // gateway order created; awaiting payment
	TransactionStatusPaid    TransactionStatus = "paid"    // signature verified, terminal success
	TransactionStatusFailed  TransactionStatus = "failed"  // signature mismatch, terminal failure
)

// Transaction is the local record of one purchase attempt, keyed by the
// gateway order id. The order id is the idempotency key shared by the
// client verification path and the webhook path.
type Transaction struct {
	ID        string // UUID
	UserID    string // UUID (internal user id)
	OrderID   string // gateway order id, unique
	PaymentID string // gateway payment id, set at most once on capture
	Signature string // signature proof submitted by the client, opaque
	Amount    int64  // minor units (paise)
	Currency  string // "INR"
	Status    TransactionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the transaction reached a final state.
// There is no transition out of paid or failed.
func (t *Transaction) Terminal() bool {
	return t.Status == TransactionStatusPaid || t.Status == TransactionStatusFailed
}
