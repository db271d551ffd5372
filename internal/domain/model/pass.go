package model

import "time"

type PassStatus string

const (
	PassStatusActive  PassStatus = "active"
	PassStatusUsed    PassStatus = "used"
	PassStatusRevoked PassStatus = "revoked"
)

// QRDataPrefix is prepended to the pass code to form the payload the
// frontend renders as a QR code.
const QRDataPrefix = "mm-pass:"

// Pass is the entitlement granted to a user after a successful payment.
// At most one active pass exists per user at any time.
type Pass struct {
	ID            string  // UUID
	UserID        string  // UUID
	TransactionID *string // originating transaction; nil when issued outside the payment flow
	Code          string  // unique, human-presentable, PAS-XXXX-XXXX
	Status        PassStatus
	QRData        string // derived deterministically from Code
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QRDataFor derives the display payload for a pass code.
func QRDataFor(code string) string { return QRDataPrefix + code }
