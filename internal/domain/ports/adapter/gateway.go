package adapter

import "context"

// GatewayOrder is the provider-side record of an intended payment.
type GatewayOrder struct {
	ID       string // provider order id, e.g. "order_Mf0..."
	Amount   int64  // minor units
	Currency string
	Receipt  string
}

// PaymentGateway is the hex port for the payment provider. Order
// creation is the only outbound call this core makes; verification is
// signature-based and happens locally.
type PaymentGateway interface {
	Name() string

	// CreateOrder registers a payment intent with the provider. amount is
	// in minor units. receipt is an idempotency label unique per attempt.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error)
}
