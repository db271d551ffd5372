package payment

import (
	"context"
	"fmt"
	"sync"

	"eventpass-backend/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is a simple in-memory gateway to use in tests.
type NoopPaymentGateway struct {
	mu     sync.Mutex
	seq    int64
	orders map[string]int64 // order id -> amount (minor units)

	// Err, when set, is returned by CreateOrder to simulate outages.
	Err error
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{orders: make(map[string]int64)}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*adapter.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.seq++
	id := fmt.Sprintf("order_noop%d", g.seq)
	g.orders[id] = amount
	return &adapter.GatewayOrder{ID: id, Amount: amount, Currency: currency, Receipt: receipt}, nil
}
