package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"eventpass-backend/internal/config"
	"eventpass-backend/internal/domain"
	"eventpass-backend/internal/domain/ports/adapter"
	"eventpass-backend/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

// RazorpayGateway implements adapter.PaymentGateway against the Razorpay
// Orders REST API. Outbound calls run through a circuit breaker so a
// flapping gateway fails fast instead of tying up request handlers.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	client    *resty.Client
	breaker   *gobreaker.CircuitBreaker
}

func NewRazorpayGateway(cfg config.RazorpayConfig) (*RazorpayGateway, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("razorpay credentials empty")
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetHeader("Content-Type", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)
		},
	})
	metrics.CircuitBreakerState.WithLabelValues("razorpay").Set(0)

	return &RazorpayGateway{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		client:    client,
		breaker:   breaker,
	}, nil
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder calls POST /orders and returns the provider order.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*adapter.GatewayOrder, error) {
	start := time.Now()
	result, err := g.breaker.Execute(func() (interface{}, error) {
		var out orderResponse
		resp, err := g.client.R().
			SetContext(ctx).
			SetBody(map[string]any{
				"amount":   amount,
				"currency": currency,
				"receipt":  receipt,
			}).
			SetResult(&out).
			Post("/orders")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("razorpay order create: http %d", resp.StatusCode())
		}
		if out.ID == "" {
			return nil, errors.New("razorpay order create: empty order id")
		}
		return &out, nil
	})
	metrics.ObserveGatewayRequest("create_order", time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.IncGatewayRequest("create_order", "open")
			return nil, domain.ErrGatewayUnavailable
		case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
			metrics.IncGatewayRequest("create_order", "timeout")
			return nil, domain.ErrGatewayTimeout
		default:
			metrics.IncGatewayRequest("create_order", "error")
			return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
		}
	}

	metrics.IncGatewayRequest("create_order", "ok")
	out := result.(*orderResponse)
	return &adapter.GatewayOrder{
		ID:       out.ID,
		Amount:   out.Amount,
		Currency: out.Currency,
		Receipt:  out.Receipt,
	}, nil
}
