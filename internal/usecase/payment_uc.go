package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"eventpass-backend/internal/domain"
	"eventpass-backend/internal/domain/model"
	"eventpass-backend/internal/domain/ports/adapter"
	"eventpass-backend/internal/domain/ports/repository"
	"eventpass-backend/internal/infra/logging"
	"eventpass-backend/internal/infra/metrics"
	"eventpass-backend/internal/infra/security"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// OrderResult is returned to the client so it can open the gateway's
// checkout with the provider order id.
type OrderResult struct {
	OrderID       string `json:"orderId"`
	Amount        int64  `json:"amount"` // minor units
	Currency      string `json:"currency"`
	TransactionID string `json:"transactionId"`
}

// VerifyInput carries the client-submitted payment proof.
type VerifyInput struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"clientSignature"`
}

type VerifyResult struct {
	AlreadyPaid bool        `json:"alreadyPaid"`
	Pass        *model.Pass `json:"pass,omitempty"`
}

type WebhookResult struct {
	Received bool `json:"received"`
}

type PaymentUseCase interface {
	// CreateOrder registers a gateway order for amount (major units) and
	// persists the matching transaction in status created.
	CreateOrder(ctx context.Context, userID string, amount int64) (*OrderResult, error)
	// VerifyClientPayment validates the client's signature proof, drives
	// the created→paid transition and issues the pass.
	VerifyClientPayment(ctx context.Context, userID string, in VerifyInput) (*VerifyResult, error)
	// HandleWebhook reconciles an asynchronous gateway event. rawBody is
	// the body exactly as received; the signature is verified against
	// those bytes before any parsing.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error)
}

const (
	orderCurrency        = "INR"
	eventPaymentCaptured = "payment.captured"
)

type paymentUC struct {
	ledger        repository.TransactionRepository
	passUC        PassUseCase
	gateway       adapter.PaymentGateway
	clientSecret  string // signs orderId|paymentId for the client path
	webhookSecret string // signs raw webhook bodies; distinct trust boundary
	log           *zerolog.Logger
}

func NewPaymentUseCase(
	ledger repository.TransactionRepository,
	passUC PassUseCase,
	gateway adapter.PaymentGateway,
	clientSecret, webhookSecret string,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		ledger:        ledger,
		passUC:        passUC,
		gateway:       gateway,
		clientSecret:  clientSecret,
		webhookSecret: webhookSecret,
		log:           logger,
	}
}

func (u *paymentUC) CreateOrder(ctx context.Context, userID string, amount int64) (*OrderResult, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	minor := amount * 100 // paise

	receipt := "receipt_order_" + ulid.Make().String()
	order, err := u.gateway.CreateOrder(ctx, minor, orderCurrency, receipt)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	t := &model.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		OrderID:   order.ID,
		Amount:    minor,
		Currency:  order.Currency,
		Status:    model.TransactionStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.ledger.Create(ctx, nil, t); err != nil {
		return nil, err
	}

	metrics.IncPayment("created")
	u.log.Info().Str("user_id", userID).Str("order_id", order.ID).Int64("amount", minor).Msg("order created")
	return &OrderResult{
		OrderID:       order.ID,
		Amount:        minor,
		Currency:      order.Currency,
		TransactionID: t.ID,
	}, nil
}

func (u *paymentUC) VerifyClientPayment(ctx context.Context, userID string, in VerifyInput) (*VerifyResult, error) {
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, domain.ErrInvalidArgument
	}

	defer logging.TraceDuration(u.log, "PaymentUC.VerifyClientPayment")()
	ctx = logging.WithOrderID(ctx, in.OrderID)
	l := logging.With(ctx, u.log)

	t, err := u.ledger.FindByOrderAndUser(ctx, nil, in.OrderID, userID)
	if err != nil {
		return nil, err
	}

	if t.Status == model.TransactionStatusPaid {
		return u.alreadyPaidResult(ctx, userID), nil
	}

	if err := security.Verify([]byte(in.OrderID+"|"+in.PaymentID), u.clientSecret, in.Signature); err != nil {
		if _, ferr := u.ledger.MarkFailedIfCreated(ctx, nil, in.OrderID); ferr != nil {
			l.Error().Err(ferr).Msg("mark failed after bad signature")
		}
		metrics.IncPayment("failed")
		l.Warn().Str("user_id", userID).Msg("client signature mismatch")
		return nil, domain.ErrSignatureInvalid
	}

	won, err := u.ledger.MarkPaidIfCreated(ctx, nil, in.OrderID, in.PaymentID, in.Signature)
	if err != nil {
		return nil, err
	}
	if !won {
		// The webhook path got there first, or the transaction had
		// already failed. Whoever performed the transition also issued.
		cur, err := u.ledger.FindByOrderAndUser(ctx, nil, in.OrderID, userID)
		if err != nil {
			return nil, err
		}
		if cur.Status == model.TransactionStatusPaid {
			return u.alreadyPaidResult(ctx, userID), nil
		}
		l.Warn().Str("status", string(cur.Status)).Msg("verify on terminal transaction")
		return nil, domain.ErrSignatureInvalid
	}

	metrics.IncPayment("paid")
	metrics.AddPaymentRevenue(t.Currency, t.Amount)

	pass, err := u.passUC.ActivatePass(ctx, userID, &t.ID)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Pass: pass}, nil
}

// alreadyPaidResult builds the benign response for a duplicate verify.
// The previously issued pass rides along when one exists.
func (u *paymentUC) alreadyPaidResult(ctx context.Context, userID string) *VerifyResult {
	res := &VerifyResult{AlreadyPaid: true}
	if pass, err := u.passUC.GetPassForUser(ctx, userID); err == nil {
		res.Pass = pass
	}
	return res
}

// webhookEnvelope mirrors the gateway's event body shape.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (u *paymentUC) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error) {
	if signature == "" {
		return nil, domain.ErrInvalidArgument
	}

	// Verify against the exact bytes received. Re-serializing parsed JSON
	// risks a different byte sequence and a false mismatch.
	if err := security.Verify(rawBody, u.webhookSecret, signature); err != nil {
		metrics.IncWebhookEvent("unknown", "bad_signature")
		return nil, err
	}

	var env webhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		// Signed but unparseable; nothing to act on, don't make the
		// gateway retry.
		metrics.IncWebhookEvent("unknown", "ignored")
		u.log.Warn().Err(err).Msg("webhook body unparseable")
		return &WebhookResult{Received: true}, nil
	}

	if env.Event != eventPaymentCaptured {
		metrics.IncWebhookEvent(env.Event, "ignored")
		return &WebhookResult{Received: true}, nil
	}

	orderID := env.Payload.Payment.Entity.OrderID
	paymentID := env.Payload.Payment.Entity.ID
	ctx = logging.WithOrderID(ctx, orderID)
	l := logging.With(ctx, u.log)

	t, err := u.ledger.FindByOrderID(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncWebhookEvent(env.Event, "not_found")
			l.Warn().Msg("webhook for unknown order")
			return &WebhookResult{Received: true}, nil
		}
		return nil, err
	}

	if t.Status != model.TransactionStatusCreated {
		if t.Status == model.TransactionStatusPaid && t.PaymentID != "" && t.PaymentID != paymentID {
			// Gateway reports a different capture than the one we
			// recorded. Surfaced for alerting, still acknowledged.
			metrics.IncWebhookEvent(env.Event, "payment_id_mismatch")
			l.Warn().
				Str("recorded_payment_id", t.PaymentID).
				Str("webhook_payment_id", paymentID).
				Msg("webhook payment id differs from recorded capture")
		} else {
			metrics.IncWebhookEvent(env.Event, "stale")
		}
		return &WebhookResult{Received: true}, nil
	}

	won, err := u.ledger.MarkPaidIfCreated(ctx, nil, orderID, paymentID, "")
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race against the client path; its issuance stands.
		metrics.IncWebhookEvent(env.Event, "stale")
		return &WebhookResult{Received: true}, nil
	}

	metrics.IncPayment("paid")
	metrics.AddPaymentRevenue(t.Currency, t.Amount)
	metrics.IncWebhookEvent(env.Event, "paid")

	if _, err := u.passUC.ActivatePass(ctx, t.UserID, &t.ID); err != nil {
		// The transition is committed; issuance retries on the next
		// trigger thanks to the issuer's idempotency.
		l.Error().Err(err).Str("user_id", t.UserID).Msg("pass issuance after webhook capture failed")
		return nil, err
	}

	l.Info().Str("payment_id", paymentID).Msg("webhook capture reconciled")
	return &WebhookResult{Received: true}, nil
}
