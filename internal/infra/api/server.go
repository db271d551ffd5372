package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"eventpass-backend/internal/domain"
	"eventpass-backend/internal/domain/model"
	"eventpass-backend/internal/infra/logging"
	"eventpass-backend/internal/infra/metrics"
	"eventpass-backend/internal/usecase"
)

// webhookSignatureHeader carries the gateway's HMAC of the raw body.
const webhookSignatureHeader = "X-Razorpay-Signature"

// maxBodyBytes bounds inbound request bodies; gateway events and client
// proofs are small.
const maxBodyBytes = 1 << 20

type Server struct {
	payUC   usecase.PaymentUseCase
	passUC  usecase.PassUseCase
	auth    *AuthManager
	timeout time.Duration
	log     *zerolog.Logger
}

func NewServer(
	payUC usecase.PaymentUseCase,
	passUC usecase.PassUseCase,
	auth *AuthManager,
	requestTimeout time.Duration,
	logger *zerolog.Logger,
) *Server {
	return &Server{payUC: payUC, passUC: passUC, auth: auth, timeout: requestTimeout, log: logger}
}

// Router assembles the HTTP surface. The webhook route is public and
// signature-gated; everything else under /api requires a bearer token.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Server is running normally."})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/payment/webhook", s.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/payment/create-order", s.handleCreateOrder)
			r.Post("/payment/verify", s.handleVerify)
			r.Get("/pass/my-pass", s.handleMyPass)
		})
	})

	return Chain(r,
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.timeout),
	)
}

// authMiddleware resolves the bearer token to a user id and stashes it
// in the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.auth.UserIDFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Not authorized")
			return
		}
		ctx := logging.WithUserID(r.Context(), userID)
		ctx = context.WithValue(ctx, ctxUserIDKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxUserIDKey struct{}

func userID(r *http.Request) string {
	v, _ := r.Context().Value(ctxUserIDKey{}).(string)
	return v
}

type createOrderRequest struct {
	Amount int64 `json:"amount"`
}

// passResponse is the client-facing shape of a pass; the domain model
// stays untagged.
type passResponse struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Status string `json:"status"`
	QRData string `json:"qrData"`
}

func passPayload(p *model.Pass) *passResponse {
	if p == nil {
		return nil
	}
	return &passResponse{ID: p.ID, Code: p.Code, Status: string(p.Status), QRData: p.QRData}
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Amount is required")
		return
	}

	order, err := s.payUC.CreateOrder(r.Context(), userID(r), req.Amount)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": order})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var in usecase.VerifyInput
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&in); err != nil {
		metrics.PaymentVerifyRequests.WithLabelValues("fail", "bad_json").Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := s.payUC.VerifyClientPayment(r.Context(), userID(r), in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			metrics.PaymentVerifyRequests.WithLabelValues("fail", "not_found").Inc()
		case errors.Is(err, domain.ErrSignatureInvalid):
			metrics.PaymentVerifyRequests.WithLabelValues("fail", "bad_signature").Inc()
		default:
			metrics.PaymentVerifyRequests.WithLabelValues("fail", "unknown").Inc()
		}
		metrics.PaymentVerifyDuration.WithLabelValues("fail").Observe(time.Since(start).Seconds())
		s.writeDomainError(w, r, err)
		return
	}

	metrics.PaymentVerifyRequests.WithLabelValues("ok", "").Inc()
	metrics.PaymentVerifyDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	if res.AlreadyPaid {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Already paid", "pass": passPayload(res.Pass)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "pass": passPayload(res.Pass)})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get(webhookSignatureHeader)
	if signature == "" {
		writeError(w, http.StatusBadRequest, "Signature missing")
		return
	}

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := s.payUC.HandleWebhook(r.Context(), rawBody, signature)
	if err != nil {
		if errors.Is(err, domain.ErrSignatureInvalid) || errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "Invalid webhook signature")
			return
		}
		// Business mismatches are already absorbed as no-op successes;
		// anything else is an internal failure worth a gateway retry.
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMyPass(w http.ResponseWriter, r *http.Request) {
	pass, err := s.passUC.GetPassForUser(r.Context(), userID(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No pass found for this user")
			return
		}
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": passPayload(pass)})
}

// writeDomainError maps domain sentinels onto the HTTP envelope. Messages
// never include expected-vs-actual signature values.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	l := logging.With(r.Context(), s.log)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, domain.ErrSignatureInvalid):
		writeError(w, http.StatusBadRequest, "Invalid payment signature")
	case errors.Is(err, domain.ErrGatewayTimeout), errors.Is(err, domain.ErrGatewayUnavailable):
		l.Error().Err(err).Msg("gateway failure")
		writeError(w, http.StatusInternalServerError, "Payment gateway unavailable")
	case errors.Is(err, domain.ErrStoreTimeout):
		l.Error().Err(err).Msg("store timeout")
		writeError(w, http.StatusInternalServerError, "Internal error")
	case errors.Is(err, domain.ErrDuplicateOrder), errors.Is(err, domain.ErrCodeGenerationExhausted):
		l.Error().Err(err).Msg("invariant violation")
		writeError(w, http.StatusInternalServerError, "Internal error")
	default:
		l.Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}
