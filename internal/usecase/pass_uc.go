package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"eventpass-backend/internal/domain"
	"eventpass-backend/internal/domain/model"
	"eventpass-backend/internal/domain/ports/repository"
	"eventpass-backend/internal/infra/metrics"
)

// Locker is the usecase-side view of the distributed lock.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Compile-time check
var _ PassUseCase = (*passUC)(nil)

type PassUseCase interface {
	// ActivatePass issues the user's pass for a paid transaction. It is
	// idempotent: when an active pass already exists it is returned
	// unchanged and nothing is written.
	ActivatePass(ctx context.Context, userID string, transactionID *string) (*model.Pass, error)
	// GetPassForUser returns the user's most recent pass.
	GetPassForUser(ctx context.Context, userID string) (*model.Pass, error)
}

const (
	issueLockTTL    = 10 * time.Second
	codeGenAttempts = 2 // initial attempt + one regenerate on collision
)

type passUC struct {
	passes repository.PassRepository
	users  repository.UserRepository
	locker Locker
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewPassUseCase(
	passes repository.PassRepository,
	users repository.UserRepository,
	locker Locker,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *passUC {
	return &passUC{passes: passes, users: users, locker: locker, tm: tm, log: logger}
}

// newPassCode generates PAS-XXXX-XXXX where each group is 4 random bytes
// rendered as 8 uppercase hex characters.
func newPassCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("pass code entropy: %w", err)
	}
	h := strings.ToUpper(hex.EncodeToString(b))
	return "PAS-" + h[:8] + "-" + h[8:], nil
}

func (u *passUC) ActivatePass(ctx context.Context, userID string, transactionID *string) (*model.Pass, error) {
	// Fast path: an existing active pass absorbs duplicate issuance
	// triggers (retried webhook, client-then-webhook double call).
	if existing, err := u.passes.FindActiveByUser(ctx, nil, userID); err == nil {
		metrics.IncPassIssued("existing")
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Serialize concurrent issuance for the same user. The DB's partial
	// unique index on active passes is the backstop if the lock expires.
	lockKey := "pass:issue:" + userID
	token, err := u.locker.TryLock(ctx, lockKey, issueLockTTL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = u.locker.Unlock(ctx, lockKey, token) }()

	// Re-check under the lock; the race loser lands here after the
	// winner committed.
	if existing, err := u.passes.FindActiveByUser(ctx, nil, userID); err == nil {
		metrics.IncPassIssued("existing")
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var issued *model.Pass
	for attempt := 0; attempt < codeGenAttempts; attempt++ {
		code, err := newPassCode()
		if err != nil {
			return nil, err
		}
		now := time.Now()
		p := &model.Pass{
			ID:            uuid.NewString(),
			UserID:        userID,
			TransactionID: transactionID,
			Code:          code,
			Status:        model.PassStatusActive,
			QRData:        model.QRDataFor(code),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		// Pass row and user flag commit together or not at all; a failure
		// here leaves no partial-issuance state and the next invocation
		// retries in full.
		err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := u.passes.Create(ctx, tx, p); err != nil {
				return err
			}
			return u.users.SetPassActivated(ctx, tx, userID, true)
		})
		if err == nil {
			issued = p
			break
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Either a code collision or another writer slipped an active
			// pass past the lock. The latter resolves to the existing row.
			if existing, ferr := u.passes.FindActiveByUser(ctx, nil, userID); ferr == nil {
				metrics.IncPassIssued("existing")
				return existing, nil
			}
			metrics.IncPassIssued("conflict_retry")
			u.log.Warn().Str("user_id", userID).Int("attempt", attempt+1).Msg("pass code collision, regenerating")
			continue
		}
		return nil, err
	}
	if issued == nil {
		metrics.IncPassIssued("exhausted")
		return nil, domain.ErrCodeGenerationExhausted
	}

	metrics.IncPassIssued("issued")
	u.log.Info().Str("user_id", userID).Str("pass_id", issued.ID).Msg("pass issued")
	return issued, nil
}

func (u *passUC) GetPassForUser(ctx context.Context, userID string) (*model.Pass, error) {
	return u.passes.FindByUser(ctx, nil, userID)
}
