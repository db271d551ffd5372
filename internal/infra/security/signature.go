package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"eventpass-backend/internal/domain"
)

// Sign computes the hex HMAC-SHA256 digest of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignVerifyPayload builds the client verification payload. The
// concatenation is exactly orderID|paymentID, nothing else.
func SignVerifyPayload(orderID, paymentID, secret string) string {
	return Sign([]byte(orderID+"|"+paymentID), secret)
}

// Verify recomputes the signature over payload and compares it against
// candidate in constant time. The only failure it reports is
// domain.ErrSignatureInvalid; which byte differed is never surfaced.
func Verify(payload []byte, secret, candidate string) error {
	expected := Sign(payload, secret)
	if !hmac.Equal([]byte(expected), []byte(candidate)) {
		return domain.ErrSignatureInvalid
	}
	return nil
}
