package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"restaurant-fulfillment/internal/models"
)

// SignatureHeader carries the gateway's HMAC-SHA256 hex digest of the raw body.
const SignatureHeader = "X-Webhook-Signature"

// Sign computes the hex HMAC-SHA256 digest of body under the shared secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the gateway signature in constant time. An invalid
// or missing signature fails with ErrInvalidSignature and no state changes.
func VerifySignature(secret string, body []byte, signature string) error {
	if signature == "" {
		return models.ErrInvalidSignature
	}
	expected := Sign(secret, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return models.ErrInvalidSignature
	}
	return nil
}
