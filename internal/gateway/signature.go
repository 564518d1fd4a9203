package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Verifier checks the integrity token the payment gateway attaches to its
// server-to-server callbacks. The token is the only authenticity proof on
// the callback endpoint, so verification happens before any state change.
type Verifier struct {
	merchantKey  []byte
	merchantSalt string
}

// NewVerifier creates a verifier from the shared merchant secrets.
func NewVerifier(merchantKey, merchantSalt string) *Verifier {
	return &Verifier{
		merchantKey:  []byte(merchantKey),
		merchantSalt: merchantSalt,
	}
}

// Sign computes the expected callback token: base64 of the HMAC-SHA256 over
// reference + salt + status + amount, keyed with the merchant key. Amount is
// the raw numeric string exactly as sent on the wire.
func (v *Verifier) Sign(merchantRef, status, totalAmount string) string {
	mac := hmac.New(sha256.New, v.merchantKey)
	mac.Write([]byte(merchantRef + v.merchantSalt + status + totalAmount))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the token and compares it against the received hash in
// constant time.
func (v *Verifier) Verify(merchantRef, status, totalAmount, receivedHash string) bool {
	expected := v.Sign(merchantRef, status, totalAmount)
	return hmac.Equal([]byte(expected), []byte(receivedHash))
}
