package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 of "providerOrderID|providerPaymentID",
// the value the provider hands the browser after a successful checkout.
func Sign(secret, providerOrderID, providerPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(providerOrderID + "|" + providerPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is exactly the expected digest.
func VerifySignature(secret, providerOrderID, providerPaymentID, signature string) bool {
	expected := Sign(secret, providerOrderID, providerPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
