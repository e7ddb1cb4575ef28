// file: internals/features/webhooks/service/signature.go
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ComputeHMAC: HMAC-SHA256 atas raw body, base64 — format header
// X-Shopify-Hmac-Sha256 dari Shopify.
func ComputeHMAC(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// HMACValid membandingkan signature secara constant-time;
// jangan pernah pakai == di sini.
func HMACValid(key string, body []byte, provided string) bool {
	expected := ComputeHMAC(key, body)
	return hmac.Equal([]byte(expected), []byte(provided))
}
