// Package service provides infrastructure collaborators for webhook processing:
// signature verification, secret retrieval, upstream order fetch, and ledger append.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// HMACSignatureVerifier validates webhook authenticity the way Square signs
// notifications: HMAC-SHA256 over the notification URL concatenated with the
// raw body, base64-encoded.
type HMACSignatureVerifier struct{}

// NewHMACSignatureVerifier creates a new HMACSignatureVerifier.
func NewHMACSignatureVerifier() *HMACSignatureVerifier {
	return &HMACSignatureVerifier{}
}

// Verify reports whether the signature header matches the expected digest.
// Fails closed: a missing header, key, or URL is a verification failure, never
// an error. The comparison is constant-time to avoid timing side channels.
func (v *HMACSignatureVerifier) Verify(signatureHeader, signingKey, notificationURL string, rawBody []byte) bool {
	if signatureHeader == "" || signingKey == "" || notificationURL == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(notificationURL))
	mac.Write(rawBody)
	digest := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if len(digest) != len(signatureHeader) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(digest), []byte(signatureHeader)) == 1
}
