package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignaturePrefix is how the provider encodes the digest algorithm in the
// X-Hub-Signature-256 header value.
const SignaturePrefix = "sha256="

// Verify checks an HMAC-SHA256 signature header against the raw request body.
// The comparison is constant time; any malformed input yields false, never a
// panic or an error. Pure function, safe for concurrent use.
func Verify(rawBody []byte, signatureHeader, secret string) bool {
	if secret == "" {
		return false
	}
	if !strings.HasPrefix(signatureHeader, SignaturePrefix) {
		return false
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(signatureHeader, SignaturePrefix))
	if err != nil {
		return false
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(rawBody)
	expected := h.Sum(nil)

	return hmac.Equal(provided, expected)
}

// Sign computes the header value this service would expect for a payload.
// Used by tests and by local tooling to produce valid deliveries.
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return SignaturePrefix + hex.EncodeToString(h.Sum(nil))
}
