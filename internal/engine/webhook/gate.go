package webhook

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// SignatureHeader carries the provider's HMAC over the raw request body.
const SignatureHeader = "X-Hub-Signature-256"

// Rejection categories. The client only ever sees the category name; the
// distinguishing detail stays in the server log.
var (
	ErrNotConfigured    = errors.New("NotConfigured")
	ErrMissingSignature = errors.New("MissingSignature")
	ErrInvalidSignature = errors.New("InvalidSignature")
)

// Gate authenticates inbound provider webhooks before any business logic
// runs. It owns the one read of the raw body: the returned snapshot is what
// the signature covers and what downstream parsing consumes.
type Gate struct {
	secret      string
	verifyToken string
}

func NewGate(secret, verifyToken string) *Gate {
	return &Gate{secret: secret, verifyToken: verifyToken}
}

// Authenticate validates the request signature and returns the raw payload.
// Every rejection is one of the sentinel errors above; a body read failure is
// returned as-is for the caller to treat as transient.
func (g *Gate) Authenticate(r *http.Request) ([]byte, error) {
	if g.secret == "" {
		log.Error().Msg("webhook app secret is not configured, failing closed")
		return nil, ErrNotConfigured
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		log.Warn().Str("remote_addr", r.RemoteAddr).Msg("webhook rejected: missing signature header")
		return nil, ErrMissingSignature
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read webhook body: %w", err)
	}

	if !Verify(rawBody, signature, g.secret) {
		log.Warn().
			Str("remote_addr", r.RemoteAddr).
			Int("body_bytes", len(rawBody)).
			Msg("webhook rejected: signature mismatch")
		return nil, ErrInvalidSignature
	}

	return rawBody, nil
}

// VerifyHandshake answers the provider's subscription handshake. The token
// compare is constant time like the signature check.
func (g *Gate) VerifyHandshake(mode, token string) bool {
	if g.verifyToken == "" {
		log.Error().Msg("webhook verify token is not configured, failing closed")
		return false
	}
	if mode != "subscribe" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(g.verifyToken)) == 1
}
