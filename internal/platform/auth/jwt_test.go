package auth

import (
	"testing"
	"time"

	"vendara-integration/internal/platform/config"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "jwt-secret", TokenTTL: time.Hour})

	token, err := svc.GenerateToken("order-service", []string{"messages:send", "messages:read"})
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error: %v", err)
	}
	if claims.Service != "order-service" {
		t.Errorf("expected service claim, got %q", claims.Service)
	}
	if !claims.HasScope("messages:send") {
		t.Error("expected messages:send scope")
	}
	if claims.HasScope("events:read") {
		t.Error("unexpected events:read scope")
	}
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService(config.JWTConfig{Secret: "secret-a", TokenTTL: time.Hour})
	validator := NewTokenService(config.JWTConfig{Secret: "secret-b", TokenTTL: time.Hour})

	token, err := issuer.GenerateToken("order-service", nil)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if _, err := validator.ValidateToken(token); err == nil {
		t.Error("expected validation to fail with a different secret")
	}
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "jwt-secret", TokenTTL: -time.Minute})

	token, err := svc.GenerateToken("order-service", nil)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}
