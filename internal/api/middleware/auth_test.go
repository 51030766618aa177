package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apiContext "vendara-integration/internal/api/context"
	"vendara-integration/internal/platform/auth"
	"vendara-integration/internal/platform/config"
)

func TestAuthMiddleware(t *testing.T) {
	tokenSvc := auth.NewTokenService(config.JWTConfig{Secret: "jwt-secret", TokenTTL: time.Hour})
	middleware := NewAuthMiddleware(tokenSvc)

	t.Run("valid token", func(t *testing.T) {
		token, err := tokenSvc.GenerateToken("order-service", []string{"messages:send"})
		if err != nil {
			t.Fatalf("GenerateToken() error: %v", err)
		}

		req, _ := http.NewRequest("POST", "/api/v1/messages", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
			if claims.Service != "order-service" {
				t.Errorf("expected order-service, got %s", claims.Service)
			}
			w.WriteHeader(http.StatusOK)
		})
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/v1/messages", nil)
		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %v", rr.Code)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/v1/messages", nil)
		req.Header.Set("Authorization", "Basic abc")
		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %v", rr.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/v1/messages", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %v", rr.Code)
		}
	})
}
