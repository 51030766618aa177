package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"vendara-integration/internal/pkg/errors"
	"vendara-integration/internal/platform/auth"
	"vendara-integration/internal/platform/config"
)

// AuthHandler exchanges configured service credentials for a scoped token.
// Callers are other platform services, not humans.
type AuthHandler struct {
	tokenSvc *auth.TokenService
	services []config.ServiceCred
}

func NewAuthHandler(tokenSvc *auth.TokenService, services []config.ServiceCred) *AuthHandler {
	return &AuthHandler{tokenSvc: tokenSvc, services: services}
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Service string `json:"service"`
		Secret  string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	cred, ok := h.lookup(req.Service, req.Secret)
	if !ok {
		log.Warn().Str("service", req.Service).Msg("rejected token request")
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid service credentials", nil)
		return
	}

	token, err := h.tokenSvc.GenerateToken(cred.Name, cred.Scopes)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to issue token", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (h *AuthHandler) lookup(service, secret string) (config.ServiceCred, bool) {
	for _, cred := range h.services {
		if cred.Name != service {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(cred.Secret), []byte(secret)) == 1 {
			return cred, true
		}
		return config.ServiceCred{}, false
	}
	return config.ServiceCred{}, false
}
