package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "vendara-integration/internal/api/context"
	"vendara-integration/internal/api/handlers"
	"vendara-integration/internal/api/middleware"
	"vendara-integration/internal/pkg/errors"
	"vendara-integration/internal/pkg/metrics"
	"vendara-integration/internal/platform/auth"
)

type Dependencies struct {
	WebhookHandler *handlers.WebhookHandler
	MessageHandler *handlers.MessageHandler
	EventHandler   *handlers.EventHandler
	AuthHandler    *handlers.AuthHandler
	HealthHandler  *handlers.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	// Provider-facing webhook endpoints (signature-authenticated)
	router.GET("/webhooks/whatsapp", wrap(deps.WebhookHandler.Verify))
	router.POST("/webhooks/whatsapp", wrap(deps.WebhookHandler.Receive))

	// Operational endpoints
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.Handler("GET", "/metrics", metrics.Handler())

	// Service-to-service token exchange
	router.POST("/api/v1/auth/token", wrap(deps.AuthHandler.Token))

	authMid := deps.AuthMiddleware

	// Outbound messages
	router.POST("/api/v1/messages",
		chain(deps.MessageHandler.Create, authMid.Handle, requireScope("messages:send")))
	router.GET("/api/v1/messages",
		chain(deps.MessageHandler.List, authMid.Handle, requireScope("messages:read")))
	router.GET("/api/v1/messages/:message_id",
		chain(deps.MessageHandler.Get, authMid.Handle, requireScope("messages:read")))

	// Inbound event audit log
	router.GET("/api/v1/events",
		chain(deps.EventHandler.List, authMid.Handle, requireScope("events:read")))
	router.GET("/api/v1/events/:event_id",
		chain(deps.EventHandler.Get, authMid.Handle, requireScope("events:read")))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

func requireScope(scope string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

			if !claims.HasScope(scope) {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
