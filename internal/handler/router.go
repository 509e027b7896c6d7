/*
Package handler provides the HTTP handlers and routing setup for the fallback
polling API.

This file defines the main Router, applying necessary middleware like logging,
CORS, and IP-based rate limiting before delegating requests to the messages
handler. The polling API is the degraded transport clients use when no
WebSocket connection is available; it reads and writes the same message store
as the realtime path.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"estatechat/internal/pkg/auth/jwt"
	"estatechat/internal/pkg/limiter"
	"estatechat/internal/pkg/logx"
	"estatechat/internal/pkg/resp"
)

const (
	// PollRate and PollBurst throttle per-IP polling; clients poll on a fixed
	// interval, so sustained bursts indicate abuse.
	PollRate  = 2.0
	PollBurst = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the polling API.
// It initializes the IP-based rate limiter, configures CORS, and applies
// global middleware before mounting the messages endpoints.
func Router(deps *AppDeps) http.Handler {
	pollLimiter := limiter.NewIPRateLimiter(rate.Limit(PollRate), PollBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "EstateChat Messaging",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/messages", func(msgs chi.Router) {
		msgs.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))
		msgs.Use(pollLimiter.Middleware)

		msgs.Get("/", HandleMessagesGet(deps))
		msgs.Post("/", HandleMessagesSend(deps))
	})

	return r
}
