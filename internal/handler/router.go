/*
Package handler provides the HTTP handlers and routing setup for the chatroom server.

This file defines the main Router, applying necessary middleware like logging, CORS,
metrics, session resolution and IP-based rate limiting before delegating requests to
the API, page and WebSocket handlers.
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"chatroom/internal/pkg/limiter"
	"chatroom/internal/pkg/logx"
	"chatroom/internal/pkg/resp"
)

const (
	SignUpRate  = 0.05
	SignUpBurst = 3
	LoginRate   = 0.5
	LoginBurst  = 10
	FeedRate    = 0.2
	FeedBurst   = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// The rate limiters it creates sweep idle entries until ctx is cancelled.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	signUpLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(SignUpRate), SignUpBurst)
	loginLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(LoginRate), LoginBurst)
	feedLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(FeedRate), FeedBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-PoW-Token"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":      "ok",
			"service":     "chatroom",
			"connections": deps.Manager.Connections(),
		}
		resp.RespondSuccess(w, r, data)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	if deps.LocalAvatars != nil {
		r.Get("/avatars/*", HandleLocalAvatar(deps))
	}

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(deps.Identity))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, DashboardPath, http.StatusFound)
		})
		r.Get(LoginPath, HandleAuthPage(deps, false))
		r.Get(SignUpPath, HandleAuthPage(deps, true))
		r.Get(DashboardPath, HandleDashboard())

		r.Route("/api", func(api chi.Router) {
			api.Get("/config", HandleGetConfig(deps))

			api.Route("/auth", func(auth chi.Router) {
				auth.With(signUpLimiter.Middleware).Post("/signup", HandleSignUp(deps))
				auth.With(loginLimiter.Middleware).Post("/login", HandleLogin(deps))
				auth.With(loginLimiter.Middleware).Post("/federated", HandleFederatedLogin(deps))
				auth.Get("/challenge", HandleGetChallenge(deps))
				auth.With(loginLimiter.Middleware).Post("/challenge", HandleVerifyChallenge(deps))

				auth.Group(func(private chi.Router) {
					private.Use(RequireSession)
					private.Post("/logout", HandleLogout(deps))
					private.Get("/me", HandleMe())
				})
			})
		})

		r.Get("/ws/feed", HandleFeed(deps, wsUpgrader, feedLimiter))
	})

	return r
}
