/*
This file contains the feed WebSocket endpoint: it checks the session,
upgrades the connection and hands it to the chat manager for its lifetime.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"chatroom/internal/app/identity"
	"chatroom/internal/pkg/errs"
	"chatroom/internal/pkg/limiter"
	"chatroom/internal/pkg/logx"
	"chatroom/internal/pkg/resp"
)

// HandleFeed creates an HTTP HandlerFunc that upgrades an authenticated
// request to a feed WebSocket connection.
func HandleFeed(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", limiter.ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		sess, ok := identity.FromContext(r.Context())
		if !ok {
			logx.Info("WebSocket connection rejected: No session.")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		deps.Manager.Serve(conn, sess.Identity, sess.ID, sess.ExpiresAt)
	}
}
