package handler

import (
	"net/http"

	"chatroom/internal/app/identity"
	"chatroom/internal/configs"
	"chatroom/internal/pkg/errs"
	"chatroom/internal/pkg/resp"
)

// HandleMe returns the identity of the current session.
func HandleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := identity.FromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user":      sess.Identity,
			"expiresAt": sess.ExpiresAt.UTC().Format(http.TimeFormat),
		})
	}
}

type publicConfig struct {
	Platform         configs.PlatformConfig `json:"platform"`
	FederatedEnabled bool                   `json:"federatedEnabled"`
	AvatarsEnabled   bool                   `json:"avatarsEnabled"`
	PowDifficulty    int                    `json:"powDifficulty"`
}

// HandleGetConfig returns the public client configuration of the deployment.
func HandleGetConfig(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		difficulty := 0
		if deps.PoW.Enabled() {
			difficulty = deps.Config.PowDifficulty
		}

		resp.RespondSuccess(w, r, publicConfig{
			Platform:         deps.Config.Platform,
			FederatedEnabled: deps.Identity.FederatedEnabled(),
			AvatarsEnabled:   deps.Config.AvatarsEnabled() || deps.LocalAvatars != nil,
			PowDifficulty:    difficulty,
		})
	}
}
