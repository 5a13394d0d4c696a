package handler

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"chatroom/internal/pkg/errs"
	"chatroom/internal/pkg/resp"
)

// avatarPrefix is the key prefix every stored avatar starts with.
const avatarPrefix = "profile_pictures/"

// HandleLocalAvatar serves avatars kept in process memory. It is only mounted
// when no object storage bucket is configured.
func HandleLocalAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if !strings.HasPrefix(key, avatarPrefix) || strings.Contains(key, "..") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		obj, ok := deps.LocalAvatars.Get(key)
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", obj.ContentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(obj.Data))
	}
}
