package handler

import (
	"net/http"
	"time"

	"chatroom/internal/app/identity"
	"chatroom/internal/pkg/auth/jwt"
	"chatroom/internal/pkg/errs"
	"chatroom/internal/pkg/logx"
	"chatroom/internal/pkg/resp"
)

// SessionMiddleware resolves the session token of the request, if any, and
// stores the live Session in the request context. Requests without a valid
// session continue anonymously.
func SessionMiddleware(svc *identity.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := jwt.ExtractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := svc.Resolve(r.Context(), token)
			if err != nil {
				if errs.HasCode(err, errs.ErrAuthUnavailable) {
					logx.Warn("Session lookup failed. Continuing without session.", "path", r.URL.Path)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithSession(r.Context(), sess)))
		})
	}
}

// RequireSession rejects API requests without a live session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.FromContext(r.Context()); !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setSessionCookie(w http.ResponseWriter, sess *identity.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     jwt.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     jwt.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
