package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"chatroom/internal/app/chat"
	"chatroom/internal/app/identity"
	"chatroom/internal/app/user"
	"chatroom/internal/configs"
	"chatroom/internal/pkg/errs"
	"chatroom/internal/pkg/logx"
)

const (
	LoginPath     = "/auth/login"
	SignUpPath    = "/auth/signup"
	DashboardPath = "/dashboard"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	authTemplate      = parsePage("auth.html")
	dashboardTemplate = parsePage("dashboard.html")
)

func parsePage(name string) *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

type authPage struct {
	Title             string
	IsSignup          bool
	AvatarsEnabled    bool
	PowDifficulty     int
	FederatedClientID string
}

type dashboardPage struct {
	Title               string
	User                user.Identity
	CloseSessionRevoked int
	UnauthorizedCode    int
}

// HandleAuthPage renders the login or sign-up page. Visitors that already
// have a session are sent to the dashboard.
func HandleAuthPage(deps *AppDeps, signup bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.FromContext(r.Context()); ok {
			http.Redirect(w, r, DashboardPath, http.StatusFound)
			return
		}

		page := authPage{
			Title:          "Login",
			IsSignup:       signup,
			AvatarsEnabled: deps.Config.AvatarsEnabled() || deps.LocalAvatars != nil,
		}
		if signup {
			page.Title = "Sign Up"
			if deps.PoW.Enabled() {
				page.PowDifficulty = deps.Config.PowDifficulty
			}
		}
		if deps.Identity.FederatedEnabled() && deps.Config.Federated.Provider == configs.ProviderGoogle {
			page.FederatedClientID = deps.Config.Federated.Audience
		}

		renderPage(w, r, authTemplate, page)
	}
}

// HandleDashboard renders the chat room. Without a session it redirects to the login page.
func HandleDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := identity.FromContext(r.Context())
		if !ok {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}

		renderPage(w, r, dashboardTemplate, dashboardPage{
			Title:               "Dashboard",
			User:                sess.Identity,
			CloseSessionRevoked: chat.WsCloseCodeSessionRevoked,
			UnauthorizedCode:    errs.ErrUnauthorized,
		})
	}
}

func renderPage(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		logx.Error(err, "Failed to render page", "path", r.URL.Path)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := buf.WriteTo(w); err != nil {
		logx.Warn("Failed to write page", "path", r.URL.Path, "error", err.Error())
	}
}
