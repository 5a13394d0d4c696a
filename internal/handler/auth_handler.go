/*
Package handler provides HTTP handler functions for authentication, the live
feed endpoint and the server-rendered pages.
*/
package handler

import (
	"errors"
	"net/http"

	"chatroom/internal/app/identity"
	"chatroom/internal/app/user"
	"chatroom/internal/pkg/errs"
	"chatroom/internal/pkg/logx"
	"chatroom/internal/pkg/pow"
	"chatroom/internal/pkg/req"
	"chatroom/internal/pkg/resp"
)

// sessionResponse is returned by every successful sign-up and sign-in.
type sessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt string        `json:"expiresAt"`
	User      user.Identity `json:"user"`
}

func respondSession(w http.ResponseWriter, r *http.Request, deps *AppDeps, sess *identity.Session) {
	setSessionCookie(w, sess, !deps.Config.IsDevelopment())
	resp.RespondSuccess(w, r, sessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC().Format(http.TimeFormat),
		User:      sess.Identity,
	})
}

// HandleSignUp creates an account from a multipart form with the fields
// email, password, displayName and an optional avatar file.
func HandleSignUp(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.FromContext(r.Context()); ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input := identity.SignUpInput{
			Email:       r.FormValue("email"),
			Password:    r.FormValue("password"),
			DisplayName: r.FormValue("displayName"),
		}

		file, customErr := req.OptionalFile(r, "avatar")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if file != nil {
			defer file.Close()
			input.Avatar = &user.AvatarUpload{
				FileName:    file.Name,
				ContentType: file.ContentType,
				Size:        file.Size,
				Body:        file.Body,
			}
		}

		// A proof token is only spent on a form that passes validation.
		if err := deps.Identity.ValidateSignUp(&input); err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		if deps.PoW.Enabled() && !deps.PoW.ConsumeProofToken(r) {
			logx.Warn("Sign-up rejected: missing or invalid proof token.")
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		sess, err := deps.Identity.SignUp(r.Context(), input)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		respondSession(w, r, deps, sess)
	}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies email and password and starts a session.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.FromContext(r.Context()); ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		sess, err := deps.Identity.SignIn(r.Context(), input.Email, input.Password)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		respondSession(w, r, deps, sess)
	}
}

type FederatedInput struct {
	IDToken string `json:"idToken"`
}

// HandleFederatedLogin exchanges a provider ID token for a session.
func HandleFederatedLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.FromContext(r.Context()); ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input FederatedInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.IDToken == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		sess, err := deps.Identity.SignInFederated(r.Context(), input.IDToken)
		if err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		respondSession(w, r, deps, sess)
	}
}

// HandleLogout revokes the current session and closes its feed connections.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := identity.FromContext(r.Context())

		if err := deps.Identity.SignOut(r.Context(), sess); err != nil {
			resp.RespondErr(w, r, err)
			return
		}

		closed := deps.Manager.CloseSession(sess.ID, "signed out")
		clearSessionCookie(w, !deps.Config.IsDevelopment())

		resp.RespondSuccess(w, r, map[string]any{
			"closedConnections": closed,
		})
	}
}

// HandleGetChallenge issues a proof-of-work challenge for sign-up.
func HandleGetChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.PoW.Enabled() {
			resp.RespondSuccess(w, r, pow.Challenge{})
			return
		}
		resp.RespondSuccess(w, r, deps.PoW.NewChallenge())
	}
}

type ChallengeSolution struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandleVerifyChallenge exchanges a solved challenge for a one-time proof token.
func HandleVerifyChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.PoW.Enabled() {
			resp.RespondSuccess(w, r, map[string]string{"token": ""})
			return
		}

		var input ChallengeSolution
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.PoW.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			if !errors.Is(err, pow.ErrProofInsufficient) && !errors.Is(err, pow.ErrNonceInvalid) {
				logx.Error(err, "Unexpected proof-of-work validation error")
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"token": token})
	}
}
