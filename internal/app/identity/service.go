/*
Package identity creates, resolves and destroys authenticated sessions.

It owns sign-up (account, avatar and profile record), password and federated
sign-in, and sign-out. Every successful authentication yields an explicit
Session value; callers pass it along instead of reading ambient state.
*/
package identity

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"chatroom/internal/app/user"
	"chatroom/internal/pkg/auth/jwt"
	"chatroom/internal/pkg/errs"
	"chatroom/internal/pkg/logx"
	"chatroom/internal/pkg/randx"
)

const (
	compensationTimeout = 10 * time.Second

	// maxPasswordBytes is the bcrypt input limit.
	maxPasswordBytes = 72
)

// dummyHash is compared against when the email is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("chatroom-timing-equalizer"), bcrypt.DefaultCost)

// AccountStore persists Account records.
type AccountStore interface {
	CreateAccount(ctx context.Context, acc user.Account) error
	AccountByEmail(ctx context.Context, email string) (user.Account, error)
	AccountBySubject(ctx context.Context, provider, subject string) (user.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// ProfileStore persists Profile records.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p user.Profile) error
	Profile(ctx context.Context, id string) (user.Profile, error)
}

// ObjectStore stores avatar images.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

// Recorder receives authentication metrics.
type Recorder interface {
	AuthAttempt(method string, err error)
}

// Config holds the session token settings.
type Config struct {
	JWTSecret  string
	Issuer     string
	SessionTTL time.Duration
}

// Deps are the backends of a Service. Objects, Federated and Recorder may be nil.
type Deps struct {
	Accounts  AccountStore
	Profiles  ProfileStore
	Objects   ObjectStore
	Sessions  SessionStore
	Federated FederatedVerifier
	Recorder  Recorder
}

// SignUpInput is the sign-up form.
type SignUpInput struct {
	Email       string             `validate:"required,email,max=254"`
	Password    string             `validate:"min=6,max=50"`
	DisplayName string             `validate:"required,max=40"`
	Avatar      *user.AvatarUpload `validate:"-"`
}

type signInInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
}

// Service implements the identity operations.
type Service struct {
	cfg      Config
	deps     Deps
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewService(cfg Config, deps Deps) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = jwt.SessionExpiration
	}
	if cfg.Issuer == "" {
		cfg.Issuer = jwt.DefaultIssuer
	}

	return &Service{
		cfg:      cfg,
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logx.Component("identity"),
	}
}

// FederatedEnabled reports whether federated sign-in is configured.
func (s *Service) FederatedEnabled() bool {
	return s.deps.Federated != nil
}

// SignUp creates an account, uploads the optional avatar and writes the
// profile record. If the avatar or the profile cannot be stored, everything
// written so far is removed again so no account exists without a profile.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (sess *Session, err error) {
	defer func() { s.record("signup", err) }()

	if err := s.ValidateSignUp(&in); err != nil {
		return nil, err
	}

	avatar := in.Avatar
	if avatar != nil && s.deps.Objects == nil {
		s.logger.Warn().Msg("Avatar upload disabled (no object storage configured). Ignoring avatar.")
		avatar = nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	acc := user.Account{
		ID:           randx.NewID(),
		Email:        in.Email,
		PasswordHash: string(hash),
		Provider:     user.ProviderPassword,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.deps.Accounts.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, user.ErrAccountExists) {
			return nil, errs.NewError(errs.ErrUserAlreadyExists)
		}
		s.logger.Error().Err(err).Msg("Failed to create account.")
		return nil, errs.NewError(errs.ErrAuthUnavailable)
	}

	profile := user.Profile{
		ID:          acc.ID,
		DisplayName: in.DisplayName,
		Email:       acc.Email,
		CreatedAt:   acc.CreatedAt,
	}

	var avatarKey string
	if avatar != nil {
		avatarKey = randx.AvatarKey(acc.ID, avatar.Ext())
		if err := s.deps.Objects.Upload(ctx, avatarKey, avatar.ContentType, avatar.Body); err != nil {
			s.logger.Error().Err(err).Str("identity_id", acc.ID).Msg("Failed to upload avatar. Rolling back account.")
			s.compensate(ctx, acc.ID, "")
			return nil, errs.NewError(errs.ErrFileStorageFailed)
		}
		profile.AvatarURL = s.deps.Objects.PublicURL(avatarKey)
	}

	if err := s.deps.Profiles.CreateProfile(ctx, profile); err != nil {
		s.logger.Error().Err(err).Str("identity_id", acc.ID).Msg("Failed to write profile. Rolling back account.")
		s.compensate(ctx, acc.ID, avatarKey)
		return nil, errs.NewError(errs.ErrProfileWriteFailed)
	}

	s.logger.Info().Str("identity_id", acc.ID).Bool("avatar", avatarKey != "").Msg("Account created.")
	return s.issueSession(ctx, profile.Identity())
}

// ValidateSignUp trims and checks the sign-up form, including the avatar,
// without writing anything.
func (s *Service) ValidateSignUp(in *SignUpInput) error {
	in.Email = strings.TrimSpace(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}
	if len(in.Password) > maxPasswordBytes {
		return errs.NewError(errs.ErrInvalidPassword)
	}

	if in.Avatar != nil {
		if cerr := in.Avatar.Validate(); cerr != nil {
			return cerr
		}
	}
	return nil
}

// compensate removes what a failed sign-up left behind. It runs on a detached
// context so a cancelled request still cleans up.
func (s *Service) compensate(ctx context.Context, accountID, avatarKey string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if avatarKey != "" {
		if err := s.deps.Objects.Delete(ctx, avatarKey); err != nil {
			s.logger.Error().Err(err).Str("key", avatarKey).Msg("Failed to delete avatar during rollback.")
		}
	}

	if err := s.deps.Accounts.DeleteAccount(ctx, accountID); err != nil && !errors.Is(err, user.ErrNotFound) {
		s.logger.Error().Err(err).Str("identity_id", accountID).Msg("Failed to delete account during rollback. Orphaned account left behind.")
	}
}

// SignIn authenticates with email and password. The account must have a profile record.
func (s *Service) SignIn(ctx context.Context, email, password string) (sess *Session, err error) {
	defer func() { s.record("login", err) }()

	in := signInInput{Email: strings.TrimSpace(email), Password: password}
	if err := s.validate.Struct(in); err != nil {
		return nil, errs.NewError(errs.ErrInvalidCredentials)
	}

	acc, err := s.deps.Accounts.AccountByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, user.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, errs.NewError(errs.ErrInvalidCredentials)
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to look up account.")
		return nil, errs.NewError(errs.ErrAuthUnavailable)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, errs.NewError(errs.ErrInvalidCredentials)
	}

	profile, err := s.deps.Profiles.Profile(ctx, acc.ID)
	switch {
	case errors.Is(err, user.ErrNotFound):
		s.logger.Warn().Str("identity_id", acc.ID).Msg("Sign-in for account without profile record.")
		return nil, errs.NewError(errs.ErrProfileNotFound)
	case err != nil:
		s.logger.Error().Err(err).Str("identity_id", acc.ID).Msg("Failed to read profile.")
		return nil, errs.NewError(errs.ErrAuthUnavailable)
	}

	return s.issueSession(ctx, profile.Identity())
}

// SignInFederated verifies a provider ID token, creating the account and the
// profile record on first use.
func (s *Service) SignInFederated(ctx context.Context, idToken string) (sess *Session, err error) {
	defer func() { s.record("federated", err) }()

	if s.deps.Federated == nil {
		return nil, errs.NewError(errs.ErrFederatedDisabled)
	}

	claims, err := s.deps.Federated.Verify(ctx, strings.TrimSpace(idToken))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Federated token rejected.")
		return nil, errs.NewError(errs.ErrFederatedTokenInvalid)
	}

	acc, err := s.federatedAccount(ctx, claims)
	if err != nil {
		return nil, err
	}

	profile, err := s.deps.Profiles.Profile(ctx, acc.ID)
	if errors.Is(err, user.ErrNotFound) {
		profile, err = s.createFederatedProfile(ctx, acc, claims)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("identity_id", acc.ID).Msg("Failed to load federated profile.")
		return nil, errs.NewError(errs.ErrAuthUnavailable)
	}

	return s.issueSession(ctx, profile.Identity())
}

func (s *Service) federatedAccount(ctx context.Context, claims FederatedClaims) (user.Account, error) {
	acc, err := s.deps.Accounts.AccountBySubject(ctx, claims.Provider, claims.Subject)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		s.logger.Error().Err(err).Msg("Failed to look up federated account.")
		return user.Account{}, errs.NewError(errs.ErrAuthUnavailable)
	}

	acc = user.Account{
		ID:        randx.NewID(),
		Email:     claims.Email,
		Provider:  claims.Provider,
		Subject:   claims.Subject,
		CreatedAt: time.Now().UTC(),
	}
	err = s.deps.Accounts.CreateAccount(ctx, acc)
	if errors.Is(err, user.ErrAccountExists) {
		// Lost a race with a concurrent first sign-in for the same subject.
		acc, err = s.deps.Accounts.AccountBySubject(ctx, claims.Provider, claims.Subject)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create federated account.")
		return user.Account{}, errs.NewError(errs.ErrAuthUnavailable)
	}

	s.logger.Info().Str("identity_id", acc.ID).Str("provider", acc.Provider).Msg("Federated account created.")
	return acc, nil
}

func (s *Service) createFederatedProfile(ctx context.Context, acc user.Account, claims FederatedClaims) (user.Profile, error) {
	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	if name == "" {
		nickname, err := randx.UserNickname()
		if err != nil {
			return user.Profile{}, err
		}
		name = nickname
	}
	if runes := []rune(name); len(runes) > 40 {
		name = string(runes[:40])
	}

	profile := user.Profile{
		ID:          acc.ID,
		DisplayName: name,
		Email:       claims.Email,
		AvatarURL:   claims.Picture,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.deps.Profiles.CreateProfile(ctx, profile)
	if errors.Is(err, user.ErrProfileExists) {
		return s.deps.Profiles.Profile(ctx, acc.ID)
	}
	if err != nil {
		return user.Profile{}, err
	}
	return profile, nil
}

// SignOut revokes the session. Tokens of a revoked session no longer resolve.
func (s *Service) SignOut(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errs.NewError(errs.ErrUnauthorized)
	}

	if err := s.deps.Sessions.Revoke(ctx, sess.ID); err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to revoke session.")
		return errs.NewError(errs.ErrAuthUnavailable)
	}

	s.logger.Info().Str("identity_id", sess.Identity.ID).Str("session_id", sess.ID).Msg("Session revoked.")
	return nil
}

// Resolve turns a session token back into the live Session it belongs to.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	payload, err := jwt.ParseToken(token, s.cfg.JWTSecret, s.cfg.Issuer)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	live, err := s.deps.Sessions.Exists(ctx, payload.SessionID())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to check session allow-list.")
		return nil, errs.NewError(errs.ErrAuthUnavailable)
	}
	if !live {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	return &Session{
		ID: payload.SessionID(),
		Identity: user.Identity{
			ID:          payload.ID,
			Email:       payload.Email,
			DisplayName: payload.DisplayName,
			AvatarURL:   payload.Avatar,
		},
		Token:     token,
		ExpiresAt: time.Unix(payload.ExpiresAt, 0),
	}, nil
}

func (s *Service) issueSession(ctx context.Context, id user.Identity) (*Session, error) {
	sessionID, err := randx.SessionID()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate session id.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	token, expiresAt, err := jwt.GenerateToken(&jwt.Payload{
		ID:          id.ID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Avatar:      id.AvatarURL,
	}, sessionID, s.cfg.JWTSecret, s.cfg.Issuer, s.cfg.SessionTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign session token.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	if err := s.deps.Sessions.Store(ctx, sessionID, id.ID, s.cfg.SessionTTL); err != nil {
		s.logger.Error().Err(err).Msg("Failed to store session.")
		return nil, errs.NewError(errs.ErrAuthUnavailable)
	}

	return &Session{
		ID:        sessionID,
		Identity:  id,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) record(method string, err error) {
	if s.deps.Recorder != nil {
		s.deps.Recorder.AuthAttempt(method, err)
	}
}

// validationError maps the first failing field to its error code.
func validationError(err error) *errs.CustomError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	switch fieldErrs[0].Field() {
	case "Email":
		return errs.NewError(errs.ErrInvalidEmail)
	case "Password":
		return errs.NewError(errs.ErrInvalidPassword)
	case "DisplayName":
		return errs.NewError(errs.ErrInvalidDisplayName)
	default:
		return errs.NewError(errs.ErrInvalidParams)
	}
}
