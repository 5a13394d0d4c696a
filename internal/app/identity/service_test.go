package identity

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chatroom/internal/app/memstore"
	"chatroom/internal/app/user"
	"chatroom/internal/pkg/errs"
)

const testSecret = "test-secret"

var pngHeader = []byte("\x89PNG\x0D\x0A\x1A\x0A\x00\x00\x00\x0DIHDR")

// failingProfiles rejects every profile write.
type failingProfiles struct {
	*memstore.Store
}

func (failingProfiles) CreateProfile(context.Context, user.Profile) error {
	return errors.New("document store unavailable")
}

type failingObjects struct {
	*memstore.Objects
}

func (failingObjects) Upload(context.Context, string, string, io.Reader) error {
	return errors.New("bucket unavailable")
}

type fakeRecorder struct {
	attempts map[string]int
}

func (r *fakeRecorder) AuthAttempt(method string, err error) {
	if r.attempts == nil {
		r.attempts = make(map[string]int)
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.attempts[method+":"+result]++
}

type fixture struct {
	svc      *Service
	store    *memstore.Store
	objects  *memstore.Objects
	sessions SessionStore
	recorder *fakeRecorder
}

func newFixture(t *testing.T, mutate func(*Deps)) fixture {
	t.Helper()

	f := fixture{
		store:    memstore.New(),
		objects:  memstore.NewObjects("http://localhost/avatars"),
		sessions: NewMemorySessionStore(),
		recorder: &fakeRecorder{},
	}
	deps := Deps{
		Accounts: f.store,
		Profiles: f.store,
		Objects:  f.objects,
		Sessions: f.sessions,
		Recorder: f.recorder,
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.svc = NewService(Config{JWTSecret: testSecret, Issuer: "test-project", SessionTTL: time.Hour}, deps)
	return f
}

func signUpInput(email string) SignUpInput {
	return SignUpInput{Email: email, Password: "secret1", DisplayName: "alice"}
}

func TestSignUpThenSignInYieldsSameIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	up, err := f.svc.SignUp(ctx, signUpInput("a@x.com"))
	require.NoError(t, err)
	require.NotEmpty(t, up.Identity.ID)
	assert.Equal(t, "alice", up.Identity.DisplayName)
	assert.Equal(t, "a@x.com", up.Identity.Email)

	in, err := f.svc.SignIn(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, up.Identity.ID, in.Identity.ID)
	assert.NotEqual(t, up.ID, in.ID)

	assert.Equal(t, 1, f.recorder.attempts["signup:ok"])
	assert.Equal(t, 1, f.recorder.attempts["login:ok"])
}

func TestSignUpValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	cases := []struct {
		name     string
		in       SignUpInput
		wantCode int
	}{
		{"bad email", SignUpInput{Email: "not-an-email", Password: "secret1", DisplayName: "alice"}, errs.ErrInvalidEmail},
		{"short password", SignUpInput{Email: "a@x.com", Password: "12345", DisplayName: "alice"}, errs.ErrInvalidPassword},
		{"blank display name", SignUpInput{Email: "a@x.com", Password: "secret1", DisplayName: "   "}, errs.ErrInvalidDisplayName},
		{"long display name", SignUpInput{Email: "a@x.com", Password: "secret1", DisplayName: string(bytes.Repeat([]byte("n"), 41))}, errs.ErrInvalidDisplayName},
		{"avatar wrong type", SignUpInput{
			Email: "a@x.com", Password: "secret1", DisplayName: "alice",
			Avatar: &user.AvatarUpload{FileName: "me.txt", ContentType: "text/plain", Size: 5, Body: bytes.NewReader([]byte("hello"))},
		}, errs.ErrFileTypeInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := tc.in
			err := f.svc.ValidateSignUp(&in)
			require.Error(t, err)
			assert.True(t, errs.HasCode(err, tc.wantCode), "got %v", err)

			_, err = f.svc.SignUp(ctx, tc.in)
			require.Error(t, err)
			assert.True(t, errs.HasCode(err, tc.wantCode), "got %v", err)
		})
	}

	_, err := f.store.AccountByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestValidateSignUpTrimsAndWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	in := SignUpInput{Email: "  a@x.com ", Password: "secret1", DisplayName: " alice "}
	require.NoError(t, f.svc.ValidateSignUp(&in))
	assert.Equal(t, "a@x.com", in.Email)
	assert.Equal(t, "alice", in.DisplayName)

	_, err := f.store.AccountByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.SignUp(ctx, signUpInput("a@x.com"))
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, signUpInput("A@x.com"))
	assert.True(t, errs.HasCode(err, errs.ErrUserAlreadyExists))
}

func TestSignUpStoresAvatar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	in := signUpInput("a@x.com")
	in.Avatar = &user.AvatarUpload{FileName: "me.png", ContentType: "image/png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}

	sess, err := f.svc.SignUp(ctx, in)
	require.NoError(t, err)

	key := "profile_pictures/" + sess.Identity.ID + ".png"
	assert.Equal(t, "http://localhost/avatars/"+key, sess.Identity.AvatarURL)

	obj, ok := f.objects.Get(key)
	require.True(t, ok)
	assert.Equal(t, pngHeader, obj.Data)
}

func TestSignUpRollsBackWhenProfileWriteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(d *Deps) {
		d.Profiles = failingProfiles{Store: d.Accounts.(*memstore.Store)}
	})

	in := signUpInput("a@x.com")
	in.Avatar = &user.AvatarUpload{FileName: "me.png", ContentType: "image/png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}

	_, err := f.svc.SignUp(ctx, in)
	assert.True(t, errs.HasCode(err, errs.ErrProfileWriteFailed))

	_, err = f.store.AccountByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, user.ErrNotFound, "account must be removed")
	assert.Zero(t, f.objects.Len(), "avatar must be removed")
	assert.Equal(t, 1, f.recorder.attempts["signup:error"])
}

func TestSignUpRollsBackWhenAvatarUploadFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(d *Deps) {
		d.Objects = failingObjects{Objects: d.Objects.(*memstore.Objects)}
	})

	in := signUpInput("a@x.com")
	in.Avatar = &user.AvatarUpload{FileName: "me.png", ContentType: "image/png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}

	_, err := f.svc.SignUp(ctx, in)
	assert.True(t, errs.HasCode(err, errs.ErrFileStorageFailed))

	_, err = f.store.AccountByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestSignUpWithoutObjectStoreIgnoresAvatar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(d *Deps) { d.Objects = nil })

	in := signUpInput("a@x.com")
	in.Avatar = &user.AvatarUpload{FileName: "me.png", ContentType: "image/png", Size: int64(len(pngHeader)), Body: bytes.NewReader(pngHeader)}

	sess, err := f.svc.SignUp(ctx, in)
	require.NoError(t, err)
	assert.Empty(t, sess.Identity.AvatarURL)
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.SignUp(ctx, signUpInput("a@x.com"))
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.SignIn(ctx, "a@x.com", "wrong-password")
		assert.True(t, errs.HasCode(err, errs.ErrInvalidCredentials))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.svc.SignIn(ctx, "b@x.com", "secret1")
		assert.True(t, errs.HasCode(err, errs.ErrInvalidCredentials))
	})

	t.Run("account without profile", func(t *testing.T) {
		require.NoError(t, f.store.CreateAccount(ctx, user.Account{
			ID:           "orphan",
			Email:        "orphan@x.com",
			PasswordHash: mustHash(t, "secret1"),
			Provider:     user.ProviderPassword,
		}))

		_, err := f.svc.SignIn(ctx, "orphan@x.com", "secret1")
		require.Error(t, err)
		assert.True(t, errs.HasCode(err, errs.ErrProfileNotFound))
		assert.Equal(t, "No user data found.", errs.From(err).Message)
	})
}

func TestResolveAndSignOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sess, err := f.svc.SignUp(ctx, signUpInput("a@x.com"))
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, resolved.ID)
	assert.Equal(t, sess.Identity, resolved.Identity)

	require.NoError(t, f.svc.SignOut(ctx, resolved))

	_, err = f.svc.Resolve(ctx, sess.Token)
	assert.True(t, errs.HasCode(err, errs.ErrUnauthorized))

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.svc.Resolve(ctx, "garbage")
		assert.True(t, errs.HasCode(err, errs.ErrUnauthorized))
	})

	t.Run("sign out without session", func(t *testing.T) {
		assert.True(t, errs.HasCode(f.svc.SignOut(ctx, nil), errs.ErrUnauthorized))
	})
}

func TestSessionContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	sess := &Session{ID: "sid", Identity: user.Identity{ID: "u1"}}
	got, ok := FromContext(WithSession(context.Background(), sess))
	require.True(t, ok)
	assert.Same(t, sess, got)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}
