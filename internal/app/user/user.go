/*
Package user contains the data structures shared by the identity, profile and
feed layers: the authenticated Identity, the Profile record and the Account
that backs a login.
*/
package user

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// ProviderPassword marks accounts that sign in with email and password.
const ProviderPassword = "password"

var (
	// ErrNotFound is returned by stores when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAccountExists is returned when an account with the same email or
	// federated subject is already registered.
	ErrAccountExists = errors.New("account already exists")

	// ErrProfileExists is returned when a profile record for the identity already exists.
	ErrProfileExists = errors.New("profile already exists")

	// ErrUnknownSender is returned when a message references an identity without a profile.
	ErrUnknownSender = errors.New("sender has no profile")
)

// Identity is the authenticated participant as seen by the feed and the pages.
// Fields use JSON tags for serialization in API responses.
type Identity struct {
	// ID is the unique identifier of the account.
	ID string `json:"id"`

	// Email is the login email, possibly empty for federated accounts.
	Email string `json:"email"`

	// DisplayName is the name shown next to messages.
	DisplayName string `json:"displayName"`

	// AvatarURL is the public URL of the profile picture, empty when none was uploaded.
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Profile is the profile record stored once per identity at sign-up.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
	CreatedAt   time.Time
}

// Identity projects the profile to the identity shown to clients.
func (p Profile) Identity() Identity {
	return Identity{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
	}
}

// Account is the credential record behind an identity. Password accounts have
// Provider "password" and a bcrypt PasswordHash; federated accounts carry the
// provider name and the provider's subject id.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Provider     string
	Subject      string
	CreatedAt    time.Time
}

// FallbackLetter returns the first letter of name, uppercased, or "?" for an empty name.
func FallbackLetter(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return strings.ToUpper(string(r))
}
