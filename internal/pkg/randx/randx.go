/*
Package randx provides cryptographically secure random identifiers: Base62
strings for nicknames and session ids, and UUIDs for records.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// SessionIDLength is the length of a session identifier (about 143 bits of entropy).
	SessionIDLength = 24

	// NicknamePrefix prefixes generated display names.
	NicknamePrefix = "User_"

	nicknameRandomLength = 6
)

// Base62 returns a random Base62 string of length n.
func Base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// SessionID generates the jti of a session token.
func SessionID() (string, error) {
	return Base62(SessionIDLength)
}

// UserNickname generates a random nickname with a "User_" prefix and 6 random Base62 characters.
func UserNickname() (string, error) {
	suffix, err := Base62(nicknameRandomLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate nickname: %w", err)
	}
	return NicknamePrefix + suffix, nil
}

// NewID generates a UUID v4 string used for identities and messages.
func NewID() string {
	return uuid.New().String()
}

// AvatarKey is the object key of a profile picture.
func AvatarKey(identityID, ext string) string {
	return "profile_pictures/" + identityID + strings.ToLower(ext)
}

// IsBase62 reports whether s is non-empty and only uses Base62 characters.
func IsBase62(s string) bool {
	if s == "" {
		return false
	}
	for _, char := range s {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}
	return true
}
