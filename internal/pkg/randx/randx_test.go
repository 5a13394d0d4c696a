package randx

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserNickname(t *testing.T) {
	name, err := UserNickname()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, NicknamePrefix))
	assert.Len(t, name, len(NicknamePrefix)+nicknameRandomLength)
	assert.True(t, IsBase62(strings.TrimPrefix(name, NicknamePrefix)))
}

func TestSessionIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		id, err := SessionID()
		require.NoError(t, err)
		require.Len(t, id, SessionIDLength)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestNewIDIsUUID(t *testing.T) {
	_, err := uuid.Parse(NewID())
	assert.NoError(t, err)
}

func TestAvatarKey(t *testing.T) {
	assert.Equal(t, "profile_pictures/abc.png", AvatarKey("abc", ".PNG"))
}

func TestIsBase62(t *testing.T) {
	assert.True(t, IsBase62("aZ09"))
	assert.False(t, IsBase62(""))
	assert.False(t, IsBase62("a-b"))
}
