package pow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solve(t *testing.T, nonce string, difficulty int) string {
	t.Helper()
	for i := 0; i < 1_000_000; i++ {
		counter := strconv.Itoa(i)
		if Satisfies(nonce, counter, difficulty) {
			return counter
		}
	}
	t.Fatalf("no solution found for nonce %s", nonce)
	return ""
}

func TestChallengeRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewPoWManager(ctx, 2)
	require.True(t, m.Enabled())

	ch := m.NewChallenge()
	assert.Equal(t, 2, ch.Difficulty)

	token, err := m.ValidateProof(ch.Nonce, solve(t, ch.Nonce, 2))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	t.Run("nonce is single use", func(t *testing.T) {
		_, err := m.ValidateProof(ch.Nonce, solve(t, ch.Nonce, 2))
		assert.ErrorIs(t, err, ErrNonceInvalid)
	})

	t.Run("token is accepted once", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/signup", nil)
		r.Header.Set(TokenHeaderKey, token)
		assert.True(t, m.ConsumeProofToken(r))
		assert.False(t, m.ConsumeProofToken(r))
	})
}

func TestValidateProofRejectsWrongCounter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewPoWManager(ctx, 4)
	ch := m.NewChallenge()

	counter := "0"
	for Satisfies(ch.Nonce, counter, 4) {
		counter += "0"
	}

	_, err := m.ValidateProof(ch.Nonce, counter)
	assert.ErrorIs(t, err, ErrProofInsufficient)
}

func TestExpiredEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewPoWManager(ctx, 1)
	base := time.Now()
	m.now = func() time.Time { return base }

	ch := m.NewChallenge()
	m.now = func() time.Time { return base.Add(NonceExpiryDuration + time.Second) }

	_, err := m.ValidateProof(ch.Nonce, solve(t, ch.Nonce, 1))
	assert.ErrorIs(t, err, ErrNonceInvalid)

	m.NewChallenge()
	m.now = func() time.Time { return base.Add(2 * (NonceExpiryDuration + time.Second)) }
	m.removeExpired()
	assert.Empty(t, m.nonceStore)
}

func TestDisabledWhenDifficultyZero(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.False(t, NewPoWManager(ctx, 0).Enabled())

	var m *PoWManager
	assert.False(t, m.Enabled())
}
