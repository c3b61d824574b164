package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kiosk/pkg/domain-errors"
)

func TestTokenService(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tokens := NewTokenService("test-signing-key", "kiosk", "kiosk-admin", WithTokenClock(clock), WithTokenTTL(time.Hour))

	t.Run("issued token validates", func(t *testing.T) {
		token, issued, err := tokens.Issue("admin")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := tokens.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, issued.ID, claims.ID)
		assert.True(t, now.Add(time.Hour).Equal(claims.ExpiresAt.Time))
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := tokens.Validate("invalid-token-string")
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
	})

	t.Run("expired token", func(t *testing.T) {
		token, _, err := tokens.Issue("admin")
		require.NoError(t, err)

		later := NewTokenService("test-signing-key", "kiosk", "kiosk-admin",
			WithTokenClock(func() time.Time { return now.Add(2 * time.Hour) }))
		_, err = later.Validate(token)
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
	})

	t.Run("other signing key", func(t *testing.T) {
		other := NewTokenService("another-key", "kiosk", "kiosk-admin", WithTokenClock(clock))
		token, _, err := other.Issue("admin")
		require.NoError(t, err)

		_, err = tokens.Validate(token)
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
	})

	t.Run("other audience", func(t *testing.T) {
		other := NewTokenService("test-signing-key", "kiosk", "someone-else", WithTokenClock(clock))
		token, _, err := other.Issue("admin")
		require.NoError(t, err)

		_, err = tokens.Validate(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
