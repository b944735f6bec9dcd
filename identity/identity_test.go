package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskpond/realtime/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	p := identity.Static("u1")
	id, ok := p.Identity()
	assert.True(t, ok)
	assert.Equal(t, "u1", id)

	p.Clear()
	_, ok = p.Identity()
	assert.False(t, ok)
}

func TestOnChange(t *testing.T) {
	p := identity.Static("")
	var gotID string
	var gotOK bool
	cancel := p.OnChange(func(id string, ok bool) { gotID, gotOK = id, ok })

	p.Set("u2")
	assert.Equal(t, "u2", gotID)
	assert.True(t, gotOK)

	p.Clear()
	assert.False(t, gotOK)

	// No notification for a no-op change.
	gotID = "sentinel"
	p.Clear()
	assert.Equal(t, "sentinel", gotID)

	cancel()
	p.Set("u3")
	assert.Equal(t, "sentinel", gotID)
	assert.NotPanics(t, cancel)
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestFromTokenUserIDClaim(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"userId": "u42",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	id, err := identity.FromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u42", id)
}

func TestFromTokenSubjectFallback(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "u7"})
	id, err := identity.FromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u7", id)
}

func TestFromTokenNoSubject(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"role": "client"})
	_, err := identity.FromToken(token)
	assert.ErrorIs(t, err, identity.ErrNoSubject)
}

func TestFromTokenGarbage(t *testing.T) {
	_, err := identity.FromToken("not-a-token")
	assert.Error(t, err)
}
