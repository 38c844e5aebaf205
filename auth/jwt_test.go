package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateRoundTrip(t *testing.T) {
	issuer := NewIssuer([]byte("test-secret"), time.Hour)
	userID := uuid.New()

	token, expiresAt, err := issuer.Issue(userID, "Minerva")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Second)

	gotID, nickname, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, "Minerva", nickname)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewIssuer([]byte("secret-a"), time.Hour)
	token, _, err := issuer.Issue(uuid.New(), "Minerva")
	require.NoError(t, err)

	other := NewIssuer([]byte("secret-b"), time.Hour)
	_, _, err = other.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	// NewIssuer replaces a non-positive TTL with its default, so an
	// expired token is signed directly here.
	signer := NewIssuer([]byte("test-secret"), time.Hour)
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Nickname: "Minerva",
	})
	token, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, _, err = signer.Validate(token)
	assert.Error(t, err)
}
