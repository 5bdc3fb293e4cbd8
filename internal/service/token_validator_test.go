package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduler/internal/models"
	appErrors "github.com/noah-isme/class-scheduler/pkg/errors"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims, method jwt.SigningMethod) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func adminClaims(issuer string, expires time.Time) *models.JWTClaims {
	return &models.JWTClaims{
		UserID: "admin-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
}

func TestTokenValidatorAcceptsValidToken(t *testing.T) {
	v := NewTokenValidator("secret", "portal")
	token := signToken(t, "secret", adminClaims("portal", time.Now().Add(time.Hour)), jwt.SigningMethodHS256)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestTokenValidatorRejectsBadTokens(t *testing.T) {
	v := NewTokenValidator("secret", "portal")
	cases := map[string]string{
		"expired":      signToken(t, "secret", adminClaims("portal", time.Now().Add(-time.Hour)), jwt.SigningMethodHS256),
		"wrong secret": signToken(t, "other", adminClaims("portal", time.Now().Add(time.Hour)), jwt.SigningMethodHS256),
		"wrong issuer": signToken(t, "secret", adminClaims("elsewhere", time.Now().Add(time.Hour)), jwt.SigningMethodHS256),
		"wrong alg":    signToken(t, "secret", adminClaims("portal", time.Now().Add(time.Hour)), jwt.SigningMethodHS512),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateToken(token)
			assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
		})
	}
}
