package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-transcript-api/internal/models"
	appErrors "github.com/noah-isme/sma-transcript-api/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func staffClaims(role models.UserRole, issuer string, expires time.Time) models.JWTClaims {
	return models.JWTClaims{
		UserID: "user-1",
		Role:   role,
		Email:  "staff@school.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService("secret", "identity")
	token := signToken(t, jwt.SigningMethodHS256, "secret", staffClaims(models.RoleStaff, "identity", time.Now().Add(time.Hour)))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
}

func TestTokenServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewTokenService("secret", "identity")
	future := time.Now().Add(time.Hour)

	cases := map[string]string{
		"wrong secret":  signToken(t, jwt.SigningMethodHS256, "other", staffClaims(models.RoleStaff, "identity", future)),
		"expired":       signToken(t, jwt.SigningMethodHS256, "secret", staffClaims(models.RoleStaff, "identity", time.Now().Add(-time.Hour))),
		"wrong issuer":  signToken(t, jwt.SigningMethodHS256, "secret", staffClaims(models.RoleStaff, "elsewhere", future)),
		"wrong method":  signToken(t, jwt.SigningMethodHS512, "secret", staffClaims(models.RoleStaff, "identity", future)),
		"garbage token": "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
		})
	}
}

func TestTokenServiceRejectsUnknownRole(t *testing.T) {
	svc := NewTokenService("secret", "")
	token := signToken(t, jwt.SigningMethodHS256, "secret", staffClaims(models.UserRole("STUDENT"), "", time.Now().Add(time.Hour)))

	_, err := svc.ValidateToken(token)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
