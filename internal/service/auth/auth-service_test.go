package auth

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "super-secret-jwt-token-with-at-least-32-characters"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() Claims {
	return Claims{
		Email: "corretor@imoveis.com.br",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "6f1c1c2e-9d7b-4c55-a6e4-3c0f1d9c2a11",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func newService() *Service {
	return NewAuthService(secret, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAuthenticateByToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())

	user, err := newService().AuthenticateByToken(token)
	require.NoError(t, err)
	assert.Equal(t, "6f1c1c2e-9d7b-4c55-a6e4-3c0f1d9c2a11", user.Username)
	assert.Equal(t, "corretor@imoveis.com.br", user.Email)
	assert.Equal(t, token, user.Token)
}

func TestAuthenticateByToken_Rejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: sign(t, jwt.SigningMethodHS256, []byte("other-secret"), validClaims())},
		{name: "expired", token: sign(t, jwt.SigningMethodHS256, []byte(secret), expired)},
		{name: "no expiry", token: sign(t, jwt.SigningMethodHS256, []byte(secret), noExpiry)},
		{name: "no subject", token: sign(t, jwt.SigningMethodHS256, []byte(secret), noSubject)},
		{name: "hs512", token: sign(t, jwt.SigningMethodHS512, []byte(secret), validClaims())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService().AuthenticateByToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidateToken_NoSecret(t *testing.T) {
	s := NewAuthService("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims())

	_, err := s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
