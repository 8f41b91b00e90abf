package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"
	"LeadDesk/internal/lib/validate"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the fields read from tokens issued by the hosted auth provider.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Service verifies HS256 access tokens; it never issues them.
type Service struct {
	secret []byte
	log    *slog.Logger
}

func NewAuthService(secret string, logger *slog.Logger) *Service {
	return &Service{
		secret: []byte(secret),
		log:    logger.With(sl.Module("auth-service")),
	}
}

func (s *Service) parse(token string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AuthenticateByToken returns the user a bearer token belongs to. The
// username is the subject; the email is carried along when present.
func (s *Service) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	user := &entity.UserAuth{
		Username: claims.Subject,
		Email:    claims.Email,
		Token:    token,
	}
	if err = validate.Struct(user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return user, nil
}

// ValidateToken is the websocket variant, returning only the username.
func (s *Service) ValidateToken(token string) (string, error) {
	user, err := s.AuthenticateByToken(token)
	if err != nil {
		s.log.With(sl.Err(err)).Debug("websocket token rejected")
		return "", err
	}
	return user.Username, nil
}
