// Package jwttoken issues and verifies the HS256 bearer tokens citizens
// present to the owner-scoped routes.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/middleware/auth"
)

// Claims mirror the owner id into sub so generic JWT tooling can read it.
type Claims struct {
	OwnerID  string `json:"owner_id"`
	Language string `json:"lang,omitempty"`
	jwt.RegisteredClaims
}

type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// TokenOption adds optional claims to an issued token.
type TokenOption func(*Claims)

// WithLanguage records the citizen's preferred conversation language.
func WithLanguage(lang string) TokenOption {
	return func(c *Claims) {
		c.Language = lang
	}
}

func (s *JWTService) GenerateAccessToken(owner domain.OwnerID, ttl time.Duration, opts ...TokenOption) (string, error) {
	now := s.now()
	claims := Claims{
		OwnerID: owner.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	for _, opt := range opts {
		opt(&claims)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// ParseClaims verifies signature, issuer, audience and expiry. Every failure
// is an unauthorized domain error.
func (s *JWTService) ParseClaims(token string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, s.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "token has expired")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	if claims.OwnerID == "" {
		claims.OwnerID = claims.Subject
	}
	return claims, nil
}

func (s *JWTService) key(*jwt.Token) (any, error) { return s.signingKey, nil }

// ValidateToken satisfies auth.JWTValidator.
func (s *JWTService) ValidateToken(token string) (*auth.JWTClaims, error) {
	claims, err := s.ParseClaims(token)
	if err != nil {
		return nil, err
	}
	return &auth.JWTClaims{OwnerID: claims.OwnerID, Language: claims.Language, TokenID: claims.ID}, nil
}
