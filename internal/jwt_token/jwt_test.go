package jwttoken

import (
	"testing"
	"time"

	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const key = "test-signing-key-0123456789"

func TestJWTService(t *testing.T) {
	svc := NewJWTService(key, "sahayak", "sahayak-api")
	owner := domain.OwnerID(uuid.New())

	t.Run("round trip carries owner and language", func(t *testing.T) {
		token, err := svc.GenerateAccessToken(owner, time.Hour, WithLanguage("kn"))
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, owner.String(), claims.OwnerID)
		assert.Equal(t, "kn", claims.Language)
		assert.NotEmpty(t, claims.TokenID)
	})

	t.Run("expiry is judged by the service clock", func(t *testing.T) {
		issued := time.Date(2024, time.February, 5, 9, 0, 0, 0, time.UTC)
		clocked := NewJWTService(key, "sahayak", "sahayak-api")
		clocked.now = func() time.Time { return issued }
		token, err := clocked.GenerateAccessToken(owner, time.Hour)
		require.NoError(t, err)

		clocked.now = func() time.Time { return issued.Add(59 * time.Minute) }
		_, err = clocked.ValidateToken(token)
		require.NoError(t, err)

		clocked.now = func() time.Time { return issued.Add(61 * time.Minute) }
		_, err = clocked.ValidateToken(token)
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Equal(t, "token has expired", dErrors.UserMessage(err))
	})

	rejected := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{name: "wrong key", token: func(t *testing.T) string {
			tok, err := NewJWTService("another-signing-key-987654321", "sahayak", "sahayak-api").GenerateAccessToken(owner, time.Hour)
			require.NoError(t, err)
			return tok
		}},
		{name: "wrong audience", token: func(t *testing.T) string {
			tok, err := NewJWTService(key, "sahayak", "someone-else").GenerateAccessToken(owner, time.Hour)
			require.NoError(t, err)
			return tok
		}},
		{name: "wrong issuer", token: func(t *testing.T) string {
			tok, err := NewJWTService(key, "elsewhere", "sahayak-api").GenerateAccessToken(owner, time.Hour)
			require.NoError(t, err)
			return tok
		}},
		{name: "unsigned", token: func(t *testing.T) string {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{OwnerID: owner.String()}).SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return tok
		}},
		{name: "no expiry", token: func(t *testing.T) string {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
				OwnerID:          owner.String(),
				RegisteredClaims: jwt.RegisteredClaims{Issuer: "sahayak", Audience: jwt.ClaimStrings{"sahayak-api"}},
			}).SignedString([]byte(key))
			require.NoError(t, err)
			return tok
		}},
		{name: "garbage", token: func(*testing.T) string { return "not.a.token" }},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token(t))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
}
