package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"sahayak/pkg/domain"
	"sahayak/pkg/requestcontext"
	"sahayak/pkg/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

func TestRequireOwner(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	owner := domain.OwnerID(uuid.New())

	var seenOwner domain.OwnerID
	var seenLanguage string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOwner = requestcontext.OwnerID(r.Context())
		seenLanguage = requestcontext.Language(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name         string
		header       string
		language     string
		validator    stubValidator
		wantStatus   int
		wantLanguage string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "blank token", header: "Bearer   ", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", validator: stubValidator{err: errors.New("expired")}, wantStatus: http.StatusUnauthorized},
		{name: "malformed owner claim", header: "Bearer ok", validator: stubValidator{claims: &JWTClaims{OwnerID: "not-a-uuid"}}, wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer ok", validator: stubValidator{claims: &JWTClaims{OwnerID: owner.String()}}, wantStatus: http.StatusNoContent},
		{
			name:         "token language fills a missing preference",
			header:       "Bearer ok",
			validator:    stubValidator{claims: &JWTClaims{OwnerID: owner.String(), Language: "kn"}},
			wantStatus:   http.StatusNoContent,
			wantLanguage: "kn",
		},
		{
			name:         "request language wins over the token",
			header:       "Bearer ok",
			language:     "hi",
			validator:    stubValidator{claims: &JWTClaims{OwnerID: owner.String(), Language: "kn"}},
			wantStatus:   http.StatusNoContent,
			wantLanguage: "hi",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenOwner, seenLanguage = domain.OwnerID{}, ""
			req := httptest.NewRequest(http.MethodGet, "/applications", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.language != "" {
				req = req.WithContext(requestcontext.WithLanguage(req.Context(), tt.language))
			}
			rr := testutil.DoRequest(RequireOwner(tt.validator, logger)(next), req)

			if tt.wantStatus == http.StatusUnauthorized {
				testutil.AssertStatusAndError(t, rr, tt.wantStatus, "unauthorized")
				assert.True(t, seenOwner.IsNil())
				return
			}
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, owner, seenOwner)
			assert.Equal(t, tt.wantLanguage, seenLanguage)
		})
	}
}
