// Package admin guards the catalog publication routes with a shared token.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/httputil"
	"sahayak/pkg/platform/middleware/metadata"
	"sahayak/pkg/requestcontext"
)

// Header carries the admin token.
const Header = "X-Admin-Token"

// RequireAdminToken admits requests whose X-Admin-Token equals expected.
// An empty expected token rejects everything.
func RequireAdminToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	want := []byte(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(Header))
			if len(want) > 0 && subtle.ConstantTimeCompare(got, want) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			logger.WarnContext(ctx, "admin request rejected",
				"token_present", len(got) > 0,
				"client_ip", metadata.GetClientIP(ctx),
				"path", r.URL.Path,
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
		})
	}
}
