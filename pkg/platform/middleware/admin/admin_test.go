package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"sahayak/pkg/testutil"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		expected string
		header   string
		status   int
	}{
		{name: "matching token", expected: "s3cret", header: "s3cret", status: http.StatusNoContent},
		{name: "wrong token", expected: "s3cret", header: "guess", status: http.StatusUnauthorized},
		{name: "missing token", expected: "s3cret", status: http.StatusUnauthorized},
		{name: "unconfigured token rejects everything", expected: "", header: "", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/admin/schemes", nil)
			if tt.header != "" {
				req.Header.Set(Header, tt.header)
			}
			rr := testutil.DoRequest(RequireAdminToken(tt.expected, logger)(next), req)
			if tt.status == http.StatusUnauthorized {
				testutil.AssertStatusAndError(t, rr, tt.status, "unauthorized")
				return
			}
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
		})
	}
}
