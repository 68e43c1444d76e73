package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// requestIdentity is planted in the context by Logger and filled in by
// Authenticate further down the chain, so the access log can attribute
// the request to an API key without a second lookup.
type requestIdentity struct {
	keyPrefix string
	tenantID  string
}

const requestIdentityKey contextKey = "request_identity"

func recordIdentity(ctx context.Context, keyPrefix, tenantID string) {
	if ident, ok := ctx.Value(requestIdentityKey).(*requestIdentity); ok {
		ident.keyPrefix = keyPrefix
		ident.tenantID = tenantID
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Logger emits one structured access-log line per request, including the
// authenticated key prefix and tenant when auth succeeded.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		ident := &requestIdentity{}
		r = r.WithContext(context.WithValue(r.Context(), requestIdentityKey, ident))

		next.ServeHTTP(rec, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if ident.keyPrefix != "" {
			attrs = append(attrs, "key_prefix", ident.keyPrefix, "tenant_id", ident.tenantID)
		}
		slog.Info("request", attrs...)
	})
}
