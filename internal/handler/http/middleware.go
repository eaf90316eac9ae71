package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SIACAML/cooqu-order/internal/auth"
	"github.com/SIACAML/cooqu-order/pkg/httputil"
	"github.com/SIACAML/cooqu-order/pkg/logger"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// sessionIDKey is the context key for the request's session ID.
const sessionIDKey contextKey = "session_id"

// SessionCookie resolves the request's session ID from the signed cookie,
// minting a fresh session (and setting the cookie) when the cookie is
// absent, malformed, or expired. Every request downstream of this middleware
// has a session ID in context, and the request-scoped logger carries it as
// session_id.
func SessionCookie(cookies *auth.CookieManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, err := cookies.SessionID(r)
			if err != nil {
				var cookie *http.Cookie
				sid, cookie, err = cookies.Mint()
				if err != nil {
					log.ErrorContext(r.Context(), "mint session cookie",
						slog.String("error", err.Error()))
					httputil.WriteError(w, r, err, log)
					return
				}
				http.SetCookie(w, cookie)
			}

			ctx := logger.WithSessionID(r.Context(), sid)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(
				slog.String("session_id", sid),
			))
			ctx = context.WithValue(ctx, sessionIDKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionIDFromContext extracts the session ID set by SessionCookie.
func sessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionIDKey).(string)
	return sid, ok && sid != ""
}

// ContentTypeJSON enforces that requests with a JSON body declare it.
// Multipart endpoints are mounted outside this middleware.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// CORS allows the configured browser origins to call the API with the
// session cookie attached.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowed[origin] || allowed["*"]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Correlation-ID")
				w.Header().Set("Access-Control-Max-Age", "300")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
