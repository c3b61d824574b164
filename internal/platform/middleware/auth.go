package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"kiosk/internal/admin"
	dErrors "kiosk/pkg/domain-errors"
	"kiosk/pkg/platform/httputil"
	"kiosk/pkg/requestcontext"
)

// Authenticator resolves a bearer token into an admin session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*admin.Session, error)
}

// RequireAdmin rejects requests without a valid admin bearer token and attaches the
// admin.Session to the context otherwise.
func RequireAdmin(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			session, err := auth.Authenticate(ctx, strings.TrimSpace(token))
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"request_id", requestID,
						"error", err,
					)
				} else {
					logger.ErrorContext(ctx, "failed to authenticate admin token",
						"request_id", requestID,
						"error", err,
					)
				}
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(admin.WithSession(ctx, session)))
		})
	}
}
