package testutil

import (
	"net/http"
	"time"

	"kiosk/pkg/requestcontext"
)

// FixedTime stands in for the request time middleware. now is read on every
// request, so a test can move the clock between calls.
func FixedTime(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), now())))
		})
	}
}
