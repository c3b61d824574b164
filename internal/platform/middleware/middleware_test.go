package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"kiosk/internal/admin"
	"kiosk/internal/platform/metrics"
	dErrors "kiosk/pkg/domain-errors"
	"kiosk/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("generated when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("incoming id is kept", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, "req-42", seen)
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "internal_error", body["error"])
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	r := httptest.NewRequest(http.MethodPost, "/kiosk/sessions", nil)
	r = r.WithContext(requestcontext.WithClientMetadata(r.Context(), "10.0.0.9", "curl/8.0"))
	h.ServeHTTP(httptest.NewRecorder(), r)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "/kiosk/sessions", line["path"])
	assert.Equal(t, "10.0.0.9", line["client_ip"])
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	h := Timeout(time.Second)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		deadline, _ = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{"json", "application/json; charset=utf-8", `{}`, http.StatusNoContent},
		{"form", "application/x-www-form-urlencoded", `a=b`, http.StatusUnsupportedMediaType},
		{"no body", "text/plain", ``, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			r.Header.Set("Content-Type", tc.contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestLatencyUsesRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(Latency(m))
	r.Get("/kiosk/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/kiosk/sessions/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/kiosk/sessions/def", nil))

	assert.Equal(t, 1, promtest.CollectAndCount(m.HTTPLatency))
}

func TestClientMiddleware(t *testing.T) {
	var ctx context.Context
	h := ClientMetadata(Device(TerminalID(RequestTime(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	})))))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	r.Header.Set(TerminalHeader, " lobby-1 ")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "10.0.0.7", requestcontext.ClientIP(ctx))
	assert.Contains(t, requestcontext.UserAgent(ctx), "Gecko/20100101")
	assert.Contains(t, requestcontext.Device(ctx), "Firefox")
	assert.Equal(t, "lobby-1", requestcontext.TerminalID(ctx))
	assert.WithinDuration(t, time.Now(), requestcontext.Now(ctx), time.Second)
}

func TestClientIPFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientIPFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", " 198.51.100.2 ")
	assert.Equal(t, "198.51.100.2", ClientIPFromRequest(r))
}

type DeviceSuite struct {
	suite.Suite
}

func TestDeviceSuite(t *testing.T) {
	suite.Run(t, new(DeviceSuite))
}

func (s *DeviceSuite) TestParseUserAgent() {
	s.Run("empty user agent returns unknown device", func() {
		s.Equal("Unknown Device", ParseUserAgent(""))
	})

	s.Run("chrome on desktop includes browser and OS", func() {
		result := ParseUserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		s.Contains(result, "Chrome")
		s.Contains(result, " on ")
		s.NotContains(result, "  ")
	})

	s.Run("safari on iphone includes platform", func() {
		result := ParseUserAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
		s.Contains(result, "iPhone")
	})

	s.Run("result has no surrounding whitespace", func() {
		result := ParseUserAgent("Unknown/1.0")
		s.Equal(strings.TrimSpace(result), result)
		s.NotEmpty(result)
	})
}

type stubAuthenticator struct {
	session *admin.Session
	err     error
	got     string
}

func (a *stubAuthenticator) Authenticate(_ context.Context, token string) (*admin.Session, error) {
	a.got = token
	return a.session, a.err
}

func TestRequireAdmin(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := admin.SessionFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("X-Admin", session.Username)
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		auth   *stubAuthenticator
		status int
	}{
		{"missing header", "", &stubAuthenticator{}, http.StatusUnauthorized},
		{"not bearer", "Basic abc", &stubAuthenticator{}, http.StatusUnauthorized},
		{"rejected token", "Bearer bad", &stubAuthenticator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}, http.StatusUnauthorized},
		{"revocation store down", "Bearer tok", &stubAuthenticator{err: dErrors.Wrap(errors.New("down"), dErrors.CodeInternal, "failed")}, http.StatusInternalServerError},
		{"valid token", "Bearer tok", &stubAuthenticator{session: &admin.Session{Username: "admin", Token: "tok"}}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			RequireAdmin(tc.auth, discardLogger())(okHandler).ServeHTTP(w, r)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "admin", w.Header().Get("X-Admin"))
				assert.Equal(t, "tok", tc.auth.got)
			}
		})
	}
}
