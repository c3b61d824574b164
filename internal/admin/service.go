// Package admin is the kiosk administration area: a stubbed single-account login,
// visitor statistics and recent kiosk activity.
//
// The admin token is never held in shared state. Login returns a Session value; the
// auth middleware rebuilds it from the bearer token on each request and handlers pass
// it explicitly to the calls that need it.
package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kiosk/internal/audit"
	"kiosk/internal/backend"
	"kiosk/internal/domain"
	dErrors "kiosk/pkg/domain-errors"
	"kiosk/pkg/requestcontext"
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

var errBadCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks StatsSource,ActivitySource,RevocationList,AuditPublisher

// StatsSource answers the visitor statistics call; backend.API satisfies it.
type StatsSource interface {
	VisitorStats(ctx context.Context, creds backend.Credentials) (*domain.VisitorStats, error)
}

// ActivitySource lists recent audit events; audit.MemorySink satisfies it.
type ActivitySource interface {
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Account is the single configured admin account.
type Account struct {
	Username     string
	PasswordHash []byte
}

// HashPassword bcrypt-hashes a plain password for an Account.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// Session is an authenticated admin context.
type Session struct {
	Username  string    `json:"username"`
	Token     string    `json:"-"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Credentials returns the upstream credentials for this session.
func (s Session) Credentials() backend.Credentials {
	return backend.Credentials{Token: s.Token}
}

type Service struct {
	account     Account
	tokens      *TokenService
	revocations RevocationList
	stats       StatsSource
	activity    ActivitySource
	audit       AuditPublisher
	logger      *slog.Logger
}

type Option func(*Service)

func WithRevocations(r RevocationList) Option {
	return func(s *Service) { s.revocations = r }
}

func WithActivity(a ActivitySource) Option {
	return func(s *Service) { s.activity = a }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(account Account, tokens *TokenService, stats StatsSource, opts ...Option) *Service {
	s := &Service{
		account: account,
		tokens:  tokens,
		stats:   stats,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks the credentials and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, dErrors.NewValidation("username and password are required", nil)
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.account.Username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(s.account.PasswordHash, []byte(password))
	if !userOK || passErr != nil {
		s.logger.WarnContext(ctx, "admin login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"username", username,
		)
		s.emit(ctx, audit.Event{Action: audit.ActionAdminLoginFailed, Actor: username})
		return nil, errBadCredentials
	}

	token, claims, err := s.tokens.Issue(s.account.Username)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue admin token")
	}

	s.logger.InfoContext(ctx, "admin logged in",
		"request_id", requestcontext.RequestID(ctx),
		"username", s.account.Username,
	)
	s.emit(ctx, audit.Event{Action: audit.ActionAdminLogin, Actor: s.account.Username})

	return &Session{
		Username:  claims.Username,
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Authenticate turns a bearer token back into a Session.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
		}
		if revoked {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
		}
	}
	return &Session{
		Username:  claims.Username,
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the session's token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, session Session) error {
	if s.revocations != nil {
		ttl := session.ExpiresAt.Sub(requestcontext.Now(ctx))
		if err := s.revocations.RevokeToken(ctx, session.TokenID, ttl); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke admin token")
		}
	}
	s.logger.InfoContext(ctx, "admin logged out",
		"request_id", requestcontext.RequestID(ctx),
		"username", session.Username,
	)
	s.emit(ctx, audit.Event{Action: audit.ActionAdminLogout, Actor: session.Username})
	return nil
}

// Stats fetches visitor statistics with the session's credentials.
func (s *Service) Stats(ctx context.Context, session Session) (*domain.VisitorStats, error) {
	stats, err := s.stats.VisitorStats(ctx, session.Credentials())
	if err != nil {
		s.logger.WarnContext(ctx, "visitor stats unavailable",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, backend.ToDomain(err)
	}
	return stats, nil
}

// Activity returns recent kiosk activity, newest first. limit is clamped to
// [1, MaxActivityLimit]; zero means DefaultActivityLimit.
func (s *Service) Activity(ctx context.Context, limit int) ([]audit.Event, error) {
	if s.activity == nil {
		return []audit.Event{}, nil
	}
	switch {
	case limit <= 0:
		limit = DefaultActivityLimit
	case limit > MaxActivityLimit:
		limit = MaxActivityLimit
	}
	events, err := s.activity.Recent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read activity")
	}
	return events, nil
}

func (s *Service) emit(ctx context.Context, e audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", requestcontext.RequestID(ctx),
			"action", e.Action,
			"error", err,
		)
	}
}

type sessionKey struct{}

// WithSession attaches an authenticated admin session to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the admin session set by the auth middleware.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
