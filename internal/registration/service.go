package registration

import (
	"context"
	"log/slog"
	"strings"

	"kiosk/internal/audit"
	"kiosk/internal/backend"
	"kiosk/internal/confirmation"
	"kiosk/internal/domain"
	"kiosk/internal/platform/metrics"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Registrar,AuditPublisher

// Registrar is the upstream call behind a submission (POST /visitors/register).
type Registrar interface {
	RegisterVisitor(ctx context.Context, in domain.VisitorInput, eventID string) (*domain.RegistrationResult, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service sends submissions upstream, exactly one call per submission. It never
// retries; a failed submission goes back to the visitor.
type Service struct {
	registrar Registrar
	codes     *confirmation.Generator
	audit     AuditPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGenerator sets the generator used when the upstream confirms a
// registration without a code.
func WithGenerator(g *confirmation.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.codes = g
		}
	}
}

func NewService(registrar Registrar, opts ...Option) *Service {
	s := &Service{
		registrar: registrar,
		codes:     confirmation.New(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send performs the registration call for sub. Errors are returned as they came
// from the upstream so the wizard can pick a message for them.
func (s *Service) Send(ctx context.Context, sessionID string, sub Submission) (*domain.RegistrationResult, error) {
	res, err := s.registrar.RegisterVisitor(ctx, sub.Input, sub.EventID)
	if err != nil {
		kind := string(backend.KindOf(err))
		s.metrics.IncrementRegistration("failed_" + kind)
		s.logger.WarnContext(ctx, "registration failed",
			"session_id", sessionID,
			"event_id", sub.EventID,
			"kind", kind,
			"error", err,
		)
		s.emit(ctx, audit.Event{
			Action:    audit.ActionRegistrationFailed,
			SessionID: sessionID,
			EventID:   sub.EventID,
			Reason:    kind,
		})
		return nil, err
	}

	res.ConfirmationCode = strings.ToUpper(strings.TrimSpace(res.ConfirmationCode))
	if res.ConfirmationCode == "" {
		// Accepted without a code: issue one locally so the visitor leaves with
		// something to show at the door.
		res.ConfirmationCode = s.codes.Generate()
		res.Offline = true
		s.logger.WarnContext(ctx, "upstream confirmed registration without a code",
			"session_id", sessionID,
			"event_id", sub.EventID,
		)
	}
	if res.Registration.ConfirmationCode == "" {
		res.Registration.ConfirmationCode = res.ConfirmationCode
	}

	outcome := "completed"
	if res.Offline {
		outcome = "completed_offline"
	}
	s.metrics.IncrementRegistration(outcome)
	s.logger.InfoContext(ctx, "visitor registered",
		"session_id", sessionID,
		"event_id", sub.EventID,
		"offline", res.Offline,
	)
	s.emit(ctx, audit.Event{
		Action:    audit.ActionRegistrationCompleted,
		SessionID: sessionID,
		EventID:   sub.EventID,
		Code:      res.ConfirmationCode,
		Offline:   res.Offline,
	})
	return res, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
