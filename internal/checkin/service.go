package checkin

import (
	"context"
	"log/slog"

	"kiosk/internal/audit"
	"kiosk/internal/backend"
	"kiosk/internal/domain"
	"kiosk/internal/platform/metrics"
	"kiosk/internal/validation"
	dErrors "kiosk/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Checker,AuditPublisher

// Checker is the upstream side of check-in.
type Checker interface {
	CheckIn(ctx context.Context, code string) (*domain.CheckInResult, error)
	ValidateCode(ctx context.Context, code string) (*domain.CodeValidation, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	checker Checker
	audit   AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
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

func NewService(checker Checker, opts ...Option) *Service {
	s := &Service{checker: checker, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify marks the registration behind code as attended. One upstream call per
// attempt; the error is returned untouched for Form.Fail.
func (s *Service) Verify(ctx context.Context, sessionID, code string) (*domain.CheckInResult, error) {
	res, err := s.checker.CheckIn(ctx, code)
	if err != nil {
		kind := string(backend.KindOf(err))
		s.metrics.IncrementCheckIn("failed_" + kind)
		s.logger.InfoContext(ctx, "check-in refused",
			"session_id", sessionID,
			"kind", kind,
			"error", err,
		)
		s.emit(ctx, audit.Event{
			Action:    audit.ActionCheckInFailed,
			SessionID: sessionID,
			Code:      code,
			Reason:    kind,
		})
		return nil, err
	}

	outcome := "succeeded"
	if res.Offline {
		outcome = "succeeded_offline"
	}
	s.metrics.IncrementCheckIn(outcome)

	event := audit.Event{
		Action:    audit.ActionCheckInSucceeded,
		SessionID: sessionID,
		Code:      code,
		Offline:   res.Offline,
	}
	if res.Event != nil {
		event.EventID = res.Event.ID
	}
	s.emit(ctx, event)
	return res, nil
}

// Preview looks a code up without checking in, for staff confirming a visitor
// before letting them through.
func (s *Service) Preview(ctx context.Context, raw string) (*domain.CodeValidation, error) {
	code := validation.NormalizeCode(raw)
	if !validation.IsValidConfirmationCode(code) {
		return nil, dErrors.NewValidation(validation.MsgCodeInvalid, map[string]string{
			"code": validation.MsgCodeInvalid,
		})
	}
	res, err := s.checker.ValidateCode(ctx, code)
	if err != nil {
		return nil, backend.ToDomain(err)
	}
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
