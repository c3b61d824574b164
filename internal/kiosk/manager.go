package kiosk

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"kiosk/internal/audit"
	"kiosk/internal/domain"
	"kiosk/internal/platform/metrics"
	"kiosk/internal/registration"
	dErrors "kiosk/pkg/domain-errors"
	"kiosk/pkg/platform/sentinel"
	"kiosk/pkg/requestcontext"
)

// Attempts made by Execute when another writer keeps winning the race.
const maxExecuteAttempts = 3

type EventLookup interface {
	Get(ctx context.Context, id string) (*domain.Event, error)
}

type Registrar interface {
	Send(ctx context.Context, sessionID string, sub registration.Submission) (*domain.RegistrationResult, error)
}

type Checker interface {
	Verify(ctx context.Context, sessionID, code string) (*domain.CheckInResult, error)
	Preview(ctx context.Context, code string) (*domain.CodeValidation, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Manager runs kiosk actions against stored sessions. State is only ever
// changed inside Store.Execute; upstream calls happen between two Execute
// calls, never while a session is locked.
type Manager struct {
	store         Store
	events        EventLookup
	registrations Registrar
	checkins      Checker
	audit         AuditPublisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type Option func(*Manager)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(m *Manager) {
		m.audit = p
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(store Store, events EventLookup, registrations Registrar, checkins Checker, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		events:        events,
		registrations: registrations,
		checkins:      checkins,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func storeError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "session was changed by another request")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "session store failed")
}

func (m *Manager) execute(ctx context.Context, id string, mutate func(*Session) error) (*Session, error) {
	now := requestcontext.Now(ctx)
	var err error
	for range maxExecuteAttempts {
		var session *Session
		session, err = m.store.Execute(ctx, id, func(s *Session) error {
			if err := mutate(s); err != nil {
				return err
			}
			s.UpdatedAt = now
			return nil
		})
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			break
		}
	}
	return nil, storeError(err)
}

// Start opens a session for the terminal named in the request context.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	session := NewSession(uuid.NewString(), requestcontext.Now(ctx))
	session.TerminalID = requestcontext.TerminalID(ctx)
	session.Device = requestcontext.Device(ctx)

	if err := m.store.Create(ctx, session); err != nil {
		return nil, storeError(err)
	}
	m.metrics.SessionStarted()
	m.logger.InfoContext(ctx, "kiosk session started",
		"session_id", session.ID,
		"terminal_id", session.TerminalID,
		"request_id", requestcontext.RequestID(ctx),
	)
	m.emit(ctx, audit.Event{Action: audit.ActionSessionStarted, SessionID: session.ID})
	return session, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	session, err := m.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return session, nil
}

// End removes the session. The terminal starts a new one for the next visitor.
func (m *Manager) End(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	m.metrics.SessionEnded()
	m.emit(ctx, audit.Event{Action: audit.ActionSessionEnded, SessionID: id})
	return nil
}

// Expired is the store's expiry hook.
func (m *Manager) Expired(id string) {
	ctx := context.Background()
	m.metrics.SessionEnded()
	m.logger.InfoContext(ctx, "kiosk session expired", "session_id", id)
	m.emit(ctx, audit.Event{Action: audit.ActionSessionEnded, SessionID: id, Reason: "expired"})
}

func (m *Manager) Navigate(ctx context.Context, id string, to Screen) (*Session, error) {
	session, err := m.execute(ctx, id, func(s *Session) error {
		return s.Navigate(to, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	m.navigated(ctx, session)
	return session, nil
}

func (m *Manager) SelectCard(ctx context.Context, id string, card Screen) (*Session, error) {
	session, err := m.execute(ctx, id, func(s *Session) error {
		return s.SelectCard(card, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	m.navigated(ctx, session)
	return session, nil
}

func (m *Manager) navigated(ctx context.Context, session *Session) {
	m.metrics.IncrementNavigation(string(session.Screen))
	m.emit(ctx, audit.Event{
		Action:    audit.ActionScreenChanged,
		SessionID: session.ID,
		Screen:    string(session.Screen),
	})
}

// SelectEvent binds an event to the registration wizard. Called from the
// events screen it opens registration first, as one change: a rejected event
// leaves the visitor where they were.
func (m *Manager) SelectEvent(ctx context.Context, id, eventID string) (*Session, error) {
	event, err := m.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	opened := false
	session, err := m.execute(ctx, id, func(s *Session) error {
		opened = false
		if s.Screen != ScreenRegister {
			if err := s.Navigate(ScreenRegister, requestcontext.Now(ctx)); err != nil {
				return err
			}
			opened = true
		}
		w, err := s.Wizard()
		if err != nil {
			return err
		}
		return w.SelectEvent(*event)
	})
	if err != nil {
		return nil, err
	}
	if opened {
		m.navigated(ctx, session)
	}
	return session, nil
}

func (m *Manager) withWizard(ctx context.Context, id string, fn func(*registration.Wizard) error) (*Session, error) {
	return m.execute(ctx, id, func(s *Session) error {
		w, err := s.Wizard()
		if err != nil {
			return err
		}
		return fn(w)
	})
}

// SetFields applies several field edits at once, in the order given.
func (m *Manager) SetFields(ctx context.Context, id string, fields []FieldValue) (*Session, error) {
	return m.withWizard(ctx, id, func(w *registration.Wizard) error {
		for _, f := range fields {
			if err := w.SetField(f.Field, f.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// FieldValue is one form edit.
type FieldValue struct {
	Field string
	Value string
}

func (m *Manager) ChangeEvent(ctx context.Context, id string) (*Session, error) {
	return m.withWizard(ctx, id, func(w *registration.Wizard) error {
		return w.ChangeEvent()
	})
}

func (m *Manager) ResetRegistration(ctx context.Context, id string) (*Session, error) {
	return m.withWizard(ctx, id, func(w *registration.Wizard) error {
		w.Reset()
		return nil
	})
}

// SubmitRegistration validates the form and, when it passes, sends it
// upstream. Field errors and upstream failures are part of the returned
// session, not errors: the visitor fixes them on the same screen.
func (m *Manager) SubmitRegistration(ctx context.Context, id string) (*Session, error) {
	var sub *registration.Submission
	session, err := m.withWizard(ctx, id, func(w *registration.Wizard) error {
		var err error
		sub, err = w.BeginSubmit()
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return nil
		}
		return err
	})
	if err != nil || sub == nil {
		return session, err
	}

	res, sendErr := m.registrations.Send(ctx, id, *sub)

	session, err = m.withWizard(ctx, id, func(w *registration.Wizard) error {
		if sendErr != nil {
			return w.Fail(sub.ID, sendErr)
		}
		return w.Complete(sub.ID, *res)
	})
	if dErrors.HasCode(err, dErrors.CodeInvalidState) {
		m.logger.InfoContext(ctx, "registration finished after the wizard was left",
			"session_id", id,
			"submission_id", sub.ID,
			"succeeded", sendErr == nil,
		)
		return m.Get(ctx, id)
	}
	return session, err
}

func (m *Manager) withCheckIn(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	return m.execute(ctx, id, func(s *Session) error {
		if _, err := s.CheckInForm(); err != nil {
			return err
		}
		return fn(s)
	})
}

func (m *Manager) SetCheckInCode(ctx context.Context, id, raw string) (*Session, error) {
	return m.withCheckIn(ctx, id, func(s *Session) error {
		return s.CheckIn.Input(raw)
	})
}

func (m *Manager) ClearCheckIn(ctx context.Context, id string) (*Session, error) {
	return m.withCheckIn(ctx, id, func(s *Session) error {
		s.CheckIn.Clear()
		return nil
	})
}

// SubmitCheckIn verifies the typed code. As with registration, a refused code
// is reported in the form rather than as an error.
func (m *Manager) SubmitCheckIn(ctx context.Context, id string) (*Session, error) {
	var attemptID, code string
	session, err := m.withCheckIn(ctx, id, func(s *Session) error {
		var err error
		attemptID, code, err = s.CheckIn.BeginVerify()
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return nil
		}
		return err
	})
	if err != nil || attemptID == "" {
		return session, err
	}

	res, verifyErr := m.checkins.Verify(ctx, id, code)

	session, err = m.withCheckIn(ctx, id, func(s *Session) error {
		if verifyErr != nil {
			return s.CheckIn.Fail(attemptID, verifyErr)
		}
		return s.CheckIn.Complete(attemptID, *res, requestcontext.Now(ctx))
	})
	if dErrors.HasCode(err, dErrors.CodeInvalidState) {
		m.logger.InfoContext(ctx, "check-in finished after the form was cleared",
			"session_id", id,
			"succeeded", verifyErr == nil,
		)
		return m.Get(ctx, id)
	}
	return session, err
}

// LookupCode resolves a code without checking in.
func (m *Manager) LookupCode(ctx context.Context, code string) (*domain.CodeValidation, error) {
	return m.checkins.Preview(ctx, code)
}

func (m *Manager) emit(ctx context.Context, event audit.Event) {
	if m.audit == nil {
		return
	}
	if err := m.audit.Emit(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
