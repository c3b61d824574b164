package mock

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"kiosk/internal/backend"
	"kiosk/internal/confirmation"
	"kiosk/internal/domain"
	"kiosk/internal/validation"
	"kiosk/pkg/platform/sentinel"
)

// maxCodeAttempts bounds confirmation code draws per registration.
const maxCodeAttempts = 5

// Messages returned in the upstream error envelope.
const (
	MsgEventNotFound    = "Event not found."
	MsgEventFull        = "This event is full."
	MsgEventFinished    = "This event has already finished."
	MsgInvalidVisitor   = "Invalid visitor data."
	MsgInvalidCode      = "Invalid confirmation code."
	MsgAlreadyCheckedIn = "This code has already been used to check in."
	MsgUnauthorized     = "Authentication required."
	MsgCodeExhausted    = "Could not issue a confirmation code. Please try again."
)

// Backend implements backend.API on top of a Store. Errors come back as
// *backend.Error with the status the REST API would have used.
type Backend struct {
	store  Store
	codes  *confirmation.Generator
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Backend)

func WithGenerator(g *confirmation.Generator) Option {
	return func(b *Backend) {
		if g != nil {
			b.codes = g
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

func New(store Store, opts ...Option) *Backend {
	b := &Backend{
		store:  store,
		codes:  confirmation.New(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewSeeded returns a memory-backed Backend loaded with the example data.
func NewSeeded(ctx context.Context, opts ...Option) (*Backend, error) {
	b := New(NewMemoryStore(), opts...)
	if err := Seed(ctx, b.store, b.now()); err != nil {
		return nil, err
	}
	return b, nil
}

func fail(op string, status int, msg string, cause error) *backend.Error {
	kind := backend.KindUnknown
	switch status {
	case http.StatusNotFound:
		kind = backend.KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = backend.KindAuth
	}
	return &backend.Error{Kind: kind, Op: op, Status: status, Message: msg, Err: cause}
}

func failInternal(op string, err error) *backend.Error {
	return fail(op, http.StatusInternalServerError, "", err)
}

func (b *Backend) ListEvents(ctx context.Context, q backend.EventQuery) (*backend.EventPage, error) {
	events, err := b.store.ListEvents(ctx)
	if err != nil {
		return nil, failInternal(backend.OpListEvents, err)
	}

	status := strings.ToLower(q.Status)
	events = lo.Filter(events, func(e domain.Event, _ int) bool {
		if status != "" && status != "all" && string(e.Status) != status {
			return false
		}
		if q.Category != "" && !strings.EqualFold(e.Category, q.Category) {
			return false
		}
		if q.DateFrom != nil && e.Date.Before(*q.DateFrom) {
			return false
		}
		if q.DateTo != nil && !e.Date.Before(q.DateTo.Add(24*time.Hour)) {
			return false
		}
		return true
	})

	total := len(events)
	offset := min(max(q.Offset, 0), total)
	end := total
	if q.Limit > 0 {
		end = min(offset+q.Limit, total)
	}
	return &backend.EventPage{
		Events:     events[offset:end],
		Pagination: &backend.Pagination{Total: total, Limit: q.Limit, Offset: offset},
	}, nil
}

func (b *Backend) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	e, err := b.store.GetEvent(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, fail(backend.OpGetEvent, http.StatusNotFound, MsgEventNotFound, err)
	}
	if err != nil {
		return nil, failInternal(backend.OpGetEvent, err)
	}
	return &e, nil
}

func (b *Backend) RegisterForEvent(ctx context.Context, eventID string, in domain.VisitorInput) (*domain.RegistrationResult, error) {
	return b.register(ctx, backend.OpRegisterForEvent, eventID, in)
}

func (b *Backend) RegisterVisitor(ctx context.Context, in domain.VisitorInput, eventID string) (*domain.RegistrationResult, error) {
	return b.register(ctx, backend.OpRegisterVisitor, eventID, in)
}

func (b *Backend) register(ctx context.Context, op, eventID string, in domain.VisitorInput) (*domain.RegistrationResult, error) {
	form := validation.VisitorForm{
		Name: in.Name, Email: in.Email, Phone: in.Phone,
		Age: itoa(in.Age), Gender: string(in.Gender),
	}
	if errs := validation.ValidateVisitor(form); !errs.Valid() {
		return nil, fail(op, http.StatusBadRequest, MsgInvalidVisitor, nil)
	}

	now := b.now()
	visitor := domain.Visitor{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Age:          in.Age,
		Gender:       in.Gender,
		RegisteredAt: now,
	}

	for range maxCodeAttempts {
		code := b.codes.GenerateUnique(maxCodeAttempts, func(c string) bool {
			taken, err := b.store.CodeExists(ctx, c)
			return err != nil || taken
		})
		if code == "" {
			break
		}
		reg := domain.Registration{
			ID:               uuid.NewString(),
			EventID:          eventID,
			VisitorID:        visitor.ID,
			ConfirmationCode: code,
			RegisteredAt:     now,
			Status:           domain.RegistrationConfirmed,
		}
		err := b.store.Register(ctx, visitor, reg)
		switch {
		case err == nil:
			b.logger.InfoContext(ctx, "mock backend registered visitor",
				"event_id", eventID,
				"registration_id", reg.ID,
			)
			return &domain.RegistrationResult{Visitor: visitor, Registration: reg, ConfirmationCode: code}, nil
		case errors.Is(err, sentinel.ErrConflict):
			// Lost a race for the code; draw again.
			continue
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, fail(op, http.StatusNotFound, MsgEventNotFound, err)
		case errors.Is(err, ErrEventFull):
			return nil, fail(op, http.StatusConflict, MsgEventFull, err)
		case errors.Is(err, ErrEventFinished):
			return nil, fail(op, http.StatusConflict, MsgEventFinished, err)
		default:
			return nil, failInternal(op, err)
		}
	}
	return nil, fail(op, http.StatusServiceUnavailable, MsgCodeExhausted, sentinel.ErrConflict)
}

func (b *Backend) CheckIn(ctx context.Context, code string) (*domain.CheckInResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	now := b.now()

	reg, err := b.store.MarkCheckedIn(ctx, code, now)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, fail(backend.OpCheckIn, http.StatusNotFound, MsgInvalidCode, err)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return nil, fail(backend.OpCheckIn, http.StatusConflict, MsgAlreadyCheckedIn, err)
	case err != nil:
		return nil, failInternal(backend.OpCheckIn, err)
	}

	_, visitor, err := b.store.FindByCode(ctx, code)
	if err != nil {
		return nil, failInternal(backend.OpCheckIn, err)
	}
	res := &domain.CheckInResult{Visitor: visitor, CheckInTime: now}
	if reg.CheckedInAt != nil {
		res.CheckInTime = *reg.CheckedInAt
	}
	if event, err := b.store.GetEvent(ctx, reg.EventID); err == nil {
		res.Event = &event
	}
	return res, nil
}

func (b *Backend) ValidateCode(ctx context.Context, code string) (*domain.CodeValidation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !validation.IsValidConfirmationCode(code) {
		return &domain.CodeValidation{Valid: false}, nil
	}
	reg, visitor, err := b.store.FindByCode(ctx, code)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &domain.CodeValidation{Valid: false}, nil
	}
	if err != nil {
		return nil, failInternal(backend.OpValidateCode, err)
	}

	out := &domain.CodeValidation{Valid: !reg.CheckedIn(), Visitor: &visitor, Registration: &reg}
	if event, err := b.store.GetEvent(ctx, reg.EventID); err == nil {
		out.Event = &event
	}
	return out, nil
}

// VisitorStats requires a token but does not verify it; token checks belong to
// the service that issued it.
func (b *Backend) VisitorStats(ctx context.Context, creds backend.Credentials) (*domain.VisitorStats, error) {
	if creds.Token == "" {
		return nil, fail(backend.OpVisitorStats, http.StatusUnauthorized, MsgUnauthorized, nil)
	}
	stats, err := b.store.Stats(ctx)
	if err != nil {
		return nil, failInternal(backend.OpVisitorStats, err)
	}
	return &stats, nil
}

func (b *Backend) Health(ctx context.Context) error {
	if _, err := b.store.ListEvents(ctx); err != nil {
		return failInternal(backend.OpHealth, err)
	}
	return nil
}

var _ backend.API = (*Backend)(nil)
