package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kiosk/internal/domain"
	"kiosk/internal/platform/metrics"
)

const (
	// DefaultTimeout is the per-request budget.
	DefaultTimeout = 10 * time.Second

	tracerName   = "kiosk/internal/backend"
	maxErrorBody = 16 << 10
)

// Client talks to the upstream REST API over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	tracer  trace.Tracer
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout overrides the per-request budget.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) {
		if t != nil {
			cl.tracer = t
		}
	}
}

// WithClock sets the time source used to derive missing event statuses.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		if now != nil {
			cl.now = now
		}
	}
}

// NewClient builds a client for baseURL, e.g. "https://host/api".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) ListEvents(ctx context.Context, q EventQuery) (*EventPage, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.DateFrom != nil {
		params.Set("date_from", q.DateFrom.Format(time.DateOnly))
	}
	if q.DateTo != nil {
		params.Set("date_to", q.DateTo.Format(time.DateOnly))
	}
	if q.Limit > 0 {
		params.Set("limit", itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", itoa(q.Offset))
	}

	var raw json.RawMessage
	if err := c.do(ctx, OpListEvents, http.MethodGet, "/events", params, nil, nil, &raw); err != nil {
		return nil, err
	}

	// Some deployments answer with a bare array.
	var resp EventsResponse
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &resp.Events); err != nil {
			return nil, decodeError(OpListEvents, err)
		}
	} else if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, decodeError(OpListEvents, err)
	}

	now := c.now()
	page := &EventPage{Events: make([]domain.Event, 0, len(resp.Events)), Pagination: resp.Pagination}
	for _, dto := range resp.Events {
		page.Events = append(page.Events, dto.ToDomain(now))
	}
	return page, nil
}

func (c *Client) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	var raw json.RawMessage
	if err := c.do(ctx, OpGetEvent, http.MethodGet, "/events/"+url.PathEscape(id), nil, nil, nil, &raw); err != nil {
		return nil, err
	}

	var wrapped struct {
		Event *EventDTO `json:"event"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, decodeError(OpGetEvent, err)
	}
	dto := wrapped.Event
	if dto == nil {
		dto = &EventDTO{}
		if err := json.Unmarshal(raw, dto); err != nil {
			return nil, decodeError(OpGetEvent, err)
		}
	}
	event := dto.ToDomain(c.now())
	return &event, nil
}

func (c *Client) RegisterForEvent(ctx context.Context, eventID string, in domain.VisitorInput) (*domain.RegistrationResult, error) {
	var resp RegisterResponse
	path := "/events/" + url.PathEscape(eventID) + "/register"
	if err := c.do(ctx, OpRegisterForEvent, http.MethodPost, path, nil, nil, PayloadFromInput(in, ""), &resp); err != nil {
		return nil, err
	}
	res := registrationResult(resp, in)
	if res.Registration.EventID == "" {
		res.Registration.EventID = eventID
	}
	return res, nil
}

func (c *Client) RegisterVisitor(ctx context.Context, in domain.VisitorInput, eventID string) (*domain.RegistrationResult, error) {
	var resp RegisterResponse
	if err := c.do(ctx, OpRegisterVisitor, http.MethodPost, "/visitors/register", nil, nil, PayloadFromInput(in, eventID), &resp); err != nil {
		return nil, err
	}
	res := registrationResult(resp, in)
	if res.Registration.EventID == "" {
		res.Registration.EventID = eventID
	}
	return res, nil
}

func (c *Client) CheckIn(ctx context.Context, code string) (*domain.CheckInResult, error) {
	var resp CheckInResponse
	body := CheckInRequest{ConfirmationCode: strings.ToUpper(code)}
	if err := c.do(ctx, OpCheckIn, http.MethodPost, "/visitors/checkin", nil, nil, body, &resp); err != nil {
		return nil, err
	}

	now := c.now()
	res := &domain.CheckInResult{CheckInTime: now}
	if resp.CheckInTime != nil {
		res.CheckInTime = *resp.CheckInTime
	}
	if resp.Visitor != nil {
		res.Visitor = resp.Visitor.ToDomain()
	}
	if resp.Event != nil {
		event := resp.Event.ToDomain(now)
		res.Event = &event
	}
	return res, nil
}

func (c *Client) ValidateCode(ctx context.Context, code string) (*domain.CodeValidation, error) {
	var resp ValidateResponse
	path := "/visitors/validate/" + url.PathEscape(strings.ToUpper(code))
	if err := c.do(ctx, OpValidateCode, http.MethodGet, path, nil, nil, nil, &resp); err != nil {
		return nil, err
	}

	out := &domain.CodeValidation{Valid: resp.Valid}
	if resp.Visitor != nil {
		v := resp.Visitor.ToDomain()
		out.Visitor = &v
	}
	if resp.Event != nil {
		e := resp.Event.ToDomain(c.now())
		out.Event = &e
	}
	if resp.Registration != nil {
		r := resp.Registration.ToDomain()
		out.Registration = &r
	}
	return out, nil
}

func (c *Client) VisitorStats(ctx context.Context, creds Credentials) (*domain.VisitorStats, error) {
	var raw json.RawMessage
	if err := c.do(ctx, OpVisitorStats, http.MethodGet, "/visitors/stats", nil, &creds, nil, &raw); err != nil {
		return nil, err
	}

	var wrapped struct {
		Stats *domain.VisitorStats `json:"stats"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, decodeError(OpVisitorStats, err)
	}
	if wrapped.Stats != nil {
		return wrapped.Stats, nil
	}
	var stats domain.VisitorStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, decodeError(OpVisitorStats, err)
	}
	return &stats, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, OpHealth, http.MethodGet, "/health", nil, nil, nil, nil)
}

// do performs one request within the client's timeout and decodes a 2xx body into
// out. It records a span and a metric for every call.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, creds *Credentials, body, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "backend."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		c.metrics.ObserveBackendRequest(op, outcome, time.Since(start))
		span.End()
	}()

	target := c.baseURL.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, mErr := json.Marshal(body)
		if mErr != nil {
			return &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("encode request: %w", mErr)}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &Error{Kind: KindUnknown, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds != nil && creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: classifyTransport(err), Op: op, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb ErrorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&eb)
		return &Error{
			Kind:    kindForStatus(resp.StatusCode),
			Op:      op,
			Status:  resp.StatusCode,
			Message: eb.Message,
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A body cut off by the deadline is still a timeout.
		if ctx.Err() != nil {
			return &Error{Kind: classifyTransport(ctx.Err()), Op: op, Err: err}
		}
		return decodeError(op, err)
	}
	return nil
}

func decodeError(op string, err error) *Error {
	return &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("decode response: %w", err)}
}

// registrationResult normalizes the two registration response shapes. The visitor
// falls back to the submitted input when the upstream omits it.
func registrationResult(resp RegisterResponse, in domain.VisitorInput) *domain.RegistrationResult {
	res := &domain.RegistrationResult{}
	if resp.Visitor != nil {
		res.Visitor = resp.Visitor.ToDomain()
	} else {
		res.Visitor = domain.Visitor{Name: in.Name, Email: in.Email, Phone: in.Phone, Age: in.Age, Gender: in.Gender}
	}
	if resp.Registration != nil {
		res.Registration = resp.Registration.ToDomain()
	} else {
		res.Registration.Status = domain.RegistrationConfirmed
	}

	code := resp.ConfirmationCode
	if code == "" {
		code = resp.Code
	}
	if code == "" {
		code = res.Registration.ConfirmationCode
	}
	res.ConfirmationCode = strings.ToUpper(code)
	if res.Registration.ConfirmationCode == "" {
		res.Registration.ConfirmationCode = res.ConfirmationCode
	}
	if res.Registration.VisitorID == "" {
		res.Registration.VisitorID = res.Visitor.ID
	}
	return res
}

var _ API = (*Client)(nil)
