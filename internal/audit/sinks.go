package audit

import (
	"context"
	"log/slog"
	"sync"
)

// LogSink writes events as structured log lines.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, "audit",
		"audit_id", e.ID,
		"category", e.Category,
		"action", e.Action,
		"session_id", e.SessionID,
		"terminal_id", e.TerminalID,
		"request_id", e.RequestID,
		"event_id", e.EventID,
		"screen", e.Screen,
		"offline", e.Offline,
		"reason", e.Reason,
	)
	return nil
}

// MemorySink keeps the most recent events in a ring for the admin screen.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

// NewMemorySink keeps at most capacity events.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemorySink{events: make([]Event, capacity)}
}

func (s *MemorySink) Write(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[s.next] = e
	s.next = (s.next + 1) % len(s.events)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Recent returns up to limit events, newest first. limit <= 0 returns all.
func (s *MemorySink) Recent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.events)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.events)) % len(s.events)
		out = append(out, s.events[idx])
	}
	return out, nil
}
