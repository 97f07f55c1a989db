package notify

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Severity classifies a transient user-facing message.
type Severity string

// Supported severities.
const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Message is one transient notification. It exists only for its display
// lifetime and is never persisted.
type Message struct {
	ID       ulid.ULID
	Text     string
	Severity Severity
	PostedAt time.Time
}

// Queue surfaces transient messages with an at-most-one-visible policy:
// posting while a message is visible supersedes it immediately. Every
// message auto-dismisses after a fixed lifetime; user-initiated dismissal
// is accepted at any time and is idempotent.
type Queue struct {
	lifetime time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	current *Message
	timer   *time.Timer
	sink    func(Message)
}

// NewQueue constructs a Queue. A non-positive lifetime falls back to the
// dashboard's original three seconds.
func NewQueue(lifetime time.Duration, logger zerolog.Logger) *Queue {
	if lifetime <= 0 {
		lifetime = 3 * time.Second
	}
	return &Queue{
		lifetime: lifetime,
		logger:   logger.With().Str("component", "notifications").Logger(),
	}
}

// SetSink registers a display callback invoked for every posted message.
func (q *Queue) SetSink(sink func(Message)) {
	q.mu.Lock()
	q.sink = sink
	q.mu.Unlock()
}

// Post shows a new message, removing any currently visible one first.
func (q *Queue) Post(text string, severity Severity) Message {
	msg := Message{
		ID:       ulid.Make(),
		Text:     text,
		Severity: severity,
		PostedAt: time.Now(),
	}

	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
	}
	q.current = &msg
	id := msg.ID
	q.timer = time.AfterFunc(q.lifetime, func() {
		q.Dismiss(id)
	})
	sink := q.sink
	q.mu.Unlock()

	q.logger.Debug().Str("severity", string(severity)).Str("text", text).Msg("notification posted")
	if sink != nil {
		sink(msg)
	}
	return msg
}

// Dismiss removes the message with the given id if it is still visible.
// Dismissing an already-gone message is a no-op.
func (q *Queue) Dismiss(id ulid.ULID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == nil || q.current.ID != id {
		return false
	}
	q.current = nil
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	return true
}

// Current returns the visible message, if any.
func (q *Queue) Current() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == nil {
		return Message{}, false
	}
	return *q.current, true
}

// Close stops the auto-dismiss timer and clears the visible message.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.current = nil
}
