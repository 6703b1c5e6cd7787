// Package notify carries operator-visible messages from the core to whatever
// presentation layer is attached. Publishing never blocks the caller beyond
// the configured send timeout; consumers acknowledge by draining.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/livinlefevreloca/queuedash/internal/inbox"
)

// Severity classifies a notification
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

// String returns a human-readable representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "info":
		*s = SeverityInfo
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Notification is one message for the operator
type Notification struct {
	ID       string    `json:"id"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	JobID    string    `json:"job_id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher is implemented by Queue; components depend on it so tests can
// capture notifications directly.
type Publisher interface {
	Publish(severity Severity, jobID, message string) Notification
}

// Config holds notification queue settings
type Config struct {
	BufferSize  int           `toml:"buffer_size" yaml:"buffer_size"`
	SendTimeout time.Duration `toml:"send_timeout" yaml:"send_timeout"`
}

// DefaultConfig returns default notification queue settings
func DefaultConfig() Config {
	return Config{
		BufferSize:  256,
		SendTimeout: 100 * time.Millisecond,
	}
}

func validateConfig(config Config) error {
	if config.BufferSize <= 0 {
		return fmt.Errorf("BufferSize must be positive, got %d", config.BufferSize)
	}
	if config.SendTimeout < 0 {
		return fmt.Errorf("SendTimeout must not be negative, got %v", config.SendTimeout)
	}
	return nil
}

// Queue is a bounded FIFO of notifications
type Queue struct {
	inbox  *inbox.Inbox[Notification]
	now    func() time.Time
	logger *slog.Logger
}

// NewQueue creates a notification queue
func NewQueue(config Config, logger *slog.Logger) (*Queue, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return &Queue{
		inbox:  inbox.New[Notification](config.BufferSize, config.SendTimeout, logger),
		now:    time.Now,
		logger: logger,
	}, nil
}

// Publish enqueues a notification and returns it. If the queue stays full
// for the send timeout the notification is dropped and only logged.
func (q *Queue) Publish(severity Severity, jobID, message string) Notification {
	n := Notification{
		ID:       uuid.New().String(),
		Severity: severity,
		Message:  message,
		JobID:    jobID,
		At:       q.now(),
	}
	if !q.inbox.Send(n) {
		q.logger.Warn("notification dropped",
			"severity", severity.String(),
			"job_id", jobID,
			"message", message)
	}
	return n
}

// Drain returns every pending notification, oldest first
func (q *Queue) Drain() []Notification {
	return q.inbox.Drain()
}

// Pending returns the number of unread notifications
func (q *Queue) Pending() int {
	return q.inbox.Len()
}

// Stats returns the underlying buffer counters
func (q *Queue) Stats() inbox.Stats {
	return q.inbox.Stats()
}
