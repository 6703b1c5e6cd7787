// Package inbox provides a bounded, typed message buffer whose producers
// never wait longer than a fixed timeout.
package inbox

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Inbox is a FIFO of T backed by a buffered channel.
type Inbox[T any] struct {
	ch      chan T
	timeout time.Duration
	logger  *slog.Logger

	sent     atomic.Int64
	received atomic.Int64
	dropped  atomic.Int64

	depthMu  sync.Mutex
	maxDepth int
}

// Stats tracks inbox usage
type Stats struct {
	TotalSent     int64
	TotalReceived int64
	DroppedCount  int64
	CurrentDepth  int
	MaxDepthSeen  int
	Capacity      int
}

// New creates an inbox with the given capacity. A zero timeout makes Send
// drop immediately when the buffer is full.
func New[T any](bufferSize int, timeout time.Duration, logger *slog.Logger) *Inbox[T] {
	return &Inbox[T]{
		ch:      make(chan T, bufferSize),
		timeout: timeout,
		logger:  logger,
	}
}

// Send enqueues msg, waiting at most the configured timeout for room.
// Returns false if the message was dropped.
func (ib *Inbox[T]) Send(msg T) bool {
	select {
	case ib.ch <- msg:
		ib.accepted()
		return true
	default:
	}

	if ib.timeout <= 0 {
		ib.drop()
		return false
	}

	timer := time.NewTimer(ib.timeout)
	defer timer.Stop()

	select {
	case ib.ch <- msg:
		ib.accepted()
		return true
	case <-timer.C:
		ib.drop()
		return false
	}
}

// TryReceive returns the oldest message without blocking
func (ib *Inbox[T]) TryReceive() (T, bool) {
	select {
	case msg := <-ib.ch:
		ib.received.Add(1)
		return msg, true
	default:
		var zero T
		return zero, false
	}
}

// Drain removes and returns everything currently buffered, oldest first.
// Messages sent concurrently with Drain may land in the next call.
func (ib *Inbox[T]) Drain() []T {
	out := make([]T, 0, len(ib.ch))
	for {
		msg, ok := ib.TryReceive()
		if !ok {
			return out
		}
		out = append(out, msg)
	}
}

// Stats returns a copy of the current counters
func (ib *Inbox[T]) Stats() Stats {
	ib.depthMu.Lock()
	maxDepth := ib.maxDepth
	ib.depthMu.Unlock()

	return Stats{
		TotalSent:     ib.sent.Load(),
		TotalReceived: ib.received.Load(),
		DroppedCount:  ib.dropped.Load(),
		CurrentDepth:  len(ib.ch),
		MaxDepthSeen:  maxDepth,
		Capacity:      cap(ib.ch),
	}
}

// Len returns the number of buffered messages
func (ib *Inbox[T]) Len() int {
	return len(ib.ch)
}

func (ib *Inbox[T]) accepted() {
	ib.sent.Add(1)

	depth := len(ib.ch)
	ib.depthMu.Lock()
	if depth > ib.maxDepth {
		ib.maxDepth = depth
	}
	ib.depthMu.Unlock()
}

func (ib *Inbox[T]) drop() {
	ib.dropped.Add(1)
	ib.logger.Warn("inbox full, message dropped",
		"timeout", ib.timeout,
		"current_depth", len(ib.ch))
}
