package queueclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRequestFailed matches every error returned by Client operations.
// Callers treat all failures alike; Kind exists for logging only.
var ErrRequestFailed = errors.New("queueclient: request failed")

// Kind classifies why a request failed.
type Kind int

const (
	KindNetwork Kind = iota // connection refused, reset, DNS
	KindTimeout             // deadline exceeded or client timeout
	KindStatus              // non-2xx response
	KindDecode              // 2xx response with an unreadable body
)

// String returns a human-readable representation of the kind
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error describes a failed engine request.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int    // set for KindStatus
	Detail     string // engine-provided detail, if any
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindStatus && e.Detail != "":
		return fmt.Sprintf("queueclient: %s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	case e.Kind == KindStatus:
		return fmt.Sprintf("queueclient: %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("queueclient: %s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("queueclient: %s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes every *Error match ErrRequestFailed.
func (e *Error) Is(target error) bool {
	return target == ErrRequestFailed
}

// IsNotFound reports whether err is an engine 404.
func IsNotFound(err error) bool {
	var qe *Error
	return errors.As(err, &qe) && qe.Kind == KindStatus && qe.StatusCode == http.StatusNotFound
}

// KindOf returns the failure kind of err, or -1 when err did not come from a Client.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return -1
}

// Reason returns a short operator-facing description of err: the engine's
// detail when it sent one, otherwise the failure kind.
func Reason(err error) string {
	var qe *Error
	if !errors.As(err, &qe) {
		return err.Error()
	}
	switch {
	case qe.Detail != "":
		return qe.Detail
	case qe.Kind == KindStatus:
		return fmt.Sprintf("request failed with status code %d", qe.StatusCode)
	case qe.Err != nil:
		return fmt.Sprintf("%s error: %v", qe.Kind, qe.Err)
	default:
		return qe.Kind.String() + " error"
	}
}
