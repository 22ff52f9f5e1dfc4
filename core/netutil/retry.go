// Package netutil classifies transport errors of outbound HTTP calls.
package netutil

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Failure kinds reported by Kind.
const (
	KindNone     = ""
	KindCanceled = "canceled"
	KindTimeout  = "timeout"
	KindDial     = "dial"
	KindReset    = "reset"
	KindOther    = "other"
)

// Kind names the transport failure behind err. Wrapping by *url.Error and
// fmt.Errorf is looked through.
func Kind(err error) string {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return KindReset
	}
	var opErr *net.OpError
	if errors.Is(err, syscall.ECONNREFUSED) || (errors.As(err, &opErr) && opErr.Op == "dial") {
		return KindDial
	}
	return KindOther
}

// ShouldRetry reports whether a request that failed with err may be sent again.
// Timeouts, refused dials and reset connections qualify; caller cancellation does not.
func ShouldRetry(err error) bool {
	switch Kind(err) {
	case KindTimeout, KindDial, KindReset:
		return true
	default:
		return false
	}
}
