package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestKind(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route to host")}
	cases := []struct {
		name  string
		err   error
		kind  string
		retry bool
	}{
		{"nil", nil, KindNone, false},
		{"canceled", fmt.Errorf("send: %w", context.Canceled), KindCanceled, false},
		{"deadline", &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}, KindTimeout, true},
		{"net timeout", &url.Error{Op: "Post", URL: "http://x", Err: timeoutErr{}}, KindTimeout, true},
		{"dial", &url.Error{Op: "Get", URL: "http://x", Err: dial}, KindDial, true},
		{"refused", fmt.Errorf("wrap: %w", syscall.ECONNREFUSED), KindDial, true},
		{"reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, KindReset, true},
		{"other", errors.New("telegram: Bad Request (400)"), KindOther, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Kind(tc.err); got != tc.kind {
				t.Fatalf("Kind = %q, want %q", got, tc.kind)
			}
			if got := ShouldRetry(tc.err); got != tc.retry {
				t.Fatalf("ShouldRetry = %v, want %v", got, tc.retry)
			}
		})
	}
}
