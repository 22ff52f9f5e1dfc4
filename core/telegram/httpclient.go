package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/cbrbot/core/netutil"
)

// Bot API client timeouts. The overall timeout must stay above the long
// poll timeout or getUpdates would be cut short.
const (
	apiDialTimeout     = 5 * time.Second
	apiKeepAlive       = 30 * time.Second
	apiTLSHandshake    = 5 * time.Second
	apiResponseHeaders = 5 * time.Second
	apiIdleConn        = 30 * time.Second
	apiClientTimeout   = 30 * time.Second
	apiRetryBackoff    = 2 * time.Second
)

// BuildHTTPClient returns the Bot API client. retries is the number of
// extra attempts after a transient network failure; 0 disables retrying.
func BuildHTTPClient(retries int) *http.Client {
	var rt http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: apiDialTimeout, KeepAlive: apiKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       apiIdleConn,
		TLSHandshakeTimeout:   apiTLSHandshake,
		ResponseHeaderTimeout: apiResponseHeaders,
		ExpectContinueTimeout: time.Second,
	}
	if retries > 0 {
		rt = &retryTransport{base: rt, maxRetries: retries, backoff: apiRetryBackoff}
	}
	return &http.Client{Timeout: apiClientTimeout, Transport: rt}
}

// retryTransport repeats requests that failed with a transient network error
// (see netutil.ShouldRetry). Requests whose body cannot be replayed are sent once.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.maxRetries; attempt++ {
		if !netutil.ShouldRetry(err) || (req.Body != nil && req.GetBody == nil) {
			return nil, err
		}
		if werr := wait(req, t.backoff*time.Duration(attempt)); werr != nil {
			return nil, werr
		}
		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}

func wait(req *http.Request, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
