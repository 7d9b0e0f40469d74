package httpx

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ledgerlink/qbconnect/pkg/slogx"
)

// Retry defaults, matching the provider SDK conventions.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1000 * time.Millisecond
)

// retryableStatus is the set of response codes worth retrying: rate limits
// and transient upstream failures.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// RetryTransport is an http.RoundTripper that retries transient failures
// with pure exponential backoff (BaseDelay * 2^(k-1), no jitter). A request
// is retried when the response status is retryable or the transport itself
// failed (DNS, connect, timeout). Other responses propagate immediately.
//
// MaxRetries bounds the retries beyond the first attempt, so a request makes
// at most MaxRetries+1 attempts. Context cancellation cuts backoff waits
// short and stops further attempts.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	BaseDelay  time.Duration
}

// NewRetryTransport wraps base with the retry policy. A nil base uses
// http.DefaultTransport; non-positive maxRetries/baseDelay use the defaults.
func NewRetryTransport(base http.RoundTripper, maxRetries int, baseDelay time.Duration) *RetryTransport {
	return &RetryTransport{
		Base:       base,
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
	}
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RetryTransport) maxRetries() int {
	if t.MaxRetries > 0 {
		return t.MaxRetries
	}
	return DefaultMaxRetries
}

func (t *RetryTransport) baseDelay() time.Duration {
	if t.BaseDelay > 0 {
		return t.BaseDelay
	}
	return DefaultRetryDelay
}

// RoundTrip implements http.RoundTripper. Retries run on a clone of the
// request so the caller's request is never mutated.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := slogx.FromContext(ctx)

	attemptReq := req
	for attempt := 0; ; attempt++ {
		resp, err := t.base().RoundTrip(attemptReq)

		cause := ""
		switch {
		case err != nil:
			if ctx.Err() != nil {
				// Cancellation is the caller's decision, never retried.
				return nil, err
			}
			cause = err.Error()
		case retryableStatus[resp.StatusCode]:
			cause = fmt.Sprintf("status %d", resp.StatusCode)
		default:
			return resp, nil
		}

		if attempt >= t.maxRetries() {
			return resp, err
		}

		// Requests built from readers via http.NewRequest carry GetBody;
		// a body without it cannot be replayed, so the response stands.
		if req.Body != nil && req.GetBody == nil {
			return resp, err
		}

		// Retryable responses must be drained before the connection can be
		// reused for the next attempt.
		if resp != nil {
			_ = resp.Body.Close()
		}

		delay := t.baseDelay() << attempt

		log.Warn("retrying request",
			"method", req.Method,
			"url", req.URL.Redacted(),
			"attempt", attempt+1,
			"cause", cause,
			"delay_ms", delay.Milliseconds(),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attemptReq = req.Clone(ctx)
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("rewinding request body for retry: %w", bodyErr)
			}
			attemptReq.Body = body
		}
	}
}
