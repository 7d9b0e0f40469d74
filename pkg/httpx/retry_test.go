package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryTransport(t *testing.T) {
	t.Parallel()

	client := func(maxRetries int) *http.Client {
		return &http.Client{
			Transport: NewRetryTransport(nil, maxRetries, time.Millisecond),
		}
	}

	t.Run("recovers after transient failures", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		resp, err := client(3).Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "ok", string(body))
		require.EqualValues(t, 4, calls.Load())
	})

	t.Run("returns final response once retries are exhausted", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		resp, err := client(2).Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		require.EqualValues(t, 3, calls.Load())
	})

	t.Run("non-retryable status returns immediately", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		resp, err := client(3).Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.EqualValues(t, 1, calls.Load())
	})

	t.Run("request body is replayed on retry", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			require.Equal(t, "payload", string(body))
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		resp, err := client(3).Post(srv.URL, "text/plain", strings.NewReader("payload"))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.EqualValues(t, 2, calls.Load())
	})

	t.Run("non-replayable body stops after the first attempt", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("busy"))
		}))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader("payload"))
		require.NoError(t, err)
		req.GetBody = nil // one-shot stream

		resp, err := NewRetryTransport(nil, 3, time.Millisecond).RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.EqualValues(t, 1, calls.Load())

		// The response must still be readable: nothing closed it.
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "busy", string(body))
	})

	t.Run("retries do not mutate the caller's request", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.ReadAll(r.Body)
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader("payload"))
		require.NoError(t, err)
		originalBody := req.Body

		resp, err := NewRetryTransport(nil, 3, time.Millisecond).RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.EqualValues(t, 2, calls.Load())
		require.True(t, req.Body == originalBody, "retry must run on a clone, not rewind the caller's request")
	})

	t.Run("context cancellation stops retries", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		require.NoError(t, err)

		_, err = client(3).Do(req) //nolint:bodyclose // error path
		require.Error(t, err)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestRetryTransportDefaults(t *testing.T) {
	t.Parallel()

	tr := NewRetryTransport(nil, 0, 0)
	require.Equal(t, DefaultMaxRetries, tr.maxRetries())
	require.Equal(t, DefaultRetryDelay, tr.baseDelay())
}
