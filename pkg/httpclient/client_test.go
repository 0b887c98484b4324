package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 7*time.Second, p.Delay(2))
	assert.Equal(t, 49*time.Second, p.Delay(3))
	assert.Equal(t, 2*time.Minute, p.Delay(4), "capped by MaxDelay")
}

func TestPolicy_Retryable(t *testing.T) {
	p := DefaultPolicy()

	for _, code := range []int{429, 500, 503, 504} {
		assert.True(t, p.Retryable(code), code)
	}
	for _, code := range []int{200, 400, 401, 404, 502} {
		assert.False(t, p.Retryable(code), code)
	}
}

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestTransport(sleeps *recordedSleeps, opts ...Option) *Transport {
	tr := NewTransport(opts...)
	tr.sleep = sleeps.sleep
	return tr
}

func TestTransport_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"q":"paint"}`, string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := &http.Client{Transport: newTestTransport(sleeps)}

	resp, err := client.Post(server.URL, "application/json", strings.NewReader(`{"q":"paint"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 7 * time.Second}, sleeps.delays)
}

func TestTransport_ReturnsLastResponseWhenAttemptsExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := &http.Client{Transport: newTestTransport(sleeps)}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(4), calls.Load())
	assert.Len(t, sleeps.delays, 3)
}

func TestTransport_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := &http.Client{Transport: newTestTransport(sleeps)}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, sleeps.delays)
}

func TestTransport_HonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := &http.Client{Transport: newTestTransport(sleeps)}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []time.Duration{3 * time.Second}, sleeps.delays)
}

func TestTransport_AbortsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr := NewTransport(WithPolicy(Policy{
		Attempts:     3,
		InitialDelay: time.Hour,
		ExpBase:      2,
		StatusCodes:  []int{http.StatusServiceUnavailable},
	}))
	client := &http.Client{Transport: tr}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseRateLimitHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		want    time.Duration
	}{
		{name: "seconds", headers: http.Header{"Retry-After": {"5"}}, want: 5 * time.Second},
		{name: "milliseconds", headers: http.Header{"Retry-After-Ms": {"250"}}, want: 250 * time.Millisecond},
		{name: "garbage", headers: http.Header{"Retry-After": {"soon"}}, want: 0},
		{name: "absent", headers: http.Header{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRateLimitHeaders(tt.headers).RetryAfter)
		})
	}
}
