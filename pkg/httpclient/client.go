// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpclient provides the retrying HTTP transport shared by the
// model clients.
package httpclient

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"time"
)

// Policy describes when and how long to wait before retrying a request.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// ExpBase multiplies the delay after every failed attempt.
	ExpBase float64

	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration

	// StatusCodes lists the HTTP statuses worth retrying.
	StatusCodes []int
}

// DefaultPolicy returns the policy used for model calls.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:     4,
		InitialDelay: time.Second,
		ExpBase:      7,
		MaxDelay:     2 * time.Minute,
		StatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// Retryable reports whether status should be retried under p.
func (p Policy) Retryable(status int) bool {
	return slices.Contains(p.StatusCodes, status)
}

// Delay returns the backoff before attempt n+1, where n counts from 1.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	base := p.ExpBase
	if base < 1 {
		base = 1
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(base, float64(n-1)))
	if p.MaxDelay > 0 && (d > p.MaxDelay || d < 0) {
		d = p.MaxDelay
	}
	return d
}

// RateLimitHeaderParser extracts server-provided retry hints.
type RateLimitHeaderParser func(http.Header) RateLimitInfo

// Transport is an http.RoundTripper that retries retryable responses.
// The final response is returned unchanged so callers (and SDKs) see the
// real status and body.
type Transport struct {
	base         http.RoundTripper
	policy       Policy
	headerParser RateLimitHeaderParser
	logger       *slog.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

type Option func(*Transport)

// WithBase sets the underlying transport.
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = rt
	}
}

func WithPolicy(p Policy) Option {
	return func(t *Transport) {
		t.policy = p
	}
}

func WithHeaderParser(parser RateLimitHeaderParser) Option {
	return func(t *Transport) {
		t.headerParser = parser
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// NewTransport creates a retrying transport.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		base:         http.DefaultTransport,
		policy:       DefaultPolicy(),
		headerParser: ParseRateLimitHeaders,
		logger:       slog.Default(),
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.policy.Attempts < 1 {
		t.policy.Attempts = 1
	}
	return t
}

// New returns an http.Client with a retrying transport and timeout.
func New(timeout time.Duration, opts ...Option) *http.Client {
	return &http.Client{
		Transport: NewTransport(opts...),
		Timeout:   timeout,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, &RetryableError{Message: "failed to recreate request body for retry", Err: err}
			}
			req.Body = body
		}

		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if attempt >= t.policy.Attempts || !t.policy.Retryable(resp.StatusCode) {
			return resp, nil
		}
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			return resp, nil
		}

		delay := t.policy.Delay(attempt)
		if info := t.headerParser(resp.Header); info.RetryAfter > 0 {
			delay = info.RetryAfter
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		t.logger.Warn("Retrying HTTP request",
			"status", resp.StatusCode,
			"attempt", attempt,
			"max_attempts", t.policy.Attempts,
			"delay", delay,
			"host", req.URL.Host)

		if err := t.sleep(req.Context(), delay); err != nil {
			return nil, &RetryableError{
				StatusCode: resp.StatusCode,
				Message:    "retry aborted",
				RetryAfter: delay,
				Err:        err,
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ http.RoundTripper = (*Transport)(nil)
