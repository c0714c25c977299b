// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/woco-foundation/swarmctl/internal/logger"
)

// RetryConfig controls how reads against the node are retried.
type RetryConfig struct {
	MaxRetries         int
	InitialBackoff     time.Duration
	MaxBackoff         time.Duration
	StatusCodesToRetry []int
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Second,
		StatusCodesToRetry: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

func (c RetryConfig) retryable(status int) bool {
	return slices.Contains(c.StatusCodesToRetry, status)
}

// Retrier re-sends a request while the node answers with a retryable status.
type Retrier struct {
	config RetryConfig
	client *http.Client
}

func NewRetrier(config RetryConfig, client *http.Client) *Retrier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Retrier{config: config, client: client}
}

// Do sends req until it succeeds, the retries run out or ctx ends. The
// request body is replayed from GetBody on every attempt.
func (r *Retrier) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return retryLoop(ctx, r.config, req, r, r.client.Do)
}

func (r *Retrier) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next <= 0 {
		next = r.config.InitialBackoff
	}
	if jitter := int64(next / 10); jitter > 0 {
		next += time.Duration(rand.Int64N(jitter))
	}
	if next > r.config.MaxBackoff {
		next = r.config.MaxBackoff
	}
	return next
}

// getRetryAfter reads a Retry-After header in either seconds or HTTP-date
// form. Anything unparseable is 0.
func (r *Retrier) getRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// RetryTransport is an http.RoundTripper that applies RetryConfig.
type RetryTransport struct {
	config  RetryConfig
	base    http.RoundTripper
	retrier *Retrier
}

func NewRetryTransport(config RetryConfig, base http.RoundTripper) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{
		config:  config,
		base:    base,
		retrier: NewRetrier(config, nil),
	}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return retryLoop(req.Context(), t.config, req, t.retrier, t.base.RoundTrip)
}

func (t *RetryTransport) shouldRetry(status int) bool {
	return t.config.retryable(status)
}

func retryLoop(ctx context.Context, cfg RetryConfig, req *http.Request, r *Retrier, send func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	backoff := cfg.InitialBackoff
	var lastStatus int

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		attemptReq, err := cloneRequest(ctx, req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := send(attemptReq)
		if err != nil {
			return nil, err
		}
		if !cfg.retryable(resp.StatusCode) {
			return resp, nil
		}

		lastStatus = resp.StatusCode
		wait := max(backoff, r.getRetryAfter(resp))
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if attempt == cfg.MaxRetries {
			break
		}
		logger.Logger.Debug("Retrying node request", "url", req.URL.String(), "status", lastStatus, "attempt", attempt+1, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff = r.nextBackoff(backoff)
	}

	return nil, fmt.Errorf("giving up on %s %s after %d retries: last status %d", req.Method, req.URL.Redacted(), cfg.MaxRetries, lastStatus)
}

func cloneRequest(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	clone := req.Clone(ctx)
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body for %s cannot be replayed", req.URL.Redacted())
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replay request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}
