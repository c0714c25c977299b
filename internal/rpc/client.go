// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/woco-foundation/swarmctl/internal/errors"
	"github.com/woco-foundation/swarmctl/internal/logger"
	"github.com/woco-foundation/swarmctl/internal/postage"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
	tracerName     = "github.com/woco-foundation/swarmctl/internal/rpc"
)

// ResponseError is a non-2xx answer from the node.
type ResponseError struct {
	Status  int
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", errors.ErrNodeRequestFailed, e.Status, e.Message)
}

func (e *ResponseError) Unwrap() error {
	return errors.ErrNodeRequestFailed
}

// Client talks to a Bee node's HTTP API. Reads are retried; writes are sent
// once, since a repeated top-up or purchase would pay twice.
type Client struct {
	baseURL string
	reads   *http.Client
	writes  *http.Client
	tracer  trace.Tracer
}

type Option func(*Client)

// WithRetryConfig replaces the retry policy applied to reads.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) {
		c.reads = &http.Client{
			Timeout:   c.reads.Timeout,
			Transport: NewRetryTransport(cfg, c.writes.Transport),
		}
	}
}

// WithHTTPClient sends all requests through hc without retries.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.reads = hc
		c.writes = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.reads.Timeout = d
		c.writes.Timeout = d
	}
}

// NewClient creates a client for a preset node. Unknown presets fall back to
// the local node.
func NewClient(node Node, opts ...Option) *Client {
	cfg, ok := ConfigFor(node)
	if !ok {
		cfg = LocalConfig
	}
	return NewClientWithURL(cfg.APIURL, opts...)
}

// NewClientWithURL creates a client for a custom node URL.
func NewClientWithURL(apiURL string, opts ...Option) *Client {
	base := http.DefaultTransport
	c := &Client{
		baseURL: strings.TrimRight(apiURL, "/"),
		reads: &http.Client{
			Timeout:   defaultTimeout,
			Transport: NewRetryTransport(DefaultRetryConfig(), base),
		},
		writes: &http.Client{
			Timeout:   defaultTimeout,
			Transport: base,
		},
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if _, err := c.get(ctx, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) ChainState(ctx context.Context) (*ChainState, error) {
	var cs ChainState
	if _, err := c.get(ctx, "/chainstate", &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

// CurrentPrice fetches the price per chunk per block. It is never cached.
// Any failure, including a missing or non-positive price, wraps
// ErrPriceUnavailable.
func (c *Client) CurrentPrice(ctx context.Context) (postage.PriceQuote, error) {
	cs, err := c.ChainState(ctx)
	if err != nil {
		return postage.PriceQuote{}, errors.WrapPriceUnavailable(err)
	}
	price := cs.Price()
	if !price.Available() {
		return postage.PriceQuote{}, errors.WrapPriceUnavailable(fmt.Errorf("chainstate reported price %s", cs.CurrentPrice))
	}
	return price, nil
}

// Stamps lists the node's batches, most recently created first.
func (c *Client) Stamps(ctx context.Context) ([]Stamp, error) {
	var resp stampsResponse
	if _, err := c.get(ctx, "/stamps", &resp); err != nil {
		return nil, err
	}
	slices.SortStableFunc(resp.Stamps, func(a, b Stamp) int {
		switch {
		case a.BlockNumber > b.BlockNumber:
			return -1
		case a.BlockNumber < b.BlockNumber:
			return 1
		default:
			return 0
		}
	})
	return resp.Stamps, nil
}

func (c *Client) Stamp(ctx context.Context, batchID string) (*Stamp, error) {
	if err := ValidateBatchID(batchID); err != nil {
		return nil, err
	}
	var s Stamp
	if _, err := c.get(ctx, "/stamps/"+batchID, &s); err != nil {
		var re *ResponseError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			return nil, errors.WrapBatchNotFound(batchID)
		}
		return nil, err
	}
	return &s, nil
}

func (c *Client) Wallet(ctx context.Context) (*Wallet, error) {
	var w Wallet
	if _, err := c.get(ctx, "/wallet", &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// BuyStamp buys a batch of depth funded with amountPerChunk.
func (c *Client) BuyStamp(ctx context.Context, amountPerChunk *big.Int, depth uint8, label string, immutable bool) (*TxResponse, error) {
	path := fmt.Sprintf("/stamps/%d/%d", amountPerChunk, depth)
	if label != "" {
		path += "?label=" + url.QueryEscape(label)
	}
	header := http.Header{}
	header.Set("Immutable", strconv.FormatBool(immutable))

	var tx TxResponse
	if _, err := c.do(ctx, c.writes, http.MethodPost, path, header, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// TopUp adds amountPerChunk to every chunk of the batch at its current depth.
func (c *Client) TopUp(ctx context.Context, batchID string, amountPerChunk *big.Int) (*TxResponse, error) {
	if err := ValidateBatchID(batchID); err != nil {
		return nil, err
	}
	var tx TxResponse
	path := fmt.Sprintf("/stamps/topup/%s/%d", batchID, amountPerChunk)
	if _, err := c.do(ctx, c.writes, http.MethodPatch, path, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Dilute raises the batch to newDepth.
func (c *Client) Dilute(ctx context.Context, batchID string, newDepth uint8) (*TxResponse, error) {
	if err := ValidateBatchID(batchID); err != nil {
		return nil, err
	}
	var tx TxResponse
	path := fmt.Sprintf("/stamps/dilute/%s/%d", batchID, newDepth)
	if _, err := c.do(ctx, c.writes, http.MethodPatch, path, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// FeedLatest fetches the newest update of the feed owned by owner under
// topic. Both are hex without a 0x prefix.
func (c *Client) FeedLatest(ctx context.Context, owner, topic string) (*FeedUpdate, error) {
	var fu FeedUpdate
	header, err := c.get(ctx, fmt.Sprintf("/feeds/%s/%s?type=sequence", owner, topic), &fu)
	if err != nil {
		return nil, err
	}
	fu.Index = header.Get("Swarm-Feed-Index")
	fu.NextIndex = header.Get("Swarm-Feed-Index-Next")
	return &fu, nil
}

func (c *Client) get(ctx context.Context, path string, out any) (http.Header, error) {
	return c.do(ctx, c.reads, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, header http.Header, out any) (http.Header, error) {
	route := routeOf(path)
	ctx, span := c.tracer.Start(ctx, method+" "+route, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("bee.url", c.baseURL),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	logger.Logger.Debug("Node request", "method", method, "path", path)
	resp, err := hc.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		logger.Logger.Error("Node request failed", "method", method, "path", path, "error", err)
		return nil, errors.WrapNodeConnectionFailed(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		return nil, errors.WrapNodeConnectionFailed(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		re := &ResponseError{Status: resp.StatusCode, Message: parseErrorMessage(body)}
		span.SetStatus(codes.Error, re.Message)
		logger.Logger.Debug("Node returned error", "method", method, "path", path, "status", re.Status, "message", re.Message)
		return nil, re
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			span.RecordError(err)
			return nil, errors.WrapUnmarshalFailed(err, truncate(string(body), 256))
		}
	}
	return resp.Header, nil
}

// routeOf collapses IDs and amounts so span names stay low-cardinality.
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if i > 0 && p != "topup" && p != "dilute" {
			parts[i] = "{}"
		}
	}
	return "/" + strings.Join(parts, "/")
}
