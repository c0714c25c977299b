// Copyright 2025 The swarmctl Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	gorillarpc "github.com/gorilla/rpc"
	gorillajson "github.com/gorilla/rpc/json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/woco-foundation/swarmctl/internal/logger"
	"github.com/woco-foundation/swarmctl/internal/postage"
)

const serviceName = "Calculator"

type Options struct {
	Listen           string
	BlockTimeSeconds int64
	// RateLimit is requests per second per client on /rpc; zero disables it.
	RateLimit float64
	Burst     int
}

type Server struct {
	opts      Options
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	handler   http.Handler
}

// New builds the calculator server. prices may be nil, in which case every
// request must carry an explicit price.
func New(opts Options, prices PriceSource) (*Server, error) {
	if opts.BlockTimeSeconds <= 0 {
		opts.BlockTimeSeconds = postage.DefaultBlockTimeSeconds
	}

	registry := prometheus.NewRegistry()
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swarmctl",
		Name:      "quotes_total",
		Help:      "Quotes computed, by mode and whether a price was available.",
	}, []string{"mode", "priced"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swarmctl",
		Name:      "http_requests_total",
		Help:      "HTTP requests served.",
	}, []string{"route", "method", "status"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "swarmctl",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(quotes, requests, durations)

	rpcServer := gorillarpc.NewServer()
	rpcServer.RegisterCodec(gorillajson.NewCodec(), "application/json")
	calc := &Calculator{prices: prices, blockTime: opts.BlockTimeSeconds, quotes: quotes}
	if err := rpcServer.RegisterService(calc, serviceName); err != nil {
		return nil, fmt.Errorf("register %s service: %w", serviceName, err)
	}

	s := &Server{
		opts:      opts,
		registry:  registry,
		requests:  requests,
		durations: durations,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.With(s.observe("/healthz")).Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	rpcRoute := r.With(s.observe("/rpc"))
	if opts.RateLimit > 0 {
		rpcRoute = rpcRoute.With(NewRateLimiter(opts.RateLimit, opts.Burst).Middleware)
	}
	rpcRoute.Post("/rpc", rpcServer.ServeHTTP)
	s.handler = r
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Info("Calculator server listening", "addr", s.opts.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Logger.Info("Calculator server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) observe(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			s.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			s.durations.WithLabelValues(route).Observe(time.Since(start).Seconds())
			logger.Logger.Debug("HTTP request", "route", route, "method", r.Method, "status", rec.status,
				"duration", time.Since(start), "request_id", chimw.GetReqID(r.Context()))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
