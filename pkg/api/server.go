// Package api serves a read-only HTTP view of a Strata store: health,
// statistics, raw entry scans and Prometheus metrics.
//
// Every route under /api/v1 requires the configured key in the X-API-Key
// header. /metrics is left open for scraping.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ssargent/strata/pkg/logger"
	"github.com/ssargent/strata/pkg/metrics"
)

const metricsRefresh = 30 * time.Second

// NewRouter builds the HTTP handler for s. Metrics are served from gatherer;
// nil means prometheus.DefaultGatherer.
func NewRouter(s *Server, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	m := s.metrics

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKeyMiddleware(s.config.APIKey))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Get("/stats", m.InstrumentHandler("GET", "/api/v1/stats", s.handleStats))
		r.Get("/scan", m.InstrumentHandler("GET", "/api/v1/scan", s.handleScan))
		r.Get("/types/{keyPrefix}", m.InstrumentHandler("GET", "/api/v1/types/{keyPrefix}", s.handleType))
	})

	return r
}

// requestLogger logs one line per request at debug level.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugf("%s %s %d %dB %s [%s]", r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(),
				time.Since(start), middleware.GetReqID(r.Context()))
		})
	}
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, store Inspector, config ServerConfig, m *metrics.Metrics, gatherer prometheus.Gatherer, log logger.Logger) error {
	s := NewServer(store, config, m, log)
	if config.APIKey == "" {
		s.log.Warnf("no API key configured, /api/v1 is unauthenticated")
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(config.Bind, strconv.Itoa(config.Port)),
		Handler:           NewRouter(s, gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.startMetricsUpdater(ctx, metricsRefresh)

	errc := make(chan error, 1)
	go func() {
		s.log.Infof("starting Strata API server on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	s.log.Infof("shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
