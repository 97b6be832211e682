package api

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ssargent/strata/pkg/logger"
	"github.com/ssargent/strata/pkg/metrics"
)

// DefaultScanLimit caps scans that do not pass a limit.
const DefaultScanLimit = 100

// Server holds the API server state
type Server struct {
	store   Inspector
	config  ServerConfig
	metrics *metrics.Metrics
	log     logger.Logger
	started time.Time
}

// NewServer creates a new API server
func NewServer(store Inspector, config ServerConfig, m *metrics.Metrics, log logger.Logger) *Server {
	if log == nil {
		log = logger.NopLogger
	}
	return &Server{
		store:   store,
		config:  config,
		metrics: m,
		log:     log,
		started: time.Now(),
	}
}

// handleHealth reports that the server is up and the store answers reads.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Scan(r.Context(), nil, 1); err != nil {
		sendError(w, fmt.Sprintf("store unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	sendSuccess(w, map[string]string{
		"status": "healthy",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleStats returns entry counts per key prefix.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to get stats: %v", err), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, stats)
}

// handleScan returns raw entries whose keys start with the hex-encoded
// prefix query parameter.
//
//	GET /api/v1/scan?prefix=<hex>&limit=<n>
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	prefix, err := hex.DecodeString(r.URL.Query().Get("prefix"))
	if err != nil {
		sendError(w, "prefix must be hex encoded", http.StatusBadRequest)
		return
	}
	s.scan(w, r, prefix)
}

// handleType returns the raw entries of one record type.
//
//	GET /api/v1/types/{keyPrefix}?limit=<n>
func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	kp, err := strconv.ParseUint(chi.URLParam(r, "keyPrefix"), 10, 32)
	if err != nil {
		sendError(w, "keyPrefix must be an unsigned 32-bit integer", http.StatusBadRequest)
		return
	}
	prefix := binary.BigEndian.AppendUint32(nil, uint32(kp))
	s.scan(w, r, prefix)
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request, prefix []byte) {
	limit := DefaultScanLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			sendError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.store.Scan(r.Context(), prefix, limit)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to scan: %v", err), http.StatusInternalServerError)
		return
	}
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newEntryResponse(e))
	}
	sendSuccess(w, out)
}

// startMetricsUpdater periodically refreshes the record count gauge until
// ctx is done.
func (s *Server) startMetricsUpdater(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Stats updates the gauge itself.
			if _, err := s.store.Stats(ctx); err != nil {
				s.log.Warnf("refreshing record metrics: %v", err)
			}
		}
	}
}
