package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/peetj/btc-tracker/internal/engine"
	"github.com/peetj/btc-tracker/internal/store"
)

// Server exposes the reconciled series and the store debug surface over
// HTTP. Reconcile-triggering handlers hold the process-wide reconcile lock:
// the engine does not protect against concurrent calls racing on store
// writes, so callers serialize.
type Server struct {
	engine     *engine.Engine
	store      store.Store
	loc        *time.Location
	httpServer *http.Server

	reconcileMu *sync.Mutex
}

// NewServer wires the routes. loc is the calendar location used for
// aggregation buckets; reconcileMu is shared with every other reconcile
// caller (nil allocates a private one).
func NewServer(eng *engine.Engine, st store.Store, loc *time.Location, reconcileMu *sync.Mutex, port int, corsOrigin string) *Server {
	if loc == nil {
		loc = time.Local
	}
	if reconcileMu == nil {
		reconcileMu = &sync.Mutex{}
	}
	s := &Server{engine: eng, store: st, loc: loc, reconcileMu: reconcileMu}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/series", s.handleSeries)
	mux.HandleFunc("POST /v1/refresh", s.handleRefresh)

	// Debug surface
	mux.HandleFunc("GET /v1/store/stats", s.handleStoreStats)
	mux.HandleFunc("DELETE /v1/store", s.handleStoreClear)

	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      corsMiddleware(mux, corsOrigin),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // a series request may wait on a live fetch
	}

	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// --- middleware ---

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
