package api

import (
	"log"
	"net/http"

	"github.com/peetj/btc-tracker/internal/aggregate"
	"github.com/peetj/btc-tracker/internal/model"
)

type seriesResponse struct {
	Series model.Series      `json:"series"`
	Status model.FetchStatus `json:"status"`
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	g := model.GranularityDay
	if q := r.URL.Query().Get("granularity"); q != "" {
		parsed, err := model.ParseGranularity(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		g = parsed
	}

	s.reconcileMu.Lock()
	series, status := s.engine.Reconcile(r.Context(), false)
	s.reconcileMu.Unlock()

	writeJSON(w, http.StatusOK, seriesResponse{
		Series: aggregate.Aggregate(series, g, s.loc),
		Status: status,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.reconcileMu.Lock()
	series, status := s.engine.Reconcile(r.Context(), true)
	s.reconcileMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"count":  len(series),
	})
}

func (s *Server) handleStoreStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		log.Printf("[ERROR] store stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read store stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStoreClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(); err != nil {
		log.Printf("[ERROR] store clear: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to clear store")
		return
	}
	log.Println("[INFO] local store cleared via debug endpoint")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
