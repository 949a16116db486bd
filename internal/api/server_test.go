package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/peetj/btc-tracker/internal/engine"
	"github.com/peetj/btc-tracker/internal/model"
	"github.com/peetj/btc-tracker/internal/store"
)

type fixedLoader struct{ series model.Series }

func (f fixedLoader) Load() (model.Series, error) { return f.series, nil }

type noopFetcher struct{}

func (noopFetcher) FetchRange(ctx context.Context, fromMs, toMs int64) ([]model.DailyRecord, error) {
	return nil, nil
}

func testServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	arc := model.Series{
		{Timestamp: day.UnixMilli(), Open: 99, High: 103, Low: 98, Close: 100, Volume: 5},
		{Timestamp: day.AddDate(0, 0, 1).UnixMilli(), Open: 100, High: 106, Low: 99, Close: 105, Volume: 5},
	}
	st := store.NewMemoryStore()
	eng := engine.New(fixedLoader{series: arc}, st, noopFetcher{}, func() time.Time {
		return day.AddDate(0, 0, 1).Add(6 * time.Hour)
	})
	return NewServer(eng, st, time.UTC, nil, 0, "*"), st
}

func TestHandleSeries(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/series?granularity=day", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}

	var out seriesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Series) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out.Series))
	}
	if out.Status.Source != model.SourceCSVOnly {
		t.Fatalf("source: want CSV_ONLY, got %s", out.Status.Source)
	}
}

func TestHandleSeries_BadGranularity(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/series?granularity=fortnight", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestStoreDebugEndpoints(t *testing.T) {
	srv, st := testServer(t)
	if err := st.Put(model.DailyRecord{Timestamp: 1000, Close: 50}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/store/stats", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status: %d", w.Code)
	}
	var stats store.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Count != 1 {
		t.Fatalf("expected count 1, got %d", stats.Count)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/store", nil)
	w = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("clear status: %d", w.Code)
	}

	all, _ := st.GetAll()
	if len(all) != 0 {
		t.Fatalf("store should be empty after clear, got %d", len(all))
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("health status: %d", w.Code)
	}
}
