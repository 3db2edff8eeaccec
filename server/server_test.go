package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"immo-scraper/models"
)

type staticRuns struct{ last *models.RunSummary }

func (s staticRuns) LastRun() *models.RunSummary { return s.last }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return rr
}

func TestHealthz(t *testing.T) {
	rr := get(t, NewRouter(staticRuns{}), "/healthz")
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}
}

func TestLastRunBeforeFirstRun(t *testing.T) {
	rr := get(t, NewRouter(staticRuns{}), "/runs/last")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestLastRun(t *testing.T) {
	runs := staticRuns{last: &models.RunSummary{
		RunID:       "abc",
		Mode:        models.ModeAppend,
		NewListings: 3,
		AlertIDs:    []string{"7"},
		Stats:       models.ScrapeStats{Success: 10, TotalListings: 12},
	}}

	rr := get(t, NewRouter(runs), "/runs/last")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var got models.RunSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != "abc" || got.NewListings != 3 || got.Stats.Success != 10 || got.Mode != models.ModeAppend {
		t.Errorf("got %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewRouter(staticRuns{})
	get(t, h, "/healthz")

	rr := get(t, h, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "immo_http_requests_total") {
		t.Errorf("metrics output misses request counter")
	}
}
