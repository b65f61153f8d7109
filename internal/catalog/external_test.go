package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wavedial/wavedial/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExternal(baseURL string, cache ResponseCache) *External {
	return NewExternal(ExternalConfig{
		BaseURL:   baseURL,
		UserAgent: "wavedial-test/1.0",
		Timeout:   2 * time.Second,
		Cache:     cache,
	}, testLogger())
}

func TestExternal_FetchFacetCountries(t *testing.T) {
	var gotPath, gotOrder string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotOrder = r.URL.Query().Get("order")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"Brazil","stationcount":120},{"name":"Germany","stationcount":80}]`))
	}))
	defer srv.Close()

	ext := newTestExternal(srv.URL, nil)

	counts, err := ext.FetchFacet(context.Background(), model.FacetCountries, FacetQuery{Limit: 10})
	if err != nil {
		t.Fatalf("FetchFacet failed: %v", err)
	}

	if gotPath != "/json/countries" {
		t.Errorf("expected /json/countries, got %q", gotPath)
	}
	if gotOrder != "stationcount" {
		t.Errorf("expected order=stationcount, got %q", gotOrder)
	}

	if len(counts) != 2 {
		t.Fatalf("expected 2 counts, got %d", len(counts))
	}
	brazil := counts[0]
	if brazil.Key != "brazil" || brazil.Label != "Brazil" {
		t.Errorf("unexpected key/label: %q/%q", brazil.Key, brazil.Label)
	}
	if brazil.ExternalCount != 120 || brazil.Combined != 120 {
		t.Errorf("unexpected counts: %d/%d", brazil.ExternalCount, brazil.Combined)
	}
	if brazil.Provenance != model.ProvenanceExternal {
		t.Errorf("unexpected provenance: %q", brazil.Provenance)
	}
}

func TestExternal_FetchFacetGenresPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ext := newTestExternal(srv.URL, nil)
	if _, err := ext.FetchFacet(context.Background(), model.FacetGenres, FacetQuery{}); err != nil {
		t.Fatalf("FetchFacet failed: %v", err)
	}
	if gotPath != "/json/tags" {
		t.Errorf("genres must map to /json/tags, got %q", gotPath)
	}
}

func TestExternal_FetchStationsPopular(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[{"stationuuid":"abc","name":"Big FM","url":"http://u","url_resolved":"http://resolved","country":"Brazil","tags":"rock, pop","votes":9000}]`))
	}))
	defer srv.Close()

	ext := newTestExternal(srv.URL, nil)

	recs, err := ext.FetchStations(context.Background(), StationQuery{Popular: true, Limit: 25})
	if err != nil {
		t.Fatalf("FetchStations failed: %v", err)
	}

	if gotPath != "/json/stations/topvote/25" {
		t.Errorf("expected topvote path, got %q", gotPath)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	rec := recs[0]
	if rec.ID != "abc" {
		t.Errorf("unexpected ID %q", rec.ID)
	}
	if rec.StreamURL != "http://resolved" {
		t.Errorf("url_resolved must win, got %q", rec.StreamURL)
	}
	if rec.Popularity != 9000 {
		t.Errorf("unexpected popularity %d", rec.Popularity)
	}
	if len(rec.Tags) != 2 || rec.Tags[0] != "rock" || rec.Tags[1] != "pop" {
		t.Errorf("comma-separated tags not split: %v", rec.Tags)
	}
	if rec.Provenance != model.ProvenanceExternal {
		t.Errorf("unexpected provenance %q", rec.Provenance)
	}
}

func TestExternal_FetchStationsByCountry(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ext := newTestExternal(srv.URL, nil)
	if _, err := ext.FetchStations(context.Background(), StationQuery{Country: "Brazil", Limit: 5}); err != nil {
		t.Fatalf("FetchStations failed: %v", err)
	}
	if gotPath != "/json/stations/bycountryexact/Brazil" {
		t.Errorf("expected bycountryexact path, got %q", gotPath)
	}
}

func TestExternal_HTTPErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	ext := newTestExternal(srv.URL, nil)

	_, err := ext.FetchFacet(context.Background(), model.FacetCountries, FacetQuery{})
	if !errors.Is(err, ErrExternalUnavailable) {
		t.Fatalf("expected ErrExternalUnavailable, got: %v", err)
	}
}

func TestExternal_RegisterClick(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	ext := newTestExternal(srv.URL, nil)

	if err := ext.RegisterClick(context.Background(), "some-uuid"); err != nil {
		t.Fatalf("RegisterClick failed: %v", err)
	}
	if gotPath != "/json/url/some-uuid" {
		t.Errorf("expected click registration path, got %q", gotPath)
	}
}

// memoryCache is a trivial ResponseCache for tests.
type memoryCache struct {
	entries map[string][]byte
	sets    int
}

func (m *memoryCache) GetExternalResponse(ctx context.Context, key string) ([]byte, error) {
	if body, ok := m.entries[key]; ok {
		return body, nil
	}
	return nil, errors.New("miss")
}

func (m *memoryCache) SetExternalResponse(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	m.entries[key] = body
	m.sets++
	return nil
}

func TestExternal_ResponseCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`[{"name":"Brazil","stationcount":120}]`))
	}))
	defer srv.Close()

	cache := &memoryCache{entries: make(map[string][]byte)}
	ext := newTestExternal(srv.URL, cache)

	for i := 0; i < 3; i++ {
		if _, err := ext.FetchFacet(context.Background(), model.FacetCountries, FacetQuery{}); err != nil {
			t.Fatalf("FetchFacet %d failed: %v", i, err)
		}
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected 1 upstream request with warm cache, got %d", got)
	}
	if cache.sets != 1 {
		t.Errorf("expected 1 cache write, got %d", cache.sets)
	}
}

func TestExternal_CircuitBreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ext := newTestExternal(srv.URL, nil)

	for i := 0; i < breakerFailureThreshold; i++ {
		if _, err := ext.FetchFacet(context.Background(), model.FacetCountries, FacetQuery{}); err == nil {
			t.Fatalf("request %d: expected failure", i)
		}
	}

	before := atomic.LoadInt32(&hits)

	// Breaker is open now: the next call must fail fast without a request.
	_, err := ext.FetchFacet(context.Background(), model.FacetCountries, FacetQuery{})
	if !errors.Is(err, ErrExternalUnavailable) {
		t.Fatalf("expected ErrExternalUnavailable from open breaker, got: %v", err)
	}
	if atomic.LoadInt32(&hits) != before {
		t.Errorf("open breaker still reached upstream")
	}
}
