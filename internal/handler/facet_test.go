package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wavedial/wavedial/internal/aggregate"
	"github.com/wavedial/wavedial/internal/catalog"
	"github.com/wavedial/wavedial/internal/handler/dto"
	"github.com/wavedial/wavedial/internal/model"
)

type fakeSource struct {
	name     string
	facets   []model.FacetCount
	stations []model.StationRecord
	err      error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchFacet(ctx context.Context, facet model.FacetType, q catalog.FacetQuery) ([]model.FacetCount, error) {
	return f.facets, f.err
}

func (f *fakeSource) FetchStations(ctx context.Context, q catalog.StationQuery) ([]model.StationRecord, error) {
	return f.stations, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFacetHandler(external, local catalog.Source) *FacetHandler {
	agg := aggregate.New(local, external, testLogger(), nil)
	return NewFacetHandler(agg, testLogger())
}

func TestFacetHandler_Countries(t *testing.T) {
	external := &fakeSource{
		name: "external",
		facets: []model.FacetCount{
			{Key: "brazil", Label: "Brazil", ExternalCount: 120, Combined: 120, Provenance: model.ProvenanceExternal},
		},
	}
	local := &fakeSource{
		name: "custom",
		facets: []model.FacetCount{
			{Key: "brazil", Label: "Brazil", CustomCount: 5, Combined: 5, Provenance: model.ProvenanceCustom},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil)
	rec := httptest.NewRecorder()

	newFacetHandler(external, local).Countries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.FacetResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Facet != "countries" {
		t.Errorf("expected facet countries, got %q", resp.Facet)
	}
	if len(resp.Items) != 1 || resp.Items[0].Combined != 125 {
		t.Errorf("unexpected items: %+v", resp.Items)
	}
	if resp.Total != 1 {
		t.Errorf("expected total 1, got %d", resp.Total)
	}
	if len(resp.Degraded) != 0 {
		t.Errorf("expected no degraded sources, got %v", resp.Degraded)
	}
}

func TestFacetHandler_InvalidLimit(t *testing.T) {
	h := newFacetHandler(&fakeSource{name: "external"}, &fakeSource{name: "custom"})

	for _, limit := range []string{"abc", "0", "-1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/genres?limit="+limit, nil)
		rec := httptest.NewRecorder()

		h.Genres(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: expected 400, got %d", limit, rec.Code)
		}
	}
}

func TestFacetHandler_BothSourcesDown(t *testing.T) {
	external := &fakeSource{name: "external", err: errors.New("down")}
	local := &fakeSource{name: "custom", err: errors.New("down")}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/languages", nil)
	rec := httptest.NewRecorder()

	newFacetHandler(external, local).Languages(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "AGGREGATION_UNAVAILABLE" {
		t.Errorf("expected AGGREGATION_UNAVAILABLE, got %q", resp.Code)
	}
}

func TestFacetHandler_DegradedStillSucceeds(t *testing.T) {
	external := &fakeSource{name: "external", err: errors.New("timeout")}
	local := &fakeSource{
		name: "custom",
		facets: []model.FacetCount{
			{Key: "rock", Label: "rock", CustomCount: 3, Combined: 3, Provenance: model.ProvenanceCustom},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/genres", nil)
	rec := httptest.NewRecorder()

	newFacetHandler(external, local).Genres(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 under partial failure, got %d", rec.Code)
	}

	var resp dto.FacetResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Degraded) != 1 || resp.Degraded[0] != "external" {
		t.Errorf("expected degraded=[external], got %v", resp.Degraded)
	}
	if len(resp.Items) != 1 {
		t.Errorf("expected surviving source's items, got %d", len(resp.Items))
	}
}

func TestFacetHandler_Popular(t *testing.T) {
	external := &fakeSource{
		name: "external",
		stations: []model.StationRecord{
			{ID: "uuid-1", Name: "Big FM", Popularity: 9000, Provenance: model.ProvenanceExternal},
		},
	}
	local := &fakeSource{
		name: "custom",
		stations: []model.StationRecord{
			{ID: "7", Name: "Community", Popularity: 12, Provenance: model.ProvenanceCustom},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations/popular", nil)
	rec := httptest.NewRecorder()

	newFacetHandler(external, local).Popular(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.PopularResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected 2 stations, got %d", resp.Total)
	}
	if resp.Stations[0].ID != "uuid-1" {
		t.Errorf("expected highest popularity first, got %q", resp.Stations[0].ID)
	}
}

func TestFacetHandler_Search(t *testing.T) {
	external := &fakeSource{
		name: "external",
		stations: []model.StationRecord{
			{ID: "uuid-1", Name: "Jazz24", Provenance: model.ProvenanceExternal},
		},
	}
	local := &fakeSource{name: "custom"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations/search?search=jazz", nil)
	rec := httptest.NewRecorder()

	newFacetHandler(external, local).Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ExternalTotal != 1 || resp.CustomTotal != 0 {
		t.Errorf("expected 1/0 hits, got %d/%d", resp.ExternalTotal, resp.CustomTotal)
	}
}

func TestFacetHandler_SearchBadPage(t *testing.T) {
	h := newFacetHandler(&fakeSource{name: "external"}, &fakeSource{name: "custom"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations/search?page=zero", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
