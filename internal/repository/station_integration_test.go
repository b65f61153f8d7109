//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/wavedial/wavedial/internal/model"
	"github.com/wavedial/wavedial/internal/testutil"
)

// ============================================================================
// Station Repository Integration Tests
// ============================================================================

func TestIntegrationStationRepository_CreateStation(t *testing.T) {
	ctx, repo := newStationTestEnv(t)

	station := testutil.NewTestStation(t, testutil.UniqueName("create"))

	if err := repo.CreateStation(ctx, station); err != nil {
		t.Fatalf("CreateStation failed: %v", err)
	}

	if station.ID == 0 {
		t.Fatal("ID should be set after insert")
	}

	retrieved, err := repo.GetStationByID(ctx, station.ID)
	if err != nil {
		t.Fatalf("GetStationByID failed: %v", err)
	}

	if retrieved.Name != station.Name {
		t.Errorf("Name mismatch: got %q, want %q", retrieved.Name, station.Name)
	}
	if retrieved.TotalClicks != 0 {
		t.Errorf("new station should have 0 clicks, got %d", retrieved.TotalClicks)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if len(retrieved.Tags) != 1 || retrieved.Tags[0] != "rock" {
		t.Errorf("Tags mismatch: got %v", retrieved.Tags)
	}
}

func TestIntegrationStationRepository_GetByID_NotFound(t *testing.T) {
	ctx, repo := newStationTestEnv(t)

	_, err := repo.GetStationByID(ctx, 999999)
	if !errors.Is(err, ErrStationNotFound) {
		t.Errorf("Expected ErrStationNotFound, got: %v", err)
	}
}

func TestIntegrationStationRepository_ListStations_FiltersInactive(t *testing.T) {
	ctx, repo := newStationTestEnv(t)

	active := testutil.NewTestStation(t, testutil.UniqueName("active"))
	if err := repo.CreateStation(ctx, active); err != nil {
		t.Fatalf("CreateStation (active) failed: %v", err)
	}

	pending := testutil.NewTestStation(t, testutil.UniqueName("pending"))
	pending.Status = model.StationStatusPending
	if err := repo.CreateStation(ctx, pending); err != nil {
		t.Fatalf("CreateStation (pending) failed: %v", err)
	}

	stations, err := repo.ListStations(ctx, StationFilter{})
	if err != nil {
		t.Fatalf("ListStations failed: %v", err)
	}

	for _, s := range stations {
		if s.ID == pending.ID {
			t.Error("pending station leaked into active listing")
		}
	}
}

func TestIntegrationStationRepository_ListStations_TagFilter(t *testing.T) {
	ctx, repo := newStationTestEnv(t)

	jazz := testutil.NewTestStation(t, testutil.UniqueName("jazz"))
	jazz.Tags = []string{"jazz", "smooth"}
	if err := repo.CreateStation(ctx, jazz); err != nil {
		t.Fatalf("CreateStation failed: %v", err)
	}

	rock := testutil.NewTestStation(t, testutil.UniqueName("rock"))
	if err := repo.CreateStation(ctx, rock); err != nil {
		t.Fatalf("CreateStation failed: %v", err)
	}

	stations, err := repo.ListStations(ctx, StationFilter{Tag: "jazz"})
	if err != nil {
		t.Fatalf("ListStations failed: %v", err)
	}

	if len(stations) != 1 || stations[0].ID != jazz.ID {
		t.Errorf("expected only the jazz station, got %d results", len(stations))
	}
}

func TestIntegrationStationRepository_FacetCounts(t *testing.T) {
	ctx, repo := newStationTestEnv(t)

	for i := 0; i < 3; i++ {
		s := testutil.NewTestStation(t, testutil.UniqueName("br"))
		if err := repo.CreateStation(ctx, s); err != nil {
			t.Fatalf("CreateStation failed: %v", err)
		}
	}
	iceland := testutil.NewTestStation(t, testutil.UniqueName("is"))
	iceland.Country = "Iceland"
	iceland.Language = "icelandic"
	iceland.Tags = []string{"indie", "rock"}
	if err := repo.CreateStation(ctx, iceland); err != nil {
		t.Fatalf("CreateStation failed: %v", err)
	}

	countries, err := repo.CountStationsByCountry(ctx)
	if err != nil {
		t.Fatalf("CountStationsByCountry failed: %v", err)
	}
	if len(countries) != 2 {
		t.Fatalf("expected 2 countries, got %d", len(countries))
	}
	if countries[0].Label != "Brazil" || countries[0].CustomCount != 3 {
		t.Errorf("expected Brazil with 3 stations first, got %q/%d", countries[0].Label, countries[0].CustomCount)
	}
	if countries[0].Provenance != model.ProvenanceCustom {
		t.Errorf("expected custom provenance, got %q", countries[0].Provenance)
	}

	tags, err := repo.CountStationsByTag(ctx)
	if err != nil {
		t.Fatalf("CountStationsByTag failed: %v", err)
	}
	// rock: 3 Brazil stations + Iceland = 4, indie: 1
	if tags[0].Key != "rock" || tags[0].CustomCount != 4 {
		t.Errorf("expected rock with 4 stations first, got %q/%d", tags[0].Key, tags[0].CustomCount)
	}
}

// ============================================================================
// Test environment
// ============================================================================

func newStationTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetStationsSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset stations schema: %v", err)
	}
	if err := testutil.ResetClickEventsSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset click_events schema: %v", err)
	}
	if err := testutil.ResetPeriodStatisticsSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset period_statistics schema: %v", err)
	}

	return ctx, repo
}
