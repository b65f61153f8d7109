package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/wavedial/wavedial/internal/model"
)

// Common errors for station repository operations.
var (
	ErrStationNotFound = errors.New("station not found")
)

// StationFilter defines filters for listing local catalog stations.
// The zero value lists all active stations ordered by popularity.
type StationFilter struct {
	Country  string
	Language string
	Tag      string
	Search   string // substring match on name/description
	Limit    int
	Offset   int
}

const stationColumns = `id, name, description, stream_url, homepage, country, language, tags, status, total_clicks, created_at, updated_at`

// CreateStation inserts a new user-submitted station. The generated ID and
// timestamps are written back into the struct.
func (r *Repository) CreateStation(ctx context.Context, station *model.Station) error {
	query := `
		INSERT INTO stations (name, description, stream_url, homepage, country, language, tags, status, total_clicks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		station.Name,
		station.Description,
		station.StreamURL,
		nullableString(station.Homepage),
		nullableString(station.Country),
		nullableString(station.Language),
		pq.Array(station.Tags),
		station.Status,
	).Scan(&station.ID, &station.CreatedAt, &station.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create station: %w", err)
	}

	return nil
}

// GetStationByID retrieves a station by its numeric ID.
func (r *Repository) GetStationByID(ctx context.Context, id int64) (*model.Station, error) {
	query := `SELECT ` + stationColumns + ` FROM stations WHERE id = $1`

	station, err := scanStation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, fmt.Errorf("failed to get station by ID: %w", err)
	}

	return station, nil
}

// ListStations returns active stations matching the filter, ordered by
// total clicks descending then recency.
func (r *Repository) ListStations(ctx context.Context, filter StationFilter) ([]*model.Station, error) {
	conditions := []string{"status = 'active'"}
	args := []any{}

	if filter.Country != "" {
		args = append(args, filter.Country)
		conditions = append(conditions, fmt.Sprintf("country = $%d", len(args)))
	}
	if filter.Language != "" {
		args = append(args, filter.Language)
		conditions = append(conditions, fmt.Sprintf("language = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	limitClause := fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		limitClause += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	query := `SELECT ` + stationColumns + ` FROM stations WHERE ` +
		strings.Join(conditions, " AND ") +
		` ORDER BY total_clicks DESC, created_at DESC` + limitClause

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	defer rows.Close()

	var stations []*model.Station
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, station)
	}

	return stations, rows.Err()
}

// CountStationsByCountry aggregates active station counts per country.
func (r *Repository) CountStationsByCountry(ctx context.Context) ([]model.FacetCount, error) {
	query := `
		SELECT country, COUNT(*)
		FROM stations
		WHERE status = 'active' AND country IS NOT NULL AND country <> ''
		GROUP BY country
		ORDER BY COUNT(*) DESC, country ASC
	`
	return r.queryFacetCounts(ctx, query)
}

// CountStationsByTag aggregates active station counts per tag. Tags are
// stored as text[]; each tag counts once per station.
func (r *Repository) CountStationsByTag(ctx context.Context) ([]model.FacetCount, error) {
	query := `
		SELECT tag, COUNT(*)
		FROM stations, unnest(tags) AS tag
		WHERE status = 'active'
		GROUP BY tag
		ORDER BY COUNT(*) DESC, tag ASC
	`
	return r.queryFacetCounts(ctx, query)
}

// CountStationsByLanguage aggregates active station counts per language.
func (r *Repository) CountStationsByLanguage(ctx context.Context) ([]model.FacetCount, error) {
	query := `
		SELECT language, COUNT(*)
		FROM stations
		WHERE status = 'active' AND language IS NOT NULL AND language <> ''
		GROUP BY language
		ORDER BY COUNT(*) DESC, language ASC
	`
	return r.queryFacetCounts(ctx, query)
}

func (r *Repository) queryFacetCounts(ctx context.Context, query string) ([]model.FacetCount, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query facet counts: %w", err)
	}
	defer rows.Close()

	var counts []model.FacetCount
	for rows.Next() {
		var label string
		var count int64
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan facet count: %w", err)
		}
		counts = append(counts, model.FacetCount{
			Key:         model.FacetKey(label),
			Label:       label,
			CustomCount: count,
			Combined:    count,
			Provenance:  model.ProvenanceCustom,
		})
	}

	return counts, rows.Err()
}

// scanStation scans a station row from either QueryRow or Query results.
func scanStation(row pgx.Row) (*model.Station, error) {
	var station model.Station
	var description, homepage, country, language *string
	var tags []string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&station.ID,
		&station.Name,
		&description,
		&station.StreamURL,
		&homepage,
		&country,
		&language,
		pq.Array(&tags),
		&station.Status,
		&station.TotalClicks,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		station.Description = *description
	}
	if homepage != nil {
		station.Homepage = *homepage
	}
	if country != nil {
		station.Country = *country
	}
	if language != nil {
		station.Language = *language
	}
	station.Tags = tags
	station.CreatedAt = createdAt
	station.UpdatedAt = updatedAt

	return &station, nil
}

// nullableString returns nil for empty strings.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
