package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wavedial/wavedial/internal/model"
)

// StationsWithUnrolledEvents returns the IDs of stations that have click
// events not yet folded into period statistics.
func (r *Repository) StationsWithUnrolledEvents(ctx context.Context) ([]int64, error) {
	query := `
		SELECT DISTINCT station_id
		FROM click_events
		WHERE rolled_at IS NULL
		ORDER BY station_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stations with unrolled events: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan station id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// RollStationEvents folds all unrolled click events for one station into
// period_statistics rows and marks exactly those events as rolled, in a
// single transaction. Only never-rolled events are read, so re-running over
// the same event set cannot double-count. Returns the number of events folded.
func (r *Repository) RollStationEvents(ctx context.Context, stationID int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin rollup transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the unrolled events so a concurrent roller run cannot fold the
	// same rows twice.
	selectQuery := `
		SELECT id, clicked_at
		FROM click_events
		WHERE station_id = $1 AND rolled_at IS NULL
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, selectQuery, stationID)
	if err != nil {
		return 0, fmt.Errorf("select unrolled events: %w", err)
	}

	var ids []string
	byPeriod := make(map[time.Time]int64)
	for rows.Next() {
		var id string
		var clickedAt time.Time
		if err := rows.Scan(&id, &clickedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan unrolled event: %w", err)
		}
		ids = append(ids, id)
		byPeriod[model.PeriodStart(clickedAt)]++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate unrolled events: %w", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	upsertQuery := `
		INSERT INTO period_statistics (station_id, period_start, period_end, access_count, last_updated)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (station_id, period_start) DO UPDATE SET
			access_count = period_statistics.access_count + EXCLUDED.access_count,
			last_updated = NOW()
	`

	for periodStart, count := range byPeriod {
		periodEnd := periodStart.Add(model.PeriodLength)
		if _, err := tx.Exec(ctx, upsertQuery, stationID, periodStart, periodEnd, count); err != nil {
			return 0, fmt.Errorf("upsert period statistic %s: %w", periodStart.Format(time.RFC3339), err)
		}
	}

	markQuery := `UPDATE click_events SET rolled_at = NOW() WHERE id = ANY($1)`
	if _, err := tx.Exec(ctx, markQuery, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("mark events rolled: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit rollup transaction: %w", err)
	}

	return int64(len(ids)), nil
}

// PruneRolledEvents deletes click events that were folded into statistics
// before the cutoff. Unrolled events are never deleted. Returns the number
// of rows removed.
func (r *Repository) PruneRolledEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM click_events
		WHERE rolled_at IS NOT NULL AND clicked_at < $1
	`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune rolled events: %w", err)
	}

	return tag.RowsAffected(), nil
}

// GetPeriodStatistics returns the rollup rows for one station, most recent
// period first.
func (r *Repository) GetPeriodStatistics(ctx context.Context, stationID int64, limit int) ([]*model.PeriodStatistic, error) {
	if limit <= 0 {
		limit = 26 // one year of fortnights
	}

	query := `
		SELECT station_id, period_start, period_end, access_count, last_updated
		FROM period_statistics
		WHERE station_id = $1
		ORDER BY period_start DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query period statistics: %w", err)
	}
	defer rows.Close()

	var stats []*model.PeriodStatistic
	for rows.Next() {
		var stat model.PeriodStatistic
		if err := rows.Scan(&stat.StationID, &stat.PeriodStart, &stat.PeriodEnd, &stat.AccessCount, &stat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan period statistic: %w", err)
		}
		stats = append(stats, &stat)
	}

	return stats, rows.Err()
}
