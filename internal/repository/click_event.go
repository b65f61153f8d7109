package repository

import (
	"context"
	"fmt"

	"github.com/wavedial/wavedial/internal/model"
)

// InsertClickEvent writes one click event and increments the owning
// station's total_clicks counter in the same transaction. The running counter
// is a fast-path denormalization; period statistics remain the source of
// truth for historical reporting. Returns the updated counter value.
func (r *Repository) InsertClickEvent(ctx context.Context, event *model.ClickEvent) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin click transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO click_events (id, station_id, clicked_at, ip, user_agent, referrer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err = tx.Exec(ctx, insertQuery,
		event.ID,
		event.StationID,
		event.ClickedAt,
		nullableString(event.IP),
		nullableString(event.UserAgent),
		nullableString(event.Referrer),
	)
	if err != nil {
		return 0, fmt.Errorf("insert click event: %w", err)
	}

	// Row-level lock on the station row serializes concurrent increments.
	var total int64
	counterQuery := `
		UPDATE stations SET total_clicks = total_clicks + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING total_clicks
	`
	if err := tx.QueryRow(ctx, counterQuery, event.StationID).Scan(&total); err != nil {
		return 0, fmt.Errorf("increment station counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit click transaction: %w", err)
	}

	return total, nil
}

// CountUnrolledEvents returns the number of events not yet folded into
// period statistics, for backlog monitoring.
func (r *Repository) CountUnrolledEvents(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM click_events WHERE rolled_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unrolled events: %w", err)
	}
	return count, nil
}
