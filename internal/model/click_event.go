package model

import "time"

// ClickEvent represents a single station access event. Events are immutable
// once written; RolledAt is the only field ever updated, by the statistics
// roller when the event has been folded into a period aggregate.
type ClickEvent struct {
	ID        string     `json:"id"` // ULID (time-sortable)
	StationID int64      `json:"station_id"`
	ClickedAt time.Time  `json:"clicked_at"`
	IP        string     `json:"ip,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"` // truncated to 500 chars
	Referrer  string     `json:"referrer,omitempty"`   // truncated to 500 chars
	RolledAt  *time.Time `json:"rolled_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// PeriodStatistic is the fortnightly rollup of click events for one station.
// At most one row exists per (station, period start); the roller upserts.
type PeriodStatistic struct {
	StationID   int64     `json:"station_id"`
	PeriodStart time.Time `json:"period_start"` // inclusive
	PeriodEnd   time.Time `json:"period_end"`   // exclusive
	AccessCount int64     `json:"access_count"`
	UpdatedAt   time.Time `json:"last_updated"`
}
