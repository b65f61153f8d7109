// Package clicks implements the click ingestion pipeline: one access event
// per playback call, persisted together with the station's running counter.
package clicks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/wavedial/wavedial/internal/metrics"
	"github.com/wavedial/wavedial/internal/model"
	"github.com/wavedial/wavedial/internal/repository"
)

// Ingestion errors.
var (
	// ErrStationNotFound is returned when the station ID references no
	// local catalog row.
	ErrStationNotFound = repository.ErrStationNotFound

	// ErrStationNotActive is returned for clicks on pending or disabled
	// stations.
	ErrStationNotActive = errors.New("station is not active")

	// ErrInvalidStationUUID is returned for malformed external station IDs.
	ErrInvalidStationUUID = errors.New("invalid external station uuid")
)

// maxFieldLength truncates request metadata before persistence.
const maxFieldLength = 500

// ExternalClickProxy forwards a click to the external directory's own
// click-registration endpoint. Satisfied by catalog.External.
type ExternalClickProxy interface {
	RegisterClick(ctx context.Context, stationUUID string) error
}

// Ingestor accepts station access events and maintains the denormalized
// running counter on the station row. External-catalog clicks are not
// tracked here; they are proxied to the directory service.
type Ingestor struct {
	repo    *repository.Repository
	proxy   ExternalClickProxy
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewIngestor creates a click ingestor.
func NewIngestor(repo *repository.Repository, proxy ExternalClickProxy, logger *slog.Logger, recorder metrics.Recorder) *Ingestor {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Ingestor{
		repo:    repo,
		proxy:   proxy,
		logger:  logger.With("component", "clicks.ingestor"),
		metrics: recorder,
	}
}

// RegisterClick validates the station, writes one immutable click event and
// increments the station's total_clicks counter in the same transaction.
// The returned station carries the updated counter (read-after-write on the
// same pool).
func (i *Ingestor) RegisterClick(ctx context.Context, stationID int64, ip, userAgent, referrer string) (*model.Station, error) {
	station, err := i.repo.GetStationByID(ctx, stationID)
	if err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			i.metrics.IncClickRejected("not_found")
			return nil, ErrStationNotFound
		}
		i.metrics.IncClickRejected("persistence")
		return nil, fmt.Errorf("validate station: %w", err)
	}
	if !station.IsActive() {
		i.metrics.IncClickRejected("not_active")
		return nil, ErrStationNotActive
	}

	event := &model.ClickEvent{
		ID:        ulid.Make().String(),
		StationID: stationID,
		ClickedAt: time.Now().UTC(),
		IP:        ip,
		UserAgent: truncate(userAgent),
		Referrer:  truncate(referrer),
	}

	total, err := i.repo.InsertClickEvent(ctx, event)
	if err != nil {
		i.metrics.IncClickRejected("persistence")
		return nil, fmt.Errorf("record click: %w", err)
	}

	station.TotalClicks = total
	i.metrics.IncClickRegistered(string(model.ProvenanceCustom))

	i.logger.Debug("click registered",
		"station_id", stationID,
		"event_id", event.ID,
		"total_clicks", total,
	)

	return station, nil
}

// RegisterExternalClick proxies a click for an external-catalog station to
// the directory service. The result is explicit; callers decide whether a
// failure is worth more than a log line.
func (i *Ingestor) RegisterExternalClick(ctx context.Context, stationUUID string) error {
	if _, err := uuid.Parse(stationUUID); err != nil {
		i.metrics.IncClickRejected("not_found")
		return ErrInvalidStationUUID
	}

	if err := i.proxy.RegisterClick(ctx, stationUUID); err != nil {
		return fmt.Errorf("proxy external click: %w", err)
	}

	i.metrics.IncClickRegistered(string(model.ProvenanceExternal))
	return nil
}

// truncate caps request metadata at maxFieldLength bytes without splitting
// a multi-byte rune, so persisted values stay valid UTF-8.
func truncate(s string) string {
	if len(s) <= maxFieldLength {
		return s
	}
	cut := maxFieldLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
