package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/wavedial/wavedial/internal/model"
)

const (
	// ExternalSourceName tags records fetched from the public directory.
	ExternalSourceName = "external"

	// maxResponseBytes bounds directory response bodies. The full station
	// list endpoints are never called, so 8MB is generous.
	maxResponseBytes = 8 << 20

	// breakerFailureThreshold trips the circuit after this many
	// consecutive transport failures.
	breakerFailureThreshold = 5
)

// ErrExternalUnavailable wraps any transport, decode or breaker-open failure
// from the directory service. Callers treat it as a soft failure.
var ErrExternalUnavailable = errors.New("external directory unavailable")

// ResponseCache caches raw directory responses for a short TTL so repeated
// facet requests do not hammer the public service. A nil cache disables
// caching. Misses are reported with an error the adapter treats as absence.
type ResponseCache interface {
	GetExternalResponse(ctx context.Context, key string) ([]byte, error)
	SetExternalResponse(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// ExternalConfig configures the external directory adapter.
type ExternalConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	CacheTTL  time.Duration
	Cache     ResponseCache // optional
}

// External is the adapter for the public radio directory HTTP API. It is
// stateless apart from its HTTP client and circuit breaker and is safe for
// concurrent use.
type External struct {
	baseURL   string
	userAgent string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	cache     ResponseCache
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// NewExternal creates an external directory adapter.
func NewExternal(cfg ExternalConfig, logger *slog.Logger) *External {
	settings := gobreaker.Settings{
		Name:    "external-directory",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &External{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    NewHTTPClient(cfg.Timeout),
		breaker:   gobreaker.NewCircuitBreaker[[]byte](settings),
		cache:     cfg.Cache,
		cacheTTL:  cacheTTL,
		logger:    logger.With("component", "catalog.external"),
	}
}

// Name implements Source.
func (e *External) Name() string {
	return ExternalSourceName
}

// externalFacet is the directory's wire shape for countries/tags/languages.
type externalFacet struct {
	Name         string `json:"name"`
	StationCount int64  `json:"stationcount"`
}

// externalStation is the directory's wire shape for stations.
type externalStation struct {
	StationUUID string `json:"stationuuid"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	URLResolved string `json:"url_resolved"`
	Homepage    string `json:"homepage"`
	Country     string `json:"country"`
	CountryCode string `json:"countrycode"`
	Language    string `json:"language"`
	Tags        string `json:"tags"` // comma-separated
	Votes       int64  `json:"votes"`
}

// FetchFacet implements Source.
func (e *External) FetchFacet(ctx context.Context, facet model.FacetType, q FacetQuery) ([]model.FacetCount, error) {
	var path string
	switch facet {
	case model.FacetCountries:
		path = "/json/countries"
	case model.FacetGenres:
		path = "/json/tags"
	case model.FacetLanguages:
		path = "/json/languages"
	default:
		return nil, fmt.Errorf("unknown facet type %q", facet)
	}

	params := url.Values{}
	params.Set("order", "stationcount")
	params.Set("reverse", "true")
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	body, err := e.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var raw []externalFacet
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrExternalUnavailable, path, err)
	}

	counts := make([]model.FacetCount, 0, len(raw))
	for _, f := range raw {
		counts = append(counts, model.FacetCount{
			Key:           model.FacetKey(f.Name),
			Label:         f.Name,
			ExternalCount: f.StationCount,
			Combined:      f.StationCount,
			Provenance:    model.ProvenanceExternal,
		})
	}

	return counts, nil
}

// FetchStations implements Source.
func (e *External) FetchStations(ctx context.Context, q StationQuery) ([]model.StationRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	var path string
	params := url.Values{}

	switch {
	case q.Popular:
		path = "/json/stations/topvote/" + strconv.Itoa(limit)
	case q.Country != "":
		path = "/json/stations/bycountryexact/" + url.PathEscape(q.Country)
		params.Set("limit", strconv.Itoa(limit))
	case q.Tag != "":
		path = "/json/stations/bytagexact/" + url.PathEscape(q.Tag)
		params.Set("limit", strconv.Itoa(limit))
	default:
		path = "/json/stations/search"
		if q.Search != "" {
			params.Set("name", q.Search)
		}
		if q.Language != "" {
			params.Set("language", q.Language)
		}
		params.Set("limit", strconv.Itoa(limit))
		if q.Offset > 0 {
			params.Set("offset", strconv.Itoa(q.Offset))
		}
	}

	body, err := e.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var raw []externalStation
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrExternalUnavailable, path, err)
	}

	records := make([]model.StationRecord, 0, len(raw))
	for _, s := range raw {
		records = append(records, s.record())
	}

	return records, nil
}

// RegisterClick reports a listener click for an external station to the
// directory's own click-registration endpoint. The result is returned
// explicitly; the caller decides whether a failure is worth surfacing.
func (e *External) RegisterClick(ctx context.Context, stationUUID string) error {
	_, err := e.get(ctx, "/json/url/"+url.PathEscape(stationUUID), nil)
	return err
}

func (s externalStation) record() model.StationRecord {
	streamURL := s.URLResolved
	if streamURL == "" {
		streamURL = s.URL
	}

	var tags []string
	for _, t := range strings.Split(s.Tags, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}

	return model.StationRecord{
		ID:          s.StationUUID,
		Name:        s.Name,
		Country:     s.Country,
		CountryCode: s.CountryCode,
		Language:    s.Language,
		Tags:        tags,
		StreamURL:   streamURL,
		Homepage:    s.Homepage,
		Popularity:  s.Votes,
		Provenance:  model.ProvenanceExternal,
	}
}

// get performs a GET through the circuit breaker, consulting the response
// cache first. All failures are wrapped in ErrExternalUnavailable.
func (e *External) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := e.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	if e.cache != nil {
		if body, err := e.cache.GetExternalResponse(ctx, target); err == nil {
			return body, nil
		}
	}

	body, err := e.breaker.Execute(func() ([]byte, error) {
		return e.doGet(ctx, target)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrExternalUnavailable, err)
		}
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.SetExternalResponse(ctx, target, body, e.cacheTTL); err != nil {
			e.logger.Debug("response cache write failed", "error", err)
		}
	}

	return body, nil
}

func (e *External) doGet(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrExternalUnavailable, err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain body to allow connection reuse
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrExternalUnavailable, resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrExternalUnavailable, err)
	}

	return body, nil
}
