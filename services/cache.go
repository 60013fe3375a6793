package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"flight-scraper/metrics"
	"flight-scraper/models"
	"flight-scraper/storage"
	"flight-scraper/utils"
)

// ErrMissingAirline rejects store requests whose records carry no derivable
// airline identity.
var ErrMissingAirline = errors.New("no airline information found in flights data")

// FlightCache is the freshness-aware write path in front of a FlightStore.
// A per-key mutex serializes concurrent callers on the same search tuple so
// the read-decide-write sequence cannot interleave; the store's own unique
// key constraint backstops callers from other processes.
type FlightCache struct {
	store   storage.FlightStore
	window  time.Duration
	locks   *utils.KeyedMutex[models.SearchKey]
	logger  utils.Logger
	metrics *metrics.Metrics
}

// NewFlightCache creates a FlightCache with the given freshness window.
func NewFlightCache(store storage.FlightStore, window time.Duration, m *metrics.Metrics, logger utils.Logger) *FlightCache {
	return &FlightCache{
		store:   store,
		window:  window,
		locks:   utils.NewKeyedMutex[models.SearchKey](),
		logger:  logger,
		metrics: m,
	}
}

// StoreResults applies the freshness rule for the query's key, deriving the
// owning airline from the first record. An empty record set or a blank
// airline is rejected before any store access.
func (c *FlightCache) StoreResults(ctx context.Context, q models.SearchQuery, flights []models.FlightRecord) (*models.CachedSearchEntry, storage.UpsertOutcome, error) {
	if len(flights) == 0 || strings.TrimSpace(flights[0].Airline) == "" {
		c.metrics.CacheRequests.WithLabelValues("rejected").Inc()
		return nil, "", ErrMissingAirline
	}

	key := models.KeyForQuery(q, flights[0].Airline)

	c.locks.Lock(key)
	defer c.locks.Unlock(key)

	entry, outcome, err := c.store.Upsert(ctx, key, flights, c.window)
	if err != nil {
		c.metrics.StoreErrors.WithLabelValues("upsert").Inc()
		return nil, "", err
	}

	c.metrics.CacheRequests.WithLabelValues(string(outcome)).Inc()
	c.logger.Debug("store request resolved",
		"airline", key.Airline,
		"from", key.From,
		"to", key.To,
		"outcome", string(outcome))

	return entry, outcome, nil
}

// Read returns all stored entries for route + departure date + class,
// irrespective of airline or return date.
func (c *FlightCache) Read(ctx context.Context, from, to, departureDate, travelClass string) ([]*models.CachedSearchEntry, error) {
	entries, err := c.store.Read(ctx, from, to, departureDate, travelClass)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.metrics.StoreErrors.WithLabelValues("read").Inc()
	}
	return entries, err
}
