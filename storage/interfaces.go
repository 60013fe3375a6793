package storage

import (
	"context"
	"errors"
	"time"

	"flight-scraper/models"
)

// UpsertOutcome says what the freshness-aware write decided to do.
type UpsertOutcome string

const (
	// OutcomeHit means an entry existed and was still fresh; nothing was written.
	OutcomeHit UpsertOutcome = "hit"
	// OutcomeRefreshed means an entry existed but was stale; its flights were
	// replaced and the timestamp advanced.
	OutcomeRefreshed UpsertOutcome = "refreshed"
	// OutcomeCreated means no entry existed for the key; one was created.
	OutcomeCreated UpsertOutcome = "created"
)

// ErrNotFound is returned by Read when no stored entry matches.
var ErrNotFound = errors.New("no matching flight entries")

// FlightStore is the interface any cache backend must satisfy. Upsert must
// be safe against concurrent callers on the same key: two callers that both
// observe a stale (or absent) entry must never end up with two entries or a
// torn write.
type FlightStore interface {
	// Upsert applies the freshness rule for key: a fresh entry is a hit, a
	// stale entry is replaced in place, an absent one is created. Returns a
	// copy of the resulting entry.
	Upsert(ctx context.Context, key models.SearchKey, flights []models.FlightRecord, window time.Duration) (*models.CachedSearchEntry, UpsertOutcome, error)

	// Read returns all entries matching route + departure date + class,
	// irrespective of return date or airline.
	Read(ctx context.Context, from, to, departureDate, travelClass string) ([]*models.CachedSearchEntry, error)

	Close(ctx context.Context) error
}
