package storage

import (
	"context"
	"strconv"
	"sync"
	"time"

	"flight-scraper/models"
)

// MemoryStore is a mutex-guarded in-process FlightStore. It backs tests and
// the "memory" storage backend for running without a database.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[models.SearchKey]*models.CachedSearchEntry
	nextID  int

	// now is swappable so tests can steer the freshness clock.
	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[models.SearchKey]*models.CachedSearchEntry),
		now:     time.Now,
	}
}

// SetClock overrides the store's notion of "now". Tests only.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

func (s *MemoryStore) Upsert(_ context.Context, key models.SearchKey, flights []models.FlightRecord, window time.Duration) (*models.CachedSearchEntry, UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	if existing, ok := s.entries[key]; ok {
		if now.Sub(existing.LastUpdatedAt) < window {
			return copyEntry(existing), OutcomeHit, nil
		}
		existing.Flights = append([]models.FlightRecord(nil), flights...)
		existing.LastUpdatedAt = now
		return copyEntry(existing), OutcomeRefreshed, nil
	}

	s.nextID++
	entry := &models.CachedSearchEntry{
		ID:            strconv.Itoa(s.nextID),
		From:          key.From,
		To:            key.To,
		DepartureDate: key.DepartureDate,
		ReturnDate:    key.ReturnDate,
		TravelClass:   key.TravelClass,
		Airline:       key.Airline,
		Flights:       append([]models.FlightRecord(nil), flights...),
		LastUpdatedAt: now,
	}
	s.entries[key] = entry
	return copyEntry(entry), OutcomeCreated, nil
}

func (s *MemoryStore) Read(_ context.Context, from, to, departureDate, travelClass string) ([]*models.CachedSearchEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []*models.CachedSearchEntry
	for key, entry := range s.entries {
		if key.From == from && key.To == to &&
			key.DepartureDate == departureDate && key.TravelClass == travelClass {
			matches = append(matches, copyEntry(entry))
		}
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches, nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

// Len reports the number of stored entries. Tests only.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// copyEntry hands callers their own copy; the store exclusively owns the
// originals.
func copyEntry(e *models.CachedSearchEntry) *models.CachedSearchEntry {
	out := *e
	out.Flights = append([]models.FlightRecord(nil), e.Flights...)
	return &out
}
