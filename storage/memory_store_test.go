package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"flight-scraper/models"
)

var testKey = models.SearchKey{
	From:          "Islamabad (ISB)",
	To:            "Dubai (DXB)",
	DepartureDate: "2026-09-10",
	TravelClass:   "Economy",
	Airline:       "Qatar Airways",
}

func testFlights(price string) []models.FlightRecord {
	return []models.FlightRecord{{
		Airline:          "Qatar Airways",
		DepartureTime:    "09:15",
		DepartureAirport: "ISB",
		ArrivalTime:      "18:45+1",
		ArrivalAirport:   "DXB",
		Stops:            "1 Stop",
		Duration:         "7h 30m",
		Price:            price,
	}}
}

const window = 10 * time.Minute

func TestUpsertCreatesThenHits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	entry, outcome, err := s.Upsert(ctx, testKey, testFlights("$412"), window)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("first upsert outcome: got %q, want %q", outcome, OutcomeCreated)
	}
	if entry.Airline != "Qatar Airways" || len(entry.Flights) != 1 {
		t.Errorf("created entry mismatch: %+v", entry)
	}

	entry2, outcome, err := s.Upsert(ctx, testKey, testFlights("$999"), window)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if outcome != OutcomeHit {
		t.Errorf("fresh entry outcome: got %q, want %q", outcome, OutcomeHit)
	}
	if entry2.Flights[0].Price != "$412" {
		t.Errorf("cache hit must return stored flights unchanged, got %q", entry2.Flights[0].Price)
	}
}

func TestUpsertFreshnessBoundary(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want UpsertOutcome
	}{
		{"just inside window", 9*time.Minute + 59*time.Second, OutcomeHit},
		{"just outside window", 10*time.Minute + 1*time.Second, OutcomeRefreshed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			ctx := context.Background()

			base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
			current := base
			s.SetClock(func() time.Time { return current })

			if _, _, err := s.Upsert(ctx, testKey, testFlights("$412"), window); err != nil {
				t.Fatalf("seed upsert: %v", err)
			}

			current = base.Add(tt.age)
			entry, outcome, err := s.Upsert(ctx, testKey, testFlights("$999"), window)
			if err != nil {
				t.Fatalf("aged upsert: %v", err)
			}
			if outcome != tt.want {
				t.Errorf("outcome: got %q, want %q", outcome, tt.want)
			}

			switch tt.want {
			case OutcomeHit:
				if entry.Flights[0].Price != "$412" || !entry.LastUpdatedAt.Equal(base) {
					t.Errorf("hit must leave the entry untouched: %+v", entry)
				}
			case OutcomeRefreshed:
				if entry.Flights[0].Price != "$999" || !entry.LastUpdatedAt.Equal(current) {
					t.Errorf("refresh must replace flights and advance timestamp: %+v", entry)
				}
			}
		})
	}
}

func TestUpsertConcurrentStaleCallersKeepOneEntry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.SetClock(func() time.Time { return current })

	if _, _, err := s.Upsert(ctx, testKey, testFlights("$412"), window); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	current = base.Add(window + time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.Upsert(ctx, testKey, testFlights("$700"), window); err != nil {
				t.Errorf("concurrent upsert: %v", err)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("one entry per key invariant violated: %d entries", s.Len())
	}
}

func TestUpsertConcurrentCreatorsKeepOneEntry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.Upsert(ctx, testKey, testFlights("$412"), window); err != nil {
				t.Errorf("concurrent create: %v", err)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("one entry per key invariant violated: %d entries", s.Len())
	}
}

func TestReadIgnoresReturnDateAndAirline(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	other := testKey
	other.Airline = "Emirates"
	other.ReturnDate = "2026-09-20"

	if _, _, err := s.Upsert(ctx, testKey, testFlights("$412"), window); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Upsert(ctx, other, testFlights("$500"), window); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Read(ctx, testKey.From, testKey.To, testKey.DepartureDate, testKey.TravelClass)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("read must match across airlines and return dates: got %d entries", len(entries))
	}
}

func TestReadNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Read(context.Background(), "X", "Y", "2026-01-01", "Economy"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReadReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, _, err := s.Upsert(ctx, testKey, testFlights("$412"), window); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Read(ctx, testKey.From, testKey.To, testKey.DepartureDate, testKey.TravelClass)
	if err != nil {
		t.Fatal(err)
	}
	entries[0].Flights[0].Price = "$0"

	again, err := s.Read(ctx, testKey.From, testKey.To, testKey.DepartureDate, testKey.TravelClass)
	if err != nil {
		t.Fatal(err)
	}
	if again[0].Flights[0].Price != "$412" {
		t.Error("mutating a read result must not affect the stored entry")
	}
}
