package models

import (
	"encoding/json"
	"strings"
	"time"
)

// SearchQuery identifies one logical flight search. It is treated as
// immutable once issued.
type SearchQuery struct {
	TripType      string `json:"tripType"`
	From          string `json:"from"`
	To            string `json:"to"`
	DepartureDate string `json:"departureDate"`
	ReturnDate    string `json:"returnDate,omitempty"`
	TravelClass   string `json:"travelClass"`
	Travellers    string `json:"travellers"`
}

// IsRoundTrip reports whether the query asks for a return leg.
func (q SearchQuery) IsRoundTrip() bool {
	t := strings.ToLower(strings.TrimSpace(q.TripType))
	return t == "return" || t == "round-trip" || t == "roundtrip"
}

// CardFields holds the discrete strings a field-mode adapter pulls out of one
// result card. Missing fields are left empty; the parser sentinel-fills them.
type CardFields struct {
	Airline       string
	DepartureTime string
	ArrivalTime   string
	DayOffset     string
	Stops         string
	Duration      string
	Price         string
}

// RawFragment is one unparsed candidate listing handed from a source adapter
// to the record parser. Exactly one of Text or Fields is set.
type RawFragment struct {
	Source string
	Text   string
	Fields *CardFields
}

// FlightRecord is the normalized representation of one flight offer.
// Every field must be non-empty; records that cannot satisfy that are
// rejected rather than stored half-filled.
type FlightRecord struct {
	Airline          string `json:"airline" bson:"airline"`
	DepartureTime    string `json:"departureTime" bson:"departureTime"`
	DepartureAirport string `json:"departureAirport" bson:"departureAirport"`
	ArrivalTime      string `json:"arrivalTime" bson:"arrivalTime"`
	ArrivalAirport   string `json:"arrivalAirport" bson:"arrivalAirport"`
	Stops            string `json:"stops" bson:"stops"`
	Duration         string `json:"duration" bson:"duration"`
	Price            string `json:"price" bson:"price"`
}

// Complete reports whether every field carries a non-empty value.
func (f FlightRecord) Complete() bool {
	for _, v := range []string{
		f.Airline, f.DepartureTime, f.DepartureAirport,
		f.ArrivalTime, f.ArrivalAirport, f.Stops, f.Duration, f.Price,
	} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Error kinds a source adapter can report.
const (
	ErrKindNavigation  = "navigation_timeout"
	ErrKindBlocked     = "source_blocked"
	ErrKindExtraction  = "extraction_failed"
	ErrKindPersistence = "persistence_failed"
)

// SourceError describes why one source could not be scraped.
type SourceError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *SourceError) Error() string {
	return e.Kind + ": " + e.Message
}

// SourceResult is the per-source outcome of one scrape attempt: either a
// list of flight records or an error, never both. The originating query is
// echoed back either way so callers can correlate failures.
type SourceResult struct {
	Source  string
	Query   SearchQuery
	Flights []FlightRecord
	Err     *SourceError

	// Unparsed counts fragments that matched no known listing shape. They
	// are dropped from Flights but surfaced for diagnostics.
	Unparsed int
}

// OK reports whether the scrape succeeded. An empty flight list still
// counts as success; "no results" is not an error.
func (r SourceResult) OK() bool { return r.Err == nil }

// MarshalJSON renders a successful result as a bare flight array and a
// failed one as an error descriptor carrying the echoed query, matching the
// wire contract consumed by result displays.
func (r SourceResult) MarshalJSON() ([]byte, error) {
	if r.Err == nil {
		flights := r.Flights
		if flights == nil {
			flights = []FlightRecord{}
		}
		return json.Marshal(flights)
	}
	return json.Marshal(struct {
		Source        string `json:"source"`
		From          string `json:"from"`
		To            string `json:"to"`
		DepartureDate string `json:"departureDate"`
		ReturnDate    string `json:"returnDate"`
		TravelClass   string `json:"travelClass"`
		Kind          string `json:"kind"`
		Error         string `json:"error"`
	}{
		Source:        r.Source,
		From:          r.Query.From,
		To:            r.Query.To,
		DepartureDate: r.Query.DepartureDate,
		ReturnDate:    r.Query.ReturnDate,
		TravelClass:   r.Query.TravelClass,
		Kind:          r.Err.Kind,
		Error:         r.Err.Message,
	})
}

// SearchKey is the tuple under which scraped results are cached. At most one
// CachedSearchEntry exists per key.
type SearchKey struct {
	From          string
	To            string
	DepartureDate string
	ReturnDate    string
	TravelClass   string
	Airline       string
}

// KeyForQuery derives the cache key for a query and the airline owning the
// scraped records.
func KeyForQuery(q SearchQuery, airline string) SearchKey {
	return SearchKey{
		From:          q.From,
		To:            q.To,
		DepartureDate: q.DepartureDate,
		ReturnDate:    q.ReturnDate,
		TravelClass:   q.TravelClass,
		Airline:       airline,
	}
}

// CachedSearchEntry is the persisted aggregate of flight records for one
// route/date/class/airline combination.
type CachedSearchEntry struct {
	ID            string         `json:"_id,omitempty" bson:"_id,omitempty"`
	From          string         `json:"from" bson:"from"`
	To            string         `json:"to" bson:"to"`
	DepartureDate string         `json:"departureDate" bson:"departureDate"`
	ReturnDate    string         `json:"returnDate,omitempty" bson:"returnDate"`
	TravelClass   string         `json:"travelClass" bson:"travelClass"`
	Airline       string         `json:"airline" bson:"airline"`
	Flights       []FlightRecord `json:"flights" bson:"flights"`
	LastUpdatedAt time.Time      `json:"lastUpdatedAt" bson:"lastUpdatedAt"`
}

// Key returns the tuple the entry is stored under.
func (e *CachedSearchEntry) Key() SearchKey {
	return SearchKey{
		From:          e.From,
		To:            e.To,
		DepartureDate: e.DepartureDate,
		ReturnDate:    e.ReturnDate,
		TravelClass:   e.TravelClass,
		Airline:       e.Airline,
	}
}
