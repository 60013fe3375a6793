package services

import (
	"regexp"
	"strings"

	"flight-scraper/models"
)

// The booking sites render one listing either as a single free-text line
// (text mode) or as discrete card fields (field mode). Both modes funnel
// into ParseOutcome so callers decide uniformly what to do with input that
// could not be understood.

var (
	// primaryPattern expects
	//   [airline-prefix] HH:MM AAA <stops>, <duration> HH:MM[+N]BBB ... <currency><amount>
	// tolerating inconsistent whitespace, next-day arrival markers and
	// thousands separators in the amount.
	primaryPattern = regexp.MustCompile(`([A-Za-z\s]+?)?\s*(\d{1,2}:\d{2})\s+([A-Z]{3})\s+(.*?)(?:,|\s)\s*([\dh\s]+m)\s+(\d{1,2}:\d{2})(\+\d+)?([A-Z]{3}).*?([£$€¥₹])([\d,]*)`)

	// secondaryPattern additionally requires the literal "Flight details"
	// marker some result rows carry before the fare.
	secondaryPattern = regexp.MustCompile(`([A-Za-z\s]+?)?\s*(\d{1,2}:\d{2})\s+([A-Z]{3})\s+(.*?)(?:,|\s)\s*([\dh\s]+m)\s+(\d{1,2}:\d{2})(\+\d+)?([A-Z]{3}).*?Flight details([£$€¥₹])([\d,]*)`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// dialogSuffix is the marketing hint some sources append to the stop
// description ("Non-stop Opens a dialog").
const dialogSuffix = "Opens a dialog"

// ParseOutcome is the tagged result of parsing one listing fragment: either
// a normalized record or the raw input that matched no known shape.
type ParseOutcome struct {
	Record *models.FlightRecord
	Raw    string
}

// Parsed reports whether the fragment was understood.
func (o ParseOutcome) Parsed() bool { return o.Record != nil }

// ParseText converts one free-text listing line into a FlightRecord. The
// airline name defaults to the source's display name; a captured fare-brand
// prefix is appended in parentheses. Fragments matching neither pattern come
// back unparsed.
func ParseText(raw, defaultAirline string) ParseOutcome {
	line := strings.TrimSpace(whitespaceRun.ReplaceAllString(raw, " "))

	m := primaryPattern.FindStringSubmatch(line)
	if m == nil {
		m = secondaryPattern.FindStringSubmatch(line)
	}
	if m == nil {
		return ParseOutcome{Raw: raw}
	}

	airline := defaultAirline
	if prefix := strings.TrimSpace(m[1]); prefix != "" {
		airline = defaultAirline + " (" + prefix + ")"
	}

	record := &models.FlightRecord{
		Airline:          airline,
		DepartureTime:    m[2],
		DepartureAirport: m[3],
		Stops:            strings.TrimSpace(m[4]),
		Duration:         strings.TrimSpace(m[5]),
		ArrivalTime:      m[6] + m[7],
		ArrivalAirport:   m[8],
		Price:            m[9] + m[10],
	}

	return ParseOutcome{Record: record}
}

// ParseFields normalizes a field-mode card into a FlightRecord. Missing
// fields are sentinel-filled so the record is always complete; the airport
// codes come from the query since field-mode cards do not repeat them.
func ParseFields(fields models.CardFields, departureAirport, arrivalAirport string) ParseOutcome {
	stops := strings.TrimSpace(strings.ReplaceAll(fields.Stops, dialogSuffix, ""))
	if stops == "" {
		stops = "Non-stop"
	}

	arrival := strings.TrimSpace(fields.ArrivalTime)
	if offset := normalizeDayOffset(fields.DayOffset); offset != "" && arrival != "" {
		arrival += offset
	}

	record := &models.FlightRecord{
		Airline:          orSentinel(fields.Airline),
		DepartureTime:    orSentinel(fields.DepartureTime),
		DepartureAirport: orSentinel(departureAirport),
		ArrivalTime:      orSentinel(arrival),
		ArrivalAirport:   orSentinel(arrivalAirport),
		Stops:            stops,
		Duration:         orSentinel(fields.Duration),
		Price:            orSentinel(fields.Price),
	}

	return ParseOutcome{Record: record}
}

// normalizeDayOffset turns "1" or "+1" into "+1" and anything blank into "".
func normalizeDayOffset(raw string) string {
	offset := strings.TrimSpace(raw)
	if offset == "" {
		return ""
	}
	if !strings.HasPrefix(offset, "+") {
		offset = "+" + offset
	}
	return offset
}

func orSentinel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "N/A"
	}
	return v
}
