package scraper

import "strings"

// AirportCode pulls the IATA code out of a "City (CODE)" location string.
// Inputs without parentheses are assumed to already be a bare code and are
// returned unchanged.
func AirportCode(location string) string {
	open := strings.Index(location, "(")
	if open < 0 {
		return strings.TrimSpace(location)
	}
	close := strings.Index(location[open:], ")")
	if close <= 1 {
		return strings.TrimSpace(location)
	}
	return strings.TrimSpace(location[open+1 : open+close])
}
