package scraper

import "testing"

func TestAirportCode(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"Islamabad (ISB)", "ISB"},
		{"Dubai (DXB)", "DXB"},
		{"London Heathrow ( LHR )", "LHR"},
		{"DXB", "DXB"},
		{"Nowhere (", "Nowhere ("},
		{"", ""},
	}

	for _, tt := range tests {
		if got := AirportCode(tt.location); got != tt.want {
			t.Errorf("AirportCode(%q) = %q; want %q", tt.location, got, tt.want)
		}
	}
}
