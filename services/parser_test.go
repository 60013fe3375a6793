package services

import (
	"testing"

	"flight-scraper/models"
)

func TestParseTextFlightDetailsMarker(t *testing.T) {
	out := ParseText("09:15 LHR Direct, 7h 30m 18:45+1DXB Flight details$1,234", "Qatar Airways")
	if !out.Parsed() {
		t.Fatalf("expected fragment to parse, got unparsed %q", out.Raw)
	}

	want := models.FlightRecord{
		Airline:          "Qatar Airways",
		DepartureTime:    "09:15",
		DepartureAirport: "LHR",
		Stops:            "Direct",
		Duration:         "7h 30m",
		ArrivalTime:      "18:45+1",
		ArrivalAirport:   "DXB",
		Price:            "$1,234",
	}
	if *out.Record != want {
		t.Errorf("record mismatch:\n got  %+v\n want %+v", *out.Record, want)
	}
}

func TestParseTextAirlinePrefix(t *testing.T) {
	out := ParseText("Lowest fare 22:05 ISB 1 Stop, 11h 25m 08:30+1DXB £540", "Qatar Airways")
	if !out.Parsed() {
		t.Fatalf("expected fragment to parse, got unparsed %q", out.Raw)
	}

	if got, want := out.Record.Airline, "Qatar Airways (Lowest fare)"; got != want {
		t.Errorf("airline: got %q, want %q", got, want)
	}
	if got, want := out.Record.Price, "£540"; got != want {
		t.Errorf("price: got %q, want %q", got, want)
	}
	if got, want := out.Record.ArrivalTime, "08:30+1"; got != want {
		t.Errorf("arrival time: got %q, want %q", got, want)
	}
}

func TestParseTextCollapsesWhitespace(t *testing.T) {
	out := ParseText("  09:15   ISB   Direct,   2h 10m   11:25DXB  ₹12,500 ", "Qatar Airways")
	if !out.Parsed() {
		t.Fatalf("expected fragment to parse, got unparsed %q", out.Raw)
	}
	if got, want := out.Record.ArrivalTime, "11:25"; got != want {
		t.Errorf("arrival time without offset: got %q, want %q", got, want)
	}
	if got, want := out.Record.Price, "₹12,500"; got != want {
		t.Errorf("price: got %q, want %q", got, want)
	}
}

func TestParseTextDeterministic(t *testing.T) {
	raw := "07:00 ISB 2 Stops, 14h 05m 20:05+1DXB $980"

	first := ParseText(raw, "Qatar Airways")
	for i := 0; i < 10; i++ {
		again := ParseText(raw, "Qatar Airways")
		if !again.Parsed() || *again.Record != *first.Record {
			t.Fatalf("parse not deterministic on iteration %d", i)
		}
	}
}

func TestParseTextUnrecognized(t *testing.T) {
	cases := []string{
		"",
		"Sorry, no flights available on this date",
		"Loading results...",
	}
	for _, raw := range cases {
		out := ParseText(raw, "Qatar Airways")
		if out.Parsed() {
			t.Errorf("ParseText(%q) should not parse, got %+v", raw, *out.Record)
		}
		if out.Raw != raw {
			t.Errorf("unparsed outcome must echo raw input, got %q", out.Raw)
		}
	}
}

func TestParseFieldsStripsDialogSuffix(t *testing.T) {
	out := ParseFields(models.CardFields{
		Airline:       "Emirates",
		DepartureTime: "02:30",
		ArrivalTime:   "06:55",
		Stops:         "Non-stop Opens a dialog",
		Duration:      "3h 25m",
		Price:         "$412",
	}, "ISB", "DXB")

	if got, want := out.Record.Stops, "Non-stop"; got != want {
		t.Errorf("stops: got %q, want %q", got, want)
	}
}

func TestParseFieldsDayOffset(t *testing.T) {
	out := ParseFields(models.CardFields{
		Airline:       "Emirates",
		DepartureTime: "23:50",
		ArrivalTime:   "04:10",
		DayOffset:     "1",
		Stops:         "1 Stop",
		Duration:      "9h 20m",
		Price:         "€730",
	}, "LHR", "DXB")

	if got, want := out.Record.ArrivalTime, "04:10+1"; got != want {
		t.Errorf("arrival time: got %q, want %q", got, want)
	}
}

func TestParseFieldsSentinelFill(t *testing.T) {
	out := ParseFields(models.CardFields{DepartureTime: "10:00"}, "ISB", "")
	if !out.Parsed() {
		t.Fatal("field-mode parsing must always yield a record")
	}

	r := out.Record
	if r.Airline != "N/A" || r.ArrivalAirport != "N/A" || r.Price != "N/A" {
		t.Errorf("missing fields must be sentinel-filled, got %+v", *r)
	}
	if !r.Complete() {
		t.Error("sentinel-filled record must be complete")
	}
	if r.Stops != "Non-stop" {
		t.Errorf("empty stop description defaults to Non-stop, got %q", r.Stops)
	}
}

func TestFlightRecordComplete(t *testing.T) {
	r := models.FlightRecord{
		Airline:          "Emirates",
		DepartureTime:    "02:30",
		DepartureAirport: "ISB",
		ArrivalTime:      "06:55",
		ArrivalAirport:   "DXB",
		Stops:            "Non-stop",
		Duration:         "3h 25m",
		Price:            "$412",
	}
	if !r.Complete() {
		t.Error("fully populated record should be complete")
	}

	r.Price = "  "
	if r.Complete() {
		t.Error("record with blank field should not be complete")
	}
}
