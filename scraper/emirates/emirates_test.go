package emirates

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"flight-scraper/models"
)

func decodeRequest(t *testing.T, target string) searchRequest {
	t.Helper()

	u, err := url.Parse(target)
	if err != nil {
		t.Fatalf("BuildURL produced invalid URL: %v", err)
	}
	encoded := u.Query().Get("searchRequest")
	if encoded == "" {
		t.Fatal("searchRequest parameter missing")
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("searchRequest is not valid base64: %v", err)
	}

	var req searchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		t.Fatalf("searchRequest is not valid JSON: %v", err)
	}
	return req
}

func TestBuildURLOneWay(t *testing.T) {
	target, fromCode, toCode, err := BuildURL(models.SearchQuery{
		TripType:      "one-way",
		From:          "Islamabad (ISB)",
		To:            "Dubai (DXB)",
		DepartureDate: "2026-09-10",
		TravelClass:   "Economy",
		Travellers:    "3",
	})
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	if fromCode != "ISB" || toCode != "DXB" {
		t.Errorf("airport codes: got %q/%q, want ISB/DXB", fromCode, toCode)
	}
	if !strings.HasPrefix(target, "https://www.emirates.com/booking/search-results/") {
		t.Errorf("unexpected base URL: %s", target)
	}

	req := decodeRequest(t, target)
	if req.JourneyType != "ONEWAY" {
		t.Errorf("journeyType: got %q, want ONEWAY", req.JourneyType)
	}
	if req.BookingType != "REVENUE" {
		t.Errorf("bookingType: got %q, want REVENUE", req.BookingType)
	}
	if len(req.Passengers) != 1 || req.Passengers[0].Count != 3 || req.Passengers[0].Type != "ADT" {
		t.Errorf("passengers: got %+v", req.Passengers)
	}
	if len(req.Segments) != 1 {
		t.Fatalf("segments: got %d, want 1", len(req.Segments))
	}
	seg := req.Segments[0]
	if seg.Departure != "ISB" || seg.Arrival != "DXB" || seg.TravelDate != "2026-09-10" || seg.CabinClass != "Y" {
		t.Errorf("segment mismatch: %+v", seg)
	}
}

func TestBuildURLReturnAddsBackLeg(t *testing.T) {
	target, _, _, err := BuildURL(models.SearchQuery{
		TripType:      "return",
		From:          "LHR",
		To:            "DXB",
		DepartureDate: "2026-09-10",
		ReturnDate:    "2026-09-24",
		TravelClass:   "Business",
	})
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}

	req := decodeRequest(t, target)
	if req.JourneyType != "RETURN" {
		t.Errorf("journeyType: got %q, want RETURN", req.JourneyType)
	}
	if len(req.Segments) != 2 {
		t.Fatalf("segments: got %d, want 2", len(req.Segments))
	}
	back := req.Segments[1]
	if back.Departure != "DXB" || back.Arrival != "LHR" || back.TravelDate != "2026-09-24" {
		t.Errorf("return segment mismatch: %+v", back)
	}
	if back.CabinClass != "J" {
		t.Errorf("cabin class: got %q, want J", back.CabinClass)
	}
	// Passenger count defaults to a single adult when unparseable.
	if req.Passengers[0].Count != 1 {
		t.Errorf("passenger count: got %d, want 1", req.Passengers[0].Count)
	}
}

func TestBuildURLMissingParams(t *testing.T) {
	_, _, _, err := BuildURL(models.SearchQuery{From: "ISB", TravelClass: "Economy"})
	if err == nil {
		t.Error("expected error for missing destination and departure date")
	}
}
