package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"flight-scraper/models"
	"flight-scraper/services"
	"flight-scraper/storage"
	"flight-scraper/utils"
)

// Handlers exposes the scraping pipeline and the flight cache over HTTP.
type Handlers struct {
	cache      *services.FlightCache
	aggregator *services.Aggregator
	logger     utils.Logger
}

// NewHandlers wires the HTTP layer.
func NewHandlers(cache *services.FlightCache, aggregator *services.Aggregator, logger utils.Logger) *Handlers {
	return &Handlers{cache: cache, aggregator: aggregator, logger: logger}
}

// Register attaches all routes to mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/flights", h.handleFlights)
	mux.HandleFunc("/scrape", h.handleScrape)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})
}

func (h *Handlers) handleFlights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getFlights(w, r)
	case http.MethodPost:
		h.storeFlights(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"error": "Method Not Allowed",
		})
	}
}

// getFlights serves previously stored results for a route/date/class,
// irrespective of which airline produced them.
func (h *Handlers) getFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := q.Get("from")
	to := q.Get("to")
	departureDate := q.Get("departureDate")
	travelClass := q.Get("travelClass")

	if from == "" || to == "" || departureDate == "" || travelClass == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Missing required parameters",
		})
		return
	}

	entries, err := h.cache.Read(r.Context(), from, to, departureDate, travelClass)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"success": false,
				"message": "No flights found",
			})
			return
		}
		h.logger.Error("flight read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    entries,
	})
}

// storeRequest is the POST /flights body.
type storeRequest struct {
	From          string                `json:"from"`
	To            string                `json:"to"`
	DepartureDate string                `json:"departureDate"`
	ReturnDate    string                `json:"returnDate"`
	TravelClass   string                `json:"travelClass"`
	Flights       []models.FlightRecord `json:"flights"`
}

// storeFlights applies the freshness rule to a set of scraped records.
// A fresh entry is a cache hit, a stale one is updated in place, and a
// missing one is created.
func (h *Handlers) storeFlights(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Bad Request",
			"details": "invalid JSON body",
		})
		return
	}

	query := models.SearchQuery{
		From:          req.From,
		To:            req.To,
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
		TravelClass:   req.TravelClass,
	}

	entry, outcome, err := h.cache.StoreResults(r.Context(), query, req.Flights)
	if err != nil {
		if errors.Is(err, services.ErrMissingAirline) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":   "Bad Request",
				"details": "No airline information found in flights data",
			})
			return
		}
		h.logger.Error("flight store failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Internal Server Error",
			"details": err.Error(),
		})
		return
	}

	status := http.StatusOK
	message := ""
	switch outcome {
	case storage.OutcomeHit:
		message = "Using cached data (not stale)"
	case storage.OutcomeRefreshed:
		message = "Updated stale data"
	case storage.OutcomeCreated:
		status = http.StatusCreated
		message = "New data stored"
	}

	writeJSON(w, status, map[string]any{
		"message": message,
		"data":    entry,
	})
}

// handleScrape runs both source adapters for the query and returns their
// independent outcomes; results are persisted best-effort on the way out.
func (h *Handlers) handleScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"error": "Method Not Allowed",
		})
		return
	}

	q := r.URL.Query()
	query := models.SearchQuery{
		TripType:      q.Get("tripType"),
		From:          q.Get("from"),
		To:            q.Get("to"),
		DepartureDate: q.Get("departureDate"),
		ReturnDate:    q.Get("returnDate"),
		TravelClass:   q.Get("travelClass"),
		Travellers:    q.Get("travellers"),
	}

	result := h.aggregator.Search(r.Context(), query)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
