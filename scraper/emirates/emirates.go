package emirates

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"flight-scraper/config"
	"flight-scraper/models"
	"flight-scraper/scraper"
	"flight-scraper/services"
	"flight-scraper/storage"
	"flight-scraper/utils"
)

const (
	baseURL = "https://www.emirates.com/booking/search-results/"

	cardSelector = ".flight-card-collapsed__wrapper"

	errBannerJS = `(function() {
		var msg = document.querySelector('.error-msg');
		var code = document.querySelector('.error-code');
		var el = msg || code;
		return el ? (el.textContent || '').trim() : '';
	})()`
)

var cabinClassMap = map[string]string{
	"Economy":  "Y",
	"Business": "J",
	"First":    "F",
}

var journeyTypeMap = map[string]string{
	"one-way":    "ONEWAY",
	"return":     "RETURN",
	"multi-city": "MULTICITY",
}

type passenger struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type segment struct {
	Departure  string `json:"departure"`
	Arrival    string `json:"arrival"`
	TravelDate string `json:"travelDate"`
	CabinClass string `json:"cabinClass"`
}

type searchRequest struct {
	JourneyType string      `json:"journeyType"`
	BookingType string      `json:"bookingType"`
	Passengers  []passenger `json:"passengers"`
	Segments    []segment   `json:"segments"`
	Referrer    string      `json:"referrer"`
	Source      string      `json:"source"`
}

// card mirrors the JSON object the in-page extraction script builds for one
// visible result row. Missing fields stay empty and are sentinel-filled by
// the parser.
type card struct {
	Airline       string `json:"airline"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	DayOffset     string `json:"dayOffset"`
	Stops         string `json:"stops"`
	Duration      string `json:"duration"`
	Price         string `json:"price"`
}

// Scraper drives a headless browser against the Emirates search results
// page. Unlike the Qatar adapter it extracts discrete fields per card, so
// records go through the field-mode parser.
type Scraper struct {
	cfg    *config.Config
	logger utils.Logger
	dump   *storage.RawDumpWriter
}

// New creates a ready-to-use Emirates scraper. dump may be nil.
func New(cfg *config.Config, logger utils.Logger, dump *storage.RawDumpWriter) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger.With("source", "emirates"),
		dump:   dump,
	}
}

// Name identifies the source slot this adapter fills.
func (s *Scraper) Name() string { return "emirates" }

// BuildURL encodes the query as the base64 searchRequest document the
// Emirates results page expects, and returns the extracted airport codes
// alongside since result cards do not repeat them.
func BuildURL(q models.SearchQuery) (target, fromCode, toCode string, err error) {
	fromCode = scraper.AirportCode(q.From)
	toCode = scraper.AirportCode(q.To)
	if fromCode == "" || toCode == "" || q.DepartureDate == "" {
		return "", "", "", errors.New("missing or invalid search parameters")
	}

	cabin, ok := cabinClassMap[q.TravelClass]
	if !ok {
		cabin = "Y"
	}

	journey, ok := journeyTypeMap[strings.ToLower(strings.TrimSpace(q.TripType))]
	if !ok {
		journey = "ONEWAY"
	}

	count, convErr := strconv.Atoi(q.Travellers)
	if convErr != nil || count < 1 {
		count = 1
	}

	req := searchRequest{
		JourneyType: journey,
		BookingType: "REVENUE",
		Passengers:  []passenger{{Type: "ADT", Count: count}},
		Segments: []segment{{
			Departure:  fromCode,
			Arrival:    toCode,
			TravelDate: q.DepartureDate,
			CabinClass: cabin,
		}},
		Referrer: "/book",
		Source:   "search-form",
	}

	if journey == "RETURN" && q.ReturnDate != "" {
		req.Segments = append(req.Segments, segment{
			Departure:  toCode,
			Arrival:    fromCode,
			TravelDate: q.ReturnDate,
			CabinClass: cabin,
		})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", "", "", fmt.Errorf("encode search request: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(payload)

	return baseURL + "?searchRequest=" + encoded, fromCode, toCode, nil
}

// Scrape runs one isolated browser session and returns the per-source
// outcome. A site-reported error banner comes back as a blocked-source
// error with the banner text; a loaded page with zero recognizable cards is
// an empty success.
func (s *Scraper) Scrape(ctx context.Context, q models.SearchQuery) models.SourceResult {
	result := models.SourceResult{Source: s.Name(), Query: q}

	target, fromCode, toCode, err := BuildURL(q)
	if err != nil {
		result.Err = &models.SourceError{Kind: models.ErrKindNavigation, Message: err.Error()}
		return result
	}

	sess := scraper.NewSession(ctx, s.cfg)
	defer sess.Close()

	s.logger.Info("navigating", "url", target)

	navCtx, cancelNav := context.WithTimeout(sess.Context(), s.cfg.NavTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(target),
		scraper.HideWebdriver(),
		chromedp.Sleep(3*time.Second),
	); err != nil {
		s.logger.Error("navigation failed", "error", err)
		result.Err = &models.SourceError{Kind: models.ErrKindNavigation, Message: err.Error()}
		return result
	}

	var banner string
	bannerCtx, cancelBanner := context.WithTimeout(sess.Context(), 15*time.Second)
	defer cancelBanner()
	if err := chromedp.Run(bannerCtx, chromedp.Evaluate(errBannerJS, &banner)); err == nil && banner != "" {
		s.logger.Warn("search error banner detected", "banner", banner)
		result.Err = &models.SourceError{Kind: models.ErrKindBlocked, Message: banner}
		return result
	}

	waitCtx, cancelWait := context.WithTimeout(sess.Context(), s.cfg.ResultTimeout)
	defer cancelWait()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(cardSelector, chromedp.ByQuery)); err != nil {
		if shot := sess.SaveScreenshot(s.cfg.ScreenshotDir, "emirates-debug.png"); shot != "" {
			s.logger.Warn("result rows never appeared", "screenshot", shot)
		} else {
			s.logger.Warn("result rows never appeared")
		}
		// Fall through to extraction: some layouts render cards without the
		// wrapper becoming "ready"; zero cards then reads as no results.
	}

	var cards []card
	extractCtx, cancelExtract := context.WithTimeout(sess.Context(), 30*time.Second)
	defer cancelExtract()
	if err := chromedp.Run(extractCtx, chromedp.Evaluate(extractionJS, &cards)); err != nil {
		s.logger.Error("extraction failed", "error", err)
		if shot := sess.SaveScreenshot(s.cfg.ScreenshotDir, "emirates-error.png"); shot != "" {
			s.logger.Warn("saved failure snapshot", "screenshot", shot)
		}
		result.Err = &models.SourceError{Kind: models.ErrKindExtraction, Message: err.Error()}
		return result
	}

	fragments := make([]models.RawFragment, 0, len(cards))
	flights := make([]models.FlightRecord, 0, len(cards))
	for _, c := range cards {
		fields := models.CardFields{
			Airline:       c.Airline,
			DepartureTime: c.DepartureTime,
			ArrivalTime:   c.ArrivalTime,
			DayOffset:     c.DayOffset,
			Stops:         c.Stops,
			Duration:      c.Duration,
			Price:         c.Price,
		}
		fragments = append(fragments, models.RawFragment{Source: s.Name(), Fields: &fields})

		out := services.ParseFields(fields, fromCode, toCode)
		flights = append(flights, *out.Record)
	}

	if s.dump != nil {
		if err := s.dump.Append(fragments); err != nil {
			s.logger.Warn("raw dump failed", "error", err)
		}
	}

	s.logger.Info("scrape complete", "cards", len(cards), "flights", len(flights))

	result.Flights = flights
	return result
}

// extractionJS pulls the per-card fields out of the rendered result list.
// Every selector is best-effort; a missing element yields an empty string
// rather than aborting the row.
const extractionJS = `(function() {
	var results = [];
	var cards = document.querySelectorAll('` + cardSelector + `');

	cards.forEach(function(cardEl) {
		var getText = function(sel) {
			var el = cardEl.querySelector(sel);
			return el ? (el.textContent || '').trim() : '';
		};

		var price = '';
		var container = cardEl.querySelector('.flight-card-collapsed__price-container');
		if (container) {
			var text = (container.textContent || '').trim();
			var m = text.match(/[£$€¥₹]\s*[\d,]+(?:\.\d+)?/);
			price = m ? m[0].replace(/\s+/g, '') : '';
		}
		if (!price) {
			var code = getText('.currency-cash__code');
			var amount = getText('.currency-cash__amount');
			if (code || amount) price = code + amount;
		}

		var airline = 'Emirates';
		var tail = cardEl.querySelector('.tail-info img');
		if (tail && tail.getAttribute('alt')) {
			airline = tail.getAttribute('alt').replace('Operated by ', '').trim();
		}

		var rightBlock = cardEl.querySelector('.flight-info__date-time-details.right');
		var dayOffset = '';
		if (rightBlock) {
			var om = (rightBlock.textContent || '').match(/\+\d+/);
			if (om) dayOffset = om[0];
		}

		results.push({
			airline: airline,
			departureTime: getText('.flight-info__date-time-details.left .flight-info__date-time-details__time'),
			arrivalTime: getText('.flight-info__date-time-details.right .flight-info__date-time-details__time'),
			dayOffset: dayOffset,
			stops: getText('.flight-info__infographic__nonstop-cta'),
			duration: getText('.flight-info__infographic__duration'),
			price: price
		});
	});

	return results;
})()`
