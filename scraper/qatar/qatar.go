package qatar

import (
	"context"
	"net/url"
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
	baseURL = "https://www.qatarairways.com/app/booking/flight-selection"

	// airlineName is the default airline attached to parsed records; a
	// fare-brand prefix captured from the listing text is appended to it.
	airlineName = "Qatar Airways"

	resultSelector = ".flight-card"
)

// Scraper drives a headless browser against the Qatar Airways booking site.
// Result rows come back as free-text lines, so this adapter extracts each
// card's text content and relies on the text-mode parser.
type Scraper struct {
	cfg    *config.Config
	logger utils.Logger
	retry  *utils.RetryConfig
	dump   *storage.RawDumpWriter
}

// New creates a ready-to-use Qatar Airways scraper. dump may be nil.
func New(cfg *config.Config, logger utils.Logger, dump *storage.RawDumpWriter) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger.With("source", "qatar"),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		dump: dump,
	}
}

// Name identifies the source slot this adapter fills.
func (s *Scraper) Name() string { return "qatar" }

// BuildURL encodes the query into the Qatar Airways flight-selection URL.
// Trip type maps to O/R, Economy to booking class E, and airport codes are
// extracted from "City (CODE)" location strings.
func BuildURL(q models.SearchQuery) string {
	tripType := "O"
	returning := ""
	if q.IsRoundTrip() {
		tripType = "R"
		returning = q.ReturnDate
	}

	bookingClass := ""
	if q.TravelClass == "Economy" {
		bookingClass = "E"
	}

	travellers := q.Travellers
	if travellers == "" {
		travellers = "1"
	}

	params := url.Values{}
	params.Set("widget", "QR")
	params.Set("searchType", "F")
	params.Set("addTaxToFare", "Y")
	params.Set("minPurTime", "0")
	params.Set("selLang", "en")
	params.Set("tripType", tripType)
	params.Set("fromStation", scraper.AirportCode(q.From))
	params.Set("toStation", scraper.AirportCode(q.To))
	params.Set("departing", q.DepartureDate)
	params.Set("bookingClass", bookingClass)
	params.Set("adults", travellers)
	params.Set("children", "0")
	params.Set("infants", "0")
	params.Set("ofw", "0")
	params.Set("teenager", "0")
	params.Set("returning", returning)
	params.Set("flexibleDate", "off")

	return baseURL + "?" + params.Encode()
}

// Scrape runs one browser session against the booking site and returns the
// per-source outcome. All failures are trapped and mapped onto the result;
// a page that loads but renders no recognizable listings is an empty
// success, not an error.
func (s *Scraper) Scrape(ctx context.Context, q models.SearchQuery) models.SourceResult {
	result := models.SourceResult{Source: s.Name(), Query: q}
	target := BuildURL(q)

	sess := scraper.NewSession(ctx, s.cfg)
	defer sess.Close()

	s.logger.Info("navigating", "url", target)

	err := s.retry.Do(ctx, "qatar-navigate", func() error {
		navCtx, cancel := context.WithTimeout(sess.Context(), s.cfg.NavTimeout)
		defer cancel()

		return chromedp.Run(navCtx,
			chromedp.Navigate(target),
			scraper.HideWebdriver(),
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(`window.scrollBy(0, document.body.scrollHeight)`, nil),
		)
	})
	if err != nil {
		s.logger.Error("navigation failed", "error", err)
		result.Err = &models.SourceError{Kind: models.ErrKindNavigation, Message: err.Error()}
		return result
	}

	waitCtx, cancelWait := context.WithTimeout(sess.Context(), s.cfg.ResultTimeout)
	defer cancelWait()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(resultSelector, chromedp.ByQuery)); err != nil {
		// Page is up but no listings rendered: zero results, not a failure.
		if shot := sess.SaveScreenshot(s.cfg.ScreenshotDir, "qatar-debug.png"); shot != "" {
			s.logger.Warn("no result rows appeared", "screenshot", shot)
		} else {
			s.logger.Warn("no result rows appeared")
		}
		result.Flights = []models.FlightRecord{}
		return result
	}

	var rows []string
	extractCtx, cancelExtract := context.WithTimeout(sess.Context(), 30*time.Second)
	defer cancelExtract()
	err = chromedp.Run(extractCtx, chromedp.Evaluate(
		`Array.from(document.querySelectorAll('`+resultSelector+`')).map(el => (el.textContent || '').trim())`,
		&rows,
	))
	if err != nil {
		s.logger.Error("extraction failed", "error", err)
		if shot := sess.SaveScreenshot(s.cfg.ScreenshotDir, "qatar-error.png"); shot != "" {
			s.logger.Warn("saved failure snapshot", "screenshot", shot)
		}
		result.Err = &models.SourceError{Kind: models.ErrKindExtraction, Message: err.Error()}
		return result
	}

	seen := utils.NewStringSet()
	fragments := make([]models.RawFragment, 0, len(rows))
	flights := make([]models.FlightRecord, 0, len(rows))

	for _, row := range rows {
		if row == "" || !seen.Add(row) {
			continue
		}
		fragments = append(fragments, models.RawFragment{Source: s.Name(), Text: row})

		out := services.ParseText(row, airlineName)
		if !out.Parsed() {
			result.Unparsed++
			s.logger.Debug("unrecognized listing format", "fragment", row)
			continue
		}
		if !out.Record.Complete() {
			result.Unparsed++
			continue
		}
		flights = append(flights, *out.Record)
	}

	if s.dump != nil {
		if err := s.dump.Append(fragments); err != nil {
			s.logger.Warn("raw dump failed", "error", err)
		}
	}

	s.logger.Info("scrape complete",
		"rows", len(rows), "flights", len(flights), "unparsed", result.Unparsed)

	result.Flights = flights
	return result
}
