package services

import (
	"context"
	"fmt"
	"time"

	"flight-scraper/metrics"
	"flight-scraper/models"
	"flight-scraper/utils"
)

// SourceScraper is one airline source adapter. Implementations must trap
// every internal failure and map it onto the returned SourceResult; the
// aggregator does no adapter-specific recovery.
type SourceScraper interface {
	Name() string
	Scrape(ctx context.Context, q models.SearchQuery) models.SourceResult
}

// AggregateResult carries both sources' outcomes. The slots are independent:
// a failure in one never erases the other.
type AggregateResult struct {
	Qatar    models.SourceResult `json:"qatar"`
	Emirates models.SourceResult `json:"emirates"`
}

// Aggregator fans one query out to both source adapters concurrently, joins
// them, and best-effort persists what came back.
type Aggregator struct {
	qatar    SourceScraper
	emirates SourceScraper
	cache    *FlightCache
	insights *InsightService
	logger   utils.Logger
	metrics  *metrics.Metrics
}

// NewAggregator wires the two adapters. cache may be nil to skip persisting
// scrape results.
func NewAggregator(qatar, emirates SourceScraper, cache *FlightCache, insights *InsightService, m *metrics.Metrics, logger utils.Logger) *Aggregator {
	return &Aggregator{
		qatar:    qatar,
		emirates: emirates,
		cache:    cache,
		insights: insights,
		logger:   logger,
		metrics:  m,
	}
}

// Search scrapes both sources for one query and waits for both to finish.
// Each adapter runs in its own pool slot with its own browser session; no
// ordering is guaranteed between them.
func (a *Aggregator) Search(ctx context.Context, q models.SearchQuery) AggregateResult {
	var result AggregateResult

	pool := utils.NewWorkerPool(2, 0)
	pool.Submit(func() { result.Qatar = a.scrapeOne(ctx, a.qatar, q) })
	pool.Submit(func() { result.Emirates = a.scrapeOne(ctx, a.emirates, q) })
	pool.Wait()

	a.persist(ctx, result.Qatar)
	a.persist(ctx, result.Emirates)

	return result
}

// scrapeOne runs one adapter and guarantees a result slot comes back even
// if the adapter panics.
func (a *Aggregator) scrapeOne(ctx context.Context, src SourceScraper, q models.SearchQuery) (out models.SourceResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = models.SourceResult{
				Source: src.Name(),
				Query:  q,
				Err: &models.SourceError{
					Kind:    models.ErrKindExtraction,
					Message: fmt.Sprintf("scraper panic: %v", r),
				},
			}
		}
		a.observe(out, time.Since(start))
	}()

	return src.Scrape(ctx, q)
}

func (a *Aggregator) observe(res models.SourceResult, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case !res.OK():
		outcome = "error"
	case len(res.Flights) == 0:
		outcome = "empty"
	}

	a.metrics.ScrapesTotal.WithLabelValues(res.Source, outcome).Inc()
	a.metrics.ScrapeDuration.WithLabelValues(res.Source).Observe(elapsed.Seconds())
	if res.Unparsed > 0 {
		a.metrics.UnparsedFragments.WithLabelValues(res.Source).Add(float64(res.Unparsed))
	}

	if res.OK() {
		a.insights.Log(a.insights.Summarize(res))
	} else {
		a.logger.Warn("source scrape failed",
			"source", res.Source, "kind", res.Err.Kind, "error", res.Err.Message)
	}
}

// persist hands one source's records to the cache layer. Failures are
// logged and counted but never fail the scrape response; partial results
// remain valid.
func (a *Aggregator) persist(ctx context.Context, res models.SourceResult) {
	if a.cache == nil || !res.OK() || len(res.Flights) == 0 {
		return
	}

	if _, _, err := a.cache.StoreResults(ctx, res.Query, res.Flights); err != nil {
		a.logger.Error("failed to persist scrape results",
			"source", res.Source, "error", err)
	}
}
