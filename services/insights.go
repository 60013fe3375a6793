package services

import (
	"regexp"
	"strconv"
	"strings"

	"flight-scraper/models"
	"flight-scraper/utils"
)

// amountRegexp captures the numeric part of a price string like "$1,234.50".
var amountRegexp = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

// FareSummary is a compact view of one source's scraped fares, logged after
// each scrape so operators can eyeball whether a source has degraded.
type FareSummary struct {
	Source         string
	Flights        int
	Direct         int
	Unparsed       int
	CheapestPrice  string
	CheapestAmount float64
}

// InsightService summarizes scraped fares.
type InsightService struct {
	logger utils.Logger
}

// NewInsightService creates an InsightService with the given logger.
func NewInsightService(logger utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Summarize computes a FareSummary for one source result.
func (s *InsightService) Summarize(result models.SourceResult) FareSummary {
	summary := FareSummary{
		Source:   result.Source,
		Flights:  len(result.Flights),
		Unparsed: result.Unparsed,
	}

	for _, f := range result.Flights {
		if isDirect(f.Stops) {
			summary.Direct++
		}
		amount := priceAmount(f.Price)
		if amount > 0 && (summary.CheapestAmount == 0 || amount < summary.CheapestAmount) {
			summary.CheapestAmount = amount
			summary.CheapestPrice = f.Price
		}
	}

	return summary
}

// Log emits the summary at info level.
func (s *InsightService) Log(summary FareSummary) {
	s.logger.Info("fare summary",
		"source", summary.Source,
		"flights", summary.Flights,
		"direct", summary.Direct,
		"unparsed", summary.Unparsed,
		"cheapest", summary.CheapestPrice)
}

func isDirect(stops string) bool {
	lowered := strings.ToLower(stops)
	return strings.Contains(lowered, "direct") || strings.Contains(lowered, "non-stop") ||
		strings.Contains(lowered, "nonstop")
}

// priceAmount extracts the numeric fare value, ignoring the currency symbol
// and thousands separators. Unparseable prices report zero.
func priceAmount(price string) float64 {
	match := amountRegexp.FindString(price)
	if match == "" {
		return 0
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0
	}
	return amount
}
