package scraper

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"idea-validator/models"
	"idea-validator/utils"
)

// SourceScraper is the contract every data-source implementation exposes
// to the orchestrator.
type SourceScraper interface {
	// Name is the human identifier used in metadata, stable across runs.
	Name() string

	// ValidateConfig verifies configuration is present and coherent.
	// Called once at registration; a non-nil error skips the scraper.
	ValidateConfig() error

	// Scrape searches the source for competitors and feedback. Expected
	// failures (rate limits, 404s, empty results) are reported through
	// the result status, never as an error. A returned error is treated
	// as a crash by the orchestrator.
	Scrape(ctx context.Context, keywords []string, ideaText string) (*models.ScrapingResult, error)

	// Close releases external sessions (HTTP clients, browser
	// instances). Always called on shutdown, even after cancellation.
	Close() error
}

// CommentFetcher is an optional enrichment hook. Sources that can pull
// per-entity discussion implement it; the orchestrator calls it for a few
// top competitors after the fan-out phase.
type CommentFetcher interface {
	FetchDetailComments(ctx context.Context, comp *models.CompetitorRecord) ([]models.CommentRecord, error)
}

// BuildQueries derives a bounded, ordered, deduplicated set of search
// queries from the extracted keywords. Top keywords are combined in
// pairs, then each single keyword gets the domain suffix appended
// (e.g. "budgeting app").
func BuildQueries(keywords []string, suffix string, maxQueries int) []string {
	var queries []string

	if len(keywords) >= 2 {
		queries = append(queries, keywords[0]+" "+keywords[1])
	}
	if len(keywords) >= 3 {
		queries = append(queries, keywords[0]+" "+keywords[2])
	}
	for _, kw := range keywords {
		if suffix != "" {
			queries = append(queries, kw+" "+suffix)
		} else {
			queries = append(queries, kw)
		}
	}

	seen := utils.NewSeenSet()
	result := make([]string, 0, maxQueries)
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" || !seen.Add(q) {
			continue
		}
		result = append(result, q)
		if len(result) >= maxQueries {
			break
		}
	}
	return result
}

// PoliteSleep pauses for a random duration in [minMs, maxMs] to respect
// external rate limits. It returns early with the context error when ctx
// is cancelled, so scrapers observe cancellation at query boundaries.
func PoliteSleep(ctx context.Context, minMs, maxMs int) error {
	if maxMs <= 0 {
		return ctx.Err()
	}
	if minMs < 0 {
		minMs = 0
	}
	span := maxMs - minMs
	delay := minMs
	if span > 0 {
		delay += rand.Intn(span + 1)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(delay) * time.Millisecond):
		return nil
	}
}

// ResultStatus maps query counters onto the per-source status protocol:
// success when every attempted query succeeded, partial_success on a mix,
// failed when nothing succeeded.
func ResultStatus(succeeded, failed int) models.ScrapingStatus {
	switch {
	case succeeded > 0 && failed == 0:
		return models.StatusSuccess
	case succeeded > 0:
		return models.StatusPartialSuccess
	default:
		return models.StatusFailed
	}
}
