package models

import "time"

// ScrapingStatus is the outcome a scraper reports for one run.
type ScrapingStatus string

const (
	StatusSuccess        ScrapingStatus = "success"
	StatusPartialSuccess ScrapingStatus = "partial_success"
	StatusFailed         ScrapingStatus = "failed"
)

// ScrapingResult is what one source scraper returns for one idea.
type ScrapingResult struct {
	Status       ScrapingStatus      `json:"status"`
	Competitors  []*CompetitorRecord `json:"competitors"`
	Feedback     []*FeedbackRecord   `json:"feedback"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
}

// SourceError names a source together with the message it failed or
// partially succeeded with.
type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// RunMetadata describes one orchestrated run across all sources.
type RunMetadata struct {
	JobID                 string        `json:"job_id,omitempty"`
	ProcessingTimeSeconds float64       `json:"processing_time_seconds"`
	SourcesAttempted      int           `json:"sources_attempted"`
	SourcesSuccessful     int           `json:"sources_successful"`
	SourcesPartial        int           `json:"sources_partial"`
	SourcesFailed         int           `json:"sources_failed"`
	SuccessfulSources     []string      `json:"successful_sources"`
	PartialSources        []SourceError `json:"partial_sources"`
	FailedSources         []SourceError `json:"failed_sources"`
	TotalCompetitorsFound int           `json:"total_competitors_found"`
	TotalFeedbackFound    int           `json:"total_feedback_found"`
	CompletedAt           string        `json:"completed_at,omitempty"`
	Error                 string        `json:"error,omitempty"`

	// Extras carries scraper-specific diagnostics keyed by source name.
	// Nothing in the orchestrator depends on its contents.
	Extras map[string]any `json:"extras,omitempty"`
}

// AggregatedResult is the orchestrator's sole produced artifact.
type AggregatedResult struct {
	Competitors      []*CompetitorRecord `json:"competitors"`
	Feedback         []*FeedbackRecord   `json:"feedback"`
	SentimentSummary *SentimentSummary   `json:"sentiment_summary"`
	Metadata         *RunMetadata        `json:"metadata"`
}

// NowRFC3339 formats t as RFC 3339 in UTC, the format used for CompletedAt.
func NowRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
