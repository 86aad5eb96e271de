package storage

import "idea-validator/models"

// Store is the persistence contract consumed after a scrape run finishes.
// Implementations are called sequentially, never during the fan-out.
type Store interface {
	UpdateStatus(jobID, status string, extra map[string]any) error
	InsertCompetitors(jobID string, competitors []*models.CompetitorRecord) error
	InsertFeedback(jobID string, feedback []*models.FeedbackRecord) error
	InsertMetadata(jobID string, meta *models.RunMetadata) error
	Close() error
}

// ResultExporter writes an aggregated result to a local file for offline
// inspection.
type ResultExporter interface {
	Export(result *models.AggregatedResult) error
	Close() error
}
