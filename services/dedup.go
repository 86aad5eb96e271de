package services

import (
	"strings"

	"idea-validator/models"
	"idea-validator/utils"
)

const feedbackKeyLen = 50

// Deduplicator removes duplicate competitors and feedback collected across
// sources. First occurrence wins and insertion order is preserved, so
// running it twice yields the same set.
type Deduplicator struct {
	logger *utils.Logger
}

// NewDeduplicator creates a Deduplicator with the given logger.
func NewDeduplicator(logger *utils.Logger) *Deduplicator {
	return &Deduplicator{logger: logger.Named("dedup")}
}

// DedupCompetitors keys on the lowercased, trimmed name. Names shorter
// than 2 characters are dropped.
func (d *Deduplicator) DedupCompetitors(comps []*models.CompetitorRecord) []*models.CompetitorRecord {
	seen := utils.NewSeenSet()
	result := make([]*models.CompetitorRecord, 0, len(comps))

	for _, comp := range comps {
		key := strings.ToLower(strings.TrimSpace(comp.Name))
		if len(key) < 2 {
			continue
		}
		if !seen.Add(key) {
			d.logger.Debug("Duplicate competitor skipped: %s", comp.Name)
			continue
		}
		result = append(result, comp)
	}

	if dropped := len(comps) - len(result); dropped > 0 {
		d.logger.Info("Deduplicated %d → %d competitors (dropped %d)",
			len(comps), len(result), dropped)
	}
	return result
}

// DedupFeedback keys on the first 50 lowercased characters of the text.
// Texts shorter than 10 characters are dropped.
func (d *Deduplicator) DedupFeedback(feedback []*models.FeedbackRecord) []*models.FeedbackRecord {
	seen := utils.NewSeenSet()
	result := make([]*models.FeedbackRecord, 0, len(feedback))

	for _, fb := range feedback {
		text := strings.ToLower(strings.TrimSpace(fb.Text))
		if len(text) < 10 {
			continue
		}
		key := text
		if len(key) > feedbackKeyLen {
			key = key[:feedbackKeyLen]
		}
		if !seen.Add(key) {
			d.logger.Debug("Duplicate feedback skipped: %.40s", fb.Text)
			continue
		}
		result = append(result, fb)
	}

	if dropped := len(feedback) - len(result); dropped > 0 {
		d.logger.Info("Deduplicated %d → %d feedback items (dropped %d)",
			len(feedback), len(result), dropped)
	}
	return result
}
