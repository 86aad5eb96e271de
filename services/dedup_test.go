package services

import (
	"strings"
	"testing"

	"idea-validator/models"
)

func TestDedupCompetitorsFirstWins(t *testing.T) {
	d := NewDeduplicator(newTestLogger())

	comps := []*models.CompetitorRecord{
		{Name: "  Alpha  ", Source: "app_store", SourceURL: "u1", ConfidenceScore: 0.8},
		{Name: "alpha", Source: "reddit", SourceURL: "u2", ConfidenceScore: 0.5},
		{Name: "Beta", Source: "app_store", SourceURL: "u3", ConfidenceScore: 0.7},
	}

	result := d.DedupCompetitors(comps)
	if len(result) != 2 {
		t.Fatalf("expected 2 competitors, got %d", len(result))
	}
	if result[0].SourceURL != "u1" {
		t.Errorf("first occurrence should win, got %s", result[0].SourceURL)
	}
	if result[0].ConfidenceScore != 0.8 {
		t.Errorf("confidence must be unchanged, got %v", result[0].ConfidenceScore)
	}
	if result[1].Name != "Beta" {
		t.Errorf("insertion order not preserved: got %s", result[1].Name)
	}
}

func TestDedupCompetitorsDropsShortNames(t *testing.T) {
	d := NewDeduplicator(newTestLogger())

	comps := []*models.CompetitorRecord{
		{Name: "X", Source: "s", SourceURL: "u1"},
		{Name: " ", Source: "s", SourceURL: "u2"},
		{Name: "OK", Source: "s", SourceURL: "u3"},
	}

	result := d.DedupCompetitors(comps)
	if len(result) != 1 || result[0].Name != "OK" {
		t.Errorf("expected only OK to survive, got %d records", len(result))
	}
}

func TestDedupFeedbackKeyIsFirst50Chars(t *testing.T) {
	d := NewDeduplicator(newTestLogger())

	prefix := strings.Repeat("a", 50)
	feedback := []*models.FeedbackRecord{
		{Text: prefix + " first tail", Source: "s", SourceURL: "u1"},
		{Text: prefix + " different tail entirely", Source: "s", SourceURL: "u2"},
		{Text: "a completely different review text", Source: "s", SourceURL: "u3"},
	}

	result := d.DedupFeedback(feedback)
	if len(result) != 2 {
		t.Fatalf("expected 2 feedback records, got %d", len(result))
	}
	if result[0].SourceURL != "u1" {
		t.Errorf("first occurrence should win, got %s", result[0].SourceURL)
	}
}

func TestDedupFeedbackDropsShortTexts(t *testing.T) {
	d := NewDeduplicator(newTestLogger())

	feedback := []*models.FeedbackRecord{
		{Text: "too short", Source: "s", SourceURL: "u1"},
		{Text: "this one is long enough to keep", Source: "s", SourceURL: "u2"},
	}

	result := d.DedupFeedback(feedback)
	if len(result) != 1 || result[0].SourceURL != "u2" {
		t.Errorf("expected only the long text to survive, got %d records", len(result))
	}
}

func TestDedupIdempotent(t *testing.T) {
	d := NewDeduplicator(newTestLogger())

	comps := []*models.CompetitorRecord{
		{Name: "Alpha", Source: "s", SourceURL: "u1"},
		{Name: "ALPHA", Source: "s", SourceURL: "u2"},
		{Name: "Beta", Source: "s", SourceURL: "u3"},
	}
	once := d.DedupCompetitors(comps)
	twice := d.DedupCompetitors(once)
	if len(once) != len(twice) {
		t.Errorf("competitor dedup not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("competitor dedup reordered records on second pass")
		}
	}

	feedback := []*models.FeedbackRecord{
		{Text: "the app keeps crashing on startup", Source: "s", SourceURL: "u1"},
		{Text: "The app keeps crashing on startup", Source: "s", SourceURL: "u2"},
	}
	onceF := d.DedupFeedback(feedback)
	twiceF := d.DedupFeedback(onceF)
	if len(onceF) != 1 || len(twiceF) != 1 {
		t.Errorf("feedback dedup not idempotent: %d vs %d", len(onceF), len(twiceF))
	}
}
