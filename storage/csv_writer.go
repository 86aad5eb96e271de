package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"idea-validator/models"
)

// CSVWriter exports aggregated results to a CSV file for offline review.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created
// automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"record_type", "name_or_text", "description", "website", "pricing_model",
		"source", "source_url", "confidence_score", "sentiment", "sentiment_score",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Export writes every competitor and feedback record of the result as one
// row each.
func (c *CSVWriter) Export(result *models.AggregatedResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, comp := range result.Competitors {
		row := []string{
			"competitor",
			comp.Name,
			comp.Description,
			comp.Website,
			comp.PricingModel,
			comp.Source,
			comp.SourceURL,
			strconv.FormatFloat(comp.ConfidenceScore, 'f', 2, 64),
			overallSentiment(comp),
			"",
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write competitor row: %w", err)
		}
	}

	for _, fb := range result.Feedback {
		row := []string{
			"feedback",
			fb.Text,
			"", "", "",
			fb.Source,
			fb.SourceURL,
			"",
			string(fb.Sentiment),
			strconv.FormatFloat(fb.SentimentScore, 'f', 4, 64),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write feedback row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}

func overallSentiment(comp *models.CompetitorRecord) string {
	if comp.SentimentSummary == nil {
		return ""
	}
	return string(comp.SentimentSummary.OverallSentiment)
}
