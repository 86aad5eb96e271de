package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"idea-validator/config"
	"idea-validator/models"
	"idea-validator/scraper/appstore"
	"idea-validator/scraper/producthunt"
	"idea-validator/scraper/reddit"
	"idea-validator/services"
	"idea-validator/storage"
	"idea-validator/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	ideaText := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	if ideaText == "" {
		fmt.Println("Usage: idea-validator \"<business idea description>\"")
		os.Exit(1)
	}

	logger.Info("=== Idea Validation System starting ===")
	logger.Info("Config — concurrency: %d | timeout: %ds | queries/source: %d | retries: %d",
		cfg.MaxConcurrentScrapers, cfg.ScrapeTimeoutSeconds, cfg.MaxQueriesPerSource, cfg.MaxRetries)

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	svc := services.NewScrapingService(cfg, logger)
	defer svc.Close()

	svc.Register(appstore.New(cfg, logger))
	svc.Register(reddit.New(cfg, logger))
	svc.Register(producthunt.New(cfg, logger))

	sources := svc.ListSources()
	if len(sources) == 0 {
		logger.Error("No scrapers passed validation. Exiting.")
		os.Exit(1)
	}
	logger.Info("Active sources: %s", strings.Join(sources, ", "))

	jobID := uuid.NewString()
	if err := store.CreateJob(jobID, ideaText); err != nil {
		logger.Error("Failed to create job: %v", err)
		os.Exit(1)
	}
	if err := store.UpdateStatus(jobID, "processing", nil); err != nil {
		logger.Warn("Status update failed: %v", err)
	}

	result := svc.Scrape(ideaText)
	result.Metadata.JobID = jobID

	if err := store.InsertCompetitors(jobID, result.Competitors); err != nil {
		logger.Error("Storing competitors failed: %v", err)
	}
	if err := store.InsertFeedback(jobID, result.Feedback); err != nil {
		logger.Error("Storing feedback failed: %v", err)
	}
	if err := store.InsertMetadata(jobID, result.Metadata); err != nil {
		logger.Error("Storing metadata failed: %v", err)
	}
	if err := store.UpdateStatus(jobID, jobStatus(result.Metadata), statusExtra(result.Metadata)); err != nil {
		logger.Warn("Final status update failed: %v", err)
	}

	if err := csvWriter.Export(result); err != nil {
		logger.Error("CSV export failed: %v", err)
	} else {
		logger.Info("Results exported to %s", cfg.CSVOutputPath)
	}

	services.PrintReport(result)

	fmt.Printf("  Done. Job %s → PostgreSQL | CSV → %s\n\n", jobID, cfg.CSVOutputPath)
}

// jobStatus maps the per-source buckets onto the job-level status:
// completed when everything succeeded, partial_success on a mix, failed
// when no source delivered.
func jobStatus(meta *models.RunMetadata) string {
	switch {
	case meta.SourcesSuccessful > 0 && meta.SourcesPartial == 0 && meta.SourcesFailed == 0:
		return "completed"
	case meta.SourcesSuccessful > 0 || meta.SourcesPartial > 0:
		return "partial_success"
	default:
		return "failed"
	}
}

func statusExtra(meta *models.RunMetadata) map[string]any {
	return map[string]any{
		"sources_successful": meta.SourcesSuccessful,
		"sources_partial":    meta.SourcesPartial,
		"sources_failed":     meta.SourcesFailed,
		"competitors_found":  meta.TotalCompetitorsFound,
		"feedback_found":     meta.TotalFeedbackFound,
	}
}
