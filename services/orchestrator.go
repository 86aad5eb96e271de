package services

import (
	"context"
	"fmt"
	"time"

	"idea-validator/config"
	"idea-validator/keywords"
	"idea-validator/models"
	"idea-validator/scraper"
	"idea-validator/utils"
)

const (
	detailEnrichLimit   = 3
	detailEnrichTimeout = 15 * time.Second
	detailEnrichPause   = 500 * time.Millisecond
)

// sourceOutcome is the single value each scraper task reports back.
type sourceOutcome struct {
	name   string
	result *models.ScrapingResult
	err    error
}

// ScrapingService fans an idea out to every registered source scraper
// under a bounded worker pool and a global deadline, then aggregates,
// cleans, deduplicates and sentiment-scores whatever came back.
type ScrapingService struct {
	cfg       *config.Config
	logger    *utils.Logger
	extractor *keywords.Extractor
	cleaner   *Cleaner
	dedup     *Deduplicator
	summary   *SummaryBuilder

	scrapers []scraper.SourceScraper
	names    map[string]struct{}
}

// NewScrapingService wires the post-processing pipeline together.
func NewScrapingService(cfg *config.Config, logger *utils.Logger) *ScrapingService {
	analyzer := NewSentimentAnalyzer()
	return &ScrapingService{
		cfg:       cfg,
		logger:    logger.Named("orchestrator"),
		extractor: keywords.NewExtractor(),
		cleaner:   NewCleaner(logger),
		dedup:     NewDeduplicator(logger),
		summary:   NewSummaryBuilder(analyzer, logger),
		names:     make(map[string]struct{}),
	}
}

// Register validates a scraper's configuration and adds it to the fan-out
// set. A scraper that fails validation is logged and skipped. Registering
// the same name twice is a no-op.
func (s *ScrapingService) Register(sc scraper.SourceScraper) {
	name := sc.Name()
	if _, dup := s.names[name]; dup {
		s.logger.Warn("Scraper %s already registered, skipping", name)
		return
	}
	if err := sc.ValidateConfig(); err != nil {
		s.logger.Warn("Scraper %s rejected: %v", name, err)
		return
	}
	s.names[name] = struct{}{}
	s.scrapers = append(s.scrapers, sc)
	s.logger.Info("Registered scraper: %s", name)
}

// ListSources returns the names of all registered scrapers.
func (s *ScrapingService) ListSources() []string {
	names := make([]string, 0, len(s.scrapers))
	for _, sc := range s.scrapers {
		names = append(names, sc.Name())
	}
	return names
}

// Close releases every registered scraper's external resources.
func (s *ScrapingService) Close() {
	for _, sc := range s.scrapers {
		if err := sc.Close(); err != nil {
			s.logger.Warn("Closing %s: %v", sc.Name(), err)
		}
	}
}

// Scrape runs the full pipeline for one idea. It never returns an error:
// every failure mode becomes a field in the returned AggregatedResult.
func (s *ScrapingService) Scrape(ideaText string) *models.AggregatedResult {
	start := time.Now()

	meta := &models.RunMetadata{
		SuccessfulSources: []string{},
		PartialSources:    []models.SourceError{},
		FailedSources:     []models.SourceError{},
		Extras:            make(map[string]any),
	}
	result := &models.AggregatedResult{
		Competitors:      []*models.CompetitorRecord{},
		Feedback:         []*models.FeedbackRecord{},
		SentimentSummary: models.EmptySentimentSummary(),
		Metadata:         meta,
	}

	if len(s.scrapers) == 0 {
		meta.Error = "No scrapers registered"
		meta.CompletedAt = models.NowRFC3339(time.Now())
		return result
	}

	kws := s.extractor.Extract(ideaText)
	s.logger.Info("Extracted %d keywords: %v", len(kws), kws)

	outcomes := s.fanOut(kws, ideaText)

	var (
		competitors []*models.CompetitorRecord
		feedback    []*models.FeedbackRecord
	)
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			meta.FailedSources = append(meta.FailedSources, models.SourceError{
				Source: o.name, Message: o.err.Error(),
			})
		case o.result.Status == models.StatusSuccess:
			meta.SuccessfulSources = append(meta.SuccessfulSources, o.name)
		case o.result.Status == models.StatusPartialSuccess:
			meta.PartialSources = append(meta.PartialSources, models.SourceError{
				Source: o.name, Message: o.result.ErrorMessage,
			})
		default:
			meta.FailedSources = append(meta.FailedSources, models.SourceError{
				Source: o.name, Message: o.result.ErrorMessage,
			})
		}

		if o.result != nil {
			competitors = append(competitors, o.result.Competitors...)
			feedback = append(feedback, o.result.Feedback...)
			if len(o.result.Metadata) > 0 {
				meta.Extras[o.name] = o.result.Metadata
			}
		}
	}

	meta.SourcesAttempted = len(s.scrapers)
	meta.SourcesSuccessful = len(meta.SuccessfulSources)
	meta.SourcesPartial = len(meta.PartialSources)
	meta.SourcesFailed = len(meta.FailedSources)

	// Post-processing always runs, even when every source failed. A bug
	// here must not lose the per-source buckets, so it is fenced off.
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Post-processing failed: %v", r)
				meta.Error = fmt.Sprintf("post-processing failed: %v", r)
				result.Competitors = []*models.CompetitorRecord{}
				result.Feedback = []*models.FeedbackRecord{}
				result.SentimentSummary = models.EmptySentimentSummary()
			}
		}()

		competitors = s.cleaner.CleanCompetitors(competitors)
		feedback = s.cleaner.CleanFeedback(feedback)

		competitors = s.dedup.DedupCompetitors(competitors)
		feedback = s.dedup.DedupFeedback(feedback)

		s.attachCommentSummaries(competitors)

		result.Competitors = competitors
		result.Feedback = feedback
		result.SentimentSummary = s.summary.GetSentimentSummary(feedback)
	}()

	meta.TotalCompetitorsFound = len(result.Competitors)
	meta.TotalFeedbackFound = len(result.Feedback)
	meta.ProcessingTimeSeconds = round2(time.Since(start).Seconds())
	meta.CompletedAt = models.NowRFC3339(time.Now())

	s.logger.Info("Scrape finished in %.1fs: %d/%d sources ok, %d competitors, %d feedback",
		meta.ProcessingTimeSeconds, meta.SourcesSuccessful, meta.SourcesAttempted,
		meta.TotalCompetitorsFound, meta.TotalFeedbackFound)

	return result
}

// fanOut runs every registered scraper once under the worker pool and the
// global deadline, and collects one outcome per scraper. Scrapers still
// running when the deadline fires are reported as failed with "Timeout".
func (s *ScrapingService) fanOut(kws []string, ideaText string) []sourceOutcome {
	timeout := time.Duration(s.cfg.ScrapeTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool := utils.NewWorkerPool(s.cfg.MaxConcurrentScrapers, 0)
	results := make(chan sourceOutcome, len(s.scrapers))

	// Submit blocks while all workers are busy, so the drain loop below
	// must not wait on it.
	go func() {
		for _, sc := range s.scrapers {
			sc := sc
			pool.Submit(func() {
				results <- s.runScraper(ctx, sc, kws, ideaText)
			})
		}
	}()

	reported := make(map[string]struct{}, len(s.scrapers))
	outcomes := make([]sourceOutcome, 0, len(s.scrapers))

	for len(outcomes) < len(s.scrapers) {
		select {
		case o := <-results:
			reported[o.name] = struct{}{}
			outcomes = append(outcomes, o)
		case <-ctx.Done():
			s.logger.Warn("Global deadline reached after %v, abandoning outstanding scrapers", timeout)
			for _, sc := range s.scrapers {
				if _, ok := reported[sc.Name()]; !ok {
					outcomes = append(outcomes, sourceOutcome{
						name: sc.Name(),
						err:  fmt.Errorf("Timeout"),
					})
				}
			}
			return outcomes
		}
	}
	return outcomes
}

// runScraper invokes one scraper and converts panics and error returns
// into a failed outcome.
func (s *ScrapingService) runScraper(ctx context.Context, sc scraper.SourceScraper, kws []string, ideaText string) (out sourceOutcome) {
	out.name = sc.Name()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scraper %s panicked: %v", out.name, r)
			out.result = nil
			out.err = fmt.Errorf("%v", r)
		}
	}()

	s.logger.Info("Starting scraper: %s", out.name)
	res, err := sc.Scrape(ctx, kws, ideaText)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("Timeout")
		}
		out.err = err
		return out
	}
	if res == nil {
		out.err = fmt.Errorf("scraper returned no result")
		return out
	}
	out.result = res
	return out
}

// attachCommentSummaries computes each competitor's sentiment summary
// from its attached comments. Up to three competitors without comments
// are enriched through their source's detail-comment hook, outside the
// global deadline since the fan-out is already over.
func (s *ScrapingService) attachCommentSummaries(competitors []*models.CompetitorRecord) {
	fetchers := make(map[string]scraper.CommentFetcher)
	for _, sc := range s.scrapers {
		if f, ok := sc.(scraper.CommentFetcher); ok {
			fetchers[sc.Name()] = f
		}
	}

	enriched := 0
	for _, comp := range competitors {
		if len(comp.Comments) == 0 && enriched < detailEnrichLimit {
			if fetcher, ok := fetchers[comp.Source]; ok {
				if enriched > 0 {
					time.Sleep(detailEnrichPause)
				}
				ctx, cancel := context.WithTimeout(context.Background(), detailEnrichTimeout)
				comments, err := fetcher.FetchDetailComments(ctx, comp)
				cancel()
				if err != nil {
					s.logger.Warn("Detail comments for %s failed: %v", comp.Name, err)
				} else if len(comments) > 0 {
					comp.Comments = comments
				}
				enriched++
			}
		}
		s.summary.AddCommentsToCompetitor(comp, comp.Comments)
	}
}
