package producthunt

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"idea-validator/config"
	"idea-validator/models"
	"idea-validator/scraper"
	"idea-validator/utils"
)

const (
	sourceName     = "product_hunt"
	baseURL        = "https://www.producthunt.com"
	maxCompetitors = 15
	enrichLimit    = 5
	baseConfidence = 0.85
	pageTimeout    = 60 * time.Second
)

// Scraper drives a headless browser against Product Hunt search pages.
// The site is a structured product directory, so it yields competitor
// records only.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

// New creates a Product Hunt Scraper. The browser process starts lazily
// on the first Scrape call.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	log := logger.Named(sourceName)
	return &Scraper{
		cfg:    cfg,
		logger: log,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      log,
		},
	}
}

// Name implements scraper.SourceScraper.
func (s *Scraper) Name() string { return sourceName }

// ValidateConfig implements scraper.SourceScraper.
func (s *Scraper) ValidateConfig() error {
	if s.cfg.ChromeBin == "" && scraper.FindChromeBinary() == "" {
		return fmt.Errorf("no chrome binary found; set CHROME_BIN")
	}
	if s.cfg.MaxQueriesPerSource <= 0 {
		return fmt.Errorf("max queries per source must be positive, got %d", s.cfg.MaxQueriesPerSource)
	}
	return nil
}

// Close implements scraper.SourceScraper. It tears down the browser
// process if one was started.
func (s *Scraper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelBrowser != nil {
		s.cancelBrowser()
		s.cancelBrowser = nil
		s.browserCtx = nil
	}
	return nil
}

func (s *Scraper) browser() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browserCtx == nil {
		s.browserCtx, s.cancelBrowser = scraper.NewBrowserContext(context.Background(), s.cfg.ChromeBin)
	}
	return s.browserCtx
}

type productCard struct {
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
	URL     string `json:"url"`
	Upvotes string `json:"upvotes"`
}

// Scrape implements scraper.SourceScraper.
func (s *Scraper) Scrape(ctx context.Context, keywords []string, ideaText string) (*models.ScrapingResult, error) {
	queries := scraper.BuildQueries(keywords, "", s.cfg.MaxQueriesPerSource)
	if len(queries) == 0 {
		return &models.ScrapingResult{
			Status:       models.StatusFailed,
			ErrorMessage: "no queries could be derived from keywords",
		}, nil
	}

	s.logger.Info("Searching with %d queries", len(queries))

	var (
		competitors []*models.CompetitorRecord
		succeeded   int
		failed      int
		lastErr     error
	)
	seen := utils.NewSeenSet()

	for i, query := range queries {
		if i > 0 {
			if err := scraper.PoliteSleep(ctx, s.cfg.MinQueryDelayMs, s.cfg.MaxQueryDelayMs); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cards, err := s.searchProducts(ctx, query)
		if err != nil {
			failed++
			lastErr = err
			s.logger.Warn("Query %q failed: %v", query, err)
			continue
		}
		succeeded++

		for _, card := range cards {
			key := strings.ToLower(strings.TrimSpace(card.Name))
			if key == "" || !seen.Add(key) {
				continue
			}
			competitors = append(competitors, s.toCompetitor(card))
			if len(competitors) >= maxCompetitors {
				break
			}
		}
		if len(competitors) >= maxCompetitors {
			break
		}
	}

	// Detail pages carry websites and maker info for the top hits.
	s.enrichCompetitors(ctx, competitors)

	result := &models.ScrapingResult{
		Status:      scraper.ResultStatus(succeeded, failed),
		Competitors: competitors,
		Metadata: map[string]any{
			"queries_attempted":  len(queries),
			"successful_queries": succeeded,
			"failed_queries":     failed,
		},
	}
	if result.Status == models.StatusFailed && lastErr != nil {
		result.ErrorMessage = lastErr.Error()
	} else if result.Status == models.StatusPartialSuccess {
		result.ErrorMessage = fmt.Sprintf("%d of %d queries failed", failed, len(queries))
	}

	s.logger.Info("Done: %d competitors (status %s)", len(competitors), result.Status)
	return result, nil
}

func (s *Scraper) searchProducts(ctx context.Context, query string) ([]productCard, error) {
	searchURL := baseURL + "/search?q=" + url.QueryEscape(query)

	var cards []productCard
	err := s.retry.Do(ctx, "producthunt-search", func() error {
		tabCtx, cancel := chromedp.NewContext(s.browser())
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, pageTimeout)
		defer cancelTimeout()

		// Stop the tab when the orchestrator's deadline fires.
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-tabCtx.Done():
			}
		}()

		var extracted []productCard
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(searchURL),
			chromedp.Sleep(4*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
			chromedp.Sleep(2*time.Second),

			chromedp.Evaluate(`
				(function() {
					var results = [];
					var seen = {};
					var links = document.querySelectorAll('a[href^="/products/"], a[href^="/posts/"]');
					for (var i = 0; i < links.length && results.length < 10; i++) {
						var link = links[i];
						var href = link.getAttribute('href').split('?')[0];
						if (seen[href]) continue;

						var card = link.closest('[data-test*="post"]') ||
						           link.closest('section') ||
						           link.closest('div');
						var text = card ? card.innerText : link.innerText;
						var lines = text.split('\n').map(function(l){return l.trim();}).filter(Boolean);
						if (lines.length === 0) continue;

						seen[href] = true;
						results.push({
							name:    lines[0],
							tagline: lines[1] || '',
							url:     'https://www.producthunt.com' + href,
							upvotes: (lines.find(function(l){return l.match(/^\d+$/);}) || '')
						});
					}
					return results;
				})()
			`, &extracted),
		)
		if err != nil {
			return fmt.Errorf("chromedp evaluate: %w", err)
		}
		cards = extracted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *Scraper) toCompetitor(card productCard) *models.CompetitorRecord {
	confidence := baseConfidence
	if card.Tagline == "" {
		confidence -= 0.1
	}
	return &models.CompetitorRecord{
		Name:            card.Name,
		Description:     card.Tagline,
		EstimatedUsers:  upvoteDisplay(card.Upvotes),
		Source:          sourceName,
		SourceURL:       card.URL,
		ConfidenceScore: confidence,
	}
}

// enrichCompetitors visits detail pages for the top hits to fill in the
// website and maker fields.
func (s *Scraper) enrichCompetitors(ctx context.Context, comps []*models.CompetitorRecord) {
	limit := len(comps)
	if limit > enrichLimit {
		limit = enrichLimit
	}

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			return
		}
		comp := comps[i]

		tabCtx, cancel := chromedp.NewContext(s.browser())
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 30*time.Second)

		var website, maker string
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(comp.SourceURL),
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(`
				(function() {
					var visit = document.querySelector('a[data-test="product-header-visit-button"]') ||
					            document.querySelector('a[href*="/r/"]');
					return visit ? (visit.href || '') : '';
				})()
			`, &website),
			chromedp.Evaluate(`
				(function() {
					var maker = document.querySelector('[data-test="maker-name"]') ||
					            document.querySelector('a[href^="/@"]');
					return maker ? maker.innerText.trim() : '';
				})()
			`, &maker),
		)
		cancelTimeout()
		cancel()

		if err != nil {
			s.logger.Debug("Enrichment for %s failed: %v", comp.Name, err)
			continue
		}
		if website != "" {
			comp.Website = website
		}
		if maker != "" {
			comp.FounderCEO = maker
		}

		time.Sleep(500 * time.Millisecond)
	}
}

func upvoteDisplay(upvotes string) string {
	if upvotes == "" {
		return ""
	}
	return upvotes + " upvotes"
}
