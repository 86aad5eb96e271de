package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"idea-validator/config"
	"idea-validator/models"
	"idea-validator/scraper"
	"idea-validator/utils"
)

const (
	sourceName        = "app_store"
	defaultSearchURL  = "https://itunes.apple.com/search"
	defaultReviewsURL = "https://itunes.apple.com/%s/rss/customerreviews/id=%d/sortBy=%s/json"

	resultsPerQuery   = 10
	maxCompetitors    = 15
	maxFeedback       = 20
	reviewFetchDelay  = 500 * time.Millisecond
	baseConfidence    = 0.8
	missingFieldPenal = 0.05
)

// Scraper searches the iTunes Search API for competing apps and pulls
// their customer reviews as feedback.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	client *http.Client
	retry  *utils.RetryConfig

	// searchURL and reviewsURL are overridable for tests.
	searchURL  string
	reviewsURL string

	mu     sync.Mutex
	appIDs map[string]int64
}

// New creates an App Store Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	log := logger.Named(sourceName)
	return &Scraper{
		cfg:    cfg,
		logger: log,
		client: &http.Client{Timeout: 15 * time.Second},
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   time.Second,
			Logger:      log,
		},
		searchURL:  defaultSearchURL,
		reviewsURL: defaultReviewsURL,
		appIDs:     make(map[string]int64),
	}
}

// Name implements scraper.SourceScraper.
func (s *Scraper) Name() string { return sourceName }

// ValidateConfig implements scraper.SourceScraper.
func (s *Scraper) ValidateConfig() error {
	if s.cfg.ITunesCountry == "" {
		return fmt.Errorf("itunes country code is empty")
	}
	if len(s.cfg.ITunesCountry) != 2 {
		return fmt.Errorf("itunes country code %q must be 2 letters", s.cfg.ITunesCountry)
	}
	if s.cfg.MaxQueriesPerSource <= 0 {
		return fmt.Errorf("max queries per source must be positive, got %d", s.cfg.MaxQueriesPerSource)
	}
	return nil
}

// Close implements scraper.SourceScraper.
func (s *Scraper) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type searchResponse struct {
	ResultCount int           `json:"resultCount"`
	Results     []searchEntry `json:"results"`
}

type searchEntry struct {
	TrackID           int64    `json:"trackId"`
	TrackName         string   `json:"trackName"`
	Description       string   `json:"description"`
	SellerURL         string   `json:"sellerUrl"`
	TrackViewURL      string   `json:"trackViewUrl"`
	Price             float64  `json:"price"`
	FormattedPrice    string   `json:"formattedPrice"`
	Genres            []string `json:"genres"`
	ReleaseDate       string   `json:"releaseDate"`
	SellerName        string   `json:"sellerName"`
	UserRatingCount   int      `json:"userRatingCount"`
	AverageUserRating float64  `json:"averageUserRating"`
}

// Scrape implements scraper.SourceScraper.
func (s *Scraper) Scrape(ctx context.Context, keywords []string, ideaText string) (*models.ScrapingResult, error) {
	queries := scraper.BuildQueries(keywords, "app", s.cfg.MaxQueriesPerSource)
	if len(queries) == 0 {
		return &models.ScrapingResult{
			Status:       models.StatusFailed,
			ErrorMessage: "no queries could be derived from keywords",
		}, nil
	}

	s.logger.Info("Searching with %d queries: %s", len(queries), strings.Join(queries, " | "))

	var (
		competitors []*models.CompetitorRecord
		feedback    []*models.FeedbackRecord
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

		entries, err := s.search(ctx, query)
		if err != nil {
			failed++
			lastErr = err
			s.logger.Warn("Query %q failed: %v", query, err)
			continue
		}
		succeeded++

		for _, entry := range entries {
			key := strings.ToLower(strings.TrimSpace(entry.TrackName))
			if key == "" || !seen.Add(key) {
				continue
			}
			comp := s.toCompetitor(entry)
			competitors = append(competitors, comp)

			s.mu.Lock()
			s.appIDs[comp.SourceURL] = entry.TrackID
			s.mu.Unlock()

			if len(competitors) >= maxCompetitors {
				break
			}
		}

		// Reviews for the top hit of each query feed the job-level
		// sentiment pool.
		if len(entries) > 0 && len(feedback) < maxFeedback {
			reviews, err := s.fetchReviews(ctx, entries[0].TrackID, "mostRecent")
			if err != nil {
				s.logger.Warn("Review fetch for %q failed: %v", entries[0].TrackName, err)
			} else {
				for _, rv := range reviews {
					if len(feedback) >= maxFeedback {
						break
					}
					feedback = append(feedback, &models.FeedbackRecord{
						Text:      rv.Text,
						Source:    sourceName,
						SourceURL: entries[0].TrackViewURL,
						AuthorInfo: map[string]string{
							"author": rv.Author,
							"rating": fmt.Sprintf("%d", rv.Rating),
						},
					})
				}
			}
		}

		if len(competitors) >= maxCompetitors && len(feedback) >= maxFeedback {
			break
		}
	}

	result := &models.ScrapingResult{
		Status:      scraper.ResultStatus(succeeded, failed),
		Competitors: competitors,
		Feedback:    feedback,
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

	s.logger.Info("Done: %d competitors, %d feedback items (status %s)",
		len(competitors), len(feedback), result.Status)
	return result, nil
}

func (s *Scraper) search(ctx context.Context, query string) ([]searchEntry, error) {
	params := url.Values{}
	params.Set("term", query)
	params.Set("country", s.cfg.ITunesCountry)
	params.Set("media", "software")
	params.Set("limit", fmt.Sprintf("%d", resultsPerQuery))

	var resp searchResponse
	err := s.retry.Do(ctx, "itunes-search", func() error {
		return s.getJSON(ctx, s.searchURL+"?"+params.Encode(), &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (s *Scraper) toCompetitor(entry searchEntry) *models.CompetitorRecord {
	confidence := baseConfidence
	website := entry.SellerURL
	if website == "" {
		website = entry.TrackViewURL
		confidence -= missingFieldPenal
	}
	description := entry.Description
	if len(description) > 500 {
		description = description[:500]
	}
	if description == "" {
		confidence -= missingFieldPenal
	}

	launchDate := entry.ReleaseDate
	if len(launchDate) >= 10 {
		launchDate = launchDate[:10]
	}

	return &models.CompetitorRecord{
		Name:            entry.TrackName,
		Description:     description,
		Website:         website,
		PricingModel:    inferPricing(entry),
		Source:          sourceName,
		SourceURL:       entry.TrackViewURL,
		ConfidenceScore: confidence,
		LaunchDate:      launchDate,
		FounderCEO:      entry.SellerName,
		ReviewCount:     entry.UserRatingCount,
		AverageRating:   entry.AverageUserRating,
	}
}

// inferPricing maps store pricing fields onto the standard tags. Apps
// listing in-app purchases in their genre metadata are treated as
// freemium.
func inferPricing(entry searchEntry) string {
	if entry.Price == 0 {
		for _, g := range entry.Genres {
			if strings.EqualFold(g, "shopping") || strings.EqualFold(g, "in-app purchases") {
				return "Freemium"
			}
		}
		return "Free"
	}
	if entry.FormattedPrice != "" {
		return fmt.Sprintf("Paid (%s)", entry.FormattedPrice)
	}
	return "Paid"
}

type review struct {
	Text      string
	Author    string
	Rating    int
	VoteCount int
}

type reviewsFeed struct {
	Feed struct {
		Entry []struct {
			Author struct {
				Name struct {
					Label string `json:"label"`
				} `json:"name"`
			} `json:"author"`
			Title struct {
				Label string `json:"label"`
			} `json:"title"`
			Content struct {
				Label string `json:"label"`
			} `json:"content"`
			Rating struct {
				Label string `json:"label"`
			} `json:"im:rating"`
			VoteCount struct {
				Label string `json:"label"`
			} `json:"im:voteCount"`
		} `json:"entry"`
	} `json:"feed"`
}

func (s *Scraper) fetchReviews(ctx context.Context, appID int64, sortBy string) ([]review, error) {
	if appID == 0 {
		return nil, fmt.Errorf("missing app id")
	}

	endpoint := fmt.Sprintf(s.reviewsURL, s.cfg.ITunesCountry, appID, sortBy)
	var feed reviewsFeed
	if err := s.getJSON(ctx, endpoint, &feed); err != nil {
		return nil, err
	}

	reviews := make([]review, 0, len(feed.Feed.Entry))
	for _, e := range feed.Feed.Entry {
		text := strings.TrimSpace(e.Content.Label)
		if text == "" {
			continue
		}
		reviews = append(reviews, review{
			Text:      text,
			Author:    e.Author.Name.Label,
			Rating:    atoiSafe(e.Rating.Label),
			VoteCount: atoiSafe(e.VoteCount.Label),
		})
	}
	return reviews, nil
}

// FetchDetailComments implements scraper.CommentFetcher. It combines the
// most-recent and most-helpful review feeds, deduplicates by text prefix,
// and ranks low-rated high-helpfulness reviews first.
func (s *Scraper) FetchDetailComments(ctx context.Context, comp *models.CompetitorRecord) ([]models.CommentRecord, error) {
	s.mu.Lock()
	appID := s.appIDs[comp.SourceURL]
	s.mu.Unlock()
	if appID == 0 {
		return nil, nil
	}

	var combined []review
	for i, sortBy := range []string{"mostRecent", "mostHelpful"} {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(reviewFetchDelay):
			}
		}
		reviews, err := s.fetchReviews(ctx, appID, sortBy)
		if err != nil {
			s.logger.Warn("Detail reviews (%s) for %s failed: %v", sortBy, comp.Name, err)
			continue
		}
		combined = append(combined, reviews...)
	}

	// Low ratings with high vote counts carry the strongest pain-point
	// signal, so they survive the cap.
	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].Rating != combined[j].Rating {
			return combined[i].Rating < combined[j].Rating
		}
		return combined[i].VoteCount > combined[j].VoteCount
	})

	seen := utils.NewSeenSet()
	comments := make([]models.CommentRecord, 0, len(combined))
	for _, rv := range combined {
		key := strings.ToLower(rv.Text)
		if len(key) > 50 {
			key = key[:50]
		}
		if !seen.Add(key) {
			continue
		}
		comments = append(comments, models.CommentRecord{
			Text:        rv.Text,
			Author:      rv.Author,
			Rating:      rv.Rating,
			Helpfulness: rv.VoteCount,
		})
		if len(comments) >= s.cfg.MaxReviewsPerEntity {
			break
		}
	}
	return comments, nil
}

func (s *Scraper) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}
