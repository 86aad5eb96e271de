package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"idea-validator/config"
	"idea-validator/models"
	"idea-validator/scraper"
	"idea-validator/utils"
)

const (
	sourceName       = "reddit"
	defaultBaseURL   = "https://www.reddit.com"
	postsPerQuery    = 10
	maxFeedback      = 50
	maxKeywordsUsed  = 5
	minSelftextChars = 20
)

// subreddits is the fixed allowlist of communities searched for feedback
// about a product space. Kept small to stay under unauthenticated rate
// limits.
var subreddits = []string{
	"startups",
	"Entrepreneur",
	"smallbusiness",
	"SideProject",
	"apps",
}

// Scraper searches startup-focused subreddits for discussion around the
// idea's keywords. Reddit is primarily a feedback signal; competitor
// records are derived indirectly from product names mentioned repeatedly
// across discussions.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	client *http.Client
	retry  *utils.RetryConfig

	// baseURL is overridable for tests.
	baseURL string
}

// New creates a Reddit Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	log := logger.Named(sourceName)
	return &Scraper{
		cfg:    cfg,
		logger: log,
		client: &http.Client{Timeout: 15 * time.Second},
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      log,
		},
		baseURL: defaultBaseURL,
	}
}

// Name implements scraper.SourceScraper.
func (s *Scraper) Name() string { return sourceName }

// ValidateConfig implements scraper.SourceScraper.
func (s *Scraper) ValidateConfig() error {
	if strings.TrimSpace(s.cfg.RedditUserAgent) == "" {
		return fmt.Errorf("reddit user agent is empty")
	}
	return nil
}

// Close implements scraper.SourceScraper.
func (s *Scraper) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title     string  `json:"title"`
	Selftext  string  `json:"selftext"`
	Author    string  `json:"author"`
	Permalink string  `json:"permalink"`
	Score     int     `json:"score"`
	Subreddit string  `json:"subreddit"`
	CreatedAt float64 `json:"created_utc"`
}

// Scrape implements scraper.SourceScraper. Queries are built from the top 5
// keywords with scraper.BuildQueries (capped at MaxQueriesPerSource); each
// query is issued against one allowlisted subreddit, rotating through the
// list, until the feedback cap is reached.
func (s *Scraper) Scrape(ctx context.Context, keywords []string, ideaText string) (*models.ScrapingResult, error) {
	if len(keywords) > maxKeywordsUsed {
		keywords = keywords[:maxKeywordsUsed]
	}
	queries := scraper.BuildQueries(keywords, "", s.cfg.MaxQueriesPerSource)
	if len(queries) == 0 {
		return &models.ScrapingResult{
			Status:       models.StatusFailed,
			ErrorMessage: "no queries could be derived from keywords",
		}, nil
	}

	s.logger.Info("Searching %d subreddits with %d queries", len(subreddits), len(queries))

	var (
		feedback  []*models.FeedbackRecord
		succeeded int
		failed    int
		lastErr   error
	)
	seen := utils.NewSeenSet()

	for qi, query := range queries {
		if qi > 0 {
			if err := scraper.PoliteSleep(ctx, s.cfg.MinQueryDelayMs, s.cfg.MaxQueryDelayMs); err != nil {
				return nil, err
			}
		}

		sub := subreddits[qi%len(subreddits)]
		posts, err := s.searchSubreddit(ctx, sub, query)
		if err != nil {
			failed++
			lastErr = err
			s.logger.Warn("Search %q in r/%s failed: %v", query, sub, err)
			continue
		}
		succeeded++

		for _, p := range posts {
			if len(feedback) >= maxFeedback {
				break
			}
			text := strings.TrimSpace(p.Title)
			if body := strings.TrimSpace(p.Selftext); len(body) >= minSelftextChars {
				text = text + ". " + body
			}
			key := strings.ToLower(text)
			if len(key) > 50 {
				key = key[:50]
			}
			if !seen.Add(key) {
				continue
			}
			feedback = append(feedback, &models.FeedbackRecord{
				Text:      text,
				Source:    sourceName,
				SourceURL: s.baseURL + p.Permalink,
				AuthorInfo: map[string]string{
					"author":    p.Author,
					"subreddit": p.Subreddit,
					"score":     fmt.Sprintf("%d", p.Score),
					"date":      time.Unix(int64(p.CreatedAt), 0).UTC().Format("2006-01-02"),
				},
			})
		}

		if len(feedback) >= maxFeedback {
			break
		}
	}

	result := &models.ScrapingResult{
		Status:      scraper.ResultStatus(succeeded, failed),
		Competitors: extractCompetitorMentions(feedback),
		Feedback:    feedback,
		Metadata: map[string]any{
			"queries_attempted":  len(queries),
			"successful_queries": succeeded,
			"failed_queries":     failed,
			"subreddits":         strings.Join(subreddits, ","),
		},
	}
	if result.Status == models.StatusFailed && lastErr != nil {
		result.ErrorMessage = lastErr.Error()
	} else if result.Status == models.StatusPartialSuccess {
		result.ErrorMessage = fmt.Sprintf("%d of %d queries failed", failed, len(queries))
	}

	s.logger.Info("Done: %d feedback items (status %s)", len(feedback), result.Status)
	return result, nil
}

const (
	minMentions    = 2
	maxMentions    = 5
	mentionNameLen = 3
)

// mentionPatterns match product names in recommendation phrasing ("I use
// X", "try X", "X works great"). Matching is case-insensitive, so a name
// does not need to be capitalized to be captured.
var mentionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)I use ([A-Z][a-zA-Z0-9]{2,15})(?:\s|,|\.)`),
	regexp.MustCompile(`(?i)try ([A-Z][a-zA-Z0-9]{2,15})(?:\s|,|\.)`),
	regexp.MustCompile(`(?i)check out ([A-Z][a-zA-Z0-9]{2,15})(?:\s|,|\.)`),
	regexp.MustCompile(`(?i)recommend ([A-Z][a-zA-Z0-9]{2,15})(?:\s|,|\.)`),
	regexp.MustCompile(`(?i)([A-Z][a-zA-Z0-9]{2,15}) is (?:great|good|awesome|excellent)`),
	regexp.MustCompile(`(?i)([A-Z][a-zA-Z0-9]{2,15}) works (?:well|great|perfectly)`),
}

var mentionStopWords = map[string]struct{}{
	"this": {}, "that": {}, "they": {}, "them": {}, "here": {}, "there": {},
	"what": {}, "when": {}, "which": {}, "really": {}, "everything": {},
}

type mentionTally struct {
	name  string
	count int
	url   string
}

// extractCompetitorMentions scans feedback text for recommended product
// names. Only names mentioned at least twice become competitor records,
// with confidence scaled by mention count.
func extractCompetitorMentions(feedback []*models.FeedbackRecord) []*models.CompetitorRecord {
	tallies := make(map[string]*mentionTally)

	for _, fb := range feedback {
		for _, re := range mentionPatterns {
			for _, match := range re.FindAllStringSubmatch(fb.Text, -1) {
				name := strings.TrimSpace(match[1])
				if len(name) <= mentionNameLen {
					continue
				}
				key := strings.ToLower(name)
				if _, stop := mentionStopWords[key]; stop {
					continue
				}
				t, ok := tallies[key]
				if !ok {
					t = &mentionTally{name: name, url: fb.SourceURL}
					tallies[key] = t
				}
				t.count++
			}
		}
	}

	ordered := make([]*mentionTally, 0, len(tallies))
	for _, t := range tallies {
		if t.count >= minMentions {
			ordered = append(ordered, t)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].name < ordered[j].name
	})
	if len(ordered) > maxMentions {
		ordered = ordered[:maxMentions]
	}

	competitors := make([]*models.CompetitorRecord, 0, len(ordered))
	for _, t := range ordered {
		confidence := 0.3 + float64(t.count)*0.1
		if confidence > 0.8 {
			confidence = 0.8
		}
		competitors = append(competitors, &models.CompetitorRecord{
			Name:            t.name,
			Description:     fmt.Sprintf("Mentioned %d times in Reddit discussions", t.count),
			Source:          sourceName,
			SourceURL:       t.url,
			ConfidenceScore: confidence,
		})
	}
	return competitors
}

func (s *Scraper) searchSubreddit(ctx context.Context, subreddit, query string) ([]post, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("sort", "relevance")
	params.Set("limit", fmt.Sprintf("%d", postsPerQuery))

	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", s.baseURL, subreddit, params.Encode())

	var result listing
	err := s.retry.Do(ctx, "reddit-search", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", s.cfg.RedditUserAgent)

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited by reddit")
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d from r/%s", resp.StatusCode, subreddit)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &result)
	})
	if err != nil {
		return nil, err
	}

	posts := make([]post, 0, len(result.Data.Children))
	for _, child := range result.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}
