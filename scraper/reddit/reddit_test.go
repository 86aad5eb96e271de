package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"idea-validator/config"
	"idea-validator/models"
	"idea-validator/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		RedditUserAgent:     "idea-validator-test/1.0",
		MaxQueriesPerSource: 2,
		MaxRetries:          1,
		MinQueryDelayMs:     0,
		MaxQueryDelayMs:     0,
	}
}

const listingJSON = `{
	"data": {
		"children": [
			{
				"data": {
					"title": "Looking for a good fitness tracker",
					"selftext": "I have tried three apps and they all sync poorly with my watch",
					"author": "runner42",
					"permalink": "/r/startups/comments/abc/looking_for/",
					"score": 57,
					"subreddit": "startups",
					"created_utc": 1623740400
				}
			},
			{
				"data": {
					"title": "Short post",
					"selftext": "too short",
					"author": "lurker",
					"permalink": "/r/startups/comments/def/short_post/",
					"score": 3,
					"subreddit": "startups",
					"created_utc": 1623740400
				}
			}
		]
	}
}`

func newTestScraper(t *testing.T, handler http.HandlerFunc) *Scraper {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	s := New(testConfig(), utils.NewLogger())
	s.baseURL = ts.URL
	return s
}

func TestValidateConfig(t *testing.T) {
	cfg := testConfig()
	s := New(cfg, utils.NewLogger())
	if err := s.ValidateConfig(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.RedditUserAgent = "   "
	if err := s.ValidateConfig(); err == nil {
		t.Error("expected error for blank user agent")
	}
}

func TestScrapeEmitsFeedback(t *testing.T) {
	var gotUA string
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if !strings.Contains(r.URL.Path, "/search.json") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, listingJSON)
	})
	defer s.Close()

	result, err := s.Scrape(context.Background(), []string{"fitness", "tracking"}, "a fitness app")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.StatusSuccess {
		t.Errorf("status: got %s, want success", result.Status)
	}
	if gotUA != "idea-validator-test/1.0" {
		t.Errorf("user agent: got %q", gotUA)
	}
	if len(result.Competitors) != 0 {
		t.Errorf("no recommendation mentions in fixture, got %d competitors", len(result.Competitors))
	}
	if len(result.Feedback) == 0 {
		t.Fatal("expected feedback records")
	}

	first := result.Feedback[0]
	if !strings.Contains(first.Text, "Looking for a good fitness tracker") {
		t.Errorf("text: %q", first.Text)
	}
	if !strings.Contains(first.Text, "sync poorly") {
		t.Errorf("selftext should be appended to the title: %q", first.Text)
	}
	if first.Source != "reddit" {
		t.Errorf("source: got %q", first.Source)
	}
	if !strings.Contains(first.SourceURL, "/r/startups/comments/abc/") {
		t.Errorf("source url: %q", first.SourceURL)
	}
	if first.AuthorInfo["author"] != "runner42" {
		t.Errorf("author: %v", first.AuthorInfo)
	}
	if first.AuthorInfo["score"] != "57" {
		t.Errorf("score: %v", first.AuthorInfo)
	}
	if first.AuthorInfo["date"] != "2021-06-15" {
		t.Errorf("date: %v", first.AuthorInfo)
	}
}

func TestScrapeSkipsShortSelftext(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingJSON)
	})
	defer s.Close()

	result, err := s.Scrape(context.Background(), []string{"fitness"}, "idea")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, fb := range result.Feedback {
		if strings.Contains(fb.Text, "too short") {
			t.Errorf("short selftext should not be appended: %q", fb.Text)
		}
	}
}

func TestScrapeDeduplicatesAcrossQueries(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingJSON)
	})
	defer s.Close()

	result, err := s.Scrape(context.Background(), []string{"fitness", "tracking"}, "idea")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[string]bool{}
	for _, fb := range result.Feedback {
		key := strings.ToLower(fb.Text)
		if len(key) > 50 {
			key = key[:50]
		}
		if seen[key] {
			t.Errorf("duplicate feedback %q", fb.Text)
		}
		seen[key] = true
	}
}

func TestScrapeAllQueriesFail(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	defer s.Close()

	result, err := s.Scrape(context.Background(), []string{"fitness", "tracking"}, "idea")
	if err != nil {
		t.Fatalf("expected soft failure, got error: %v", err)
	}
	if result.Status != models.StatusFailed {
		t.Errorf("status: got %s, want failed", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "rate limited") {
		t.Errorf("error message: %q", result.ErrorMessage)
	}
	if result.Metadata["failed_queries"].(int) != 2 {
		t.Errorf("failed_queries: %v", result.Metadata["failed_queries"])
	}
}

func TestScrapePartialFailure(t *testing.T) {
	calls := 0
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, listingJSON)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer s.Close()

	result, err := s.Scrape(context.Background(), []string{"fitness", "tracking"}, "idea")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.StatusPartialSuccess {
		t.Errorf("status: got %s, want partial_success", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "queries failed") {
		t.Errorf("error message: %q", result.ErrorMessage)
	}
}

func TestExtractCompetitorMentions(t *testing.T) {
	feedback := []*models.FeedbackRecord{
		{Text: "I use Strava for all my runs", SourceURL: "u1"},
		{Text: "You should try Strava, it has better maps", SourceURL: "u2"},
		{Text: "check out Runkeeper if you want something simple", SourceURL: "u3"},
		{Text: "honestly this is great", SourceURL: "u4"},
	}

	comps := extractCompetitorMentions(feedback)
	if len(comps) != 1 {
		t.Fatalf("expected only the twice-mentioned name, got %v", comps)
	}

	c := comps[0]
	if c.Name != "Strava" {
		t.Errorf("name: got %q", c.Name)
	}
	if c.Source != "reddit" {
		t.Errorf("source: got %q", c.Source)
	}
	if c.SourceURL != "u1" {
		t.Errorf("source url should be the first mention, got %q", c.SourceURL)
	}
	if c.ConfidenceScore != 0.5 {
		t.Errorf("confidence: got %v, want 0.3 + 2*0.1", c.ConfidenceScore)
	}
	if !strings.Contains(c.Description, "Mentioned 2 times") {
		t.Errorf("description: %q", c.Description)
	}
}

func TestExtractCompetitorMentionsConfidenceCap(t *testing.T) {
	var feedback []*models.FeedbackRecord
	for i := 0; i < 8; i++ {
		feedback = append(feedback, &models.FeedbackRecord{
			Text: "I use Notion every day", SourceURL: "u",
		})
	}

	comps := extractCompetitorMentions(feedback)
	if len(comps) != 1 {
		t.Fatalf("expected one competitor, got %v", comps)
	}
	if comps[0].ConfidenceScore != 0.8 {
		t.Errorf("confidence should cap at 0.8, got %v", comps[0].ConfidenceScore)
	}
}

func TestScrapeNoKeywords(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	defer s.Close()

	result, err := s.Scrape(context.Background(), nil, "idea")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.StatusFailed {
		t.Errorf("status: got %s, want failed", result.Status)
	}
}
