package appstore

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
		ITunesCountry:       "us",
		MaxQueriesPerSource: 2,
		MaxReviewsPerEntity: 5,
		MaxRetries:          1,
		MinQueryDelayMs:     0,
		MaxQueryDelayMs:     0,
	}
}

const searchJSON = `{
	"resultCount": 2,
	"results": [
		{
			"trackId": 111,
			"trackName": "FitTrack",
			"description": "Track your workouts",
			"sellerUrl": "https://fittrack.example.com",
			"trackViewUrl": "https://apps.apple.com/us/app/fittrack/id111",
			"price": 0,
			"formattedPrice": "Free",
			"genres": ["Health & Fitness"],
			"releaseDate": "2021-06-15T07:00:00Z",
			"sellerName": "FitTrack Inc",
			"userRatingCount": 1200,
			"averageUserRating": 4.5
		},
		{
			"trackId": 222,
			"trackName": "GymLog Pro",
			"description": "",
			"trackViewUrl": "https://apps.apple.com/us/app/gymlog/id222",
			"price": 4.99,
			"formattedPrice": "$4.99",
			"genres": ["Health & Fitness"],
			"releaseDate": "2020-01-02T08:00:00Z",
			"sellerName": "GymLog LLC",
			"userRatingCount": 300,
			"averageUserRating": 4.1
		}
	]
}`

const reviewsJSON = `{
	"feed": {
		"entry": [
			{
				"author": {"name": {"label": "user1"}},
				"title": {"label": "Crashes"},
				"content": {"label": "App keeps crashing on my phone since the update"},
				"im:rating": {"label": "1"},
				"im:voteCount": {"label": "9"}
			},
			{
				"author": {"name": {"label": "user2"}},
				"title": {"label": "Love it"},
				"content": {"label": "Love this app, best workout tracker I have used"},
				"im:rating": {"label": "5"},
				"im:voteCount": {"label": "2"}
			}
		]
	}
}`

func newTestScraper(t *testing.T, handler http.HandlerFunc) (*Scraper, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	s := New(testConfig(), utils.NewLogger())
	s.searchURL = ts.URL + "/search"
	s.reviewsURL = ts.URL + "/%s/rss/customerreviews/id=%d/sortBy=%s/json"
	return s, ts
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"valid", func(c *config.Config) {}, false},
		{"empty country", func(c *config.Config) { c.ITunesCountry = "" }, true},
		{"long country", func(c *config.Config) { c.ITunesCountry = "usa" }, true},
		{"zero queries", func(c *config.Config) { c.MaxQueriesPerSource = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			s := New(cfg, utils.NewLogger())
			if err := s.ValidateConfig(); (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScrapeEmitsCompetitorsAndFeedback(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/search") {
			fmt.Fprint(w, searchJSON)
			return
		}
		fmt.Fprint(w, reviewsJSON)
	})
	defer s.Close()

	result, err := s.Scrape(context.Background(), []string{"fitness", "tracking"}, "a fitness tracking app")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.StatusSuccess {
		t.Errorf("status: got %s, want success", result.Status)
	}
	if len(result.Competitors) != 2 {
		t.Fatalf("competitors: got %d, want 2", len(result.Competitors))
	}

	first := result.Competitors[0]
	if first.Name != "FitTrack" {
		t.Errorf("name: got %q", first.Name)
	}
	if first.Source != "app_store" {
		t.Errorf("source: got %q", first.Source)
	}
	if first.SourceURL == "" {
		t.Error("source_url is empty")
	}
	if first.ConfidenceScore != 0.8 {
		t.Errorf("confidence: got %v, want 0.8 with all fields present", first.ConfidenceScore)
	}
	if first.LaunchDate != "2021-06-15" {
		t.Errorf("launch date: got %q", first.LaunchDate)
	}

	second := result.Competitors[1]
	if second.ConfidenceScore >= 0.8 {
		t.Errorf("missing description should reduce confidence, got %v", second.ConfidenceScore)
	}

	if len(result.Feedback) == 0 {
		t.Fatal("expected review feedback")
	}
	for _, fb := range result.Feedback {
		if fb.Source != "app_store" || fb.SourceURL == "" {
			t.Errorf("feedback missing provenance: %+v", fb)
		}
	}
}

func TestScrapeAllQueriesFail(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
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
	if result.ErrorMessage == "" {
		t.Error("failed result should carry an error message")
	}
	if result.Metadata["failed_queries"].(int) == 0 {
		t.Error("failed_queries counter not incremented")
	}
}

func TestScrapePartialFailure(t *testing.T) {
	calls := 0
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/search") {
			calls++
			if calls == 1 {
				fmt.Fprint(w, searchJSON)
				return
			}
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, reviewsJSON)
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

func TestInferPricing(t *testing.T) {
	tests := []struct {
		name  string
		entry searchEntry
		want  string
	}{
		{"free", searchEntry{Price: 0}, "Free"},
		{"paid with display", searchEntry{Price: 4.99, FormattedPrice: "$4.99"}, "Paid ($4.99)"},
		{"paid without display", searchEntry{Price: 2.99}, "Paid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferPricing(tt.entry); got != tt.want {
				t.Errorf("inferPricing() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchDetailCommentsRanksNegativeFirst(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, reviewsJSON)
	})
	defer s.Close()

	comp := &models.CompetitorRecord{
		Name:      "FitTrack",
		Source:    "app_store",
		SourceURL: "https://apps.apple.com/us/app/fittrack/id111",
	}
	s.appIDs[comp.SourceURL] = 111

	comments, err := s.FetchDetailComments(context.Background(), comp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) == 0 {
		t.Fatal("expected comments")
	}
	if comments[0].Rating != 1 {
		t.Errorf("lowest-rated review should rank first, got rating %d", comments[0].Rating)
	}
	if comments[0].Helpfulness != 9 {
		t.Errorf("helpfulness: got %d", comments[0].Helpfulness)
	}
}

func TestFetchDetailCommentsUnknownApp(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, reviewsJSON)
	})
	defer s.Close()

	comments, err := s.FetchDetailComments(context.Background(),
		&models.CompetitorRecord{SourceURL: "https://unknown.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comments != nil {
		t.Errorf("expected nil for unknown app, got %v", comments)
	}
}

func TestAtoiSafe(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"5", 5}, {"", 0}, {"12x", 12}, {"abc", 0},
	}
	for _, tt := range tests {
		if got := atoiSafe(tt.in); got != tt.want {
			t.Errorf("atoiSafe(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
