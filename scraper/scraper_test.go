package scraper

import (
	"context"
	"reflect"
	"testing"
	"time"

	"idea-validator/models"
)

func TestBuildQueriesPairsAndSuffix(t *testing.T) {
	got := BuildQueries([]string{"fitness", "tracking", "workout"}, "app", 4)
	want := []string{
		"fitness tracking",
		"fitness workout",
		"fitness app",
		"tracking app",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildQueriesNoSuffix(t *testing.T) {
	got := BuildQueries([]string{"budgeting"}, "", 4)
	want := []string{"budgeting"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuildQueriesDeduplicates(t *testing.T) {
	got := BuildQueries([]string{"yoga", "yoga"}, "", 5)
	if len(got) != 2 {
		t.Errorf("expected pair and single, got %v", got)
	}
	seen := map[string]bool{}
	for _, q := range got {
		if seen[q] {
			t.Errorf("duplicate query %q in %v", q, got)
		}
		seen[q] = true
	}
}

func TestBuildQueriesCap(t *testing.T) {
	keywords := []string{"a1", "b2", "c3", "d4", "e5", "f6"}
	got := BuildQueries(keywords, "app", 3)
	if len(got) != 3 {
		t.Errorf("expected 3 queries, got %d: %v", len(got), got)
	}
}

func TestBuildQueriesEmptyKeywords(t *testing.T) {
	if got := BuildQueries(nil, "app", 4); len(got) != 0 {
		t.Errorf("expected no queries, got %v", got)
	}
}

func TestResultStatus(t *testing.T) {
	tests := []struct {
		succeeded, failed int
		want              models.ScrapingStatus
	}{
		{3, 0, models.StatusSuccess},
		{2, 1, models.StatusPartialSuccess},
		{0, 3, models.StatusFailed},
		{0, 0, models.StatusFailed},
	}

	for _, tt := range tests {
		if got := ResultStatus(tt.succeeded, tt.failed); got != tt.want {
			t.Errorf("ResultStatus(%d, %d) = %s; want %s",
				tt.succeeded, tt.failed, got, tt.want)
		}
	}
}

func TestPoliteSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := PoliteSleep(ctx, 5000, 10000)
	if err == nil {
		t.Error("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("PoliteSleep did not return promptly after cancellation")
	}
}

func TestPoliteSleepStaysInRange(t *testing.T) {
	start := time.Now()
	if err := PoliteSleep(context.Background(), 10, 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 10*time.Millisecond {
		t.Errorf("slept %v, want at least 10ms", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("slept %v, far beyond the 30ms ceiling", elapsed)
	}
}
