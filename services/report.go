package services

import (
	"fmt"
	"sort"
	"strings"

	"idea-validator/models"
)

// PrintReport renders an aggregated validation result to the terminal.
func PrintReport(result *models.AggregatedResult) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)
	meta := result.Metadata

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 IDEA VALIDATION REPORT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Coverage
	fmt.Printf("\033[1;33m  Source Coverage\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Sources attempted  : \033[1m%d\033[0m\n", meta.SourcesAttempted)
	fmt.Printf("  Successful         : \033[1;32m%d\033[0m (%s)\n",
		meta.SourcesSuccessful, strings.Join(meta.SuccessfulSources, ", "))
	fmt.Printf("  Partial            : \033[1;33m%d\033[0m\n", meta.SourcesPartial)
	for _, p := range meta.PartialSources {
		fmt.Printf("    %-14s %s\n", p.Source, truncate(p.Message, 36))
	}
	fmt.Printf("  Failed             : \033[1;31m%d\033[0m\n", meta.SourcesFailed)
	for _, f := range meta.FailedSources {
		fmt.Printf("    %-14s %s\n", f.Source, truncate(f.Message, 36))
	}
	fmt.Printf("  Processing time    : %.1fs\n", meta.ProcessingTimeSeconds)
	fmt.Println()

	// Competitors
	fmt.Printf("\033[1;33m  Competitors Found (%d)\033[0m\n", len(result.Competitors))
	fmt.Printf("  %s\n", thin)
	if len(result.Competitors) == 0 {
		fmt.Printf("  No competitors found\n")
	} else {
		sorted := make([]*models.CompetitorRecord, len(result.Competitors))
		copy(sorted, result.Competitors)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].ConfidenceScore > sorted[j].ConfidenceScore
		})
		limit := len(sorted)
		if limit > 10 {
			limit = 10
		}
		for i, comp := range sorted[:limit] {
			pricing := comp.PricingModel
			if pricing == "" {
				pricing = "unknown"
			}
			fmt.Printf("  \033[1m%2d.\033[0m %-32s %-12s conf %.2f\n",
				i+1, truncate(comp.Name, 30), truncate(pricing, 12), comp.ConfidenceScore)
		}
	}
	fmt.Println()

	// Sentiment
	fmt.Printf("\033[1;33m  Feedback Sentiment (%d items)\033[0m\n", len(result.Feedback))
	fmt.Printf("  %s\n", thin)
	if s := result.SentimentSummary; s != nil && s.TotalComments > 0 {
		fmt.Printf("  Positive : \033[1;32m%5.1f%%\033[0m (%d)\n", s.PositivePercentage, s.PositiveCount)
		fmt.Printf("  Neutral  : %5.1f%% (%d)\n", s.NeutralPercentage, s.NeutralCount)
		fmt.Printf("  Negative : \033[1;31m%5.1f%%\033[0m (%d)\n", s.NegativePercentage, s.NegativeCount)
		fmt.Printf("  Overall  : \033[1m%s\033[0m (avg %.4f)\n", s.OverallSentiment, s.AverageScore)
	} else {
		fmt.Printf("  No feedback collected\n")
	}
	fmt.Println()

	// Pain points across competitors
	fmt.Printf("\033[1;33m  Top Pain Points\033[0m\n")
	fmt.Printf("  %s\n", thin)
	counts := painPointCounts(result.Competitors)
	if len(counts) == 0 {
		fmt.Printf("  No pain points identified\n")
	} else {
		for _, pc := range counts {
			bar := strings.Repeat("█", pc.count)
			fmt.Printf("  %-14s %s (%d)\n", pc.category, bar, pc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

type categoryCount struct {
	category string
	count    int
}

func painPointCounts(comps []*models.CompetitorRecord) []categoryCount {
	totals := make(map[string]int)
	for _, comp := range comps {
		if comp.SentimentSummary == nil {
			continue
		}
		for cat, snippets := range comp.SentimentSummary.PainPointCategories {
			totals[cat] += len(snippets)
		}
	}

	result := make([]categoryCount, 0, len(totals))
	for cat, cnt := range totals {
		result = append(result, categoryCount{cat, cnt})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].count != result[j].count {
			return result[i].count > result[j].count
		}
		return result[i].category < result[j].category
	})
	return result
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
