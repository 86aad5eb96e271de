package services

import (
	"sort"
	"strings"

	"idea-validator/models"
	"idea-validator/utils"
)

const (
	maxPainPoints       = 5
	maxHighlightedItems = 2
	painSnippetLen      = 200
	categorySnippetLen  = 80
	overallThreshold    = 0.1
)

// painPointCategory pairs a theme with the keywords that assign a negative
// comment to it. Order matters: the first matching category wins.
type painPointCategory struct {
	name     string
	keywords []string
}

var painPointCategories = []painPointCategory{
	{"usability", []string{"confusing", "difficult", "hard to use", "complicated", "interface", "ui", "ux", "navigation"}},
	{"performance", []string{"slow", "crash", "freeze", "lag", "loading", "speed", "performance", "battery"}},
	{"features", []string{"missing", "lack", "need", "want", "feature", "functionality", "option"}},
	{"pricing", []string{"expensive", "price", "cost", "money", "subscription", "payment", "billing"}},
	{"support", []string{"support", "help", "customer service", "response", "contact"}},
	{"bugs", []string{"bug", "error", "broken", "issue", "problem", "glitch", "not working"}},
}

// SummaryBuilder computes sentiment aggregates: a cross-source summary
// from feedback records and a per-competitor summary from attached
// comments.
type SummaryBuilder struct {
	analyzer *SentimentAnalyzer
	logger   *utils.Logger
}

// NewSummaryBuilder creates a SummaryBuilder.
func NewSummaryBuilder(analyzer *SentimentAnalyzer, logger *utils.Logger) *SummaryBuilder {
	return &SummaryBuilder{analyzer: analyzer, logger: logger.Named("summary")}
}

// GetSentimentSummary aggregates all feedback records into the job-level
// summary. Records missing a sentiment label are analyzed first.
func (b *SummaryBuilder) GetSentimentSummary(feedback []*models.FeedbackRecord) *models.SentimentSummary {
	if len(feedback) == 0 {
		return models.EmptySentimentSummary()
	}

	summary := &models.SentimentSummary{TotalComments: len(feedback)}
	var scoreSum float64

	for _, fb := range feedback {
		if !fb.Sentiment.Valid() {
			res := b.analyzer.Analyze(fb.Text)
			fb.Sentiment = models.Sentiment(res.Label)
			fb.SentimentScore = res.Score
		}
		scoreSum += fb.SentimentScore

		switch fb.Sentiment {
		case models.SentimentPositive:
			summary.PositiveCount++
		case models.SentimentNegative:
			summary.NegativeCount++
		default:
			summary.NeutralCount++
		}
	}

	total := float64(summary.TotalComments)
	summary.PositivePercentage = round2(float64(summary.PositiveCount) / total * 100)
	summary.NegativePercentage = round2(float64(summary.NegativeCount) / total * 100)
	summary.NeutralPercentage = round2(float64(summary.NeutralCount) / total * 100)
	summary.AverageScore = round4(scoreSum / total)
	summary.OverallSentiment = overallLabel(summary.AverageScore)

	return summary
}

// AddCommentsToCompetitor attaches comments to a competitor, analyzing
// unlabeled ones, ordering them negative-first, and computing the
// competitor's SentimentSummary with pain-point categorization.
func (b *SummaryBuilder) AddCommentsToCompetitor(comp *models.CompetitorRecord, comments []models.CommentRecord) {
	if len(comments) == 0 {
		if comp.SentimentSummary == nil {
			comp.SentimentSummary = models.EmptySentimentSummary()
		}
		return
	}

	for i := range comments {
		if !comments[i].Sentiment.Valid() {
			res := b.analyzer.Analyze(comments[i].Text)
			comments[i].Sentiment = models.Sentiment(res.Label)
			comments[i].Score = res.Score
			comments[i].Confidence = res.Confidence
		}
	}

	sortComments(comments)
	for i := range comments {
		comments[i].Position = i + 1
	}

	comp.Comments = comments
	comp.SentimentSummary = b.buildCommentSummary(comments)
}

func (b *SummaryBuilder) buildCommentSummary(comments []models.CommentRecord) *models.SentimentSummary {
	summary := &models.SentimentSummary{TotalComments: len(comments)}
	var scoreSum float64
	var negatives []models.CommentRecord

	for _, c := range comments {
		scoreSum += c.Score
		switch c.Sentiment {
		case models.SentimentPositive:
			summary.PositiveCount++
			if len(summary.PositiveFeedback) < maxHighlightedItems {
				summary.PositiveFeedback = append(summary.PositiveFeedback, snippet(c.Text, painSnippetLen))
			}
		case models.SentimentNegative:
			summary.NegativeCount++
			negatives = append(negatives, c)
		default:
			summary.NeutralCount++
			if len(summary.NeutralFeedback) < maxHighlightedItems {
				summary.NeutralFeedback = append(summary.NeutralFeedback, snippet(c.Text, painSnippetLen))
			}
		}
	}

	total := float64(summary.TotalComments)
	summary.PositivePercentage = round2(float64(summary.PositiveCount) / total * 100)
	summary.NegativePercentage = round2(float64(summary.NegativeCount) / total * 100)
	summary.NeutralPercentage = round2(float64(summary.NeutralCount) / total * 100)
	summary.AverageScore = round4(scoreSum / total)
	summary.OverallSentiment = overallLabel(summary.AverageScore)

	for i, c := range negatives {
		if i >= maxPainPoints {
			break
		}
		summary.PainPoints = append(summary.PainPoints, models.PainPoint{
			Text:        snippet(c.Text, painSnippetLen),
			Author:      c.Author,
			Rating:      c.Rating,
			Confidence:  c.Confidence,
			Helpfulness: c.Helpfulness,
		})
	}
	summary.PainPointCategories = categorizePainPoints(negatives)

	return summary
}

// categorizePainPoints assigns each negative comment to the first category
// whose keywords match; unmatched comments land in "other". Empty
// categories are omitted.
func categorizePainPoints(negatives []models.CommentRecord) map[string][]string {
	if len(negatives) == 0 {
		return nil
	}

	categories := make(map[string][]string)
	for _, c := range negatives {
		lower := strings.ToLower(c.Text)
		matched := ""
		for _, cat := range painPointCategories {
			for _, kw := range cat.keywords {
				if strings.Contains(lower, kw) {
					matched = cat.name
					break
				}
			}
			if matched != "" {
				break
			}
		}
		if matched == "" {
			matched = "other"
		}
		categories[matched] = append(categories[matched], snippet(c.Text, categorySnippetLen))
	}
	return categories
}

// sortComments orders negatives before neutrals before positives; within
// a group, higher helpfulness first, then lower rating first.
func sortComments(comments []models.CommentRecord) {
	sort.SliceStable(comments, func(i, j int) bool {
		gi, gj := sentimentGroup(comments[i].Sentiment), sentimentGroup(comments[j].Sentiment)
		if gi != gj {
			return gi < gj
		}
		if comments[i].Helpfulness != comments[j].Helpfulness {
			return comments[i].Helpfulness > comments[j].Helpfulness
		}
		return comments[i].Rating < comments[j].Rating
	})
}

func sentimentGroup(s models.Sentiment) int {
	switch s {
	case models.SentimentNegative:
		return 0
	case models.SentimentNeutral:
		return 1
	default:
		return 2
	}
}

func overallLabel(avg float64) models.Sentiment {
	switch {
	case avg > overallThreshold:
		return models.SentimentPositive
	case avg < -overallThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
