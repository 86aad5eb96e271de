package services

import (
	"math"
	"regexp"
	"strings"
)

// SentimentResult is the outcome of analysing one text.
type SentimentResult struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

const (
	// maxAnalyzedChars bounds the work done on pathological inputs.
	maxAnalyzedChars = 1000
	// normalizationAlpha damps the raw valence sum into (-1, 1).
	normalizationAlpha = 15.0
	labelThreshold     = 0.1
)

// sentimentLexicon maps sentiment-bearing words to valence weights.
// Weights roughly follow the VADER scale (-4 to 4).
var sentimentLexicon = map[string]float64{
	"love": 3.2, "loved": 3.0, "loves": 3.0, "amazing": 3.1, "awesome": 3.1,
	"excellent": 3.2, "fantastic": 3.1, "great": 3.0, "perfect": 3.2,
	"wonderful": 3.0, "best": 3.0, "brilliant": 2.9, "outstanding": 3.0,
	"good": 1.9, "nice": 1.8, "helpful": 1.9, "useful": 1.9, "easy": 1.8,
	"intuitive": 1.9, "smooth": 1.7, "fast": 1.6, "reliable": 1.9,
	"recommend": 2.0, "recommended": 2.0, "happy": 2.1, "pleased": 1.9,
	"satisfied": 1.8, "enjoy": 1.9, "enjoyed": 1.9, "like": 1.5,
	"likes": 1.5, "liked": 1.5, "worth": 1.6, "solid": 1.5, "clean": 1.3,
	"simple": 1.2, "convenient": 1.7, "impressive": 2.3, "beautiful": 2.4,

	"hate": -3.0, "hated": -2.9, "terrible": -3.1, "horrible": -3.1,
	"awful": -3.0, "worst": -3.1, "useless": -2.7, "garbage": -2.9,
	"trash": -2.8, "scam": -3.2, "disappointing": -2.3, "disappointed": -2.3,
	"bad": -2.1, "poor": -2.0, "broken": -2.3, "crash": -2.4,
	"crashes": -2.4, "crashing": -2.4, "crashed": -2.4, "bug": -1.9,
	"bugs": -1.9, "buggy": -2.2, "glitch": -1.9, "slow": -1.8,
	"laggy": -1.9, "lag": -1.7, "freeze": -2.0, "freezes": -2.0,
	"frustrating": -2.4, "frustrated": -2.3, "annoying": -2.1,
	"confusing": -1.9, "difficult": -1.7, "hard": -1.4, "complicated": -1.7,
	"expensive": -1.8, "overpriced": -2.3, "waste": -2.4, "problem": -1.7,
	"problems": -1.7, "issue": -1.5, "issues": -1.5, "error": -1.7,
	"errors": -1.7, "fail": -2.2, "fails": -2.2, "failed": -2.2,
	"failure": -2.3, "missing": -1.4, "lacking": -1.5, "lacks": -1.5,
	"unusable": -2.7, "unreliable": -2.2, "refund": -1.8, "uninstall": -2.1,
	"uninstalled": -2.1, "wrong": -1.6, "never": -0.8, "worse": -2.2,
}

// boosterWords scale the valence of the word that follows them.
var boosterWords = map[string]float64{
	"very": 1.3, "really": 1.3, "extremely": 1.5, "incredibly": 1.5,
	"absolutely": 1.4, "totally": 1.3, "so": 1.2, "super": 1.3,
	"slightly": 0.7, "somewhat": 0.8, "barely": 0.6, "kinda": 0.8,
}

// negationWords flip the valence of nearby sentiment words.
var negationWords = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "neither": {}, "nobody": {},
	"nothing": {}, "cannot": {}, "cant": {}, "dont": {}, "doesnt": {},
	"didnt": {}, "wont": {}, "wouldnt": {}, "isnt": {}, "wasnt": {},
	"arent": {}, "werent": {}, "without": {},
}

var tokenRe = regexp.MustCompile(`[a-z']+`)

// SentimentAnalyzer classifies text as positive, negative or neutral with
// a score in [-1, 1] and a confidence in [0, 1]. It is stateless and safe
// for concurrent use.
type SentimentAnalyzer struct{}

// NewSentimentAnalyzer creates a SentimentAnalyzer.
func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{}
}

// Analyze scores a single text. Empty or whitespace-only input returns
// neutral with zero score and zero confidence.
func (a *SentimentAnalyzer) Analyze(text string) SentimentResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return SentimentResult{Label: "neutral", Score: 0.0, Confidence: 0.0}
	}
	if len(text) > maxAnalyzedChars {
		text = text[:maxAnalyzedChars]
	}

	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return SentimentResult{Label: "neutral", Score: 0.0, Confidence: 0.0}
	}

	var sum float64
	hits := 0
	for i, tok := range tokens {
		tok = strings.Trim(tok, "'")
		valence, ok := sentimentLexicon[tok]
		if !ok {
			continue
		}
		hits++

		// A booster directly before the word scales it; a negation in
		// the three preceding tokens flips it.
		if i > 0 {
			if boost, ok := boosterWords[tokens[i-1]]; ok {
				valence *= boost
			}
		}
		for j := i - 1; j >= 0 && j >= i-3; j-- {
			prev := strings.ReplaceAll(tokens[j], "'", "")
			if _, neg := negationWords[prev]; neg {
				valence *= -0.74
				break
			}
		}
		sum += valence
	}

	if hits == 0 {
		return SentimentResult{Label: "neutral", Score: 0.0, Confidence: 0.0}
	}

	score := sum / math.Sqrt(sum*sum+normalizationAlpha)
	score = clamp(score, -1.0, 1.0)

	coverage := float64(hits) / float64(len(tokens))
	confidence := clamp(0.5*math.Abs(score)+0.5*math.Min(coverage*3, 1.0), 0.0, 1.0)

	label := "neutral"
	switch {
	case score > labelThreshold:
		label = "positive"
	case score < -labelThreshold:
		label = "negative"
	}

	return SentimentResult{
		Label:      label,
		Score:      round4(score),
		Confidence: round4(confidence),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
