package keywords

import (
	"regexp"
	"sort"
	"strings"
)

// stopWords are common English words that carry no signal for search
// query generation.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "were": {}, "will": {}, "with": {}, "i": {}, "you": {},
	"your": {}, "we": {}, "our": {}, "they": {}, "their": {}, "this": {},
	"these": {}, "those": {}, "or": {}, "but": {}, "not": {}, "can": {},
	"could": {}, "would": {}, "should": {}, "have": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "my": {}, "me": {}, "so": {}, "if": {}, "then": {},
	"than": {}, "too": {}, "very": {}, "just": {}, "about": {}, "into": {},
	"also": {}, "some": {}, "any": {}, "all": {}, "more": {}, "most": {},
	"other": {}, "such": {}, "only": {}, "own": {}, "same": {}, "how": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"want": {}, "need": {}, "like": {}, "make": {}, "makes": {}, "get": {},
	"gets": {}, "use": {}, "uses": {}, "using": {}, "people": {}, "users": {},
	"help": {}, "helps": {}, "new": {}, "way": {}, "lets": {}, "allows": {},
}

// businessKeywords are terms that usually identify the product category or
// market segment, so they score double.
var businessKeywords = map[string]struct{}{
	"app": {}, "platform": {}, "service": {}, "tool": {}, "software": {},
	"marketplace": {}, "saas": {}, "api": {}, "dashboard": {},
	"subscription": {}, "booking": {}, "delivery": {}, "tracking": {},
	"management": {}, "analytics": {}, "automation": {}, "scheduling": {},
	"payment": {}, "fitness": {}, "health": {}, "finance": {},
	"education": {}, "productivity": {}, "social": {}, "travel": {},
	"food": {}, "ecommerce": {}, "rental": {}, "freelance": {},
	"marketing": {}, "crm": {}, "chatbot": {}, "mobile": {}, "web": {},
	"online": {}, "remote": {}, "virtual": {}, "local": {}, "community": {},
	"network": {}, "security": {}, "storage": {}, "streaming": {},
	"coaching": {}, "learning": {}, "budgeting": {}, "invoicing": {},
	"collaboration": {}, "workflow": {}, "inventory": {}, "logistics": {},
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9\s-]+`)
var spaceRe = regexp.MustCompile(`\s+`)

const maxKeywords = 10

// Extractor scores the words of an idea description and returns the ones
// most likely to surface competitors in a search engine or app store.
type Extractor struct{}

// NewExtractor creates a keyword Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns up to 10 lowercase keywords from ideaText, ordered by
// descending relevance score. The output is deterministic: equal scores
// break ties alphabetically.
func (e *Extractor) Extract(ideaText string) []string {
	text := strings.ToLower(ideaText)
	text = nonWordRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, field := range strings.Split(text, " ") {
		for _, token := range strings.Split(field, "-") {
			if len(token) <= 1 {
				continue
			}
			if _, stop := stopWords[token]; stop {
				continue
			}
			freq[token]++
		}
	}

	type scored struct {
		word  string
		score float64
	}
	candidates := make([]scored, 0, len(freq))
	for word, count := range freq {
		score := float64(count)
		if _, ok := businessKeywords[word]; ok {
			score *= 2
		}
		if len(word) > 6 {
			score *= 1.5
		}
		candidates = append(candidates, scored{word: word, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].word < candidates[j].word
	})

	n := len(candidates)
	if n > maxKeywords {
		n = maxKeywords
	}
	result := make([]string, 0, n)
	for _, c := range candidates[:n] {
		result = append(result, c.word)
	}
	return result
}
