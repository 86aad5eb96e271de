package services

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"idea-validator/models"
	"idea-validator/utils"
)

var (
	// tagRe detects leftover markup so we only pay the tokenizer cost
	// for strings that actually contain it.
	tagRe = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
	// spaceRunRe collapses runs of spaces and tabs.
	spaceRunRe = regexp.MustCompile(`[ \t]{2,}`)
	// newlinePadRe strips spaces hugging a newline.
	newlinePadRe = regexp.MustCompile(` *\n *`)
	// newlineRunRe caps consecutive blank lines at one.
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// unicodeReplacements maps common smart punctuation and symbol codepoints
// to ASCII-printable equivalents. Applied as a fixed table so cleaning is
// idempotent.
var unicodeReplacements = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // ellipsis
	"•", "*", // bullet
	" ", " ", // non-breaking space
	"™", "(TM)",
	"®", "(R)",
	"©", "(C)",
)

// escapeReplacements turns literal backslash escape sequences, which some
// sources embed as text, into real whitespace. Real control characters are
// normalised alongside them.
var escapeReplacements = strings.NewReplacer(
	`\r\n`, "\n",
	`\n`, "\n",
	`\r`, "\n",
	`\t`, " ",
	"\r\n", "\n",
	"\r", "\n",
	"\t", " ",
)

// Cleaner normalises every string field on scraped records: markup
// stripped, escape sequences resolved, smart punctuation replaced,
// whitespace collapsed. All transforms are idempotent.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger.Named("cleaner")}
}

// CleanText applies the full transform chain to a single string.
func (c *Cleaner) CleanText(s string) string {
	if s == "" {
		return s
	}
	s = escapeReplacements.Replace(s)
	s = stripHTML(s)
	s = unicodeReplacements.Replace(s)
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = newlinePadRe.ReplaceAllString(s, "\n")
	s = newlineRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CleanCompetitors cleans the text fields of each record and its comments
// in place and returns a new slice of the records kept. Website and comment
// dates are only trimmed; Source and SourceURL are left unchanged. Records
// whose name is empty after cleaning are dropped.
func (c *Cleaner) CleanCompetitors(comps []*models.CompetitorRecord) []*models.CompetitorRecord {
	result := make([]*models.CompetitorRecord, 0, len(comps))
	for _, comp := range comps {
		if comp == nil {
			continue
		}
		comp.Name = c.CleanText(comp.Name)
		if comp.Name == "" {
			c.logger.Warn("Dropping competitor with empty name from %s", comp.Source)
			continue
		}
		comp.Description = c.CleanText(comp.Description)
		comp.Website = strings.TrimSpace(comp.Website)
		comp.EstimatedUsers = c.CleanText(comp.EstimatedUsers)
		comp.EstimatedRevenue = c.CleanText(comp.EstimatedRevenue)
		comp.PricingModel = c.CleanText(comp.PricingModel)
		comp.LaunchDate = c.CleanText(comp.LaunchDate)
		comp.FounderCEO = c.CleanText(comp.FounderCEO)
		for i := range comp.Comments {
			comp.Comments[i].Text = c.CleanText(comp.Comments[i].Text)
			comp.Comments[i].Author = c.CleanText(comp.Comments[i].Author)
			comp.Comments[i].Date = strings.TrimSpace(comp.Comments[i].Date)
		}
		result = append(result, comp)
	}
	return result
}

// CleanFeedback cleans the text and every AuthorInfo value of each record
// in place and returns a new slice of the records kept. Source and
// SourceURL are left unchanged. Records whose text is empty after cleaning
// are dropped.
func (c *Cleaner) CleanFeedback(feedback []*models.FeedbackRecord) []*models.FeedbackRecord {
	result := make([]*models.FeedbackRecord, 0, len(feedback))
	for _, fb := range feedback {
		if fb == nil {
			continue
		}
		fb.Text = c.CleanText(fb.Text)
		if fb.Text == "" {
			c.logger.Warn("Dropping feedback with empty text from %s", fb.Source)
			continue
		}
		for k, v := range fb.AuthorInfo {
			fb.AuthorInfo[k] = c.CleanText(v)
		}
		result = append(result, fb)
	}
	return result
}

// stripHTML removes markup while preserving inner text. Strings without
// tags pass through untouched, so repeated application is a no-op.
func stripHTML(s string) string {
	if !tagRe.MatchString(s) {
		return s
	}

	var b strings.Builder
	tok := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.Write(tok.Text())
		}
	}
	return b.String()
}
