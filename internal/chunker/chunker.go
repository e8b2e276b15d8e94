// Package chunker implements C3: split a normalized article into
// semantic chunks and extract subject tags, the single-article ->
// ordered-chunks transform the ingest coordinator drives per event.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/marketpulse/core/internal/model"
)

// sentenceSplit is a language-agnostic regex fallback: a terminator
// followed by whitespace.
var sentenceSplit = regexp.MustCompile(`(?:[.!?])\s+`)

// subjectTagPattern matches uppercase-alpha tokens of length 2-5.
var subjectTagPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// stoplist filters common financial abbreviations out of subject tags.
var stoplist = map[string]struct{}{
	"CEO": {}, "CFO": {}, "COO": {}, "CTO": {},
	"FY": {}, "Q1": {}, "Q2": {}, "Q3": {}, "Q4": {},
	"EPS": {}, "IPO": {}, "ETF": {}, "SEC": {},
	"US": {}, "UK": {}, "EU": {},
	"AM": {}, "PM": {},
}

// Chunker splits articles into bounded-size chunks with a configurable
// max token count (whitespace-split approximation).
type Chunker struct {
	maxChunkTokens int
}

func New(maxChunkTokens int) *Chunker {
	if maxChunkTokens <= 0 {
		maxChunkTokens = 512
	}
	return &Chunker{maxChunkTokens: maxChunkTokens}
}

// Chunk implements §4.3's algorithm: prepend title, split into sentences,
// greedy-pack into chunks under the token limit, extract subject tags
// per chunk. Empty body yields zero chunks; a single sentence exceeding
// the limit becomes one oversized chunk (never split inside a sentence).
func (c *Chunker) Chunk(a model.Article) []model.Chunk {
	body := a.Content
	if body == "" {
		body = a.Description
	}
	if strings.TrimSpace(body) == "" {
		return nil
	}
	full := body
	if a.Title != "" {
		full = a.Title + "\n" + body
	}
	full = strings.TrimSpace(full)
	if full == "" {
		return nil
	}

	sentences := splitSentences(full)
	if len(sentences) == 0 {
		return nil
	}

	ref := model.ArticleRef{
		ArticleID:   a.ID,
		Title:       a.Title,
		SourceName:  a.SourceName,
		URL:         a.CanonicalURL,
		PublishedAt: a.PublishedAt,
	}

	var chunks []model.Chunk
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, " ")
		chunks = append(chunks, model.Chunk{
			ChunkID:       fmt.Sprintf("%s:%d", a.ID, len(chunks)),
			ArticleID:     a.ID,
			Index:         len(chunks),
			Text:          text,
			SubjectTags:   extractSubjectTags(text),
			CharLength:    len(text),
			TokenEstimate: currentTokens,
			ArticleRef:    ref,
		})
		current = nil
		currentTokens = 0
	}

	for _, sentence := range sentences {
		tokens := len(strings.Fields(sentence))
		if currentTokens+tokens > c.maxChunkTokens && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	flush()

	return chunks
}

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// extractSubjectTags finds all uppercase-alpha tokens of length 2-5,
// filtered by the stoplist, deduplicated and order-preserving.
func extractSubjectTags(text string) []string {
	matches := subjectTagPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var tags []string
	for _, m := range matches {
		if _, stopped := stoplist[m]; stopped {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		tags = append(tags, m)
	}
	return tags
}
