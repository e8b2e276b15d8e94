// Package sparseindex implements C5: a BM25 index over chunks, k1=1.5,
// b=0.75, plus-one-smoothed IDF, lowercase-and-whitespace tokenization,
// no stemming.
package sparseindex

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/marketpulse/core/internal/model"
)

// Hit is one search result: a chunk id and its BM25 score.
type Hit struct {
	ChunkID string
	Score   float64
}

type posting struct {
	chunkID string
	termFreqs map[string]int
	docLen    int
	order     int // insertion order, for tie-breaking
}

// Store holds the BM25 corpus state. Add updates df and recomputes
// avgDocLen on every call; idf is derived at search time from the
// current df.
type Store struct {
	mu         sync.RWMutex
	k1, b      float64
	postings   []posting
	df         map[string]int
	avgDocLen  float64
	nextOrder  int
}

func New(k1, b float64) *Store {
	if k1 <= 0 {
		k1 = 1.5
	}
	if b <= 0 {
		b = 0.75
	}
	return &Store{
		k1: k1,
		b:  b,
		df: make(map[string]int),
	}
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Add appends chunks to the corpus and recomputes df/avgDocLen/idf
// (idf is derived lazily at search time from the current df snapshot).
func (s *Store) Add(chunks []model.Chunk) {
	if len(chunks) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		tokens := tokenize(c.Text)
		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		for term := range freqs {
			s.df[term]++
		}
		s.postings = append(s.postings, posting{
			chunkID:   c.ChunkID,
			termFreqs: freqs,
			docLen:    len(tokens),
			order:     s.nextOrder,
		})
		s.nextOrder++
	}

	var total int
	for _, p := range s.postings {
		total += p.docLen
	}
	if len(s.postings) > 0 {
		s.avgDocLen = float64(total) / float64(len(s.postings))
	}
}

// idf is the plus-one-smoothed form: ln(1 + (N - df + 0.5) / (df + 0.5)).
func (s *Store) idf(term string, n int) float64 {
	df := s.df[term]
	return math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
}

// Search scores every document against the tokenized query, filters to
// positive scores, sorts descending, ties broken by insertion order.
func (s *Store) Search(query string, k int) []Hit {
	terms := tokenize(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.postings)
	if n == 0 || len(terms) == 0 {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	scoredHits := make([]scored, 0, n)

	for i, p := range s.postings {
		var score float64
		for _, term := range terms {
			tf := p.termFreqs[term]
			if tf == 0 {
				continue
			}
			idf := s.idf(term, n)
			numerator := idf * float64(tf) * (s.k1 + 1)
			denominator := float64(tf) + s.k1*(1-s.b+s.b*(float64(p.docLen)/s.avgDocLen))
			score += numerator / denominator
		}
		if score > 0 {
			scoredHits = append(scoredHits, scored{idx: i, score: score})
		}
	}

	sort.SliceStable(scoredHits, func(i, j int) bool {
		if scoredHits[i].score != scoredHits[j].score {
			return scoredHits[i].score > scoredHits[j].score
		}
		return s.postings[scoredHits[i].idx].order < s.postings[scoredHits[j].idx].order
	})

	if k > len(scoredHits) {
		k = len(scoredHits)
	}
	out := make([]Hit, k)
	for i := 0; i < k; i++ {
		out[i] = Hit{ChunkID: s.postings[scoredHits[i].idx].chunkID, Score: scoredHits[i].score}
	}
	return out
}

// Size returns the corpus size N.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.postings)
}
