// Package search ranks short text passages against a query. It is used to
// order a document's sources so that the ones most relevant to an assistance
// prompt appear first in the assembled context.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options for stop words
//   - Unicode-aware tokenization
//   - Deterministic: ties keep their input order
//   - Every passage is returned; ranking never drops input
//
// Scoring uses Jaccard similarity between the query token set and each
// passage's token set: score = |Q ∩ P| / |Q ∪ P|.
package search

import (
	"regexp"
	"sort"
	"strings"
)

// Passage is one rankable unit of text. Pos is the caller's index for it.
type Passage struct {
	Pos  int
	Text string
}

// Scored is a passage with its similarity to the query.
type Scored struct {
	Pos   int
	Score float64
}

// Ranker orders passages by relevance to a query.
type Ranker interface {
	Rank(query string, passages []Passage) []Scored
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
}

func defaultConfig() config {
	return config{stopwords: nil}
}

// WithStopwords drops the given words from both query and passage tokens.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// EnglishStopwords is a small list of function words that carry no topic.
var EnglishStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "how",
	"in", "is", "it", "of", "on", "or", "that", "the", "this", "to", "was",
	"what", "when", "where", "which", "who", "why", "with", "about", "me",
	"my", "please", "write", "make",
}

// ----------------------------------------------------------------------------
// Implementation

type jaccard struct {
	cfg config
}

// NewJaccard returns a Ranker scoring passages by Jaccard similarity.
func NewJaccard(opts ...Option) Ranker {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &jaccard{cfg: cfg}
}

// Rank scores every passage and returns them best first. A blank or
// stop-word-only query scores everything 0, which keeps input order.
func (j *jaccard) Rank(q string, passages []Passage) []Scored {
	out := make([]Scored, len(passages))
	qTokens := tokenize(q, j.cfg.stopwords)
	qLen := len(qTokens)
	for i, p := range passages {
		out[i] = Scored{Pos: p.Pos}
		if qLen == 0 {
			continue
		}
		pTokens := tokenize(p.Text, j.cfg.stopwords)
		over := overlap(qTokens, pTokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + len(pTokens) - over)
		if union <= 0 {
			continue
		}
		out[i].Score = float64(over) / union
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
