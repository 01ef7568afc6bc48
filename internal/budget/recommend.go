package budget

import (
	"fmt"
	"sort"
	"strings"
)

// priorityScoreWeight converts a layer's priority into recommendation score
// points; each keyword match is worth keywordScoreWeight points so topical
// relevance dominates priority.
const (
	keywordScoreWeight  = 10
	priorityScoreWeight = 1
)

// scoreLayer matches a layer's keywords and description words against the
// tokenized context. Returns the score and the matched terms.
func scoreLayer(layer Layer, contextWords map[string]bool) (int, []string) {
	matched := make(map[string]bool)

	for _, kw := range layer.Keywords {
		if contextWords[strings.ToLower(kw)] {
			matched[strings.ToLower(kw)] = true
		}
	}
	for _, word := range tokenize(layer.Description) {
		if contextWords[word] {
			matched[word] = true
		}
	}

	if len(matched) == 0 {
		return 0, nil
	}

	terms := make([]string, 0, len(matched))
	for t := range matched {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	score := len(terms)*keywordScoreWeight + layer.Priority*priorityScoreWeight
	return score, terms
}

// tokenize lowercases and splits free text into distinct words, dropping
// single-character tokens which match everything and mean nothing.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	seen := make(map[string]bool)
	var words []string
	for _, f := range fields {
		if len(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		words = append(words, f)
	}
	return words
}

// Recommendations ranks currently inactive layers against a free-text
// context by keyword overlap combined with priority. It is read-only and
// never mutates scheduler state. Limit defaults to 5 when non-positive.
func (s *Scheduler) Recommendations(contextText string, limit int) []Recommendation {
	if limit <= 0 {
		limit = 5
	}

	contextWords := make(map[string]bool)
	for _, w := range tokenize(contextText) {
		contextWords[w] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []Recommendation
	for _, id := range s.graph.IDs() {
		if s.active[id] {
			continue
		}
		layer, _ := s.graph.Get(id)
		score, terms := scoreLayer(layer, contextWords)
		if score == 0 {
			continue
		}
		recs = append(recs, Recommendation{
			LayerID: id,
			Score:   score,
			Reason:  fmt.Sprintf("matched: %s (priority %d)", strings.Join(terms, ", "), layer.Priority),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].LayerID < recs[j].LayerID
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}
