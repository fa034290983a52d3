// Package bm25 provides an in-memory inverted index with Okapi BM25
// scoring for lexical search over chunks.
package bm25

import (
	"regexp"
	"strings"
)

// tokenRegex matches word tokens; everything else acts as a boundary.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// DefaultStopWords is the default set of English words excluded from
// indexing and querying. Callers can replace it via Config.StopWords.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "been", "but", "by",
	"for", "from", "has", "have", "he", "in", "is", "it", "its", "of",
	"on", "or", "that", "the", "this", "to", "was", "were", "will",
	"with",
}

// Tokenize splits text into lowercase word tokens, dropping stop words
// and tokens of length one or less. The same rules apply to documents
// and queries so term statistics line up.
func Tokenize(text string, stopWords map[string]struct{}) []string {
	words := tokenRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if len(lower) <= 1 {
			continue
		}
		if _, stop := stopWords[lower]; stop {
			continue
		}
		tokens = append(tokens, lower)
	}
	return tokens
}

// BuildStopWordMap converts a stop-word list to a lookup set.
func BuildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}
