package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
)

// StopwordSet is a read-only set of lower-cased words. It is built once per
// run and shared by every Tokenizer.
type StopwordSet struct {
	words map[string]struct{}
}

func NewStopwordSet(words []string) *StopwordSet {
	set := &StopwordSet{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set.words[w] = struct{}{}
		}
	}
	return set
}

// LoadStopwords reads a stopword file with one word per line. Blank lines and
// lines starting with '#' are ignored.
func LoadStopwords(path string) (*StopwordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stopwords file %s: %w: %w", path, apperrors.ErrStopwordsUnreadable, err)
	}
	defer f.Close()
	set, err := ReadStopwords(f)
	if err != nil {
		return nil, fmt.Errorf("reading stopwords file %s: %w: %w", path, apperrors.ErrStopwordsUnreadable, err)
	}
	return set, nil
}

func ReadStopwords(r io.Reader) (*StopwordSet, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewStopwordSet(words), nil
}

// Contains reports whether word, compared case-insensitively, is a stopword.
func (s *StopwordSet) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[strings.ToLower(word)]
	return ok
}

func (s *StopwordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Words returns the set's members in sorted order.
func (s *StopwordSet) Words() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	slices.Sort(out)
	return out
}

// DefaultStopwords returns the built-in English stopword set.
var DefaultStopwords = sync.OnceValue(func() *StopwordSet {
	return NewStopwordSet(defaultStopwords)
})

var defaultStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an",
	"and", "any", "are", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "could", "did",
	"do", "does", "doing", "down", "during", "each", "few", "for", "from",
	"further", "had", "has", "have", "having", "he", "her", "here", "hers",
	"herself", "him", "himself", "his", "how", "i", "if", "in", "into", "is",
	"it", "its", "itself", "just", "me", "more", "most", "my", "myself", "no",
	"nor", "not", "now", "of", "off", "on", "once", "only", "or", "other",
	"our", "ours", "ourselves", "out", "over", "own", "same", "she", "should",
	"so", "some", "such", "than", "that", "the", "their", "theirs", "them",
	"themselves", "then", "there", "these", "they", "this", "those", "through",
	"to", "too", "under", "until", "up", "very", "was", "we", "were", "what",
	"when", "where", "which", "while", "who", "whom", "why", "will", "with",
	"would", "you", "your", "yours", "yourself", "yourselves",
}
