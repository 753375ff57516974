package tokenizer

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kljensen/snowball/english"

	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
)

// Stemmer reduces a word to its root form. Implementations must be pure:
// the same input always yields the same stem.
type Stemmer func(word string) string

// NewStemmer returns the built-in stemmer registered under name.
//
//	porter  Snowball English (Porter2); lower-cases its output
//	suffix  light suffix stripper, case preserving
func NewStemmer(name string) (Stemmer, error) {
	switch name {
	case "porter", "snowball":
		return PorterStem, nil
	case "suffix":
		return SuffixStem, nil
	default:
		return nil, apperrors.Configf("tokenizer.stemmer", "unknown stemmer %q", name)
	}
}

func PorterStem(word string) string {
	return english.Stem(word, false)
}

var suffixRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// SuffixStem strips the first matching suffix rule whose result keeps at
// least the rule's minimum length.
func SuffixStem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			stem := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(stem) >= rule.minLen {
				return stem
			}
		}
	}
	return word
}

// NewCachedStemmer memoises s in an LRU of the given size. The returned
// stemmer is safe for concurrent use.
func NewCachedStemmer(s Stemmer, size int) (Stemmer, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("creating stem cache: %w", err)
	}
	return func(word string) string {
		if stem, ok := cache.Get(word); ok {
			return stem
		}
		stem := s(word)
		cache.Add(word, stem)
		return stem
	}, nil
}
