// Package corpus loads dated article files and presents them as one
// chronologically ordered token stream.
package corpus

import (
	"iter"
	"time"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/tokenizer"
)

// dateLayout is the filename prefix that carries an article's date, as in
// "2024-03-01_some-title.txt".
const dateLayout = "2006-01-02"

// Document is one article. Date is zero when the filename carries no
// parsable date prefix.
type Document struct {
	Name string
	Path string
	Date time.Time
	Text string
}

// Dated reports whether the document has a chronological key.
func (d Document) Dated() bool {
	return !d.Date.IsZero()
}

// Tokens concatenates the token streams of docs in order. Document
// boundaries are not visible to the consumer.
func Tokens(docs []Document, tok *tokenizer.Tokenizer) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, doc := range docs {
			for token := range tok.Tokens(doc.Text) {
				if !yield(token) {
					return
				}
			}
		}
	}
}

// parseDate extracts the leading YYYY-MM-DD of name.
func parseDate(name string) time.Time {
	if len(name) < len(dateLayout) {
		return time.Time{}
	}
	date, err := time.Parse(dateLayout, name[:len(dateLayout)])
	if err != nil {
		return time.Time{}
	}
	return date
}
