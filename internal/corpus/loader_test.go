package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func names(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out
}

func TestLoadChronologicalOrder(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"2024-03-01_spring.txt":  "spring",
		"2023-12-25_winter.txt":  "winter",
		"2024-03-01_another.txt": "another",
		"notes.txt":              "undated",
		"2024-01-10_mid.md":      "ignored by pattern",
	})
	m := metrics.New()
	docs, err := NewLoader(config.CorpusConfig{ArticlesDir: dir, Pattern: "*.txt", ReadWorkers: 2}, m).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"notes.txt", "2023-12-25_winter.txt", "2024-03-01_another.txt", "2024-03-01_spring.txt"}
	if got := names(docs); !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if docs[0].Dated() {
		t.Error("notes.txt should be undated")
	}
	if !docs[1].Date.Equal(time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", docs[1].Date)
	}
	if got := testutil.ToFloat64(m.DocumentsLoadedTotal); got != 4 {
		t.Errorf("documents loaded metric = %v", got)
	}
}

func TestLoadDecodesLegacyEncoding(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"2024-01-01_latin.txt": "caf\xe9 cr\xe8me",
		"2024-01-02_bom.txt":   "\xef\xbb\xbfhello",
	})
	docs, err := NewLoader(config.CorpusConfig{ArticlesDir: dir}, nil).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if docs[0].Text != "café crème" {
		t.Errorf("decoded text = %q", docs[0].Text)
	}
	if docs[1].Text != "hello" {
		t.Errorf("BOM not stripped: %q", docs[1].Text)
	}
}

func TestLoadNoDocuments(t *testing.T) {
	tests := map[string]string{
		"missing dir": filepath.Join(t.TempDir(), "absent"),
		"empty dir":   t.TempDir(),
		"no matches":  writeFiles(t, map[string]string{"a.md": "x"}),
	}
	for name, dir := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader(config.CorpusConfig{ArticlesDir: dir, Pattern: "*.txt"}, nil).Load(context.Background())
			if !errors.Is(err, apperrors.ErrNoDocuments) {
				t.Errorf("err = %v, want ErrNoDocuments", err)
			}
			if apperrors.ExitCode(err) != apperrors.ExitNoDocuments {
				t.Errorf("exit code = %d", apperrors.ExitCode(err))
			}
		})
	}
}

func TestLoadCancelled(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(config.CorpusConfig{ArticlesDir: dir, ReadWorkers: 1}, nil).Load(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTokensSpanDocuments(t *testing.T) {
	tok, err := tokenizer.New(tokenizer.Config{Lowercase: true, MinWordLength: 2})
	if err != nil {
		t.Fatal(err)
	}
	docs := []Document{
		{Name: "1", Text: "Alpha beta"},
		{Name: "2", Text: ""},
		{Name: "3", Text: "gamma, delta!"},
	}
	got := slices.Collect(Tokens(docs, tok))
	want := []string{"alpha", "beta", "gamma", "delta"}
	if !slices.Equal(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}

	var first []string
	for w := range Tokens(docs, tok) {
		first = append(first, w)
		if len(first) == 3 {
			break
		}
	}
	if !slices.Equal(first, want[:3]) {
		t.Errorf("early stop = %v", first)
	}
}

func TestParseDate(t *testing.T) {
	tests := map[string]bool{
		"2024-02-29_leap.txt": true,
		"2023-02-29_bad.txt":  false,
		"0000-00-00_none.txt": false,
		"short.txt":           false,
		"2024-05-06":          true,
	}
	for name, dated := range tests {
		if got := !parseDate(name).IsZero(); got != dated {
			t.Errorf("parseDate(%q) dated = %v, want %v", name, got, dated)
		}
	}
}
