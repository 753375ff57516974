package corpus

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"

	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/timecloud/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/timecloud/pkg/metrics"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads article files concurrently and returns them in chronological
// order.
type Loader struct {
	cfg     config.CorpusConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewLoader(cfg config.CorpusConfig, m *metrics.Metrics) *Loader {
	if cfg.Pattern == "" {
		cfg.Pattern = "*.txt"
	}
	if cfg.ReadWorkers <= 0 {
		cfg.ReadWorkers = 4
	}
	return &Loader{
		cfg:     cfg,
		metrics: m,
		logger:  logger.WithComponent("corpus"),
	}
}

// Load reads every file in the articles directory that matches the pattern.
// Documents are sorted by date, then by name; undated documents sort first.
// Files that are not valid UTF-8 are decoded as Windows-1252.
func (l *Loader) Load(ctx context.Context) ([]Document, error) {
	info, err := os.Stat(l.cfg.ArticlesDir)
	if err != nil || !info.IsDir() {
		return nil, apperrors.Newf(apperrors.ErrNoDocuments, apperrors.ExitNoDocuments,
			"input directory not found: %s", l.cfg.ArticlesDir)
	}
	paths, err := filepath.Glob(filepath.Join(l.cfg.ArticlesDir, l.cfg.Pattern))
	if err != nil {
		return nil, apperrors.Configf("corpus.pattern", "%v", err)
	}
	paths = slices.DeleteFunc(paths, func(p string) bool {
		fi, err := os.Stat(p)
		return err != nil || fi.IsDir()
	})
	if len(paths) == 0 {
		return nil, apperrors.Newf(apperrors.ErrNoDocuments, apperrors.ExitNoDocuments,
			"no %s files found in %s", l.cfg.Pattern, l.cfg.ArticlesDir)
	}

	docs := make([]Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.ReadWorkers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := readDocument(path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	slices.SortStableFunc(docs, func(a, b Document) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	undated := 0
	for _, doc := range docs {
		if !doc.Dated() {
			undated++
		}
		l.logger.Debug("article loaded", "name", doc.Name, "bytes", len(doc.Text))
	}
	if l.metrics != nil {
		l.metrics.DocumentsLoadedTotal.Add(float64(len(docs)))
	}
	l.logger.Info("corpus loaded",
		"dir", l.cfg.ArticlesDir,
		"documents", len(docs),
		"undated", undated,
	)
	return docs, nil
}

func readDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return Document{}, fmt.Errorf("decoding %s: %w", path, err)
		}
		data = decoded
	}
	name := filepath.Base(path)
	return Document{
		Name: name,
		Path: path,
		Date: parseDate(name),
		Text: string(data),
	}, nil
}
