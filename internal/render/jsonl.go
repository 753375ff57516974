package render

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/timecloud/internal/engine"
)

// JSONLines writes one JSON-encoded snapshot per line.
type JSONLines struct {
	buf    *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
}

func NewJSONLines(w io.Writer) *JSONLines {
	buf := bufio.NewWriter(w)
	return &JSONLines{buf: buf, enc: json.NewEncoder(buf)}
}

// CreateJSONLines truncates or creates path and closes it on Finalize.
func CreateJSONLines(path string) (*JSONLines, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot file: %w", err)
	}
	j := NewJSONLines(f)
	j.closer = f
	return j, nil
}

func (j *JSONLines) RenderState(_ context.Context, s engine.Snapshot) error {
	return j.enc.Encode(s)
}

func (j *JSONLines) Finalize(context.Context) error {
	err := j.buf.Flush()
	if j.closer != nil {
		err = errors.Join(err, j.closer.Close())
	}
	return err
}
