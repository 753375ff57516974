package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetupWriterJSONWithRunID(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "json")

	ctx := WithRunID(context.Background(), "01HZZTESTRUN")
	FromContext(ctx).Debug("frame emitted", "frame", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["run_id"] != "01HZZTESTRUN" {
		t.Errorf("run_id = %v", line["run_id"])
	}
	if line["msg"] != "frame emitted" {
		t.Errorf("msg = %v", line["msg"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRunIDMissing(t *testing.T) {
	if got := RunID(context.Background()); got != "" {
		t.Errorf("RunID on bare context = %q, want empty", got)
	}
}
