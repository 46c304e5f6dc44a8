package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestHandlerJSONCarriesDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	h := newHandler(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.3", &buf)
	logger := &Logger{Logger: slog.New(h)}

	logger.Info("entry loaded", "entry", "e1", "domain", "powermeter")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if line["service"] != "hearth" {
		t.Errorf("service = %v, want hearth", line["service"])
	}
	if line["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", line["version"])
	}
	if line["msg"] != "entry loaded" {
		t.Errorf("msg = %v", line["msg"])
	}
	if line["domain"] != "powermeter" {
		t.Errorf("domain = %v", line["domain"])
	}
}

func TestHandlerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	h := newHandler(config.LoggingConfig{Level: "info", Format: "text"}, "dev", &buf)
	slog.New(h).Info("hello")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("text format produced JSON: %s", out)
	}
	if !strings.Contains(out, "service=hearth") {
		t.Errorf("output = %q, missing service field", out)
	}
}

func TestHandlerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	h := newHandler(config.LoggingConfig{Level: "warn", Format: "json"}, "dev", &buf)
	logger := slog.New(h)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn line missing")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	h := newHandler(config.LoggingConfig{Level: "info", Format: "json"}, "dev", &buf)
	logger := &Logger{Logger: slog.New(h)}

	child := logger.With("component", "mqtt")
	if child == logger {
		t.Fatal("With() must return a new logger")
	}
	child.Info("connected")

	if !strings.Contains(buf.String(), `"component":"mqtt"`) {
		t.Errorf("output = %q, missing component attribute", buf.String())
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}
