package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New("json", "info", &buf)
	log.Info("hello", "key", "value")

	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected JSON output, got %q", out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected attribute in output, got %q", out)
	}
}

func TestNewTextFormatIsDefault(t *testing.T) {
	var buf bytes.Buffer
	log := New("unknown-format", "info", &buf)
	log.Info("hello")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected text output, got %q", out)
	}
	if !strings.Contains(out, "msg=hello") {
		t.Errorf("expected slog text format, got %q", out)
	}
}

func TestNewLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := New("text", "warn", &buf)
	log.Info("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("expected info message to be filtered at warn level, got %q", buf.String())
	}

	log.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("expected warn message to be logged")
	}
}

func TestNewDefaultsWriterToStderr(t *testing.T) {
	log := New("text", "info", nil)
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}
