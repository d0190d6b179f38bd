package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithOptionsWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: "info", Format: "pretty", Env: "production", Out: &buf})

	log.Info().Str("post_id", "abc").Msg("hello")

	// A buffer is never a terminal, so pretty output falls back to JSON.
	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if line["service"] != ServiceName {
		t.Errorf("Expected service %q, got %v", ServiceName, line["service"])
	}
	if line["post_id"] != "abc" {
		t.Errorf("Expected post_id field, got %v", line["post_id"])
	}
}

func TestNewWithOptionsRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: "error", Env: "production", Out: &buf})

	log.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("Info line should be filtered at error level, got %q", buf.String())
	}
}
