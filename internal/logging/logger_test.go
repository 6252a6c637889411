package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		logged  []string
		dropped []string
	}{
		{"trace", []string{"trace message", "debug message", "info message"}, nil},
		{"debug", []string{"debug message", "info message"}, []string{"trace message"}},
		{"info", []string{"info message", "warn message"}, []string{"debug message"}},
		{"warn", []string{"warn message"}, []string{"info message"}},
		{"error", []string{"error message"}, []string{"warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: tt.level, Output: &buf})

			logger.Trace().Msg("trace message")
			logger.Debug().Msg("debug message")
			logger.Info().Msg("info message")
			logger.Warn().Msg("warn message")
			logger.Error().Msg("error message")

			output := buf.String()
			for _, msg := range tt.logged {
				if !strings.Contains(output, msg) {
					t.Errorf("Expected %q to be logged at %s level", msg, tt.level)
				}
			}
			for _, msg := range tt.dropped {
				if strings.Contains(output, msg) {
					t.Errorf("Expected %q to NOT be logged at %s level", msg, tt.level)
				}
			}
		})
	}
}

func TestNewWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithComponent(Config{Level: "info", Output: &buf}, "scanner")

	logger.Info().Str("module", "/lib/libc.so.6").Msg("Skipping module")

	output := buf.String()
	if !strings.Contains(output, `"component":"scanner"`) {
		t.Errorf("Expected component field in %q", output)
	}
	if !strings.Contains(output, `"module":"/lib/libc.so.6"`) {
		t.Errorf("Expected module field in %q", output)
	}
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})

	logger.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("Expected pretty output to contain message 'test message'")
	}
	if strings.Contains(output, `"message"`) {
		t.Error("Expected pretty output not to be JSON")
	}
	if strings.Contains(output, "\x1b[") {
		t.Error("Expected no color codes when writing to a buffer")
	}
}

func TestNew_DefaultOutput(t *testing.T) {
	// Nil output falls back to stderr.
	logger := New(Config{Level: "disabled"})
	logger.Error().Msg("not written")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "warn" {
		t.Errorf("Expected default level 'warn', got '%s'", cfg.Level)
	}
	if !cfg.Pretty {
		t.Error("Expected default pretty to be true")
	}
	if cfg.Output == nil {
		t.Error("Expected default output to be set")
	}
}

func TestParseLevel(t *testing.T) {
	levels := []struct {
		name     string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tc := range levels {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseLevel(tc.name); got != tc.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.name, got, tc.expected)
			}
		})
	}
}
