package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
		ok       bool
	}{
		{name: "Debug", input: "debug", expected: LevelDebug, ok: true},
		{name: "Info", input: "info", expected: LevelInfo, ok: true},
		{name: "Warn", input: "warn", expected: LevelWarn, ok: true},
		{name: "Warning alias", input: "warning", expected: LevelWarn, ok: true},
		{name: "Error", input: "error", expected: LevelError, ok: true},
		{name: "Case insensitive", input: "DEBUG", expected: LevelDebug, ok: true},
		{name: "Surrounding spaces", input: "  error ", expected: LevelError, ok: true},
		{name: "Unknown falls back to info", input: "verbose", expected: LevelInfo, ok: false},
		{name: "Empty", input: "", expected: LevelInfo, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			if ok != tt.ok {
				t.Errorf("ParseLevel(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestSetLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	origOutput := log.Writer()
	origFlags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(origOutput)
		log.SetFlags(origFlags)
		SetLevel(LevelInfo)
	}()

	SetLevel(LevelWarn)

	Debug("debug line")
	Info("info line")
	Warn("warn line")
	Error("error line")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("Messages below warn should be suppressed, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn line") {
		t.Errorf("Expected warn line in output, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] error line") {
		t.Errorf("Expected error line in output, got %q", out)
	}

	SetLevel(LevelDebug)
	if !IsDebugEnabled() {
		t.Error("IsDebugEnabled should be true after SetLevel(LevelDebug)")
	}
	if GetLevel() != LevelDebug {
		t.Errorf("GetLevel() = %v, want debug", GetLevel())
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
