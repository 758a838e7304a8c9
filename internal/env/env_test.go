package environment

import (
	"log/slog"
	"testing"
)

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  ", ""},
		{"dl.example.com", "https://dl.example.com"},
		{"dl.example.com/", "https://dl.example.com"},
		{"http://localhost:8080/", "http://localhost:8080"},
	}
	for _, tt := range tests {
		if got := publicBaseURL(tt.in); got != tt.want {
			t.Errorf("publicBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
