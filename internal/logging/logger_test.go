package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"WARN", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("RITEDUMP_LOG_LEVEL", tt.env)
			if got := LevelFromEnv(); got != tt.want {
				t.Errorf("LevelFromEnv() = %v, want %v", got, tt.want)
			}
			if IsDebug() != (tt.want == log.DebugLevel) {
				t.Errorf("IsDebug() = %v", IsDebug())
			}
		})
	}
}

func TestNewLoggerWithWriter(t *testing.T) {
	t.Setenv("RITEDUMP_LOG_LEVEL", "warn")
	t.Setenv("RITEDUMP_LOG_PREFIX", "test")

	var buf bytes.Buffer
	lg := NewLoggerWithWriter(&buf)
	defer lg.Close()

	lg.Info("hidden")
	lg.Warn("shown", "section", "IREP")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "test") || !strings.Contains(out, "shown") || !strings.Contains(out, "section=IREP") {
		t.Errorf("output = %q", out)
	}
}
