package colorize

import (
	"strings"
	"testing"
)

func TestLinePreservesText(t *testing.T) {
	lines := []string{
		`reg[2] = call(reg[2], "puts", reg[3])`,
		"Error: Symbol table out of range(5)",
		"irep->child[0]",
		"sig : RITE",
		"local: 2",
		"lambda do |a, b = ..., *c, &d|",
	}
	for _, l := range lines {
		t.Run(l, func(t *testing.T) {
			got := Line(l)
			if Strip(got) != l {
				t.Errorf("Strip(Line(%q)) = %q", l, Strip(got))
			}
			if strings.Contains(got, "\n") {
				t.Errorf("Line(%q) contains a newline", l)
			}
		})
	}
}

func TestLineNoColor(t *testing.T) {
	t.Setenv("RITEDUMP_NO_COLOR", "1")
	in := "Error: unknown op(99)"
	if got := Line(in); got != in {
		t.Errorf("Line() = %q, want unchanged", got)
	}
	if got, err := Code(in); err != nil || got != in {
		t.Errorf("Code() = %q, %v", got, err)
	}
}

func TestLineColorsDiagnostics(t *testing.T) {
	t.Setenv("RITEDUMP_NO_COLOR", "")
	got := Line("Error: IREP table out of range(3)")
	if !strings.HasPrefix(got, "\033[") {
		t.Errorf("diagnostic not colored: %q", got)
	}
}

func TestIsSummary(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"crc : 0x1234", true},
		{"  name: MATZ", true},
		{"register: 3", true},
		{"reg[0] : x", false},
		{`reg[1] = "a:b"`, false},
		{"stop", false},
	}
	for _, tt := range tests {
		if got := isSummary(tt.line); got != tt.want {
			t.Errorf("isSummary(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
