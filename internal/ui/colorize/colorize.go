// Package colorize highlights disassembly text for terminals.
package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Disabled reports whether RITEDUMP_NO_COLOR is set.
func Disabled() bool {
	return os.Getenv("RITEDUMP_NO_COLOR") != ""
}

// getLexer returns the lexer for rendered instructions. The templates read
// as Ruby, so the Ruby lexer colors calls, symbols and strings well.
func getLexer() chroma.Lexer {
	candidates := []string{"ruby", "rb"}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return chroma.Coalesce(lexer)
		}
	}
	return nil
}

// getStyle returns the disassembly style with fallbacks
func getStyle() *chroma.Style {
	candidates := []string{"rite-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Code highlights a multi-line listing.
func Code(code string) (string, error) {
	if Disabled() {
		return code, nil
	}

	lexer := getLexer()
	if lexer == nil {
		return code, nil
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getStyle(), iterator); err != nil {
		return code, err
	}
	return buf.String(), nil
}

// Line colorizes one output line while preserving its text. Diagnostics are
// red, record and scope banners gold, everything else goes through chroma.
func Line(line string) string {
	if Disabled() || line == "" {
		return line
	}

	switch {
	case strings.HasPrefix(line, "Error:"):
		return fmt.Sprintf("\033[38;2;255;95;95m%s\033[0m", line)
	case strings.HasPrefix(line, "irep"), strings.HasPrefix(line, "lvar"):
		return fmt.Sprintf("\033[38;2;255;215;0m%s\033[0m", line)
	case isSummary(line):
		return fmt.Sprintf("\033[38;2;124;156;157m%s\033[0m", line)
	}

	out, err := Code(line)
	if err != nil {
		return line
	}
	// Lexers that ensure a trailing newline would double the sink's.
	return strings.ReplaceAll(out, "\n", "")
}

// isSummary matches header, section and frame size lines ("sig : RITE").
func isSummary(line string) bool {
	key, _, ok := strings.Cut(line, ":")
	if !ok || strings.Contains(key, "=") || strings.Contains(key, "(") {
		return false
	}
	switch strings.TrimSpace(key) {
	case "sig", "ver", "crc", "size", "compiler", "name", "count", "start", "local", "register":
		return true
	}
	return false
}

// Strip removes ANSI escape codes and returns the plain string
func Strip(s string) string {
	var result strings.Builder
	inEscape := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		} else if inEscape {
			if r == 'm' {
				inEscape = false
			}
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}
