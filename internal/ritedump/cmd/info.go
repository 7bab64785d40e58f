package cmd

import (
	"fmt"
	"os"
	pathpkg "path/filepath"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"ritedump/internal/disasm"
	"ritedump/internal/rite"
	"ritedump/internal/ritedump/styles"
)

// infoMarkdown summarizes an image: where it came from, its header, the
// section table and record statistics.
func infoMarkdown(l *loaded) string {
	f := l.file
	var b strings.Builder

	relPath := l.path
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := pathpkg.Rel(cwd, l.path); err == nil {
			relPath = rel
		}
	}
	var notes []string
	if l.sealed {
		notes = append(notes, "xxtea")
	}
	if l.gzip {
		notes = append(notes, "gzip")
	}

	b.WriteString("# ritedump\n\n```\n")
	if len(notes) > 0 {
		fmt.Fprintf(&b, "; %s (%s)\n", relPath, strings.Join(notes, ", "))
	} else {
		fmt.Fprintf(&b, "; %s\n", relPath)
	}
	fmt.Fprintf(&b, "; %s\n```\n\n", l.digest)

	h := f.Header
	crc := fmt.Sprintf("`0x%04x`", h.CRC)
	if !f.ChecksumOK() {
		crc += fmt.Sprintf(" (computed `0x%04x`)", f.Checksum)
	}
	b.WriteString("## Header\n\n| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Signature | `%s` |\n", h.Magic)
	fmt.Fprintf(&b, "| Version | `%s` |\n", h.Version)
	fmt.Fprintf(&b, "| Checksum | %s |\n", crc)
	fmt.Fprintf(&b, "| Size | `0x%08x` |\n", h.Size)
	fmt.Fprintf(&b, "| Compiler | `%s` `%s` |\n\n",
		strings.TrimRight(h.CompilerName, "\x00"), strings.TrimRight(h.CompilerVersion, "\x00"))

	b.WriteString("## Sections\n\n| Signature | Offset | Size | Detail |\n|---|---|---|---|\n")
	for _, s := range f.Sections {
		fr := rite.FrameOf(s)
		var detail string
		switch s := s.(type) {
		case *rite.IrepSection:
			detail = fmt.Sprintf("version %s, %d records", s.Version, countRecords(s))
		case *rite.LineSection:
			detail = fmt.Sprintf("count %d, start %d", s.Count, s.Start)
		case *rite.LvarSection:
			detail = fmt.Sprintf("%d names", len(s.Vars.Names))
		}
		fmt.Fprintf(&b, "| `%s` | %d | %d | %s |\n", strings.TrimRight(fr.Sig, "\x00"), fr.Offset, fr.Size, detail)
	}

	var insts, diags, depth int
	for _, irep := range f.Ireps() {
		for _, blk := range disasm.Walk(f.Revision, irep, f.LocalsFor(irep)) {
			insts += len(blk.Insts)
			diags += len(blk.Insts.Diags())
			depth = max(depth, len(blk.Path))
		}
	}
	b.WriteString("\n## Records\n\n")
	fmt.Fprintf(&b, "- %d records, %d instructions\n", len(f.Records()), insts)
	if f.Revision != rite.Rev1 {
		fmt.Fprintf(&b, "- nesting depth %d\n", depth)
	}
	if diags > 0 {
		fmt.Fprintf(&b, "- %d instructions with diagnostics\n", diags)
	}
	return b.String()
}

func countRecords(s *rite.IrepSection) int {
	n := 0
	for _, r := range s.Records {
		n += r.Count()
	}
	return n
}

func newInfoCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]",
		Short: "Summarize an image's header, sections and records",
		Example: `
# Show the summary of an image
ritedump info app.mrb
  `,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s, err := settings(cmd)
			if err != nil {
				r.fail(out, err)
				return nil
			}
			absPath, err := resolvePath(args[0])
			if err != nil {
				r.fail(out, err)
				return nil
			}
			l, err := load(absPath, s)
			if err != nil {
				r.fail(out, err)
				return nil
			}

			markdown := infoMarkdown(l)
			if f, ok := out.(*os.File); ok && term.IsTerminal(f.Fd()) {
				width, _, err := term.GetSize(f.Fd())
				if err != nil || width <= 0 {
					width = 80
				}
				renderer, err := styles.MarkdownRenderer(width - 2)
				if err == nil {
					if rendered, err := renderer.Render(markdown); err == nil {
						markdown = rendered
					}
				}
			}
			fmt.Fprint(out, markdown)
			return nil
		},
	}
}
