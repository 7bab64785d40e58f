package disasm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"ritedump/internal/rite"
)

// Sink receives output lines in order. Each line stands alone.
type Sink interface {
	Line(s string) error
}

// WriterSink writes one line per call to an io.Writer, optionally passing
// instruction lines through Colorize first.
type WriterSink struct {
	W        io.Writer
	Colorize func(string) string
}

func (ws *WriterSink) Line(s string) error {
	if ws.Colorize != nil && s != "" {
		s = ws.Colorize(s)
	}
	_, err := io.WriteString(ws.W, s+"\n")
	return err
}

// Collector keeps lines in memory.
type Collector struct {
	Lines []string
}

func (c *Collector) Line(s string) error {
	c.Lines = append(c.Lines, s)
	return nil
}

func (c *Collector) String() string {
	return strings.Join(c.Lines, "\n")
}

// Options select what Printer emits beyond the instruction listing.
type Options struct {
	Header   bool
	Sections bool
	Lvar     bool
	Pool     bool
	Symbols  bool
	Parallel int // records rendered concurrently; <= 1 is sequential
}

// DefaultOptions matches the classic dump: header, sections, locals and code.
func DefaultOptions() Options {
	return Options{Header: true, Sections: true, Lvar: true}
}

// Printer writes a decoded container to a Sink.
type Printer struct {
	sink Sink
	opts Options
	err  error
}

func NewPrinter(sink Sink, opts Options) *Printer {
	return &Printer{sink: sink, opts: opts}
}

func (p *Printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	p.err = p.sink.Line(format)
}

// Print writes f. Revision 1 listings follow their IREP section summary;
// later revisions print every section summary, then the local variable
// tables, then the record trees.
func (p *Printer) Print(ctx context.Context, f *rite.File) error {
	if p.opts.Header {
		p.header(f)
	}
	for _, s := range f.Sections {
		if p.opts.Sections {
			p.section(f.Revision, s)
		}
		if irep, ok := s.(*rite.IrepSection); ok && f.Revision == rite.Rev1 {
			if err := p.records(ctx, f, irep); err != nil {
				return err
			}
		}
	}
	if f.Revision == rite.Rev1 {
		return p.err
	}

	for _, irep := range f.Ireps() {
		vars := f.LocalsFor(irep)
		if p.opts.Lvar && vars != nil {
			p.locals(vars.Root, nil)
		}
		if err := p.records(ctx, f, irep); err != nil {
			return err
		}
	}
	return p.err
}

func (p *Printer) header(f *rite.File) {
	h := f.Header
	p.line("sig : %s", h.Magic)
	p.line("ver : %s", h.Version)
	p.line("crc : 0x%04x", h.CRC)
	if !f.ChecksumOK() {
		p.line("      computed 0x%04x", f.Checksum)
	}
	p.line("size: 0x%08x", h.Size)
	p.line("compiler:")
	p.line("  name: %s", strings.TrimRight(h.CompilerName, "\x00"))
	p.line("  ver : %s", strings.TrimRight(h.CompilerVersion, "\x00"))
}

func (p *Printer) section(rev rite.Revision, s rite.Section) {
	switch s := s.(type) {
	case *rite.IrepSection:
		p.line("sig  : %s", s.Sig)
		p.line("ver  : %s", s.Version)
		if rev == rite.Rev1 {
			p.line("count: %d", s.Count)
			p.line("start: %d", s.Start)
		}
	case *rite.LineSection:
		p.line("sig  : %s", s.Sig)
		p.line("count: %d", s.Count)
		p.line("start: %d", s.Start)
	case *rite.LvarSection:
		p.line("sig  : %s", s.Sig)
	case *rite.EndSection:
		if rev != rite.Rev1 {
			p.line("sig  : %s", strings.TrimRight(s.Sig, "\x00"))
		}
	}
}

func (p *Printer) locals(s *rite.LocalScope, path Path) {
	if s == nil {
		return
	}
	p.line("lvar%s", path)
	for _, e := range s.Entries {
		name := e.Name
		if e.Null {
			name = "<null>"
		}
		p.line("reg[%d] : %s", e.Register, name)
	}
	p.line("")
	for i, ch := range s.Children {
		p.locals(ch, path.Child(i))
	}
}

func (p *Printer) records(ctx context.Context, f *rite.File, irep *rite.IrepSection) error {
	blocks, err := WalkParallel(ctx, f.Revision, irep, f.LocalsFor(irep), p.opts.Parallel)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		p.block(f.Revision, b)
	}
	return p.err
}

func (p *Printer) block(rev rite.Revision, b Block) {
	lines := b.Lines()
	// Banner, local and register lines come first, then the tables.
	for _, l := range lines[:3] {
		p.line("%s", l)
	}
	if p.opts.Pool {
		for i, e := range b.Record.Pool {
			p.line("pool[%d] %s \"%s\"", i, e.TypeName(rev), e.Value)
		}
	}
	if p.opts.Symbols {
		for i, s := range b.Record.Syms {
			if s.Null {
				p.line("sym[%d] <null>", i)
				continue
			}
			p.line("sym[%d] :%s", i, s.Name)
		}
	}
	for _, l := range lines[3:] {
		p.line("%s", l)
	}
}
