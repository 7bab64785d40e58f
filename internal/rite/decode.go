// Package rite decodes RITE bytecode containers into an immutable tree of
// sections and records. Decoding either succeeds completely or fails with
// one of the structural errors in errors.go; nothing partial is returned.
package rite

import (
	"fmt"
	"log/slog"
)

// Options tune Decode. The zero value auto-detects the revision, does not
// enforce the checksum and uses DefaultMaxDepth.
type Options struct {
	// Strict promotes a checksum or container size mismatch to a failure.
	Strict bool
	// Revision forces the expected header version. RevAuto accepts both.
	Revision Revision
	// MaxDepth bounds record nesting. Zero means DefaultMaxDepth.
	MaxDepth int
	// Logger receives per-section debug records. Nil means slog.Default().
	Logger *slog.Logger
}

// File is a decoded container.
type File struct {
	Header   Header
	Revision Revision
	// Checksum is the value computed over the image, for comparison with Header.CRC.
	Checksum uint16
	Sections []Section
	// Length is the number of image bytes covered by the header and sections.
	Length int
}

// ChecksumOK reports whether the stored checksum matches the computed one.
func (f *File) ChecksumOK() bool { return f.Header.CRC == f.Checksum }

// Ireps returns the IREP sections in image order.
func (f *File) Ireps() []*IrepSection {
	var out []*IrepSection
	for _, s := range f.Sections {
		if s, ok := s.(*IrepSection); ok {
			out = append(out, s)
		}
	}
	return out
}

// LocalsFor returns the local variable tree that annotates irep, if any. When
// several LVAR sections follow the same IREP the last one wins.
func (f *File) LocalsFor(irep *IrepSection) *LocalVars {
	var lv *LocalVars
	for _, s := range f.Sections {
		if s, ok := s.(*LvarSection); ok && s.Irep == irep {
			lv = s.Vars
		}
	}
	return lv
}

// Records returns every record in depth-first pre-order across all IREP sections.
func (f *File) Records() []*Record {
	var out []*Record
	var walk func(r *Record)
	walk = func(r *Record) {
		out = append(out, r)
		for _, ch := range r.Children {
			walk(ch)
		}
	}
	for _, s := range f.Ireps() {
		for _, r := range s.Records {
			walk(r)
		}
	}
	return out
}

// Decode parses buf. buf is only read, never retained past the call except
// through copies held by the returned File.
func Decode(buf []byte, opts Options) (*File, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := newCursor(buf, 0)
	h, rev, err := readHeader(c, opts.Revision)
	if err != nil {
		return nil, err
	}
	f := &File{Header: h, Revision: rev, Checksum: Checksum(buf)}
	if opts.Strict && !f.ChecksumOK() {
		return nil, fmt.Errorf("%w: stored 0x%04x, computed 0x%04x", ErrChecksumMismatch, h.CRC, f.Checksum)
	}

	fr := &framer{rev: rev, maxDepth: opts.MaxDepth, log: logger}
	if f.Sections, err = fr.frameAll(c); err != nil {
		return nil, err
	}
	f.Length = c.pos

	if opts.Strict {
		size := int(h.Size)
		if size != f.Length && size != f.Length-HeaderSize {
			return nil, fmt.Errorf("%w: header size 0x%08x, container spans 0x%08x bytes",
				ErrSizeMismatch, h.Size, f.Length)
		}
	}
	logger.Debug("decoded container", "revision", rev.String(), "sections", len(f.Sections), "bytes", f.Length)
	return f, nil
}
