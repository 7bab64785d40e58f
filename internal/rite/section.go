package rite

import (
	"fmt"
	"log/slog"
	"strconv"
)

// Section signatures.
const (
	SigIrep = "IREP"
	SigLine = "LINE"
	SigLvar = "LVAR"
	SigEnd  = "END\x00"

	// irepVersion is the only body version a revision 2 IREP section may carry.
	irepVersion = "0000"

	sectionHeaderSize = 8
	// sectionMinSize is the size below which only an end marker can fit.
	sectionMinSize = 16
)

// Frame is the part common to every section.
type Frame struct {
	Sig    string
	Offset int    // absolute offset of the signature within the image
	Size   uint32 // declared size, header included
}

func (f Frame) frame() Frame { return f }

// Section is one of *IrepSection, *LineSection, *LvarSection or *EndSection.
type Section interface {
	frame() Frame
}

// FrameOf returns the framing of any section.
func FrameOf(s Section) Frame { return s.frame() }

// IrepSection holds instruction records. Under revision 1 Records is the flat
// list; under revision 2 it holds the single root record.
type IrepSection struct {
	Frame
	Version string
	Count   uint16 // revision 1 only
	Start   uint16 // revision 1 only
	Records []*Record
}

// Root returns the tree root of a revision 2 section, or the first record of a
// revision 1 list.
func (s *IrepSection) Root() *Record {
	if len(s.Records) == 0 {
		return nil
	}
	return s.Records[0]
}

// LineSection is framed and reported but its body is not decoded.
type LineSection struct {
	Frame
	Count uint16
	Start uint16
}

// LvarSection annotates the IREP section framed most recently before it.
type LvarSection struct {
	Frame
	Irep *IrepSection
	Vars *LocalVars
}

// EndSection terminates the section list.
type EndSection struct {
	Frame
}

type framer struct {
	rev      Revision
	maxDepth int
	log      *slog.Logger
}

// frameAll walks sections from c until an end marker, or under revision 1
// until the buffer is exhausted.
func (f *framer) frameAll(c *cursor) ([]Section, error) {
	var (
		sections []Section
		lastIrep *IrepSection
	)
	for {
		if c.remaining() == 0 {
			if f.rev == Rev1 {
				return sections, nil
			}
			return nil, fmt.Errorf("%w: missing END section at 0x%x", ErrTruncatedSection, c.offset())
		}
		s, err := f.next(c, lastIrep)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
		switch s := s.(type) {
		case *IrepSection:
			lastIrep = s
		case *EndSection:
			return sections, nil
		}
	}
}

func (f *framer) next(c *cursor, lastIrep *IrepSection) (Section, error) {
	start := c.offset()
	if c.remaining() < sectionHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes at 0x%x cannot hold a section header",
			ErrTruncatedSection, c.remaining(), start)
	}
	avail := c.remaining()
	rawSig, _ := c.bytes(4, "section signature")
	size, _ := c.u32("section size")
	fr := Frame{Sig: string(rawSig), Offset: start, Size: size}

	if avail < sectionMinSize && fr.Sig != SigEnd {
		return nil, fmt.Errorf("%w: %s at 0x%x with %d bytes left, only END fits",
			ErrUnknownSection, strconv.Quote(fr.Sig), start, avail)
	}
	if int64(size) > int64(avail) {
		return nil, fmt.Errorf("%w: %s at 0x%x declares %d bytes, %d remain",
			ErrTruncatedSection, strconv.Quote(fr.Sig), start, size, avail)
	}
	if size < sectionHeaderSize {
		return nil, fmt.Errorf("%w: %s at 0x%x declares %d bytes, smaller than its header",
			ErrSizeMismatch, strconv.Quote(fr.Sig), start, size)
	}

	// body covers the rest of the declared size; the framer always advances by
	// exactly size no matter what the reader consumed.
	body := newCursor(c.data[c.pos:c.pos+int(size)-sectionHeaderSize], c.offset())
	c.pos += int(size) - sectionHeaderSize

	var (
		s   Section
		err error
	)
	switch fr.Sig {
	case SigIrep:
		s, err = f.irep(fr, body)
	case SigLine:
		s, err = f.line(fr, body)
	case SigLvar:
		s, err = f.lvar(fr, body, lastIrep)
	case SigEnd:
		s = &EndSection{Frame: fr}
	default:
		err = fmt.Errorf("%w: %s at 0x%x", ErrUnknownSection, strconv.Quote(fr.Sig), start)
	}
	if err != nil {
		return nil, err
	}
	f.log.Debug("framed section", "sig", fr.Sig, "offset", fmt.Sprintf("0x%x", start), "size", size)
	return s, nil
}

func (f *framer) irep(fr Frame, body *cursor) (*IrepSection, error) {
	ver, err := body.bytes(4, "IREP version")
	if err != nil {
		return nil, err
	}
	s := &IrepSection{Frame: fr, Version: string(ver)}
	rr := &recordReader{rev: f.rev, maxDepth: f.maxDepth}

	if f.rev == Rev1 {
		if s.Count, err = body.u16("IREP count"); err != nil {
			return nil, err
		}
		if s.Start, err = body.u16("IREP start"); err != nil {
			return nil, err
		}
		if s.Start >= s.Count {
			return nil, fmt.Errorf("%w: IREP at 0x%x has start %d not below count %d",
				ErrUnknownSection, fr.Offset, s.Start, s.Count)
		}
		if uint64(s.Count)*(recordHeaderSizeRev1+12) > uint64(body.remaining()) {
			return nil, fmt.Errorf("%w: IREP at 0x%x lists %d records in %d bytes",
				ErrTruncatedSection, fr.Offset, s.Count, body.remaining())
		}
		s.Records = make([]*Record, 0, s.Count)
		for i := 0; i < int(s.Count); i++ {
			r, err := rr.read(body, i, 0)
			if err != nil {
				return nil, fmt.Errorf("irep[%d]: %w", i, err)
			}
			s.Records = append(s.Records, r)
		}
	} else {
		if s.Version != irepVersion {
			return nil, fmt.Errorf("%w: IREP at 0x%x has version %s",
				ErrUnknownSection, fr.Offset, strconv.Quote(s.Version))
		}
		root, err := rr.read(body, 0, 0)
		if err != nil {
			return nil, err
		}
		s.Records = []*Record{root}
	}

	if body.remaining() != 0 {
		return nil, fmt.Errorf("%w: IREP at 0x%x declares %d bytes, records use %d",
			ErrSizeMismatch, fr.Offset, fr.Size, int(fr.Size)-body.remaining())
	}
	return s, nil
}

func (f *framer) line(fr Frame, body *cursor) (*LineSection, error) {
	s := &LineSection{Frame: fr}
	var err error
	if s.Count, err = body.u16("LINE count"); err != nil {
		return nil, err
	}
	if s.Start, err = body.u16("LINE start"); err != nil {
		return nil, err
	}
	if s.Start >= s.Count {
		return nil, fmt.Errorf("%w: LINE at 0x%x has start %d not below count %d",
			ErrUnknownSection, fr.Offset, s.Start, s.Count)
	}
	return s, nil
}

func (f *framer) lvar(fr Frame, body *cursor, irep *IrepSection) (*LvarSection, error) {
	if f.rev == Rev1 {
		return nil, fmt.Errorf("%w: LVAR at 0x%x in a revision 1 container", ErrUnknownSection, fr.Offset)
	}
	if irep == nil {
		return nil, fmt.Errorf("%w: LVAR at 0x%x precedes every IREP section", ErrOutOfOrderSection, fr.Offset)
	}
	vars, err := readLocalVars(body, irep.Root(), f.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("lvar: %w", err)
	}
	return &LvarSection{Frame: fr, Irep: irep, Vars: vars}, nil
}
