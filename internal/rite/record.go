package rite

import (
	"fmt"
	"strconv"
	"strings"

	"ritedump/internal/isa"
)

const (
	recordHeaderSizeRev1 = 8  // size, nlocals, nregs
	recordHeaderSizeRev2 = 10 // size, nlocals, nregs, nchildren

	// minRecordSize is the smallest encoding of a child record: header plus
	// three empty counts.
	minRecordSize = recordHeaderSizeRev2 + 3*4

	// DefaultMaxDepth bounds record and local-variable nesting.
	DefaultMaxDepth = 128
)

// RecordHeader is the fixed prefix of every record.
type RecordHeader struct {
	Size      uint32
	NLocals   uint16
	NRegs     uint16
	NChildren uint16 // revision 2 only
}

// Record is one compiled function or block. Revision 1 records have no
// children and instead carry their position in the section's flat list.
type Record struct {
	RecordHeader
	Code     []isa.Code
	Pool     []PoolEntry
	Syms     []Symbol
	Children []*Record

	// Index is the position in the flat list for revision 1, or the position
	// in the parent's child list for revision 2.
	Index int

	ownSize   int
	totalSize int
}

// OwnSize is the encoded size of the record excluding children.
func (r *Record) OwnSize() int { return r.ownSize }

// TotalSize is the encoded size of the record including all descendants.
func (r *Record) TotalSize() int { return r.totalSize }

// Symbol returns the symbol at i, if it is in range.
func (r *Record) Symbol(i int) (Symbol, bool) {
	if i < 0 || i >= len(r.Syms) {
		return Symbol{}, false
	}
	return r.Syms[i], true
}

// PoolEntry returns the pool entry at i, if it is in range.
func (r *Record) PoolEntry(i int) (PoolEntry, bool) {
	if i < 0 || i >= len(r.Pool) {
		return PoolEntry{}, false
	}
	return r.Pool[i], true
}

// Child returns the child record at i, if it is in range.
func (r *Record) Child(i int) (*Record, bool) {
	if i < 0 || i >= len(r.Children) {
		return nil, false
	}
	return r.Children[i], true
}

// Shape renders the child counts of the tree: a root with two children,
// the second of which has one leaf child, is "2[0,1[0]]".
func (r *Record) Shape() string {
	parts := make([]string, len(r.Children))
	for i, ch := range r.Children {
		parts[i] = ch.Shape()
	}
	return shape(len(r.Children), parts)
}

func shape(n int, children []string) string {
	if n == 0 {
		return "0"
	}
	return strconv.Itoa(n) + "[" + strings.Join(children, ",") + "]"
}

// Count returns the number of records in the tree rooted at r.
func (r *Record) Count() int {
	n := 1
	for _, ch := range r.Children {
		n += ch.Count()
	}
	return n
}

type recordReader struct {
	rev      Revision
	maxDepth int
}

func (rr *recordReader) read(c *cursor, index, depth int) (*Record, error) {
	if depth > rr.maxDepth {
		return nil, fmt.Errorf("%w: record nesting exceeds %d levels at 0x%x",
			ErrMalformedContainer, rr.maxDepth, c.offset())
	}
	start := c.pos
	r := &Record{Index: index}

	var err error
	if r.Size, err = c.u32("record size"); err != nil {
		return nil, err
	}
	if r.NLocals, err = c.u16("record locals"); err != nil {
		return nil, err
	}
	if r.NRegs, err = c.u16("record registers"); err != nil {
		return nil, err
	}
	if rr.rev == Rev2 {
		if r.NChildren, err = c.u16("record children"); err != nil {
			return nil, err
		}
	}

	n, err := c.count(4, "iseq")
	if err != nil {
		return nil, err
	}
	r.Code = make([]isa.Code, n)
	for i := range r.Code {
		w, err := c.u32("iseq")
		if err != nil {
			return nil, err
		}
		r.Code[i] = isa.Code(w)
	}
	if r.Pool, err = readPool(c, rr.rev); err != nil {
		return nil, err
	}
	if r.Syms, err = readSymbols(c); err != nil {
		return nil, err
	}
	r.ownSize = c.pos - start

	if r.NChildren > 0 {
		if uint64(r.NChildren)*minRecordSize > uint64(c.remaining()) {
			return nil, fmt.Errorf("%w: %d children exceed %d remaining bytes at 0x%x",
				ErrTruncatedSection, r.NChildren, c.remaining(), c.offset())
		}
		r.Children = make([]*Record, 0, r.NChildren)
		for i := 0; i < int(r.NChildren); i++ {
			ch, err := rr.read(c, i, depth+1)
			if err != nil {
				return nil, err
			}
			r.Children = append(r.Children, ch)
		}
	}
	r.totalSize = c.pos - start

	// The declared size covers the record and its descendants. Compilers of
	// this format also emit the record's own size alone, which is accepted.
	if int(r.Size) != r.totalSize && int(r.Size) != r.ownSize {
		return nil, fmt.Errorf("%w: record at 0x%x declares %d bytes, decoded %d",
			ErrSizeMismatch, c.base+start, r.Size, r.totalSize)
	}
	return r, nil
}
