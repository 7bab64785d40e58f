// Package ritetest builds RITE images for tests, including deliberately
// corrupt ones.
package ritetest

import (
	"encoding/binary"

	"ritedump/internal/isa"
)

// NullSymbol in Rec.Syms is written as a null symbol (length 0xffff).
const NullSymbol = "\x00null"

// NullName in Scope entries marks an unnamed register.
const NullName = 0xffff

// Pool is one literal constant.
type Pool struct {
	Tag   uint8
	Value string
}

// Rec is one record. Children are only written for revision 2.
type Rec struct {
	NLocals  uint16
	NRegs    uint16
	Code     []isa.Code
	Pool     []Pool
	Syms     []string
	Children []*Rec

	// SizeDelta is added to the declared size.
	SizeDelta int
	// OwnSizeOnly declares the record's own size without its children.
	OwnSizeOnly bool
}

func (r *Rec) body(rev int) []byte {
	var b []byte
	b = be32(b, uint32(len(r.Code)))
	for _, c := range r.Code {
		b = be32(b, uint32(c))
	}
	b = be32(b, uint32(len(r.Pool)))
	for _, p := range r.Pool {
		b = append(b, p.Tag)
		b = be16(b, uint16(len(p.Value)))
		b = append(b, p.Value...)
	}
	b = be32(b, uint32(len(r.Syms)))
	for _, s := range r.Syms {
		if s == NullSymbol {
			b = be16(b, 0xffff)
			continue
		}
		b = be16(b, uint16(len(s)))
		b = append(b, s...)
		b = append(b, 0)
	}
	return b
}

// Bytes encodes the record under revision rev (1 or 2).
func (r *Rec) Bytes(rev int) []byte {
	hdr := 8
	if rev >= 2 {
		hdr = 10
	}
	body := r.body(rev)
	var kids []byte
	if rev >= 2 {
		for _, ch := range r.Children {
			kids = append(kids, ch.Bytes(rev)...)
		}
	}
	size := hdr + len(body) + len(kids)
	if r.OwnSizeOnly {
		size = hdr + len(body)
	}
	size += r.SizeDelta

	var b []byte
	b = be32(b, uint32(size))
	b = be16(b, r.NLocals)
	b = be16(b, r.NRegs)
	if rev >= 2 {
		b = be16(b, uint16(len(r.Children)))
	}
	b = append(b, body...)
	return append(b, kids...)
}

// Entry names one register.
type Entry struct {
	Name uint16 // index into Lvar.Names, or NullName
	Reg  uint16
}

// Scope is the local variable table of one record.
type Scope struct {
	Entries  []Entry
	Children []*Scope
}

// Lvar is an LVAR section body.
type Lvar struct {
	Names []string
	Root  *Scope
}

func (s *Scope) bytes(b []byte) []byte {
	for _, e := range s.Entries {
		b = be16(b, e.Name)
		b = be16(b, e.Reg)
	}
	for _, ch := range s.Children {
		b = ch.bytes(b)
	}
	return b
}

// Bytes encodes the LVAR body (without the section header).
func (l *Lvar) Bytes() []byte {
	var b []byte
	b = be32(b, uint32(len(l.Names)))
	for _, n := range l.Names {
		b = be16(b, uint16(len(n)))
		b = append(b, n...)
	}
	if l.Root != nil {
		b = l.Root.bytes(b)
	}
	return b
}

// Image accumulates a container.
type Image struct {
	Rev      int
	Version  string // overrides the header version when set
	Magic    string // overrides the header magic when set
	Compiler string
	CompVer  string
	// SizeDelta is added to the header size field.
	SizeDelta int
	// BadCRC flips the stored checksum.
	BadCRC bool

	sections []byte
}

// New starts an image of revision rev (1 or 2).
func New(rev int) *Image {
	return &Image{Rev: rev, Compiler: "MATZ", CompVer: "0000"}
}

// Section appends a raw section with the given signature and body. The
// declared size is header plus body, adjusted by delta.
func (im *Image) Section(sig string, body []byte, delta int) *Image {
	im.sections = append(im.sections, sig...)
	im.sections = be32(im.sections, uint32(8+len(body)+delta))
	im.sections = append(im.sections, body...)
	return im
}

// Irep appends an IREP section. Revision 2 writes recs[0] as the root;
// revision 1 writes every record as a flat list.
func (im *Image) Irep(recs ...*Rec) *Image {
	var body []byte
	if im.Rev >= 2 {
		body = append(body, "0000"...)
		if len(recs) > 0 {
			body = append(body, recs[0].Bytes(im.Rev)...)
		}
	} else {
		body = append(body, "0000"...)
		body = be16(body, uint16(len(recs)))
		body = be16(body, 0)
		for _, r := range recs {
			body = append(body, r.Bytes(im.Rev)...)
		}
	}
	return im.Section("IREP", body, 0)
}

// Line appends a LINE section with the given count and start.
func (im *Image) Line(count, start uint16) *Image {
	var body []byte
	body = be16(body, count)
	body = be16(body, start)
	return im.Section("LINE", body, 0)
}

// Lvar appends an LVAR section.
func (im *Image) Lvar(l *Lvar) *Image {
	return im.Section("LVAR", l.Bytes(), 0)
}

// End appends the end marker.
func (im *Image) End() *Image {
	return im.Section("END\x00", nil, 0)
}

// Append adds raw bytes after the sections written so far.
func (im *Image) Append(b []byte) *Image {
	im.sections = append(im.sections, b...)
	return im
}

// Bytes returns the finished image with size and checksum filled in.
func (im *Image) Bytes() []byte {
	magic := im.Magic
	if magic == "" {
		magic = "RITE"
	}
	ver := im.Version
	if ver == "" {
		ver = "0002"
		if im.Rev == 1 {
			ver = "0001"
		}
	}
	b := make([]byte, 0, 22+len(im.sections))
	b = append(b, pad4(magic)...)
	b = append(b, pad4(ver)...)
	b = be16(b, 0)
	b = be32(b, uint32(22+len(im.sections)+im.SizeDelta))
	b = append(b, pad4(im.Compiler)...)
	b = append(b, pad4(im.CompVer)...)
	b = append(b, im.sections...)

	crc := Checksum(b)
	if im.BadCRC {
		crc ^= 0xffff
	}
	binary.BigEndian.PutUint16(b[8:], crc)
	return b
}

// Checksum mirrors the container CRC so fixtures do not depend on the decoder.
func Checksum(buf []byte) uint16 {
	var a uint32
	for _, c := range buf[10:] {
		a |= uint32(c)
		for i := 0; i < 8; i++ {
			a <<= 1
			if a&0x01000000 != 0 {
				a ^= 0x01102100
			}
		}
	}
	return uint16(a >> 8)
}

func pad4(s string) []byte {
	b := []byte(s)
	for len(b) < 4 {
		b = append(b, 0)
	}
	return b[:4]
}

func be16(b []byte, v uint16) []byte { return binary.BigEndian.AppendUint16(b, v) }
func be32(b []byte, v uint32) []byte { return binary.BigEndian.AppendUint32(b, v) }
