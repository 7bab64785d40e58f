package rite

import (
	"fmt"
	"strconv"
)

const (
	// Magic is the container signature.
	Magic = "RITE"

	// HeaderSize is the fixed size of the container header.
	HeaderSize = 22

	// checksumStart is where the CRC coverage begins: after magic, version and the CRC field.
	checksumStart = 10

	crcPoly = 0x01102100
)

// Revision selects the revision-specific parsing rules.
type Revision uint8

const (
	RevAuto Revision = 0
	Rev1    Revision = 1 // "0001": flat record list
	Rev2    Revision = 2 // "0002": record tree, LVAR section
)

func (r Revision) String() string {
	switch r {
	case Rev1:
		return "0001"
	case Rev2:
		return "0002"
	default:
		return "auto"
	}
}

// ParseRevision accepts "1", "2", "0001", "0002" or "auto"/"0"/"".
func ParseRevision(s string) (Revision, error) {
	switch s {
	case "", "0", "auto":
		return RevAuto, nil
	case "1", "0001":
		return Rev1, nil
	case "2", "0002":
		return Rev2, nil
	}
	return RevAuto, fmt.Errorf("unknown revision %q", s)
}

func revisionOf(version string) (Revision, bool) {
	switch version {
	case "0001":
		return Rev1, true
	case "0002":
		return Rev2, true
	}
	return RevAuto, false
}

// Header is the 22-byte container header.
type Header struct {
	Magic           string
	Version         string
	CRC             uint16
	Size            uint32
	CompilerName    string
	CompilerVersion string
}

// Checksum computes the 16-bit bit-serial CRC stored in the header.
// It covers everything from offset 10 to the end of buf.
func Checksum(buf []byte) uint16 {
	if len(buf) <= checksumStart {
		return 0
	}
	var a uint32
	for _, b := range buf[checksumStart:] {
		a |= uint32(b)
		for i := 0; i < 8; i++ {
			a <<= 1
			if a&0x01000000 != 0 {
				a ^= crcPoly
			}
		}
	}
	return uint16(a >> 8)
}

// readHeader parses and validates the header. want forces a revision; RevAuto
// accepts either and reports the one found.
func readHeader(c *cursor, want Revision) (Header, Revision, error) {
	var h Header
	if c.remaining() < HeaderSize {
		return h, RevAuto, fmt.Errorf("%w: %d bytes is shorter than the %d byte header",
			ErrMalformedContainer, c.remaining(), HeaderSize)
	}
	magic, _ := c.bytes(4, "magic")
	ver, _ := c.bytes(4, "version")
	h.Magic = string(magic)
	h.Version = string(ver)
	h.CRC, _ = c.u16("crc")
	h.Size, _ = c.u32("size")
	name, _ := c.bytes(4, "compiler name")
	cver, _ := c.bytes(4, "compiler version")
	h.CompilerName = string(name)
	h.CompilerVersion = string(cver)

	if h.Magic != Magic {
		return h, RevAuto, fmt.Errorf("%w: signature %s", ErrMalformedContainer, strconv.Quote(h.Magic))
	}
	rev, ok := revisionOf(h.Version)
	if !ok {
		return h, RevAuto, fmt.Errorf("%w: version %s", ErrMalformedContainer, strconv.Quote(h.Version))
	}
	if want != RevAuto && want != rev {
		return h, RevAuto, fmt.Errorf("%w: version %s, expected %s", ErrMalformedContainer, strconv.Quote(h.Version), want)
	}
	return h, rev, nil
}
