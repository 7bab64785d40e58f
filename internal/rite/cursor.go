package rite

import (
	"encoding/binary"
	"fmt"
)

// cursor walks a read-only byte slice. Every read is bounds-checked against
// the bytes left, so a corrupt count can never index past the buffer.
type cursor struct {
	data []byte
	pos  int
	base int // absolute offset of data[0] within the image, for messages
}

func newCursor(data []byte, base int) *cursor {
	return &cursor{data: data, base: base}
}

func (c *cursor) remaining() int { return len(c.data) - c.pos }

func (c *cursor) offset() int { return c.base + c.pos }

func (c *cursor) need(n int, what string) error {
	if n < 0 || c.remaining() < n {
		return fmt.Errorf("%w: %s needs %d bytes at 0x%x, %d left",
			ErrTruncatedSection, what, n, c.offset(), c.remaining())
	}
	return nil
}

func (c *cursor) u8(what string) (uint8, error) {
	if err := c.need(1, what); err != nil {
		return 0, err
	}
	v := c.data[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) u16(what string) (uint16, error) {
	if err := c.need(2, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32(what string) (uint32, error) {
	if err := c.need(4, what); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

// bytes returns a sub-slice of the image; callers copy when they keep it.
func (c *cursor) bytes(n int, what string) ([]byte, error) {
	if err := c.need(n, what); err != nil {
		return nil, err
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// count reads a u32 element count and rejects it when even the smallest
// encoding of that many elements cannot fit in what is left.
func (c *cursor) count(minElem int, what string) (int, error) {
	n, err := c.u32(what + " count")
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(minElem) > uint64(c.remaining()) {
		return 0, fmt.Errorf("%w: %s count %d exceeds %d remaining bytes at 0x%x",
			ErrTruncatedSection, what, n, c.remaining(), c.offset())
	}
	return int(n), nil
}
