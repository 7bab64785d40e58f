package rite

import "fmt"

// PoolKind is the closed set of pool entry interpretations, independent of
// the revision-specific tag numbering.
type PoolKind uint8

const (
	PoolOther PoolKind = iota
	PoolString
	PoolFixnum
	PoolFloat
)

func (k PoolKind) String() string {
	switch k {
	case PoolString:
		return "STRING"
	case PoolFixnum:
		return "FIXNUM"
	case PoolFloat:
		return "FLOAT"
	default:
		return "OTHER"
	}
}

// Revision 1 tags reuse the runtime value type numbering.
var rev1TypeNames = [...]string{
	"FALSE", "FREE", "TRUE", "FIXNUM", "SYMBOL", "UNDEF", "FLOAT", "VOIDP",
	"OBJECT", "CLASS", "MODULE", "ICLASS", "SCLASS", "PROC", "ARRAY", "HASH",
	"STRING", "RANGE", "EXCEPTION", "FILE", "ENV", "DATA", "FIBER",
}

const (
	rev1TagFixnum = 3
	rev1TagFloat  = 6
	rev1TagString = 16

	rev2TagString = 0
	rev2TagFixnum = 1
	rev2TagFloat  = 2
)

// TypeName returns the display name of a raw pool tag under rev.
func TypeName(rev Revision, tag uint8) string {
	if rev == Rev1 {
		if int(tag) < len(rev1TypeNames) {
			return rev1TypeNames[tag]
		}
		return "UNKNOWN"
	}
	switch tag {
	case rev2TagString:
		return "STRING"
	case rev2TagFixnum:
		return "FIXNUM"
	case rev2TagFloat:
		return "FLOAT"
	}
	return "UNKNOWN"
}

func poolKind(rev Revision, tag uint8) PoolKind {
	if rev == Rev1 {
		switch tag {
		case rev1TagString:
			return PoolString
		case rev1TagFixnum:
			return PoolFixnum
		case rev1TagFloat:
			return PoolFloat
		}
		return PoolOther
	}
	switch tag {
	case rev2TagString:
		return PoolString
	case rev2TagFixnum:
		return PoolFixnum
	case rev2TagFloat:
		return PoolFloat
	}
	return PoolOther
}

// PoolEntry is one literal constant. Numbers are kept in their textual
// serialized form; only strings are interpreted by the disassembler.
type PoolEntry struct {
	Tag   uint8
	Kind  PoolKind
	Value []byte
}

// TypeName returns the tag's display name under rev.
func (e PoolEntry) TypeName(rev Revision) string { return TypeName(rev, e.Tag) }

// Symbol is one symbol table entry. Null symbols carry no name.
type Symbol struct {
	Name string
	Null bool
}

// nullLength marks a null symbol or an unnamed local slot.
const nullLength = 0xffff

// readPool decodes: count u32, then count × {tag u8, len u16, bytes}.
func readPool(c *cursor, rev Revision) ([]PoolEntry, error) {
	n, err := c.count(3, "pool")
	if err != nil {
		return nil, err
	}
	pool := make([]PoolEntry, 0, n)
	for i := 0; i < n; i++ {
		tag, err := c.u8("pool tag")
		if err != nil {
			return nil, err
		}
		l, err := c.u16("pool length")
		if err != nil {
			return nil, err
		}
		b, err := c.bytes(int(l), fmt.Sprintf("pool[%d]", i))
		if err != nil {
			return nil, err
		}
		pool = append(pool, PoolEntry{
			Tag:   tag,
			Kind:  poolKind(rev, tag),
			Value: append([]byte(nil), b...),
		})
	}
	return pool, nil
}

// readSymbols decodes: count u32, then count × {len u16, bytes, NUL}.
// A length of 0xffff is a null symbol with neither bytes nor terminator.
func readSymbols(c *cursor) ([]Symbol, error) {
	n, err := c.count(2, "symbol")
	if err != nil {
		return nil, err
	}
	syms := make([]Symbol, 0, n)
	for i := 0; i < n; i++ {
		l, err := c.u16("symbol length")
		if err != nil {
			return nil, err
		}
		if l == nullLength {
			syms = append(syms, Symbol{Null: true})
			continue
		}
		b, err := c.bytes(int(l)+1, fmt.Sprintf("sym[%d]", i))
		if err != nil {
			return nil, err
		}
		syms = append(syms, Symbol{Name: string(b[:l])})
	}
	return syms, nil
}

// readNames decodes the LVAR name pool: count u32, then count × {len u16, bytes}.
func readNames(c *cursor) ([]string, error) {
	n, err := c.count(2, "lvar name")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		l, err := c.u16("lvar name length")
		if err != nil {
			return nil, err
		}
		b, err := c.bytes(int(l), fmt.Sprintf("lvar name[%d]", i))
		if err != nil {
			return nil, err
		}
		names = append(names, string(b))
	}
	return names, nil
}
