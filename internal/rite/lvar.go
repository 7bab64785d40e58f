package rite

import (
	"fmt"
	"strings"
)

// LocalVars is the decoded body of an LVAR section: one name pool shared by
// a scope tree that mirrors the record tree it annotates.
type LocalVars struct {
	Names []string
	Root  *LocalScope
}

// LocalScope holds the named registers of one record. Register 0 (self) is
// never listed.
type LocalScope struct {
	Entries  []LocalEntry
	Children []*LocalScope
}

// LocalEntry maps a register to a name pool entry.
type LocalEntry struct {
	Name      string
	NameIndex uint16
	Register  uint16
	Null      bool // name index 0xffff, the slot has no source name
}

// Lookup returns the source name of register reg in this scope.
func (s *LocalScope) Lookup(reg uint32) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, e := range s.Entries {
		if uint32(e.Register) == reg && !e.Null {
			return e.Name, true
		}
	}
	return "", false
}

// Child returns the scope of child record i, or nil.
func (s *LocalScope) Child(i int) *LocalScope {
	if s == nil || i < 0 || i >= len(s.Children) {
		return nil
	}
	return s.Children[i]
}

// Shape renders the child counts in the same form as Record.Shape.
func (s *LocalScope) Shape() string {
	parts := make([]string, len(s.Children))
	for i, ch := range s.Children {
		parts[i] = ch.Shape()
	}
	return shape(len(s.Children), parts)
}

func (s *LocalScope) String() string {
	var b strings.Builder
	for i, e := range s.Entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "reg[%d]=%s", e.Register, e.Name)
	}
	return b.String()
}

type lvarReader struct {
	names    []string
	maxDepth int
}

// readLocalVars decodes an LVAR body against the record tree rooted at root.
// The body must be consumed exactly.
func readLocalVars(c *cursor, root *Record, maxDepth int) (*LocalVars, error) {
	names, err := readNames(c)
	if err != nil {
		return nil, err
	}
	lr := &lvarReader{names: names, maxDepth: maxDepth}
	scope, err := lr.scope(c, root, 0)
	if err != nil {
		return nil, err
	}
	if c.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d bytes left over after local variables at 0x%x",
			ErrSizeMismatch, c.remaining(), c.offset())
	}
	return &LocalVars{Names: names, Root: scope}, nil
}

func (lr *lvarReader) scope(c *cursor, r *Record, depth int) (*LocalScope, error) {
	if depth > lr.maxDepth {
		return nil, fmt.Errorf("%w: local variable nesting exceeds %d levels", ErrMalformedContainer, lr.maxDepth)
	}
	n := 0
	if r.NRegs > 0 {
		n = int(r.NRegs) - 1
	}
	if err := c.need(n*4, "lvar entries"); err != nil {
		return nil, err
	}
	s := &LocalScope{Entries: make([]LocalEntry, 0, n)}
	for i := 0; i < n; i++ {
		idx, _ := c.u16("lvar name index")
		reg, _ := c.u16("lvar register")
		e := LocalEntry{NameIndex: idx, Register: reg}
		switch {
		case idx == nullLength:
			e.Null = true
		case int(idx) >= len(lr.names):
			return nil, fmt.Errorf("%w: lvar name index %d out of range (%d names) at 0x%x",
				ErrMalformedContainer, idx, len(lr.names), c.offset()-4)
		default:
			e.Name = lr.names[idx]
		}
		s.Entries = append(s.Entries, e)
	}
	if len(r.Children) > 0 {
		s.Children = make([]*LocalScope, 0, len(r.Children))
		for _, ch := range r.Children {
			cs, err := lr.scope(c, ch, depth+1)
			if err != nil {
				return nil, err
			}
			s.Children = append(s.Children, cs)
		}
	}
	return s, nil
}
