// Package disasm renders decoded RITE records as text. Operand indices are
// resolved here, so a bad index becomes a Diag on its own line instead of a
// decode failure.
package disasm

import (
	"fmt"
	"strconv"
	"strings"

	"ritedump/internal/isa"
	"ritedump/internal/rite"
)

// Inst is one rendered instruction.
type Inst struct {
	PC   int      // index within the record's instruction array
	Code isa.Code // raw word
	Op   string   // mnemonic
	Text string   // rendered line, or the diagnostic text when Diag is set
	Diag *Diag
}

// Stream is the rendered instruction array of one record.
type Stream []Inst

// Diags returns the instructions that carry a diagnostic.
func (s Stream) Diags() []Diag {
	var out []Diag
	for _, in := range s {
		if in.Diag != nil {
			out = append(out, *in.Diag)
		}
	}
	return out
}

// DiagKind classifies instruction-local failures.
type DiagKind uint8

const (
	SymbolOutOfRange DiagKind = iota + 1
	PoolOutOfRange
	IrepOutOfRange
	TypeMismatch
	InvalidReturnFlag
	UnknownOpcode
)

func (k DiagKind) String() string {
	switch k {
	case SymbolOutOfRange:
		return "SymbolOutOfRange"
	case PoolOutOfRange:
		return "PoolOutOfRange"
	case IrepOutOfRange:
		return "IrepOutOfRange"
	case TypeMismatch:
		return "TypeMismatch"
	case InvalidReturnFlag:
		return "InvalidReturnFlag"
	case UnknownOpcode:
		return "UnknownOpcode"
	}
	return "Diag(" + strconv.Itoa(int(k)) + ")"
}

// Diag is a non-fatal problem with a single instruction.
type Diag struct {
	Kind   DiagKind
	Index  int    // offending operand, flag or opcode value
	Actual string // TypeMismatch only
}

func (d Diag) Error() string {
	switch d.Kind {
	case SymbolOutOfRange:
		return fmt.Sprintf("Error: Symbol table out of range(%d)", d.Index)
	case PoolOutOfRange:
		return fmt.Sprintf("Error: Pool table out of range(%d)", d.Index)
	case IrepOutOfRange:
		return fmt.Sprintf("Error: IREP table out of range(%d)", d.Index)
	case TypeMismatch:
		return fmt.Sprintf("Error: Type mismatch(expected: STRING, actual: %s)", d.Actual)
	case InvalidReturnFlag:
		return fmt.Sprintf("Error: Unknown flag(%d)", d.Index)
	case UnknownOpcode:
		return fmt.Sprintf("Error: unknown op(%2d)", d.Index)
	}
	return "Error: " + d.Kind.String()
}

// Path is the list of child indices from the root record. It is a value:
// Child returns a new slice and never aliases the receiver.
type Path []int

// Child returns p extended by i.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// String renders "->child[0]->child[2]"; the root is "".
func (p Path) String() string {
	var b strings.Builder
	for _, i := range p {
		b.WriteString("->child[")
		b.WriteString(strconv.Itoa(i))
		b.WriteString("]")
	}
	return b.String()
}

// Block is one rendered record.
type Block struct {
	Label  string // "irep->child[1]" or "irep[3]"
	Path   Path
	Record *rite.Record
	Scope  *rite.LocalScope
	Insts  Stream
}

// Lines returns the block as printed: banner, frame sizes, instructions and a
// trailing blank line.
func (b Block) Lines() []string {
	lines := make([]string, 0, len(b.Insts)+4)
	lines = append(lines,
		b.Label,
		fmt.Sprintf("local: %d", b.Record.NLocals),
		fmt.Sprintf("register: %d", b.Record.NRegs),
	)
	for _, in := range b.Insts {
		lines = append(lines, in.Text)
	}
	return append(lines, "")
}
