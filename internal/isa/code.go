package isa

import (
	"errors"
	"fmt"
)

// Field widths and offsets, counted from the least-significant bit.
const (
	opBits = 7
	opMask = 1<<opBits - 1

	aShift  = 23
	aMask   = 0x1ff
	bShift  = 14
	bMask   = 0x1ff
	cShift  = 7
	cMask   = 0x7f
	bxShift = 7
	bxMask  = 0xffff
	bzShift = 9
	bzMask  = 0x3fff
	czShift = 7
	czMask  = 0x3
	axShift = 7
	axMask  = 0x1ffffff

	// MaxArgBias is subtracted from Bx to obtain the signed form sBx.
	MaxArgBias = 0x7fff

	// CallMaxArgs in the C field of SEND marks a splatted argument array.
	CallMaxArgs = 127
)

// Code is one big-endian instruction word after byte swapping.
// Operand indices are not resolved here; see package disasm.
type Code uint32

// Opcode returns the low 7 bits.
func (c Code) Opcode() Opcode { return Opcode(uint32(c) & opMask) }

// A returns the 9-bit A field (bits 23..31), shared by ABC, ABx and ABzCz.
func (c Code) A() uint32 { return uint32(c) >> aShift & aMask }

// B returns the 9-bit B field of layout ABC.
func (c Code) B() uint32 { return uint32(c) >> bShift & bMask }

// C returns the 7-bit C field of layout ABC.
func (c Code) C() uint32 { return uint32(c) >> cShift & cMask }

// Bx returns the unsigned 16-bit Bx field of layout ABx.
func (c Code) Bx() uint32 { return uint32(c) >> bxShift & bxMask }

// SBx returns Bx in its biased signed form: 0x7fff is zero.
func (c Code) SBx() int32 { return int32(c.Bx()) - MaxArgBias }

// Bz returns the 14-bit Bz field of layout ABzCz.
func (c Code) Bz() uint32 { return uint32(c) >> bzShift & bzMask }

// Cz returns the 2-bit Cz field of layout ABzCz.
func (c Code) Cz() uint32 { return uint32(c) >> czShift & czMask }

// Ax returns the 25-bit opaque descriptor of layout Ax.
func (c Code) Ax() uint32 { return uint32(c) >> axShift & axMask }

// String renders the raw fields under the opcode's layout, e.g. "MOVE A=0 B=1 C=0".
func (c Code) String() string {
	op := c.Opcode()
	switch op.Layout() {
	case LayoutABC:
		return fmt.Sprintf("%s A=%d B=%d C=%d", op, c.A(), c.B(), c.C())
	case LayoutABx:
		return fmt.Sprintf("%s A=%d Bx=%d", op, c.A(), c.Bx())
	case LayoutABzCz:
		return fmt.Sprintf("%s A=%d Bz=%d Cz=%d", op, c.A(), c.Bz(), c.Cz())
	case LayoutAx:
		return fmt.Sprintf("%s Ax=0x%07x", op, c.Ax())
	default:
		return op.String()
	}
}

// MkABC packs an ABC word. Out-of-range operands are truncated to their field width.
func MkABC(op Opcode, a, b, c uint32) Code {
	return Code((a&aMask)<<aShift | (b&bMask)<<bShift | (c&cMask)<<cShift | uint32(op)&opMask)
}

// MkABx packs an ABx word with an unsigned Bx.
func MkABx(op Opcode, a, bx uint32) Code {
	return Code((a&aMask)<<aShift | (bx&bxMask)<<bxShift | uint32(op)&opMask)
}

// MkAsBx packs an ABx word from a signed offset.
func MkAsBx(op Opcode, a uint32, sbx int32) Code {
	return MkABx(op, a, uint32(sbx+MaxArgBias))
}

// MkABzCz packs an ABzCz word.
func MkABzCz(op Opcode, a, bz, cz uint32) Code {
	return Code((a&aMask)<<aShift | (bz&bzMask)<<bzShift | (cz&czMask)<<czShift | uint32(op)&opMask)
}

// MkAx packs an Ax word.
func MkAx(op Opcode, ax uint32) Code {
	return Code((ax&axMask)<<axShift | uint32(op)&opMask)
}

// ErrInvalidReturnFlag is reported for a RETURN whose B field is not a known kind.
var ErrInvalidReturnFlag = errors.New("invalid return flag")

// ReturnKind is the B operand of RETURN.
type ReturnKind uint32

const (
	ReturnNormal ReturnKind = 0
	ReturnBreak  ReturnKind = 1
	ReturnReturn ReturnKind = 2
)

func (k ReturnKind) String() string {
	switch k {
	case ReturnNormal:
		return "OP_R_NORMAL"
	case ReturnBreak:
		return "OP_R_BREAK"
	case ReturnReturn:
		return "OP_R_RETURN"
	default:
		return fmt.Sprintf("OP_R_%d", uint32(k))
	}
}

// ReturnKind decodes the B field of a RETURN word.
func (c Code) ReturnKind() (ReturnKind, error) {
	k := ReturnKind(c.B())
	switch k {
	case ReturnNormal, ReturnBreak, ReturnReturn:
		return k, nil
	}
	return k, fmt.Errorf("%w: %d", ErrInvalidReturnFlag, uint32(k))
}

// LambdaFlag is the Cz operand of LAMBDA.
type LambdaFlag uint32

const (
	LambdaStrict  LambdaFlag = 1
	LambdaCapture LambdaFlag = 2
)

// String joins the set flags with " | ", or returns "" when none is set.
func (f LambdaFlag) String() string {
	switch f & (LambdaStrict | LambdaCapture) {
	case LambdaStrict:
		return "OP_L_STRICT"
	case LambdaCapture:
		return "OP_L_CAPTURE"
	case LambdaStrict | LambdaCapture:
		return "OP_L_STRICT | OP_L_CAPTURE"
	}
	return ""
}

// LambdaFlags decodes the Cz field of a LAMBDA word.
func (c Code) LambdaFlags() LambdaFlag { return LambdaFlag(c.Cz()) }
