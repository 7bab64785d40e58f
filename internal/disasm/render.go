package disasm

import (
	"fmt"
	"strings"

	"ritedump/internal/isa"
	"ritedump/internal/rite"
)

// frame is everything an instruction may reference while rendering.
type frame struct {
	rev   rite.Revision
	rec   *rite.Record
	scope *rite.LocalScope
	// flat is the section's record list under revision 1, where closure
	// operands are offsets from rec.Index into this list.
	flat []*rite.Record
}

func (f frame) reg(i uint32) string {
	if name, ok := f.scope.Lookup(i); ok {
		return name
	}
	return fmt.Sprintf("reg[%d]", i)
}

func (f frame) sym(i uint32) (string, *Diag) {
	s, ok := f.rec.Symbol(int(i))
	if !ok {
		return "", &Diag{Kind: SymbolOutOfRange, Index: int(i)}
	}
	if s.Null {
		return "<null>", nil
	}
	return s.Name, nil
}

// Render renders every instruction of rec. scope may be nil.
func Render(rev rite.Revision, rec *rite.Record, scope *rite.LocalScope, flat []*rite.Record) Stream {
	f := frame{rev: rev, rec: rec, scope: scope, flat: flat}
	out := make(Stream, len(rec.Code))
	for pc, c := range rec.Code {
		out[pc] = f.inst(pc, c)
	}
	return out
}

func (f frame) inst(pc int, c isa.Code) Inst {
	in := Inst{PC: pc, Code: c, Op: c.Opcode().String()}
	text, d := f.text(c)
	if d != nil {
		in.Diag = d
		text = d.Error()
	}
	in.Text = text
	return in
}

func (f frame) text(c isa.Code) (string, *Diag) {
	a := c.A()
	switch c.Opcode() {
	case isa.OpMove:
		return fmt.Sprintf("%s = %s", f.reg(a), f.reg(c.B())), nil
	case isa.OpLoadI:
		return fmt.Sprintf("%s = %d", f.reg(a), c.SBx()), nil
	case isa.OpLoadSym:
		s, d := f.sym(c.Bx())
		if d != nil {
			return "", d
		}
		return fmt.Sprintf("%s = :%s", f.reg(a), s), nil
	case isa.OpLoadNil:
		return f.reg(a) + " = nil", nil
	case isa.OpLoadSelf:
		return f.reg(a) + " = self", nil
	case isa.OpLoadT:
		return f.reg(a) + " = true", nil
	case isa.OpLoadF:
		return f.reg(a) + " = false", nil
	case isa.OpGetGlobal:
		s, d := f.sym(c.Bx())
		if d != nil {
			return "", d
		}
		return fmt.Sprintf("%s = getglobal(:%s)", f.reg(a), s), nil
	case isa.OpSetGlobal:
		s, d := f.sym(c.Bx())
		if d != nil {
			return "", d
		}
		return fmt.Sprintf("setglobal(:%s, %s)", s, f.reg(a)), nil
	case isa.OpGetConst:
		s, d := f.sym(c.Bx())
		if d != nil {
			return "", d
		}
		return fmt.Sprintf("%s = constget(:%s)", f.reg(a), s), nil
	case isa.OpJmp:
		return fmt.Sprintf("jmp(cur + %d)", c.SBx()), nil
	case isa.OpJmpIf:
		return fmt.Sprintf("jmp(cur + %d) if %s", c.SBx(), f.reg(a)), nil
	case isa.OpJmpNot:
		return fmt.Sprintf("jmp(cur + %d) if !%s", c.SBx(), f.reg(a)), nil
	case isa.OpSend:
		return f.send(c)
	case isa.OpEnter:
		return f.enter(c.Aspec()), nil
	case isa.OpReturn:
		k, err := c.ReturnKind()
		if err != nil {
			return "", &Diag{Kind: InvalidReturnFlag, Index: int(k)}
		}
		return fmt.Sprintf("return(%s, %s)", f.reg(a), k), nil
	case isa.OpString:
		return f.str(c)
	case isa.OpLambda:
		target, d := f.closure(c.Bz())
		if d != nil {
			return "", d
		}
		text := fmt.Sprintf("%s = lambda(%s", f.reg(a), target)
		if flags := c.LambdaFlags().String(); flags != "" {
			text += ", " + flags
		}
		return text + ")", nil
	case isa.OpClass:
		s, d := f.sym(c.B())
		if d != nil {
			return "", d
		}
		return fmt.Sprintf("%s = newclass(%s, :%s, %s)", f.reg(a), f.reg(a), s, f.reg(a+1)), nil
	case isa.OpExec:
		target, d := f.closure(c.Bx())
		if d != nil {
			return "", d
		}
		return fmt.Sprintf("%s = blockexec(%s, %s)", f.reg(a), f.reg(a), target), nil
	case isa.OpMethod:
		s, d := f.sym(c.B())
		if d != nil {
			return "", d
		}
		return fmt.Sprintf("%s.new_method(:%s, %s)", f.reg(a), s, f.reg(a+1)), nil
	case isa.OpSClass:
		return fmt.Sprintf("%s = %s.singleton_class", f.reg(a), f.reg(c.B())), nil
	case isa.OpTClass:
		return f.reg(a) + " = target_class", nil
	case isa.OpStop:
		return "stop", nil
	}
	if !c.Opcode().Known() {
		return "", &Diag{Kind: UnknownOpcode, Index: int(c.Opcode())}
	}
	// Opcodes without a source-level template show their raw operands.
	return c.String(), nil
}

func (f frame) send(c isa.Code) (string, *Diag) {
	s, d := f.sym(c.B())
	if d != nil {
		return "", d
	}
	a := c.A()
	var b strings.Builder
	fmt.Fprintf(&b, "%s = call(%s, \"%s\"", f.reg(a), f.reg(a), s)
	if c.C() == isa.CallMaxArgs {
		fmt.Fprintf(&b, ", *%s", f.reg(a+1))
	} else {
		for i := a + 1; i <= a+c.C(); i++ {
			b.WriteString(", ")
			b.WriteString(f.reg(i))
		}
	}
	b.WriteString(")")
	return b.String(), nil
}

// enter lists parameters in slot order; slot 0 is self.
func (f frame) enter(s isa.Aspec) string {
	var args []string
	next := func() string { return f.reg(uint32(len(args) + 1)) }
	for i := uint32(0); i < s.Req; i++ {
		args = append(args, next())
	}
	for i := uint32(0); i < s.Opt; i++ {
		args = append(args, next()+" = ...")
	}
	if s.Rest {
		args = append(args, "*"+next())
	}
	for i := uint32(0); i < s.Post; i++ {
		args = append(args, next())
	}
	if s.Block {
		args = append(args, "&"+next())
	}
	if len(args) == 0 {
		return "lambda do"
	}
	return "lambda do |" + strings.Join(args, ", ") + "|"
}

func (f frame) str(c isa.Code) (string, *Diag) {
	idx := c.Bx()
	e, ok := f.rec.PoolEntry(int(idx))
	if !ok {
		return "", &Diag{Kind: PoolOutOfRange, Index: int(idx)}
	}
	if e.Kind != rite.PoolString {
		return "", &Diag{Kind: TypeMismatch, Index: int(idx), Actual: e.TypeName(f.rev)}
	}
	return fmt.Sprintf("%s = \"%s\"", f.reg(c.A()), e.Value), nil
}

// closure resolves a LAMBDA or EXEC operand. Revision 1 adds it to the
// record's position in the flat list; later revisions index the child list.
func (f frame) closure(operand uint32) (string, *Diag) {
	if f.rev == rite.Rev1 {
		target := f.rec.Index + int(operand)
		if target >= len(f.flat) {
			return "", &Diag{Kind: IrepOutOfRange, Index: target}
		}
		return fmt.Sprintf("irep[%d]", target), nil
	}
	if _, ok := f.rec.Child(int(operand)); !ok {
		return "", &Diag{Kind: IrepOutOfRange, Index: int(operand)}
	}
	return fmt.Sprintf("child[%d]", operand), nil
}
