package isa

import (
	"errors"
	"math/rand"
	"testing"
)

func TestABCRepack(t *testing.T) {
	words := []uint32{0, 0xffffffff, 0x00800001, 0x12345678, 0xdeadbeef, 0x7fffff80}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		words = append(words, rng.Uint32())
	}

	for _, w := range words {
		c := Code(w)
		got := MkABC(c.Opcode(), c.A(), c.B(), c.C())
		if uint32(got)&0x3fffffff != w&0x3fffffff {
			t.Fatalf("repack 0x%08x: got 0x%08x", w, uint32(got))
		}
	}
}

func TestSBxBias(t *testing.T) {
	tests := []struct {
		bx   uint32
		want int32
	}{
		{0x7fff, 0},
		{0x8000, 1},
		{0x7ffe, -1},
		{0x0000, -0x7fff},
		{0xffff, 0x8000},
	}

	for _, tt := range tests {
		c := MkABx(OpJmp, 0, tt.bx)
		if got := c.SBx(); got != tt.want {
			t.Errorf("Bx=0x%04x: SBx() = %d, want %d", tt.bx, got, tt.want)
		}
		if back := MkAsBx(OpJmp, 0, tt.want); back != c {
			t.Errorf("MkAsBx(%d) = 0x%08x, want 0x%08x", tt.want, uint32(back), uint32(c))
		}
	}
}

func TestFieldExtraction(t *testing.T) {
	tests := []struct {
		name string
		code Code
		op   Opcode
		a    uint32
		b    uint32
		c    uint32
	}{
		{"move", MkABC(OpMove, 0, 1, 0), OpMove, 0, 1, 0},
		{"send max", MkABC(OpSend, 511, 511, 127), OpSend, 511, 511, 127},
		{"return break", MkABC(OpReturn, 3, 1, 0), OpReturn, 3, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code.Opcode() != tt.op {
				t.Errorf("Opcode() = %v, want %v", tt.code.Opcode(), tt.op)
			}
			if tt.code.A() != tt.a || tt.code.B() != tt.b || tt.code.C() != tt.c {
				t.Errorf("A,B,C = %d,%d,%d want %d,%d,%d",
					tt.code.A(), tt.code.B(), tt.code.C(), tt.a, tt.b, tt.c)
			}
		})
	}

	lz := MkABzCz(OpLambda, 4, 0x2abc, 3)
	if lz.A() != 4 || lz.Bz() != 0x2abc || lz.Cz() != 3 {
		t.Errorf("ABzCz decode = %d,%x,%d", lz.A(), lz.Bz(), lz.Cz())
	}
	if got := lz.LambdaFlags().String(); got != "OP_L_STRICT | OP_L_CAPTURE" {
		t.Errorf("LambdaFlags() = %q", got)
	}

	ax := MkAx(OpEnter, 0x1ffffff)
	if ax.Ax() != 0x1ffffff {
		t.Errorf("Ax() = 0x%x", ax.Ax())
	}
}

func TestReturnKind(t *testing.T) {
	for b, want := range []string{"OP_R_NORMAL", "OP_R_BREAK", "OP_R_RETURN"} {
		k, err := MkABC(OpReturn, 0, uint32(b), 0).ReturnKind()
		if err != nil {
			t.Fatalf("B=%d: unexpected error %v", b, err)
		}
		if k.String() != want {
			t.Errorf("B=%d: got %s, want %s", b, k, want)
		}
	}

	_, err := MkABC(OpReturn, 0, 5, 0).ReturnKind()
	if !errors.Is(err, ErrInvalidReturnFlag) {
		t.Errorf("B=5: err = %v, want ErrInvalidReturnFlag", err)
	}
}

func TestAspec(t *testing.T) {
	s := Aspec{Req: 2, Opt: 1, Rest: true, Post: 1, Block: true}
	ax := s.Encode()
	if got := DecodeAspec(ax); got != s {
		t.Fatalf("DecodeAspec(Encode()) = %+v, want %+v", got, s)
	}
	if got := MkAx(OpEnter, ax).Aspec(); got != s {
		t.Errorf("Code.Aspec() = %+v", got)
	}
	if s.Slots() != 6 {
		t.Errorf("Slots() = %d, want 6", s.Slots())
	}

	// Reserved bits 1..6 are ignored.
	if got := DecodeAspec(0x7e); got != (Aspec{}) {
		t.Errorf("reserved bits leaked: %+v", got)
	}
}

func TestOpcodeTable(t *testing.T) {
	if OpErr.String() != "ERR" || OpMove.String() != "MOVE" {
		t.Errorf("names: %s %s", OpErr, OpMove)
	}
	if Opcode(76).Known() {
		t.Error("76 should be unknown")
	}
	if Opcode(100).String() != "OP_100" {
		t.Errorf("unknown name: %s", Opcode(100))
	}
	if OpLambda.Layout() != LayoutABzCz || OpEnter.Layout() != LayoutAx || OpString.Layout() != LayoutABx {
		t.Error("layout mismatch")
	}
	if got := MkABC(OpMove, 0, 1, 0).String(); got != "MOVE A=0 B=1 C=0" {
		t.Errorf("Code.String() = %q", got)
	}
}
