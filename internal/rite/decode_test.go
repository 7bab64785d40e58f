package rite

import (
	"encoding/binary"
	"errors"
	"testing"

	"ritedump/internal/isa"
	"ritedump/internal/rite/ritetest"
)

func moveRecord() *ritetest.Rec {
	return &ritetest.Rec{NRegs: 2, Code: []isa.Code{isa.MkABC(isa.OpMove, 0, 1, 0)}}
}

func TestDecodeMinimal(t *testing.T) {
	buf := ritetest.New(2).Irep(moveRecord()).End().Bytes()

	f, err := Decode(buf, Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Revision != Rev2 {
		t.Errorf("Revision = %v, want 0002", f.Revision)
	}
	if !f.ChecksumOK() {
		t.Errorf("checksum 0x%04x != stored 0x%04x", f.Checksum, f.Header.CRC)
	}
	if f.Length != len(buf) {
		t.Errorf("Length = %d, want %d", f.Length, len(buf))
	}
	if len(f.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(f.Sections))
	}
	irep, ok := f.Sections[0].(*IrepSection)
	if !ok {
		t.Fatalf("section 0 is %T", f.Sections[0])
	}
	root := irep.Root()
	if root.NRegs != 2 || len(root.Code) != 1 || root.Code[0].Opcode() != isa.OpMove {
		t.Errorf("unexpected root record %+v", root.RecordHeader)
	}
	if root.TotalSize() != int(root.Size) {
		t.Errorf("TotalSize %d != declared %d", root.TotalSize(), root.Size)
	}
	if _, ok := f.Sections[1].(*EndSection); !ok {
		t.Errorf("section 1 is %T", f.Sections[1])
	}
}

func TestFramerAdvancesByDeclaredSize(t *testing.T) {
	line := []byte{0, 2, 0, 0}
	padded := append(append([]byte{}, line...), make([]byte, 12)...)

	buf := ritetest.New(2).
		Irep(moveRecord()).
		Section("LINE", padded, 0).
		End().
		Bytes()

	f, err := Decode(buf, Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(f.Sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(f.Sections))
	}

	offset := HeaderSize
	for i, s := range f.Sections {
		fr := FrameOf(s)
		if fr.Offset != offset {
			t.Errorf("section %d (%q) at %d, want %d", i, fr.Sig, fr.Offset, offset)
		}
		offset += int(fr.Size)
	}
	if offset != len(buf) {
		t.Errorf("frames cover %d bytes, image is %d", offset, len(buf))
	}
	if ls := f.Sections[1].(*LineSection); ls.Size != 24 || ls.Count != 2 {
		t.Errorf("LINE frame = %+v", ls)
	}
}

func TestIrepBodyMustBeConsumed(t *testing.T) {
	body := append([]byte("0000"), moveRecord().Bytes(2)...)
	body = append(body, 0, 0, 0, 0)
	buf := ritetest.New(2).Section("IREP", body, 0).End().Bytes()

	_, err := Decode(buf, Options{})
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestRecordSizeInvariant(t *testing.T) {
	tree := func() *ritetest.Rec {
		return &ritetest.Rec{
			NRegs: 1,
			Children: []*ritetest.Rec{
				moveRecord(),
				{NRegs: 1, Syms: []string{"puts"}},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *ritetest.Rec)
		wantErr error
	}{
		{"declared includes children", func(r *ritetest.Rec) {}, nil},
		{"declared own size only", func(r *ritetest.Rec) { r.OwnSizeOnly = true }, nil},
		{"root too large", func(r *ritetest.Rec) { r.SizeDelta = 4 }, ErrSizeMismatch},
		{"root too small", func(r *ritetest.Rec) { r.SizeDelta = -1 }, ErrSizeMismatch},
		{"child wrong", func(r *ritetest.Rec) { r.Children[1].SizeDelta = 2 }, ErrSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tree()
			tt.mutate(r)
			buf := ritetest.New(2).Irep(r).End().Bytes()
			f, err := Decode(buf, Options{})
			if !errors.Is(err, tt.wantErr) && !(tt.wantErr == nil && err == nil) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && f != nil {
				t.Error("partial file returned on failure")
			}
			if tt.wantErr == nil {
				root := f.Ireps()[0].Root()
				want := root.OwnSize() + root.Children[0].TotalSize() + root.Children[1].TotalSize()
				if root.TotalSize() != want {
					t.Errorf("TotalSize = %d, want %d", root.TotalSize(), want)
				}
			}
		})
	}
}

// shapeTree has child counts 2[0,1[0]].
func shapeTree() *ritetest.Rec {
	return &ritetest.Rec{
		NRegs: 3,
		Children: []*ritetest.Rec{
			{NRegs: 1},
			{NRegs: 2, Children: []*ritetest.Rec{{NRegs: 2}}},
		},
	}
}

func TestLocalVarShape(t *testing.T) {
	lv := &ritetest.Lvar{
		Names: []string{"a", "b", "blk"},
		Root: &ritetest.Scope{
			Entries: []ritetest.Entry{{Name: 0, Reg: 1}, {Name: 1, Reg: 2}},
			Children: []*ritetest.Scope{
				{},
				{Entries: []ritetest.Entry{{Name: ritetest.NullName, Reg: 1}},
					Children: []*ritetest.Scope{{Entries: []ritetest.Entry{{Name: 2, Reg: 1}}}}},
			},
		},
	}
	buf := ritetest.New(2).Irep(shapeTree()).Lvar(lv).End().Bytes()

	f, err := Decode(buf, Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	irep := f.Ireps()[0]
	vars := f.LocalsFor(irep)
	if vars == nil {
		t.Fatal("no local variables attached")
	}
	if got, want := irep.Root().Shape(), "2[0,1[0]]"; got != want {
		t.Errorf("record shape = %s, want %s", got, want)
	}
	if got := vars.Root.Shape(); got != irep.Root().Shape() {
		t.Errorf("lvar shape = %s, record shape %s", got, irep.Root().Shape())
	}
	if name, ok := vars.Root.Lookup(2); !ok || name != "b" {
		t.Errorf("Lookup(2) = %q, %v", name, ok)
	}
	if _, ok := vars.Root.Child(1).Lookup(1); ok {
		t.Error("null name should not resolve")
	}
	if !vars.Root.Child(1).Entries[0].Null {
		t.Error("entry with index 0xffff should be null")
	}
	if name, _ := vars.Root.Child(1).Child(0).Lookup(1); name != "blk" {
		t.Errorf("grandchild Lookup(1) = %q", name)
	}
}

func TestLocalVarShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		root *ritetest.Scope
		want error
	}{
		{
			"missing grandchild",
			&ritetest.Scope{
				Entries:  []ritetest.Entry{{Name: 0, Reg: 1}, {Name: 0, Reg: 2}},
				Children: []*ritetest.Scope{{}, {Entries: []ritetest.Entry{{Name: 0, Reg: 1}}}},
			},
			ErrTruncatedSection,
		},
		{
			"extra entries",
			&ritetest.Scope{
				Entries: []ritetest.Entry{{Name: 0, Reg: 1}, {Name: 0, Reg: 2}},
				Children: []*ritetest.Scope{
					{Entries: []ritetest.Entry{{Name: 0, Reg: 1}}},
					{Entries: []ritetest.Entry{{Name: 0, Reg: 1}}, Children: []*ritetest.Scope{{Entries: []ritetest.Entry{{Name: 0, Reg: 1}}}}},
				},
			},
			ErrSizeMismatch,
		},
		{
			"name index out of range",
			&ritetest.Scope{
				Entries: []ritetest.Entry{{Name: 0, Reg: 1}, {Name: 7, Reg: 2}},
				Children: []*ritetest.Scope{
					{},
					{Entries: []ritetest.Entry{{Name: 0, Reg: 1}}, Children: []*ritetest.Scope{{Entries: []ritetest.Entry{{Name: 0, Reg: 1}}}}},
				},
			},
			ErrMalformedContainer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lv := &ritetest.Lvar{Names: []string{"x"}, Root: tt.root}
			buf := ritetest.New(2).Irep(shapeTree()).Lvar(lv).End().Bytes()
			f, err := Decode(buf, Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if f != nil {
				t.Error("partial file returned on failure")
			}
		})
	}
}

func TestTruncatedSection(t *testing.T) {
	raw := []byte("IREP")
	raw = binary.BigEndian.AppendUint32(raw, 40)
	raw = append(raw, "0000"...)
	raw = append(raw, make([]byte, 8)...)
	buf := ritetest.New(2).Append(raw).Bytes()
	if len(buf)-HeaderSize != 20 {
		t.Fatalf("fixture has %d section bytes", len(buf)-HeaderSize)
	}

	f, err := Decode(buf, Options{})
	if !errors.Is(err, ErrTruncatedSection) {
		t.Fatalf("err = %v, want ErrTruncatedSection", err)
	}
	if f != nil {
		t.Error("partial file returned on failure")
	}
}

func TestStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  func() []byte
		opts Options
		want error
	}{
		{"short header", func() []byte { return []byte("RITE0002") }, Options{}, ErrMalformedContainer},
		{"bad magic", func() []byte {
			im := ritetest.New(2).Irep(moveRecord()).End()
			im.Magic = "RIFF"
			return im.Bytes()
		}, Options{}, ErrMalformedContainer},
		{"bad version", func() []byte {
			im := ritetest.New(2).Irep(moveRecord()).End()
			im.Version = "0003"
			return im.Bytes()
		}, Options{}, ErrMalformedContainer},
		{"forced revision", func() []byte {
			return ritetest.New(2).Irep(moveRecord()).End().Bytes()
		}, Options{Revision: Rev1}, ErrMalformedContainer},
		{"lvar before irep", func() []byte {
			return ritetest.New(2).Lvar(&ritetest.Lvar{}).Irep(moveRecord()).End().Bytes()
		}, Options{}, ErrOutOfOrderSection},
		{"unknown signature", func() []byte {
			return ritetest.New(2).Section("DBG\x00", make([]byte, 8), 0).End().Bytes()
		}, Options{}, ErrUnknownSection},
		{"irep body version", func() []byte {
			body := append([]byte("0001"), moveRecord().Bytes(2)...)
			return ritetest.New(2).Section("IREP", body, 0).End().Bytes()
		}, Options{}, ErrUnknownSection},
		{"line start not below count", func() []byte {
			return ritetest.New(2).Irep(moveRecord()).Line(1, 1).End().Bytes()
		}, Options{}, ErrUnknownSection},
		{"only end fits in tail", func() []byte {
			return ritetest.New(2).Irep(moveRecord()).Section("LINE", []byte{0, 2, 0, 0}, 0).Bytes()
		}, Options{}, ErrUnknownSection},
		{"missing end", func() []byte {
			return ritetest.New(2).Irep(moveRecord()).Bytes()
		}, Options{}, ErrTruncatedSection},
		{"dangling bytes", func() []byte {
			return ritetest.New(2).Irep(moveRecord()).Append([]byte{'E', 'N'}).Bytes()
		}, Options{}, ErrTruncatedSection},
		{"zero sized end", func() []byte {
			return ritetest.New(2).Irep(moveRecord()).Section("END\x00", nil, -8).Bytes()
		}, Options{}, ErrSizeMismatch},
		{"huge iseq count", func() []byte {
			body := []byte("0000")
			body = binary.BigEndian.AppendUint32(body, 100)
			body = append(body, 0, 0, 0, 2, 0, 0)
			body = binary.BigEndian.AppendUint32(body, 0xffffffff)
			return ritetest.New(2).Section("IREP", body, 0).End().Bytes()
		}, Options{}, ErrTruncatedSection},
		{"bad checksum strict", func() []byte {
			im := ritetest.New(2).Irep(moveRecord()).End()
			im.BadCRC = true
			return im.Bytes()
		}, Options{Strict: true}, ErrChecksumMismatch},
		{"bad size strict", func() []byte {
			im := ritetest.New(2).Irep(moveRecord()).End()
			im.SizeDelta = 3
			return im.Bytes()
		}, Options{Strict: true}, ErrSizeMismatch},
		{"lvar in revision 1", func() []byte {
			return ritetest.New(1).Irep(moveRecord()).Lvar(&ritetest.Lvar{}).End().Bytes()
		}, Options{}, ErrUnknownSection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Decode(tt.buf(), tt.opts)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if f != nil {
				t.Error("partial file returned on failure")
			}
		})
	}
}

func TestChecksumNotEnforcedByDefault(t *testing.T) {
	im := ritetest.New(2).Irep(moveRecord()).End()
	im.BadCRC = true
	im.SizeDelta = 7
	f, err := Decode(im.Bytes(), Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.ChecksumOK() {
		t.Error("ChecksumOK() = true for a flipped checksum")
	}
}

func TestChecksumKnownValue(t *testing.T) {
	// One byte 0x01 past the prefix: shifted left eight times with no feedback.
	buf := append(make([]byte, 10), 0x01)
	if got := Checksum(buf); got != 0x0001 {
		t.Errorf("Checksum = 0x%04x, want 0x0001", got)
	}
	if got := Checksum(make([]byte, 10)); got != 0 {
		t.Errorf("empty coverage = 0x%04x", got)
	}
}

func TestDepthLimit(t *testing.T) {
	r := &ritetest.Rec{NRegs: 1}
	for i := 0; i < 4; i++ {
		r = &ritetest.Rec{NRegs: 1, Children: []*ritetest.Rec{r}}
	}
	buf := ritetest.New(2).Irep(r).End().Bytes()

	if _, err := Decode(buf, Options{}); err != nil {
		t.Fatalf("default depth: %v", err)
	}
	_, err := Decode(buf, Options{MaxDepth: 2})
	if !errors.Is(err, ErrMalformedContainer) {
		t.Fatalf("err = %v, want ErrMalformedContainer", err)
	}
}

func TestRevision1FlatList(t *testing.T) {
	recs := []*ritetest.Rec{
		{NLocals: 1, NRegs: 3, Code: []isa.Code{isa.MkABx(isa.OpString, 1, 0)},
			Pool: []ritetest.Pool{{Tag: 16, Value: "hi"}, {Tag: 3, Value: "42"}}},
		{NRegs: 2, Syms: []string{"puts", ritetest.NullSymbol}},
	}

	for _, end := range []bool{true, false} {
		im := ritetest.New(1).Irep(recs...)
		if end {
			im.Line(2, 0).End()
		}
		f, err := Decode(im.Bytes(), Options{})
		if err != nil {
			t.Fatalf("end=%v: Decode: %v", end, err)
		}
		if f.Revision != Rev1 {
			t.Fatalf("Revision = %v", f.Revision)
		}
		irep := f.Ireps()[0]
		if irep.Count != 2 || len(irep.Records) != 2 {
			t.Fatalf("count %d, records %d", irep.Count, len(irep.Records))
		}
		if irep.Records[1].Index != 1 {
			t.Errorf("Index = %d, want 1", irep.Records[1].Index)
		}
		pool := irep.Records[0].Pool
		if pool[0].Kind != PoolString || string(pool[0].Value) != "hi" || pool[1].Kind != PoolFixnum {
			t.Errorf("pool = %+v", pool)
		}
		if pool[0].TypeName(Rev1) != "STRING" || TypeName(Rev1, 200) != "UNKNOWN" {
			t.Errorf("type names: %s %s", pool[0].TypeName(Rev1), TypeName(Rev1, 200))
		}
		syms := irep.Records[1].Syms
		if syms[0].Name != "puts" || !syms[1].Null {
			t.Errorf("syms = %+v", syms)
		}
		if len(f.Records()) != 2 {
			t.Errorf("Records() = %d", len(f.Records()))
		}
	}
}

func TestRevision1SectionSize(t *testing.T) {
	body := []byte("0000")
	body = binary.BigEndian.AppendUint16(body, 1)
	body = binary.BigEndian.AppendUint16(body, 0)
	body = append(body, moveRecord().Bytes(1)...)
	body = append(body, 0, 0, 0, 0, 0, 0, 0, 0)
	buf := ritetest.New(1).Section("IREP", body, 0).End().Bytes()

	if _, err := Decode(buf, Options{}); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestKindOf(t *testing.T) {
	_, err := Decode([]byte("nope"), Options{})
	if got := KindOf(err); got != "MalformedContainer" {
		t.Errorf("KindOf = %q", got)
	}
	if KindOf(nil) != "" || KindOf(errors.New("other")) != "" {
		t.Error("KindOf should be empty for foreign errors")
	}
}

func TestParseRevision(t *testing.T) {
	for in, want := range map[string]Revision{"": RevAuto, "auto": RevAuto, "1": Rev1, "0002": Rev2} {
		got, err := ParseRevision(in)
		if err != nil || got != want {
			t.Errorf("ParseRevision(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRevision("3"); err == nil {
		t.Error("ParseRevision(3) should fail")
	}
}
