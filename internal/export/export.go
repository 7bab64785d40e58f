// Package export converts a decoded container into a self-describing
// document that can be written as JSON or CBOR.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"ritedump/internal/disasm"
	"ritedump/internal/rite"
)

// Format selects the document encoding.
type Format string

const (
	JSON Format = "json"
	CBOR Format = "cbor"
)

// ParseFormat accepts "json" or "cbor", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case JSON, CBOR:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want json or cbor)", s)
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("export: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type Document struct {
	Path     string    `json:"path,omitempty" cbor:"path,omitempty"`
	Digest   string    `json:"sha256,omitempty" cbor:"sha256,omitempty"`
	Revision int       `json:"revision" cbor:"revision"`
	Header   Header    `json:"header" cbor:"header"`
	Sections []Section `json:"sections" cbor:"sections"`
	Records  []Record  `json:"records" cbor:"records"`
}

type Header struct {
	Magic            string `json:"magic" cbor:"magic"`
	Version          string `json:"version" cbor:"version"`
	CRC              uint16 `json:"crc" cbor:"crc"`
	ComputedCRC      uint16 `json:"computed_crc" cbor:"computed_crc"`
	Size             uint32 `json:"size" cbor:"size"`
	CompilerName     string `json:"compiler_name" cbor:"compiler_name"`
	CompilerVersion  string `json:"compiler_version" cbor:"compiler_version"`
	ChecksumVerified bool   `json:"checksum_ok" cbor:"checksum_ok"`
}

type Section struct {
	Sig     string `json:"sig" cbor:"sig"`
	Offset  int    `json:"offset" cbor:"offset"`
	Size    uint32 `json:"size" cbor:"size"`
	Version string `json:"version,omitempty" cbor:"version,omitempty"`
	Count   uint16 `json:"count,omitempty" cbor:"count,omitempty"`
	Start   uint16 `json:"start,omitempty" cbor:"start,omitempty"`
}

type Record struct {
	Label     string        `json:"label" cbor:"label"`
	Path      []int         `json:"path,omitempty" cbor:"path,omitempty"`
	NLocals   uint16        `json:"nlocals" cbor:"nlocals"`
	NRegs     uint16        `json:"nregs" cbor:"nregs"`
	NChildren int           `json:"nchildren" cbor:"nchildren"`
	Size      uint32        `json:"size" cbor:"size"`
	Pool      []PoolEntry   `json:"pool,omitempty" cbor:"pool,omitempty"`
	Symbols   []*string     `json:"symbols,omitempty" cbor:"symbols,omitempty"`
	Locals    []Local       `json:"locals,omitempty" cbor:"locals,omitempty"`
	Code      []Instruction `json:"code" cbor:"code"`
}

type PoolEntry struct {
	Type  string `json:"type" cbor:"type"`
	Value string `json:"value" cbor:"value"`
}

type Local struct {
	Register uint16  `json:"reg" cbor:"reg"`
	Name     *string `json:"name" cbor:"name"`
}

type Instruction struct {
	PC    int    `json:"pc" cbor:"pc"`
	Word  uint32 `json:"word" cbor:"word"`
	Op    string `json:"op" cbor:"op"`
	Text  string `json:"text" cbor:"text"`
	Error string `json:"error,omitempty" cbor:"error,omitempty"`
}

// Build assembles the document for f. Records appear in the order they are
// printed: pre-order under revision 2, list order under revision 1.
func Build(f *rite.File) *Document {
	h := f.Header
	doc := &Document{
		Revision: int(f.Revision),
		Header: Header{
			Magic:            h.Magic,
			Version:          h.Version,
			CRC:              h.CRC,
			ComputedCRC:      f.Checksum,
			Size:             h.Size,
			CompilerName:     strings.TrimRight(h.CompilerName, "\x00"),
			CompilerVersion:  strings.TrimRight(h.CompilerVersion, "\x00"),
			ChecksumVerified: f.ChecksumOK(),
		},
		Sections: make([]Section, 0, len(f.Sections)),
	}

	for _, s := range f.Sections {
		fr := rite.FrameOf(s)
		sec := Section{Sig: strings.TrimRight(fr.Sig, "\x00"), Offset: fr.Offset, Size: fr.Size}
		switch s := s.(type) {
		case *rite.IrepSection:
			sec.Version, sec.Count, sec.Start = s.Version, s.Count, s.Start
		case *rite.LineSection:
			sec.Count, sec.Start = s.Count, s.Start
		}
		doc.Sections = append(doc.Sections, sec)
	}

	for _, irep := range f.Ireps() {
		for _, b := range disasm.Walk(f.Revision, irep, f.LocalsFor(irep)) {
			doc.Records = append(doc.Records, record(f.Revision, b))
		}
	}
	return doc
}

func record(rev rite.Revision, b disasm.Block) Record {
	r := b.Record
	out := Record{
		Label:     b.Label,
		Path:      b.Path,
		NLocals:   r.NLocals,
		NRegs:     r.NRegs,
		NChildren: len(r.Children),
		Size:      r.Size,
		Code:      make([]Instruction, len(b.Insts)),
	}
	for _, e := range r.Pool {
		out.Pool = append(out.Pool, PoolEntry{Type: e.TypeName(rev), Value: string(e.Value)})
	}
	for _, s := range r.Syms {
		if s.Null {
			out.Symbols = append(out.Symbols, nil)
			continue
		}
		out.Symbols = append(out.Symbols, &s.Name)
	}
	if b.Scope != nil {
		for _, e := range b.Scope.Entries {
			l := Local{Register: e.Register}
			if !e.Null {
				l.Name = &e.Name
			}
			out.Locals = append(out.Locals, l)
		}
	}
	for i, in := range b.Insts {
		ins := Instruction{PC: in.PC, Word: uint32(in.Code), Op: in.Op, Text: in.Text}
		if in.Diag != nil {
			ins.Error = in.Diag.Error()
		}
		out.Code[i] = ins
	}
	return out
}

// Write encodes doc to w in the given format.
func Write(w io.Writer, doc *Document, format Format) error {
	switch format {
	case JSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case CBOR:
		data, err := cborEncMode.Marshal(doc)
		if err != nil {
			return fmt.Errorf("export: marshal cbor: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown export format %q", format)
}

// ReadCBOR decodes a document produced by Write with CBOR.
func ReadCBOR(data []byte) (*Document, error) {
	var doc Document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("export: unmarshal cbor: %w", err)
	}
	return &doc, nil
}
