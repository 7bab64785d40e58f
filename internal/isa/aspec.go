package isa

// Aspec is the argument descriptor carried in the Ax field of ENTER.
//
//	bits 18..22 required, 13..17 optional, 12 rest, 7..11 post, 0 block.
//	bits 1..6 are reserved.
type Aspec struct {
	Req   uint32
	Opt   uint32
	Rest  bool
	Post  uint32
	Block bool
}

// DecodeAspec splits an Ax descriptor.
func DecodeAspec(ax uint32) Aspec {
	return Aspec{
		Req:   ax >> 18 & 0x1f,
		Opt:   ax >> 13 & 0x1f,
		Rest:  ax>>12&0x1 != 0,
		Post:  ax >> 7 & 0x1f,
		Block: ax&0x1 != 0,
	}
}

// Aspec decodes the ENTER descriptor of c.
func (c Code) Aspec() Aspec { return DecodeAspec(c.Ax()) }

// Encode packs the descriptor back into its Ax form.
func (s Aspec) Encode() uint32 {
	ax := (s.Req&0x1f)<<18 | (s.Opt&0x1f)<<13 | (s.Post&0x1f)<<7
	if s.Rest {
		ax |= 1 << 12
	}
	if s.Block {
		ax |= 1
	}
	return ax
}

// Slots returns the number of argument registers the descriptor occupies.
func (s Aspec) Slots() int {
	n := int(s.Req + s.Opt + s.Post)
	if s.Rest {
		n++
	}
	if s.Block {
		n++
	}
	return n
}
