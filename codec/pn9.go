package codec

const pn9Seed = 0x01FF

// PN9 is the x^9 + x^5 + 1 whitening sequence.
type PN9 struct {
	reg uint16
}

func (p *PN9) Init() { p.reg = pn9Seed }

// InitSeed starts the sequence from an arbitrary 9-bit state.
func (p *PN9) InitSeed(seed uint16) { p.reg = seed & 0x01FF }

// Next returns the current whitening mask.
func (p *PN9) Next() byte { return byte(p.reg) }

// Advance clocks the register eight times.
func (p *PN9) Advance() {
	for i := 0; i < 8; i++ {
		fb := (p.reg ^ p.reg>>5) & 1
		p.reg = p.reg>>1 | fb<<8
	}
}

// Apply whitens or dewhitens one byte.
func (p *PN9) Apply(b byte) byte {
	m := p.Next()
	p.Advance()
	return b ^ m
}

// Whiten returns a whitened copy of data using a fresh generator.
func Whiten(data []byte) []byte {
	var p PN9
	p.Init()
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = p.Apply(b)
	}
	return out
}
