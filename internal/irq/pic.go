package irq

import (
	"github.com/vcore16/vcore16/internal/bus"
	"github.com/vcore16/vcore16/internal/memory"
)

// PIC is the programmable interrupt controller's MMIO write handler. It
// implements bus.Hook and is registered under the "PIC" device tag.
//
// A 32-bit write to bus.PICBaseAddr stores the IVT base address. A write to
// bus.PICLenAddr treats the low byte of the value as a handler count N and
// reads N consecutive big-endian 32-bit handler addresses starting at the
// stored base, registering them as sources 0..N-1.
type PIC struct {
	vt      *VectorTable
	ivtBase uint32
}

// NewPIC creates a PIC hook that registers handlers into vt.
func NewPIC(vt *VectorTable) *PIC {
	return &PIC{vt: vt}
}

// Write implements bus.Hook.
func (p *PIC) Write(addr uint32, value uint32, store *memory.Store) {
	switch addr {
	case bus.PICBaseAddr:
		p.ivtBase = value
	case bus.PICLenAddr:
		length := uint8(value & 0xFF)

		for source := uint8(0); source < length; source++ {
			handler := store.Read32(p.ivtBase + uint32(source)*4)
			p.vt.Register(source, handler)
		}
	}
}
