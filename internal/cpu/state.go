// Package cpu implements the instruction interpreter: decode, dispatch, and
// execution of the 36-opcode instruction set over the memory bus, servicing
// interrupts between instructions.
package cpu

import (
	"errors"
	"fmt"

	"github.com/vcore16/vcore16/internal/bus"
	"github.com/vcore16/vcore16/internal/irq"
	"github.com/vcore16/vcore16/internal/log"
)

// ErrHalted is returned by Step when the CPU (or current task) is halted.
var ErrHalted = errors.New("cpu: halted")

// ErrIllegalOpcode is logged, never returned to the scheduler: per the
// interpreter's illegal-opcode policy, it halts only the offending task.
var ErrIllegalOpcode = errors.New("cpu: illegal opcode")

// GPR count: registers 0-14 are general purpose, 15 is PC.
const (
	NumRegisters = 16
	PCRegister   = 15
)

// CPU holds the interpreter's register file and flags, and borrows the
// memory bus, interrupt queue, and vector table it executes against. One CPU
// is shared by every task; the scheduler swaps PCRegister in and out of a
// Task's saved program_counter between scheduling quanta.
type CPU struct {
	Reg [NumRegisters]uint16

	Z bool // zero flag
	V bool // overflow flag

	IntEnabled bool
	Halted     bool

	Mem *bus.Bus
	IRQ *irq.Queue
	VT  *irq.VectorTable

	sp       uint32
	spBase   uint32
	spTop    uint32
	haveSP   bool

	log        *log.Logger
	debugTrace bool
}

// New creates a CPU over the given bus, interrupt queue, and vector table.
func New(mem *bus.Bus, irqq *irq.Queue, vt *irq.VectorTable) *CPU {
	return &CPU{
		Mem:        mem,
		IRQ:        irqq,
		VT:         vt,
		IntEnabled: true,
		log:        log.DefaultLogger(),
	}
}

// SetDebugTrace enables or disables per-instruction debug logging.
func (c *CPU) SetDebugTrace(on bool) { c.debugTrace = on }

// SetStack configures the stack section bounds. The stack pointer starts at
// the top of the section (exclusive end) and grows downward.
func (c *CPU) SetStack(base, size uint32) {
	c.spBase = base
	c.spTop = base + size
	c.sp = c.spTop
	c.haveSP = true
}

// PC returns the program counter (register 15).
func (c *CPU) PC() uint16 { return c.Reg[PCRegister] }

// SetPC sets the program counter.
func (c *CPU) SetPC(pc uint16) { c.Reg[PCRegister] = pc }

func (c *CPU) String() string {
	return fmt.Sprintf("CPU{PC:%#04x Z:%v V:%v IE:%v HLT:%v}", c.PC(), c.Z, c.V, c.IntEnabled, c.Halted)
}
