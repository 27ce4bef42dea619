// Package core assembles the memory bus, interrupt subsystem, UART device,
// instruction interpreter, and scheduler into one runnable machine.
package core

import (
	"errors"
	"fmt"

	"github.com/vcore16/vcore16/internal/bus"
	"github.com/vcore16/vcore16/internal/cpu"
	"github.com/vcore16/vcore16/internal/irq"
	"github.com/vcore16/vcore16/internal/loader"
	"github.com/vcore16/vcore16/internal/log"
	"github.com/vcore16/vcore16/internal/memory"
	"github.com/vcore16/vcore16/internal/sched"
	"github.com/vcore16/vcore16/internal/shm"
	"github.com/vcore16/vcore16/internal/uart"
)

// ErrMachine is the sentinel wrapped by assembly/runtime errors.
var ErrMachine = errors.New("machine error")

// Config holds the construction-time parameters for a Machine.
type Config struct {
	Sections    []bus.MemorySection
	TimeSlot    int    // scheduler's TIME_SLOT quantum
	KernelEntry uint16 // kernel task's initial program counter
	BaudRate    int    // UART baud rate, 0 for default
}

// Machine wires together every subsystem specified for the execution core:
// paged memory, the MMIO bus, the interrupt subsystem (vector table, bounded
// queue, PIC), a PTY-backed UART, the instruction interpreter, the
// priority-preemptive scheduler, and the GUI shared-memory region.
type Machine struct {
	Store *memory.Store
	Bus   *bus.Bus

	VectorTable *irq.VectorTable
	IRQQueue    *irq.Queue
	PIC         *irq.PIC

	UART *uart.Device
	CPU  *cpu.CPU
	Sched *sched.Scheduler

	Loader *loader.Loader
	SHM    *shm.Region

	log *log.Logger
}

// New assembles a Machine per cfg. The UART's device goroutine is not
// started, and Run does not start it; call Start (and later Shutdown)
// explicitly.
func New(cfg Config) (*Machine, error) {
	store := memory.NewStore()
	b := bus.NewBus(store, cfg.Sections)

	vt := irq.NewVectorTable()
	irqq := irq.NewQueue()
	pic := irq.NewPIC(vt)
	b.RegisterHook("PIC", pic)

	u, err := uart.New(cfg.BaudRate, irqq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMachine, err)
	}

	b.RegisterHook("UART", u)

	c := cpu.New(b, irqq, vt)

	if stack, ok := stackSection(cfg.Sections); ok {
		c.SetStack(stack.StartAddress, stack.PageCount*memory.PageSize)
	}

	s := sched.New(c, cfg.TimeSlot, cfg.KernelEntry)

	m := &Machine{
		Store:       store,
		Bus:         b,
		VectorTable: vt,
		IRQQueue:    irqq,
		PIC:         pic,
		UART:        u,
		CPU:         c,
		Sched:       s,
		Loader:      loader.New(b),
		SHM:         shm.New(),
		log:         log.DefaultLogger(),
	}

	return m, nil
}

func stackSection(sections []bus.MemorySection) (bus.MemorySection, bool) {
	for _, s := range sections {
		if s.Type == bus.Stack {
			return s, true
		}
	}

	return bus.MemorySection{}, false
}

// Start brings up the UART device thread. Call before Run/Step.
func (m *Machine) Start() {
	go m.UART.Run()
}

// Shutdown tears down the UART device thread.
func (m *Machine) Shutdown() {
	m.UART.Shutdown()
}

// Step drains the GUI keyboard queue into the CPU's interrupt queue (S9),
// then runs exactly one scheduler tick. Step sends no display notification;
// SIGUSR1 is raised only by WriteDisplay. It returns sched.ErrNoTasks when
// the task ring is empty.
func (m *Machine) Step() error {
	if m.SHM.DrainInto(m.IRQQueue) > 0 {
		m.log.Debug("machine: drained gui_irq_queue into CPU interrupt queue")
	}

	if err := m.Sched.Tick(); err != nil {
		return err
	}

	return nil
}

// Run steps the machine until no task remains runnable or an unrecoverable
// error occurs.
func (m *Machine) Run() error {
	for {
		err := m.Step()

		switch {
		case err == nil:
			continue
		case errors.Is(err, sched.ErrNoTasks):
			return nil
		default:
			return fmt.Errorf("%w: %w", ErrMachine, err)
		}
	}
}

// WriteDisplay writes one character into the GUI shared-memory frame and
// notifies the GUI process that the display changed.
func (m *Machine) WriteDisplay(row, col int, c byte) error {
	m.SHM.WriteDisplay(row, col, c)
	return shm.NotifyDisplayUpdated()
}
