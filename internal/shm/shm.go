// Package shm implements the Go-side counterpart of the GUI process's named
// shared-memory contract: an LCD frame buffer, keyboard scan code, and a
// small IRQ queue the GUI pushes into and the CPU drains from. The GUI
// process itself (a separate OS process) is out of scope; this package gives
// it a concrete struct to map.
package shm

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/vcore16/vcore16/internal/irq"
	"github.com/vcore16/vcore16/internal/log"
)

// Name is the POSIX shared-memory object name used by the GUI process.
const Name = "emulator_gui_shm"

const (
	// LCDWidth and LCDHeight are the display's character-cell dimensions.
	LCDWidth  = 32
	LCDHeight = 4

	// guiQueueCap is the capacity of the GUI-local IRQ source queue.
	guiQueueCap = 10

	// KeyboardIRQSource is the CPU interrupt source the drained keyboard
	// queue is enqueued under.
	KeyboardIRQSource = 0x01
)

// guiQueue mirrors `gui_irq_queue: {sources: u8[10], size: u8}`.
type guiQueue struct {
	sources [guiQueueCap]uint8
	size    uint8
}

// Region is the shared-memory region's Go-side layout:
//
//	{ display: char[4][32] (rows x columns), keyboard: u8[2], gui_irq_queue: {...} }
//
// Only the CPU writes display; only the GUI writes keyboard and pushes to
// gui_irq_queue. A single mutex serializes all access since the region is
// small and contention is expected to be negligible.
type Region struct {
	mut sync.Mutex

	display  [LCDHeight][LCDWidth]byte
	keyboard [2]uint8 // [cpu_scan_code, pressed(0/1)]
	queue    guiQueue

	changed chan struct{}

	log *log.Logger
}

// New creates an empty shared-memory region.
func New() *Region {
	return &Region{
		changed: make(chan struct{}, 1),
		log:     log.DefaultLogger(),
	}
}

// Changed returns a channel that receives a pulse after every WriteDisplay.
// It is buffered by one and never blocks the writer: a consumer that's
// behind only sees the most recent pulse, not a backlog of them.
func (r *Region) Changed() <-chan struct{} { return r.changed }

// WriteDisplay overwrites the LCD frame at (row, col) with c. Called only by
// the CPU side.
func (r *Region) WriteDisplay(row, col int, c byte) {
	r.mut.Lock()
	defer r.mut.Unlock()

	if row < 0 || row >= LCDHeight || col < 0 || col >= LCDWidth {
		return
	}

	r.display[row][col] = c

	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Display returns a copy of the current LCD frame.
func (r *Region) Display() [LCDHeight][LCDWidth]byte {
	r.mut.Lock()
	defer r.mut.Unlock()

	return r.display
}

// PushKey records a GUI-side key event and enqueues a keyboard IRQ source,
// dropping it if the GUI-local queue is full (mirrors the CPU-side bounded
// queue's drop policy).
func (r *Region) PushKey(scanCode uint8, pressed bool) {
	r.mut.Lock()
	defer r.mut.Unlock()

	r.keyboard[0] = scanCode
	if pressed {
		r.keyboard[1] = 1
	} else {
		r.keyboard[1] = 0
	}

	if int(r.queue.size) >= guiQueueCap {
		r.log.Warn("shm: gui_irq_queue full, dropping key event")
		return
	}

	r.queue.sources[r.queue.size] = KeyboardIRQSource
	r.queue.size++
}

// Keyboard returns the last recorded (scan_code, pressed) pair.
func (r *Region) Keyboard() (scanCode uint8, pressed bool) {
	r.mut.Lock()
	defer r.mut.Unlock()

	return r.keyboard[0], r.keyboard[1] != 0
}

// DrainInto empties the GUI-local IRQ queue into the CPU's interrupt queue,
// enqueuing one KeyboardIRQSource per pending entry. Called at the
// Machine.Step boundary (S9).
func (r *Region) DrainInto(q *irq.Queue) int {
	r.mut.Lock()
	defer r.mut.Unlock()

	n := int(r.queue.size)
	for i := 0; i < n; i++ {
		q.Enqueue(r.queue.sources[i])
	}

	r.queue.size = 0

	return n
}

// NotifyDisplayUpdated raises SIGUSR1 against the current process, the
// signal the GUI process watches for "display updated". It uses only the
// standard os and syscall packages.
func NotifyDisplayUpdated() error {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return err
	}

	return p.Signal(syscall.SIGUSR1)
}

// WatchShutdown returns a channel closed on SIGINT/SIGTERM, for callers that
// want to coordinate shutdown with the GUI process's own signal handling.
func WatchShutdown() <-chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	return c
}
