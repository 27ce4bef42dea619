// Package uart implements the concurrent UART device: a host-facing
// pseudo-terminal bridged to TX/RX ring buffers, paced to an approximated
// baud rate, and wired into the interrupt subsystem.
package uart

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vcore16/vcore16/internal/irq"
	"github.com/vcore16/vcore16/internal/log"
	"github.com/vcore16/vcore16/internal/memory"
	"golang.org/x/sys/unix"
)

// ErrUART is the sentinel wrapped by uart-package errors.
var ErrUART = errors.New("uart error")

// Status register bits.
const (
	StatusRXReady   = 1 << 0
	StatusTXComplete = 1 << 1
)

const defaultBaudRate = 9600

// Device is the UART: a goroutine owning a PTY master fd and a pair of ring
// buffers, reachable from the CPU thread only through its ring buffers and
// the interrupt queue.
type Device struct {
	baudRate  int
	byteDelay time.Duration

	master *os.File
	slave  string

	status atomic.Uint32

	txMut sync.Mutex
	tx    ring

	rxMut sync.Mutex
	rx    ring

	running atomic.Bool
	done    chan struct{}

	irqq *irq.Queue
	log  *log.Logger
}

// New creates a UART device and opens its PTY master. baudRate of 0 defaults
// to 9600. The caller must call Run to start the device thread and Shutdown
// to tear it down.
func New(baudRate int, irqq *irq.Queue) (*Device, error) {
	if baudRate == 0 {
		baudRate = defaultBaudRate
	}

	master, slave, err := openPTY()
	if err != nil {
		return nil, fmt.Errorf("uart: %w: %w", ErrUART, err)
	}

	d := &Device{
		baudRate:  baudRate,
		byteDelay: time.Duration(float64(time.Second) * 10 / float64(baudRate)),
		master:    master,
		slave:     slave,
		done:      make(chan struct{}),
		irqq:      irqq,
		log:       log.DefaultLogger(),
	}

	return d, nil
}

// SlavePath returns the path of the PTY slave, for printing to the operator.
func (d *Device) SlavePath() string { return d.slave }

// Run starts the device thread. It blocks until Shutdown is called.
func (d *Device) Run() {
	d.running.Store(true)
	d.log.Info("uart: running", "slave", d.slave, "baud", d.baudRate)

	defer d.cleanup()

	for d.running.Load() {
		d.pollRX()
		d.pollTX()
	}
}

// pollRX implements thread-loop step 1: a non-blocking read of one byte from
// the PTY, enqueued into the RX ring on success.
func (d *Device) pollRX() {
	var buf [1]byte

	n, err := unix.Read(int(d.master.Fd()), buf[:])
	if err != nil || n != 1 {
		return
	}

	d.rxMut.Lock()
	ok := d.rx.push(buf[0])
	d.rxMut.Unlock()

	if !ok {
		d.log.Warn("uart: RX ring full, dropping byte")
		return
	}

	d.status.Or(StatusRXReady)
	d.irqq.Enqueue(irq.UARTRX)

	time.Sleep(d.byteDelay)
}

// pollTX implements thread-loop step 2: pop one byte from the TX ring, if
// any, and write it to the PTY.
func (d *Device) pollTX() {
	d.txMut.Lock()
	b, ok := d.tx.pop()
	d.txMut.Unlock()

	if !ok {
		return
	}

	if _, err := unix.Write(int(d.master.Fd()), []byte{b}); err != nil {
		d.log.Warn("uart: write failed", "err", err)
		return
	}

	d.status.Or(StatusTXComplete)
	d.irqq.Enqueue(irq.UARTTX)

	time.Sleep(d.byteDelay)
}

// cleanup closes the PTY and signals Shutdown callers. It runs on both
// normal loop exit and cancellation.
func (d *Device) cleanup() {
	_ = d.master.Close()
	close(d.done)
}

// Shutdown clears the running flag and waits for the device thread to exit.
func (d *Device) Shutdown() {
	d.running.Store(false)
	<-d.done
}

// StatusReg returns the current status register value.
func (d *Device) StatusReg() uint8 {
	return uint8(d.status.Load())
}

// ReadRX pops one byte from the RX ring for the CPU's uart_read. It reports
// false if the ring is empty, and clears the RX-ready bit when the ring
// becomes empty as a result.
func (d *Device) ReadRX() (byte, bool) {
	d.rxMut.Lock()
	defer d.rxMut.Unlock()

	b, ok := d.rx.pop()
	if !ok {
		return 0, false
	}

	if d.rx.empty() {
		d.status.And(^uint32(StatusRXReady))
	}

	return b, true
}

// Write implements bus.Hook: it is the UART's MMIO write effect, pushing the
// low byte of value into the TX ring. It is registered under the "UART"
// device tag at bus.UARTAddr.
func (d *Device) Write(_ uint32, value uint32, _ *memory.Store) {
	d.txMut.Lock()
	ok := d.tx.push(byte(value & 0xFF))
	d.txMut.Unlock()

	if !ok {
		d.log.Warn("uart: TX ring full, dropping byte")
	}
}
