package uart_test

import (
	"os"
	"testing"
	"time"

	"github.com/vcore16/vcore16/internal/irq"
	"github.com/vcore16/vcore16/internal/uart"
)

func newTestDevice(t *testing.T) *uart.Device {
	t.Helper()

	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("no /dev/ptmx available in this environment")
	}

	d, err := uart.New(115200, irq.NewQueue())
	if err != nil {
		t.Fatalf("uart.New() error = %v", err)
	}

	t.Cleanup(d.Shutdown)

	return d
}

func TestUARTWriteReachesPTY(t *testing.T) {
	t.Parallel()

	d := newTestDevice(t)
	go d.Run()

	slave, err := os.OpenFile(d.SlavePath(), os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("open slave: %v", err)
	}
	defer slave.Close()

	d.Write(0, uint32('H'), nil)

	buf := make([]byte, 1)
	slave.SetReadDeadline(time.Now().Add(2 * time.Second))

	n, err := slave.Read(buf)
	if err != nil {
		t.Fatalf("read from slave: %v", err)
	}

	if n != 1 || buf[0] != 'H' {
		t.Fatalf("slave read = %q, want %q", buf[:n], "H")
	}
}

func TestUARTRXSetsStatusAndIRQ(t *testing.T) {
	t.Parallel()

	q := irq.NewQueue()

	d, err := uart.New(115200, q)
	if err != nil {
		if _, statErr := os.Stat("/dev/ptmx"); statErr != nil {
			t.Skip("no /dev/ptmx available in this environment")
		}
		t.Fatalf("uart.New() error = %v", err)
	}
	t.Cleanup(d.Shutdown)

	go d.Run()

	slave, err := os.OpenFile(d.SlavePath(), os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("open slave: %v", err)
	}
	defer slave.Close()

	if _, err := slave.Write([]byte("K")); err != nil {
		t.Fatalf("write to slave: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b, ok := d.ReadRX(); ok {
			if b != 'K' {
				t.Fatalf("ReadRX() = %q, want %q", b, "K")
			}

			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("timed out waiting for RX byte")
}
