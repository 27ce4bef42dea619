package bus_test

import (
	"testing"

	"github.com/vcore16/vcore16/internal/bus"
	"github.com/vcore16/vcore16/internal/memory"
)

func testSections() []bus.MemorySection {
	return []bus.MemorySection{
		{Name: "boot", Type: bus.Boot, StartAddress: 0, PageCount: 1},
		{Name: "usable", Type: bus.Usable, StartAddress: 0x1000, PageCount: 4},
		{Name: "io", Type: bus.MMIO, StartAddress: 0x10000, PageCount: 1, Device: "UART"},
	}
}

func TestSectionOf(t *testing.T) {
	t.Parallel()

	b := bus.NewBus(memory.NewStore(), testSections())

	sec, ok := b.SectionOf(0x1500)
	if !ok || sec.Name != "usable" {
		t.Fatalf("SectionOf(0x1500) = (%+v, %v), want usable section", sec, ok)
	}

	if _, ok := b.SectionOf(0x50000); ok {
		t.Errorf("SectionOf(0x50000) ok = true, want false (gap)")
	}
}

type recordingHook struct {
	addr, value uint32
	calls       int
}

func (h *recordingHook) Write(addr uint32, value uint32, _ *memory.Store) {
	h.addr, h.value = addr, value
	h.calls++
}

func TestWriteDispatchesToMMIOHook(t *testing.T) {
	t.Parallel()

	b := bus.NewBus(memory.NewStore(), testSections())

	hook := &recordingHook{}
	b.RegisterHook("UART", hook)

	b.Write8(bus.UARTAddr, 'H')

	if hook.calls != 1 {
		t.Fatalf("hook.calls = %d, want 1", hook.calls)
	}

	if hook.addr != bus.UARTAddr || hook.value != uint32('H') {
		t.Errorf("hook saw (addr=%#x, value=%#x), want (%#x, %#x)", hook.addr, hook.value, bus.UARTAddr, uint32('H'))
	}
}

func TestWritePassesThroughForNonMMIO(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	b := bus.NewBus(store, testSections())

	b.Write16(0x1000, 0xCAFE)

	if got := store.Read16(0x1000); got != 0xCAFE {
		t.Errorf("store.Read16(0x1000) = %#x, want 0xCAFE", got)
	}
}

func TestWriteUnknownDeviceTagIsNoop(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	sections := []bus.MemorySection{
		{Name: "io", Type: bus.MMIO, StartAddress: 0x10000, PageCount: 1, Device: "FROB"},
	}
	b := bus.NewBus(store, sections)

	b.Write8(0x10000, 0x42)

	if got := store.Read8(0x10000); got != 0 {
		t.Errorf("unregistered MMIO device wrote through to backing store: got %#x, want 0", got)
	}
}
