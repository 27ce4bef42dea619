package irq_test

import (
	"testing"

	"github.com/vcore16/vcore16/internal/bus"
	"github.com/vcore16/vcore16/internal/irq"
	"github.com/vcore16/vcore16/internal/memory"
)

func TestQueueFIFOOrder(t *testing.T) {
	t.Parallel()

	q := irq.NewQueue()

	for _, src := range []uint8{5, 1, 9, 0} {
		if !q.Enqueue(src) {
			t.Fatalf("Enqueue(%d) = false, want true", src)
		}
	}

	want := []uint8{5, 1, 9, 0}
	for i, w := range want {
		got, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue() #%d: ok = false", i)
		}

		if got != w {
			t.Fatalf("Dequeue() #%d = %d, want %d", i, got, w)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Errorf("Dequeue() on empty queue: ok = true, want false")
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	t.Parallel()

	q := irq.NewQueue()

	for i := 0; i < irq.QueueSize-1; i++ {
		if !q.Enqueue(uint8(i)) {
			t.Fatalf("Enqueue(%d) = false before queue full", i)
		}
	}

	if q.Enqueue(0xFF) {
		t.Error("Enqueue on full queue = true, want false (dropped)")
	}

	if q.Len() != irq.QueueSize-1 {
		t.Errorf("Len() = %d, want %d", q.Len(), irq.QueueSize-1)
	}
}

func TestVectorTableRegisterOverwrites(t *testing.T) {
	t.Parallel()

	vt := irq.NewVectorTable()
	vt.Register(3, 0x1000)
	vt.Register(3, 0x2000)

	got, ok := vt.Lookup(3)
	if !ok || got != 0x2000 {
		t.Errorf("Lookup(3) = (%#x, %v), want (0x2000, true)", got, ok)
	}

	if vt.Count() != 1 {
		t.Errorf("Count() = %d, want 1 (overwrite must not double-count)", vt.Count())
	}

	if _, ok := vt.Lookup(4); ok {
		t.Errorf("Lookup(4) ok = true, want false")
	}
}

func TestPICLoadsVectorTable(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	vt := irq.NewVectorTable()
	pic := irq.NewPIC(vt)

	handlers := []uint32{0x4000, 0x4100, 0x4200}
	for i, h := range handlers {
		store.Write32(0x30000+uint32(i)*4, h)
	}

	pic.Write(bus.PICBaseAddr, 0x30000, store)
	pic.Write(bus.PICLenAddr, 0x03, store)

	for i, want := range handlers {
		got, ok := vt.Lookup(uint8(i))
		if !ok {
			t.Fatalf("Lookup(%d) ok = false", i)
		}

		if got != want {
			t.Errorf("Lookup(%d) = %#x, want %#x", i, got, want)
		}
	}
}
