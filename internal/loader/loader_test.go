package loader_test

import (
	"testing"

	"github.com/vcore16/vcore16/internal/bus"
	"github.com/vcore16/vcore16/internal/loader"
	"github.com/vcore16/vcore16/internal/memory"
)

func TestLoadBootCopiesImageAndZeroFillsRemainder(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	bootSec := bus.MemorySection{Name: "boot", Type: bus.Boot, StartAddress: 0, PageCount: 1}
	b := bus.NewBus(store, []bus.MemorySection{bootSec})

	l := loader.New(b)

	image := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	n, err := l.LoadBoot(bootSec, image)
	if err != nil {
		t.Fatalf("LoadBoot() error = %v", err)
	}

	if n != len(image) {
		t.Errorf("n = %d, want %d", n, len(image))
	}

	for i, want := range image {
		if got := b.Read8(uint32(i)); got != want {
			t.Errorf("byte %d = %#x, want %#x", i, got, want)
		}
	}

	if got := b.Read8(uint32(len(image))); got != 0 {
		t.Errorf("byte past image = %#x, want 0 (zero-filled)", got)
	}
}

func TestLoadFlashWrongSectionTypeErrors(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	bootSec := bus.MemorySection{Name: "boot", Type: bus.Boot, StartAddress: 0, PageCount: 1}
	b := bus.NewBus(store, []bus.MemorySection{bootSec})

	l := loader.New(b)

	if _, err := l.LoadFlash(bootSec, []byte{0x01}); err == nil {
		t.Fatal("LoadFlash() error = nil, want error for non-flash section")
	}
}

func TestLoadImageExceedsSectionCapacity(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	flashSec := bus.MemorySection{Name: "flash", Type: bus.Flash, StartAddress: 0x30000, PageCount: 1}
	b := bus.NewBus(store, []bus.MemorySection{flashSec})

	l := loader.New(b)

	tooBig := make([]byte, 4097)

	if _, err := l.LoadFlash(flashSec, tooBig); err == nil {
		t.Fatal("LoadFlash() error = nil, want error for oversized image")
	}
}
