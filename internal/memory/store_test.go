package memory_test

import (
	"bytes"
	"testing"

	"github.com/vcore16/vcore16/internal/memory"
)

func TestStoreReadWrite(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()

	store.Write8(0x1000, 0xAB)
	if got := store.Read8(0x1000); got != 0xAB {
		t.Errorf("Read8(0x1000) = %#x, want 0xAB", got)
	}

	store.Write16(0x2000, 0xBEEF)
	if got := store.Read16(0x2000); got != 0xBEEF {
		t.Errorf("Read16(0x2000) = %#x, want 0xBEEF", got)
	}

	// Confirm big-endian byte order explicitly.
	if got := store.Read8(0x2000); got != 0xBE {
		t.Errorf("high byte = %#x, want 0xBE", got)
	}

	if got := store.Read8(0x2001); got != 0xEF {
		t.Errorf("low byte = %#x, want 0xEF", got)
	}

	store.Write32(0x3000, 0xDEADBEEF)
	if got := store.Read32(0x3000); got != 0xDEADBEEF {
		t.Errorf("Read32(0x3000) = %#x, want 0xDEADBEEF", got)
	}
}

func TestStoreReadUnallocatedIsZero(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()

	if got := store.Read8(0xABCD0000); got != 0 {
		t.Errorf("Read8 of unallocated page = %#x, want 0", got)
	}

	if store.PageCount() != 0 {
		t.Errorf("reading must not allocate, got %d pages", store.PageCount())
	}
}

func TestStoreBulkCopyAcrossPageBoundary(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()

	src := make([]byte, memory.PageSize+64)
	for i := range src {
		src[i] = byte(i)
	}

	dst := uint32(memory.PageSize - 32)
	store.BulkCopy(dst, src)

	for i, want := range src {
		got := store.Read8(dst + uint32(i))
		if got != want {
			t.Fatalf("byte %d = %#x, want %#x", i, got, want)
		}
	}

	if store.PageCount() != 3 {
		t.Errorf("PageCount() = %d, want 3", store.PageCount())
	}
}

func TestStoreBulkCopyRoundTrip(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	want := bytes.Repeat([]byte{0x42}, 128)

	store.BulkCopy(0x500, want)

	got := make([]byte, len(want))
	for i := range got {
		got[i] = store.Read8(0x500 + uint32(i))
	}

	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch: got %v, want %v", got, want)
	}
}

func TestStoreFreeAll(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.Write8(0x100, 1)
	store.Write8(0x200000, 1)

	store.FreeAll()

	if store.PageCount() != 0 {
		t.Errorf("PageCount() after FreeAll = %d, want 0", store.PageCount())
	}

	if err := store.SelfCheck(); err != nil {
		t.Errorf("SelfCheck() after FreeAll = %v, want nil", err)
	}
}

func TestStoreSelfCheck(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()

	for _, addr := range []uint32{0x50000, 0x10000, 0x30000, 0x20000, 0x40000} {
		store.Write8(addr, 1)
	}

	if err := store.SelfCheck(); err != nil {
		t.Errorf("SelfCheck() = %v, want nil", err)
	}

	if store.PageCount() != 5 {
		t.Errorf("PageCount() = %d, want 5", store.PageCount())
	}
}
