package bus

import (
	"errors"
	"sort"

	"github.com/vcore16/vcore16/internal/log"
	"github.com/vcore16/vcore16/internal/memory"
)

// ErrBus is the sentinel wrapped by bus-package errors.
var ErrBus = errors.New("bus error")

// Hook is a device's MMIO write handler, registered under its device tag
// (e.g. "UART", "PIC"). addr is the absolute address of the write; value
// carries the written bits right-justified regardless of access width.
type Hook interface {
	Write(addr uint32, value uint32, store *memory.Store)
}

// Bus wraps a paged Store with a sorted section table and MMIO dispatch.
type Bus struct {
	store    *memory.Store
	sections []MemorySection
	hooks    map[string]Hook
	log      *log.Logger
}

// NewBus builds a Bus over store, given the sections built from the memory
// configuration. Sections are sorted by StartAddress.
func NewBus(store *memory.Store, sections []MemorySection) *Bus {
	sorted := make([]MemorySection, len(sections))
	copy(sorted, sections)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartAddress < sorted[j].StartAddress })

	return &Bus{
		store:    store,
		sections: sorted,
		hooks:    make(map[string]Hook),
		log:      log.DefaultLogger(),
	}
}

// RegisterHook associates a device tag (as used in the "device" config key)
// with an MMIO write handler.
func (b *Bus) RegisterHook(device string, hook Hook) {
	b.hooks[device] = hook
}

// SectionOf returns the unique section containing addr, by binary search for
// the greatest StartAddress <= addr, or false if addr falls in no section.
func (b *Bus) SectionOf(addr uint32) (MemorySection, bool) {
	i := sort.Search(len(b.sections), func(i int) bool {
		return b.sections[i].StartAddress > addr
	})

	if i == 0 {
		return MemorySection{}, false
	}

	sec := b.sections[i-1]
	if !sec.Contains(addr) {
		return MemorySection{}, false
	}

	return sec, true
}

// dispatch routes a write of value (width bits used, right-justified) to the
// section classification. MMIO sections with a registered device hook are
// dispatched to the hook; MMIO with an unknown/unregistered device tag is a
// no-op; everything else (BOOT, USABLE, FLASH, STACK, and addresses in no
// section) passes through to the store.
func (b *Bus) dispatch(addr uint32, value uint32, width int, store func(addr uint32, value uint32)) {
	sec, ok := b.SectionOf(addr)
	if ok && sec.Type == MMIO {
		if hook, found := b.hooks[sec.Device]; found {
			hook.Write(addr, value, b.store)
			return
		}
		// Unknown device tag: no-op, per spec.
		return
	}

	store(addr, value)
}

// Read8 reads one byte, passing through the section classification.
func (b *Bus) Read8(addr uint32) uint8 { return b.store.Read8(addr) }

// Read16 reads a big-endian 16-bit value.
func (b *Bus) Read16(addr uint32) uint16 { return b.store.Read16(addr) }

// Read32 reads a big-endian 32-bit value.
func (b *Bus) Read32(addr uint32) uint32 { return b.store.Read32(addr) }

// Write8 writes one byte, dispatching to an MMIO hook if applicable.
func (b *Bus) Write8(addr uint32, v uint8) {
	b.dispatch(addr, uint32(v), 8, func(a uint32, val uint32) { b.store.Write8(a, uint8(val)) })
}

// Write16 writes a big-endian 16-bit value, dispatching to an MMIO hook if
// applicable.
func (b *Bus) Write16(addr uint32, v uint16) {
	b.dispatch(addr, uint32(v), 16, func(a uint32, val uint32) { b.store.Write16(a, uint16(val)) })
}

// Write32 writes a big-endian 32-bit value, dispatching to an MMIO hook if
// applicable.
func (b *Bus) Write32(addr uint32, v uint32) {
	b.dispatch(addr, v, 32, func(a uint32, val uint32) { b.store.Write32(a, val) })
}

// Store returns the underlying paged store, for loaders and bulk-copy use.
func (b *Bus) Store() *memory.Store { return b.store }
