// Package bus implements the memory bus: it wraps the paged memory store,
// classifies every access against a sorted section table, and dispatches
// MMIO writes to registered device hooks.
package bus

import "github.com/vcore16/vcore16/internal/memory"

// SectionType classifies a MemorySection.
type SectionType uint8

const (
	Boot SectionType = iota
	Usable
	MMIO
	Flash
	Stack
)

func (t SectionType) String() string {
	switch t {
	case Boot:
		return "BOOT"
	case Usable:
		return "USABLE"
	case MMIO:
		return "MMIO"
	case Flash:
		return "FLASH"
	case Stack:
		return "STACK"
	default:
		return "UNKNOWN"
	}
}

// MemorySection describes one region of the address space built once at
// startup from the memory configuration.
type MemorySection struct {
	Name         string
	Type         SectionType
	StartAddress uint32
	PageCount    uint32
	Device       string
}

// End returns the address one past the last byte of the section.
func (s MemorySection) End() uint32 {
	return s.StartAddress + s.PageCount*memory.PageSize
}

// Contains reports whether addr falls within the section.
func (s MemorySection) Contains(addr uint32) bool {
	return addr >= s.StartAddress && addr < s.End()
}
