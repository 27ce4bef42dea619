package memory

import (
	"errors"

	"github.com/vcore16/vcore16/internal/log"
)

// ErrMemory is the sentinel wrapped by all memory-package errors.
var ErrMemory = errors.New("memory error")

// Store is the paged, byte-granular physical address space. Addresses are
// 32-bit; reads and writes are always big-endian.
type Store struct {
	table *PageTable
	log   *log.Logger
}

// NewStore creates an empty paged memory store.
func NewStore() *Store {
	return &Store{
		table: NewPageTable(),
		log:   log.DefaultLogger(),
	}
}

// PageCount returns the number of pages currently allocated.
func (s *Store) PageCount() int { return s.table.PageCount() }

// SelfCheck verifies page-table invariants; see PageTable.SelfCheck.
func (s *Store) SelfCheck() error { return s.table.SelfCheck() }

// FreeAll releases every page.
func (s *Store) FreeAll() { s.table.FreeAll() }

// Read8 reads one byte. If the page is unallocated, it logs a memory
// violation and returns 0; it never allocates.
func (s *Store) Read8(addr uint32) uint8 {
	p := s.table.GetPtr(addr, false)
	if p == nil {
		s.log.Warn("memory violation: read from unallocated page", "addr", addr)
		return 0
	}

	return *p
}

// Write8 writes one byte, allocating the backing page if needed.
func (s *Store) Write8(addr uint32, v uint8) {
	p := s.table.GetPtr(addr, true)
	*p = v
}

// Read16 reads a big-endian 16-bit value, one byte at a time.
func (s *Store) Read16(addr uint32) uint16 {
	hi := s.Read8(addr)
	lo := s.Read8(addr + 1)

	return uint16(hi)<<8 | uint16(lo)
}

// Write16 writes a big-endian 16-bit value, one byte at a time.
func (s *Store) Write16(addr uint32, v uint16) {
	s.Write8(addr, uint8(v>>8))
	s.Write8(addr+1, uint8(v))
}

// Read32 reads a big-endian 32-bit value, one byte at a time.
func (s *Store) Read32(addr uint32) uint32 {
	b0 := s.Read8(addr)
	b1 := s.Read8(addr + 1)
	b2 := s.Read8(addr + 2)
	b3 := s.Read8(addr + 3)

	return uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
}

// Write32 writes a big-endian 32-bit value, one byte at a time.
func (s *Store) Write32(addr uint32, v uint32) {
	s.Write8(addr, uint8(v>>24))
	s.Write8(addr+1, uint8(v>>16))
	s.Write8(addr+2, uint8(v>>8))
	s.Write8(addr+3, uint8(v))
}

// BulkCopy copies src into the store starting at dst, page by page,
// allocating pages on demand. The part of the copy that falls in each page,
// including an unaligned head or tail, is copied in one shot.
func (s *Store) BulkCopy(dst uint32, src []byte) {
	remaining := src

	for len(remaining) > 0 {
		offset := dst & PageMask
		bytesInPage := uint32(PageSize) - offset

		n := bytesInPage
		if uint32(len(remaining)) < n {
			n = uint32(len(remaining))
		}

		index := dst >> PageShift
		page := s.table.Page(index)

		if page == nil {
			s.table.GetPtr(dst, true) // force allocation of this page
			page = s.table.Page(index)
		}

		copy(page.bytes[offset:offset+n], remaining[:n])

		dst += n
		remaining = remaining[n:]
	}
}
