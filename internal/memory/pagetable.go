package memory

import (
	"fmt"

	"github.com/vcore16/vcore16/internal/log"
)

// PageTable is the paged index over a CPU's physical address space. Pages are
// kept in ascending index order via a prev/next chain (for locality and the
// acyclicity self-check) plus a map keyed by page index, which the design
// note in the specification prefers for lookup safety over walking raw
// pointers from whichever end of the list is closer.
type PageTable struct {
	head, tail *Page
	byIndex    map[uint32]*Page
	count      int

	log *log.Logger
}

// NewPageTable creates an empty page table.
func NewPageTable() *PageTable {
	return &PageTable{
		byIndex: make(map[uint32]*Page),
		log:     log.DefaultLogger(),
	}
}

// PageCount returns the number of allocated pages.
func (pt *PageTable) PageCount() int { return pt.count }

// GetPtr returns a pointer to the byte at addr, allocating its backing page
// if allocate is true and the page does not yet exist. It returns nil if the
// page is absent and allocation is disallowed.
func (pt *PageTable) GetPtr(addr uint32, allocate bool) *byte {
	index := addr >> PageShift
	offset := addr & PageMask

	page, ok := pt.byIndex[index]
	if !ok {
		if !allocate {
			return nil
		}

		page = pt.insert(index)
	}

	return &page.bytes[offset]
}

// insert creates a zero-filled page at index and links it into the ordered
// chain at the correct sorted position.
func (pt *PageTable) insert(index uint32) *Page {
	page := &Page{index: index}
	pt.byIndex[index] = page
	pt.count++

	if pt.head == nil {
		pt.head = page
		pt.tail = page

		return page
	}

	switch {
	case index < pt.head.index:
		page.next = pt.head
		pt.head.prev = page
		pt.head = page
	case index > pt.tail.index:
		page.prev = pt.tail
		pt.tail.next = page
		pt.tail = page
	default:
		// Find the insertion point. This walks from the head; the table is
		// not expected to hold enough non-contiguous pages for this to be a
		// hot path. See design note for why a raw pointer walk was replaced
		// by the byIndex map for the common case.
		cur := pt.head
		for cur != nil && cur.index < index {
			cur = cur.next
		}

		page.prev = cur.prev
		page.next = cur
		if cur.prev != nil {
			cur.prev.next = page
		}
		cur.prev = page
	}

	return page
}

// Page returns the page at index, or nil if unallocated.
func (pt *PageTable) Page(index uint32) *Page {
	return pt.byIndex[index]
}

// FreeAll releases every page in the table.
func (pt *PageTable) FreeAll() {
	pt.byIndex = make(map[uint32]*Page)
	pt.head = nil
	pt.tail = nil
	pt.count = 0
}

// SelfCheck verifies the page-table invariants: the prev/next chain has no
// cycle (Floyd's algorithm), is internally consistent, and its length
// matches the recorded page count.
func (pt *PageTable) SelfCheck() error {
	slow, fast := pt.head, pt.head

	for fast != nil && fast.next != nil {
		slow = slow.next
		fast = fast.next.next

		if slow == fast {
			return fmt.Errorf("memory: page table cycle detected at index %d", slow.index)
		}
	}

	n := 0
	var prev *Page

	for cur := pt.head; cur != nil; cur = cur.next {
		if cur.prev != prev {
			return fmt.Errorf("memory: page table prev/next mismatch at index %d", cur.index)
		}

		prev = cur
		n++
	}

	if prev != pt.tail {
		return fmt.Errorf("memory: page table tail mismatch")
	}

	if n != pt.count {
		return fmt.Errorf("memory: page table count mismatch: have %d, counted %d", pt.count, n)
	}

	return nil
}
