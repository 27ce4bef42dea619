// Package memory implements the machine's paged physical address space.
package memory

// PageSize is the size in bytes of a single page. Addresses are split as
// index = addr >> PageShift, offset = addr & PageMask.
const (
	PageSize  = 4096
	PageShift = 12
	PageMask  = PageSize - 1
)

// Page is one allocated unit of physical memory. It is always fully
// allocated and zero-filled when created.
type Page struct {
	index uint32
	bytes [PageSize]byte

	// prev/next link pages in ascending index order; used only for the
	// acyclicity self-check and for sequential-walk locality. Lookup itself
	// goes through PageTable's index.
	prev, next *Page
}

// Index returns the page's page-index (addr >> PageShift).
func (p *Page) Index() uint32 { return p.index }
