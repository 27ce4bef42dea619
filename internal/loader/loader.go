// Package loader copies program/boot and flash images into a machine's
// memory before the scheduler starts running tasks.
package loader

import (
	"errors"
	"fmt"

	"github.com/vcore16/vcore16/internal/bus"
	"github.com/vcore16/vcore16/internal/log"
)

// ErrLoader is the sentinel wrapped by load failures.
var ErrLoader = errors.New("loader error")

// Loader copies raw images into a bus's backing store.
type Loader struct {
	bus *bus.Bus
	log *log.Logger
}

// New creates a loader writing through b.
func New(b *bus.Bus) *Loader {
	return &Loader{bus: b, log: log.DefaultLogger()}
}

// LoadBoot copies data verbatim into section starting at section.StartAddress.
// The remainder of the section is left zero-filled (pages are zeroed on
// allocation), matching the boot/program file format. section must be of
// type bus.Boot.
func (l *Loader) LoadBoot(section bus.MemorySection, data []byte) (int, error) {
	if section.Type != bus.Boot {
		return 0, fmt.Errorf("%w: section %q is not a boot section", ErrLoader, section.Name)
	}

	if err := l.checkFits(section, data); err != nil {
		return 0, err
	}

	l.bus.Store().BulkCopy(section.StartAddress, data)
	l.log.Info("boot image loaded", "section", section.Name, "bytes", len(data))

	return len(data), nil
}

// LoadFlash copies data into a flash section starting at its base address.
// The image is conceptually chunked into PageSize blocks with the trailing
// block zero-padded; since pages are always fully allocated and zeroed,
// BulkCopy already yields that layout.
func (l *Loader) LoadFlash(section bus.MemorySection, data []byte) (int, error) {
	if section.Type != bus.Flash {
		return 0, fmt.Errorf("%w: section %q is not a flash section", ErrLoader, section.Name)
	}

	if err := l.checkFits(section, data); err != nil {
		return 0, err
	}

	l.bus.Store().BulkCopy(section.StartAddress, data)
	l.log.Info("flash image loaded", "section", section.Name, "bytes", len(data))

	return len(data), nil
}

func (l *Loader) checkFits(section bus.MemorySection, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty image for section %q", ErrLoader, section.Name)
	}

	if uint32(len(data)) > section.PageCount*4096 {
		return fmt.Errorf("%w: image for section %q (%d bytes) exceeds section capacity (%d bytes)",
			ErrLoader, section.Name, len(data), section.PageCount*4096)
	}

	return nil
}
