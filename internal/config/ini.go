// Package config parses the memory configuration INI file into the sorted
// section table the memory bus is built from.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vcore16/vcore16/internal/bus"
	"github.com/vcore16/vcore16/internal/log"
)

// ErrConfig is the sentinel wrapped by parse errors. Malformed sections or
// key=value lines abort the parse; unknown keys only warn.
var ErrConfig = errors.New("config error")

var sectionTypes = map[string]bus.SectionType{
	"boot_sector":   bus.Boot,
	"usable_memory": bus.Usable,
	"mmio_page":     bus.MMIO,
	"flash":         bus.Flash,
}

// Parse reads an INI-format memory configuration from r and returns its
// sections, unsorted in source order (bus.NewBus sorts them).
//
// Grammar: `[name]` section headers; `key=value` lines; `;` and `#` line
// comments; leading/trailing whitespace trimmed. Recognized keys are `type`,
// `start_address`, `page_count`, and `device`.
func Parse(r io.Reader) ([]bus.MemorySection, error) {
	scanner := bufio.NewScanner(r)

	var sections []bus.MemorySection

	var cur *bus.MemorySection

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "["):
			if cur != nil {
				sections = append(sections, *cur)
			}

			name, err := parseSectionHeader(line)
			if err != nil {
				return nil, fmt.Errorf("config: line %d: %w: %w", lineNo, ErrConfig, err)
			}

			cur = &bus.MemorySection{Name: name}
		default:
			if cur == nil {
				return nil, fmt.Errorf("config: line %d: %w: key=value outside any section", lineNo, ErrConfig)
			}

			if err := applyKV(cur, line); err != nil {
				return nil, fmt.Errorf("config: line %d: %w: %w", lineNo, ErrConfig, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: %w: %w", ErrConfig, err)
	}

	if cur != nil {
		sections = append(sections, *cur)
	}

	return sections, nil
}

func stripComment(line string) string {
	if i := strings.IndexAny(line, ";#"); i >= 0 {
		return line[:i]
	}

	return line
}

func parseSectionHeader(line string) (string, error) {
	if !strings.HasSuffix(line, "]") {
		return "", fmt.Errorf("malformed section header: %q", line)
	}

	name := strings.TrimSpace(line[1 : len(line)-1])
	if name == "" {
		return "", fmt.Errorf("empty section name")
	}

	return name, nil
}

func applyKV(sec *bus.MemorySection, line string) error {
	k, v, ok := strings.Cut(line, "=")
	if !ok {
		return fmt.Errorf("malformed key=value line: %q", line)
	}

	k = strings.TrimSpace(k)
	v = strings.TrimSpace(v)

	switch k {
	case "type":
		t, ok := sectionTypes[v]
		if !ok {
			return fmt.Errorf("unknown section type: %q", v)
		}

		sec.Type = t
	case "start_address":
		n, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return fmt.Errorf("bad start_address: %w", err)
		}

		sec.StartAddress = uint32(n)
	case "page_count":
		n, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return fmt.Errorf("bad page_count: %w", err)
		}

		sec.PageCount = uint32(n)
	case "device":
		sec.Device = v
	default:
		log.DefaultLogger().Warn("config: unknown key, ignoring", "key", k, "section", sec.Name)
	}

	return nil
}
