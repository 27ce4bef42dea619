package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vcore16/vcore16/internal/bus"
	"github.com/vcore16/vcore16/internal/cli"
	"github.com/vcore16/vcore16/internal/config"
	"github.com/vcore16/vcore16/internal/core"
	"github.com/vcore16/vcore16/internal/log"
)

// Run builds the "run" sub-command: load a memory configuration and a
// program/boot image (and optionally a flash image), then run the machine
// to completion.
func Run() cli.Command {
	return new(run)
}

type run struct {
	configPath string
	imagePath  string
	flashPath  string
	debug      bool
}

func (run) Description() string {
	return "run a program/boot image to completion"
}

func (r run) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `
run -c <config.ini> -i <image> [-m <flash image>] [-debug]

Load the memory configuration and program/boot image, then run the machine
until the kernel task halts or the task ring empties.`)

	return err
}

func (r *run) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)

	fs.StringVar(&r.configPath, "c", "", "memory configuration (INI)")
	fs.StringVar(&r.imagePath, "i", "", "program/boot image")
	fs.StringVar(&r.flashPath, "m", "", "flash image")
	fs.BoolVar(&r.debug, "debug", false, "enable debug logging")

	return fs
}

// Run implements cli.Command. Exit codes: 0 normal halt, 1 invalid
// args/load failure, 2 runtime fault.
func (r run) Run(ctx context.Context, _ []string, out io.Writer, logger *log.Logger) int {
	if r.debug {
		log.LogLevel.Set(log.Debug)
	}

	if r.configPath == "" || r.imagePath == "" {
		logger.Error("run: -c and -i are required")
		return 1
	}

	sections, err := loadConfig(r.configPath)
	if err != nil {
		logger.Error("run: config error", "err", err)
		return 1
	}

	bootSec, ok := firstOfType(sections, bus.Boot)
	if !ok {
		logger.Error("run: no boot_sector section in config")
		return 1
	}

	machine, err := core.New(core.Config{
		Sections:    sections,
		TimeSlot:    100,
		KernelEntry: uint16(bootSec.StartAddress),
	})
	if err != nil {
		logger.Error("run: failed to assemble machine", "err", err)
		return 1
	}

	image, err := os.ReadFile(r.imagePath)
	if err != nil {
		logger.Error("run: failed to read image", "err", err)
		return 1
	}

	if _, err := machine.Loader.LoadBoot(bootSec, image); err != nil {
		logger.Error("run: failed to load boot image", "err", err)
		return 1
	}

	if r.flashPath != "" {
		flashSec, ok := firstOfType(sections, bus.Flash)
		if !ok {
			logger.Error("run: -m given but no flash section in config")
			return 1
		}

		flashImage, err := os.ReadFile(r.flashPath)
		if err != nil {
			logger.Error("run: failed to read flash image", "err", err)
			return 1
		}

		if _, err := machine.Loader.LoadFlash(flashSec, flashImage); err != nil {
			logger.Error("run: failed to load flash image", "err", err)
			return 1
		}
	}

	machine.Start()
	defer machine.Shutdown()

	fmt.Fprintf(out, "uart: slave pty at %s\n", machine.UART.SlavePath())

	if err := machine.Run(); err != nil {
		logger.Error("run: runtime fault", "err", err)
		return 2
	}

	return 0
}

func loadConfig(path string) ([]bus.MemorySection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return config.Parse(f)
}

func firstOfType(sections []bus.MemorySection, t bus.SectionType) (bus.MemorySection, bool) {
	for _, s := range sections {
		if s.Type == t {
			return s, true
		}
	}

	return bus.MemorySection{}, false
}
