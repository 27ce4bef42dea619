// Package tty provides a debug console: terminal I/O bridged to the
// machine's GUI shared-memory region, for operators running without a real
// GUI process attached.
package tty

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/vcore16/vcore16/internal/shm"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Console is a debug console for the machine, built on Unix terminal I/O[^1].
// It adapts the GUI shared-memory contract (internal/shm) for use on a
// contemporary terminal in place of a real GUI process.
//
// Keys pressed on the console are pushed into the shared-memory keyboard
// queue. Writes to the shared-memory display are mirrored to the terminal.
//
// [1]: See: tty(4), termios(4).
type Console struct {
	in    *os.File
	out   *term.Terminal
	fd    int
	state *term.State

	keyCh chan uint8
}

// ErrNoTTY is returned if standard input is not a terminal. In this case, asynchronous I/O is
// not supported by the console.
var ErrNoTTY error = errors.New("console: not a TTY")

// ConsoleContext creates a Console context wired to region. Calling cancel
// will restore the terminal state and release resources.
func ConsoleContext(parent context.Context, region *shm.Region) (
	context.Context, *Console, context.CancelFunc,
) {
	ctx, cause := context.WithCancelCause(parent)

	console, err := NewConsole(os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		cause(err)

		return ctx, console, func() { cause(err) }
	}

	go console.readTerminal(ctx, cause)
	go console.updateKeyboard(ctx, region, cause)
	go console.updateTerminal(ctx, region, cause)

	return ctx, console, console.Restore
}

// NewConsole creates a Console using the provided streams. If the input stream is not a terminal,
// ErrNoTTY is returned. Callers are responsible for calling [Restore] to return the terminal to its
// initial state.
func NewConsole(sin, _, _ *os.File) (*Console, error) {
	fd := int(sin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	cons := Console{
		fd:    fd,
		in:    sin,
		out:   term.NewTerminal(sin, ""),
		state: saved,
		keyCh: make(chan uint8, 1),
	}

	if err := cons.setTerminalParams(1, 0); err != nil {
		return nil, err
	}

	return &cons, nil
}

// Press injects a key press into the input stream.
func (c Console) Press(key byte) {
	c.keyCh <- key
}

// Writer returns an io.Writer that writes to the terminal.
func (c Console) Writer() io.Writer {
	return c.out
}

// Restore returns the terminal to its initial state and cancels in-progress reads.
func (c *Console) Restore() {
	_ = os.Stdin.SetReadDeadline(time.Now())
	_ = term.Restore(c.fd, c.state)
}

func (c *Console) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	_ = os.Stdin.SetReadDeadline(time.Time{})

	return nil
}

// readTerminal reads bytes from the terminal and writes them to the key channel until the context
// is cancelled. If reading from the terminal fails, the cancel is called.
func (c Console) readTerminal(ctx context.Context, cancel context.CancelCauseFunc) {
	buf := bufio.NewReader(c.in)

	_ = syscall.SetNonblock(c.fd, false)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b, err := buf.ReadByte()
		if err != nil {
			cancel(err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case c.keyCh <- b:
		}
	}
}

// updateKeyboard takes keys from the key channel and pushes each into the
// shared-memory keyboard queue as a press followed immediately by a release,
// until the context is cancelled.
func (c Console) updateKeyboard(ctx context.Context, region *shm.Region, _ context.CancelCauseFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case key := <-c.keyCh:
			region.PushKey(key, true)
			region.PushKey(key, false)
		}
	}
}

// updateTerminal waits for shared-memory display changes and redraws the
// full LCD frame to the terminal.
func (c Console) updateTerminal(ctx context.Context, region *shm.Region, cancel context.CancelCauseFunc) {
	for {
		select {
		case <-region.Changed():
			frame := region.Display()
			for _, row := range frame {
				if _, err := fmt.Fprintf(c.out, "%s\r\n", row[:]); err != nil {
					cancel(err)
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
