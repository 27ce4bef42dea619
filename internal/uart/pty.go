package uart

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// openPTY opens a new PTY master on /dev/ptmx, unlocks its slave (TIOCSPTLCK),
// looks up the slave number (TIOCGPTN), sets the master non-blocking, and
// returns the master file together with the slave device path. It uses the
// same golang.org/x/sys/unix ioctl helpers that internal/tty uses for the
// console's termios configuration.
func openPTY() (*os.File, string, error) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		return nil, "", fmt.Errorf("uart: open /dev/ptmx: %w", err)
	}

	fd := int(master.Fd())

	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, "", fmt.Errorf("uart: unlock pty: %w", err)
	}

	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, "", fmt.Errorf("uart: pty number: %w", err)
	}

	slave := "/dev/pts/" + strconv.Itoa(n)

	if err := unix.SetNonblock(fd, true); err != nil {
		master.Close()
		return nil, "", fmt.Errorf("uart: set nonblocking: %w", err)
	}

	return master, slave, nil
}
