// Termtest is a testing tool for Unix terminal I/O. Lacking simple PTY support, running this tool
// manually is easier than writing automated tests.
package main

import (
	"context"
	"time"

	"github.com/vcore16/vcore16/internal/log"
	"github.com/vcore16/vcore16/internal/shm"
	"github.com/vcore16/vcore16/internal/tty"
)

var logger = log.DefaultLogger()

func main() {
	var (
		ctx    = context.Background()
		region = shm.New()
	)

	ctx, _, cancel := tty.ConsoleContext(ctx, region)
	defer cancel()

	poll := time.Tick(100 * time.Millisecond)
	timeout := time.After(5 * time.Second)

	select {
	case <-ctx.Done():
		logger.Debug("cause", context.Cause(ctx))
	default:
	}

	logger.Info("Polling keyboard. Type keys.")

	region.WriteDisplay(0, 0, '\n')

	for {
		select {
		case <-poll:
			scanCode, pressed := region.Keyboard()
			if pressed {
				region.WriteDisplay(0, 0, scanCode)
			}
		case <-timeout:
			cancel()
			return
		case <-ctx.Done():
			if ctx.Err() != nil {
				logger.Error(context.Cause(ctx).Error())
			} else {
				logger.Info("Done")
			}
		}
	}
}
