package cmd

import (
	"context"
	"strconv"

	"github.com/eiannone/keyboard"
	"github.com/jsphweid/sightreader/interpreter"
	"github.com/pkg/errors"
)

// seekBuffer collects the digits of a measure number typed on the terminal.
type seekBuffer struct {
	digits []rune
}

func (b *seekBuffer) add(r rune) bool {
	if r < '0' || r > '9' || len(b.digits) >= 6 {
		return false
	}
	b.digits = append(b.digits, r)
	return true
}

func (b *seekBuffer) backspace() {
	if len(b.digits) > 0 {
		b.digits = b.digits[:len(b.digits)-1]
	}
}

// take returns the buffered number and clears the buffer.
func (b *seekBuffer) take() (int, bool) {
	defer func() { b.digits = nil }()
	if len(b.digits) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(string(b.digits))
	return n, err == nil
}

// runControlSurface reads the terminal keyboard until q, Esc or Ctrl-C, or
// until ctx is done.
func runControlSurface(ctx context.Context, interp *interpreter.Interpreter, reporter *positionReporter, quit func()) error {
	keys, err := keyboard.GetKeys(16)
	if err != nil {
		return errors.Wrap(err, "unable to open keyboard")
	}
	defer func() {
		if err := keyboard.Close(); err != nil {
			logger.Warn("unable to close keyboard", "err", err)
		}
	}()

	var buf seekBuffer
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-keys:
			if ev.Err != nil {
				return errors.Wrap(ev.Err, "keyboard")
			}
			switch {
			case ev.Rune == 'q', ev.Key == keyboard.KeyEsc, ev.Key == keyboard.KeyCtrlC:
				quit()
				return nil
			case ev.Key == keyboard.KeyEnter:
				n, ok := buf.take()
				if !ok {
					continue
				}
				if err := interp.Seek(n); err != nil {
					logger.Warn("seek failed", "measure", n, "err", err)
					continue
				}
				reporter.Trigger()
			case ev.Key == keyboard.KeyBackspace, ev.Key == keyboard.KeyBackspace2:
				buf.backspace()
			default:
				buf.add(ev.Rune)
			}
		}
	}
}
