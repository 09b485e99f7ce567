// Package inject turns action requests into timed press/release sequences on
// a synthetic input device.
package inject

import (
	"context"
	"strings"
	"time"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
	"github.com/HopIT-Hub/macrokey/internal/keycombo"
)

const (
	keyHold   = 10 * time.Millisecond
	clickHold = 20 * time.Millisecond
)

// Device is a synthetic input device. Key codes use the same names as
// key-combination identifiers; button indexes follow keycombo.ButtonName.
type Device interface {
	Key(code string, down bool) error
	Button(index int, down bool) error
	Move(dx, dy int) error
	Type(text string) error
}

// Injector performs actions on a Device. It implements action.Injector.
type Injector struct {
	dev Device
}

// New returns an injector driving dev.
func New(dev Device) *Injector {
	return &Injector{dev: dev}
}

// KeySequence taps each entry of keys in order. An entry is a canonical
// identifier: its modifiers are held around a tap of the primary key or
// button. Empty entries are skipped.
func (in *Injector) KeySequence(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		c, err := keycombo.Parse(k)
		if err != nil {
			return err
		}
		if err := in.tap(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (in *Injector) tap(ctx context.Context, c keycombo.Combo) (err error) {
	var held []string
	if c.Ctrl {
		held = append(held, keycombo.ControlLeft)
	}
	if c.Alt {
		held = append(held, keycombo.AltLeft)
	}
	if c.Shift {
		held = append(held, keycombo.ShiftLeft)
	}
	for i, m := range held {
		if err := in.dev.Key(m, true); err != nil {
			_ = in.release(held[:i])
			return errdef.Wrap(errdef.CodeExternal, err, "press %s", m)
		}
	}
	defer func() {
		if rerr := in.release(held); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if idx, ok := keycombo.ButtonIndex(c.Primary); ok {
		return in.press(ctx, keyHold, c.Primary, func(down bool) error { return in.dev.Button(idx, down) })
	}
	return in.press(ctx, keyHold, c.Primary, func(down bool) error { return in.dev.Key(c.Primary, down) })
}

// press holds a key or button for hold. The release is sent even when ctx
// is cancelled during the hold.
func (in *Injector) press(ctx context.Context, hold time.Duration, name string, set func(down bool) error) error {
	if err := set(true); err != nil {
		return errdef.Wrap(errdef.CodeExternal, err, "press %s", name)
	}
	sleepErr := sleep(ctx, hold)
	if err := set(false); err != nil {
		return errdef.Wrap(errdef.CodeExternal, err, "release %s", name)
	}
	return sleepErr
}

// release lets go of held modifiers in reverse order.
func (in *Injector) release(held []string) error {
	var first error
	for i := len(held) - 1; i >= 0; i-- {
		if err := in.dev.Key(held[i], false); err != nil && first == nil {
			first = errdef.Wrap(errdef.CodeExternal, err, "release %s", held[i])
		}
	}
	return first
}

// MouseClick clicks the left button times times, waiting rate after each
// click.
func (in *Injector) MouseClick(ctx context.Context, times int, rate time.Duration) error {
	left := keycombo.ButtonName(0)
	for i := 0; i < times; i++ {
		if err := in.press(ctx, clickHold, left, func(down bool) error { return in.dev.Button(0, down) }); err != nil {
			return err
		}
		if err := sleep(ctx, rate); err != nil {
			return err
		}
	}
	return nil
}

// MouseMove moves the pointer down by sensitivity, times times, waiting
// rate after each step. A negative sensitivity moves up.
func (in *Injector) MouseMove(ctx context.Context, sensitivity, times int, rate time.Duration) error {
	for i := 0; i < times; i++ {
		if err := in.dev.Move(0, sensitivity); err != nil {
			return errdef.Wrap(errdef.CodeExternal, err, "move pointer")
		}
		if err := sleep(ctx, rate); err != nil {
			return err
		}
	}
	return nil
}

// Text types text literally.
func (in *Injector) Text(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := in.dev.Type(text); err != nil {
		return errdef.Wrap(errdef.CodeExternal, err, "type text")
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
