// Package action holds the fixed catalog of automation routines a binding can
// trigger, their parameter schemas, and the per-instance execution guard.
package action

import (
	"context"
	"time"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

// Kind identifies an action routine. The numeric values are the persisted ids.
type Kind int

const (
	KindUnset      Kind = -1
	KindRepeatKeys Kind = 0
	KindMouseClick Kind = 1
	KindMouseMove  Kind = 2
	KindEnterText  Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindRepeatKeys:
		return "repeat-keys"
	case KindMouseClick:
		return "mouse-click"
	case KindMouseMove:
		return "mouse-move"
	case KindEnterText:
		return "enter-text"
	default:
		return "unset"
	}
}

// Title is the display name shown by editors.
func (k Kind) Title() string {
	switch k {
	case KindRepeatKeys:
		return "Active Key"
	case KindMouseClick:
		return "Mouse Click"
	case KindMouseMove:
		return "Mouse Move"
	case KindEnterText:
		return "Enter Text"
	default:
		return ""
	}
}

// ID returns the persisted id, nil for KindUnset.
func (k Kind) ID() *int {
	if k == KindUnset {
		return nil
	}
	id := int(k)
	return &id
}

// KindOf resolves a persisted id. Nil and unknown ids resolve to KindUnset.
func KindOf(id *int) Kind {
	if id == nil {
		return KindUnset
	}
	switch k := Kind(*id); k {
	case KindRepeatKeys, KindMouseClick, KindMouseMove, KindEnterText:
		return k
	default:
		return KindUnset
	}
}

// Parameter keys.
const (
	KeyRepetitions = "repetitions"
	KeyKeysArray   = "keysArray"
	KeyTimes       = "times"
	KeyRate        = "rate"
	KeySensitivity = "sensitivity"
	KeyText        = "text"
)

// DefaultParams returns a fresh copy of the parameter schema of k with its
// default values.
func (k Kind) DefaultParams() []Parameter {
	switch k {
	case KindRepeatKeys:
		return []Parameter{
			{Name: "Repetitions", Key: KeyRepetitions, Type: TypeNumber, Value: Number(1)},
			{Name: "Keys Array", Key: KeyKeysArray, Type: TypeKeysArray, Value: List("")},
		}
	case KindMouseClick:
		return []Parameter{
			{Name: "Times", Key: KeyTimes, Type: TypeNumber, Value: Number(1)},
			{Name: "Rate", Key: KeyRate, Type: TypeNumber, Value: Number(110)},
		}
	case KindMouseMove:
		return []Parameter{
			{Name: "Sensitivity", Key: KeySensitivity, Type: TypeNumber, Value: Number(1)},
			{Name: "Times", Key: KeyTimes, Type: TypeNumber, Value: Number(10)},
			{Name: "Rate", Key: KeyRate, Type: TypeNumber, Value: Number(10)},
		}
	case KindEnterText:
		return []Parameter{
			{Name: "Text", Key: KeyText, Type: TypeText, Value: Text("")},
		}
	default:
		return []Parameter{}
	}
}

// Definition is a catalog entry as presented to editors.
type Definition struct {
	ID     int         `json:"id"`
	Title  string      `json:"title"`
	Params []Parameter `json:"params"`
}

// Catalog lists every action kind in id order.
func Catalog() []Definition {
	kinds := []Kind{KindRepeatKeys, KindMouseClick, KindMouseMove, KindEnterText}
	out := make([]Definition, len(kinds))
	for i, k := range kinds {
		out[i] = Definition{ID: int(k), Title: k.Title(), Params: k.DefaultParams()}
	}
	return out
}

// Injector is the external service that performs synthetic input. Every
// call blocks until the injection finished or ctx is done.
type Injector interface {
	KeySequence(ctx context.Context, keys []string) error
	MouseClick(ctx context.Context, times int, rate time.Duration) error
	MouseMove(ctx context.Context, sensitivity, times int, rate time.Duration) error
	Text(ctx context.Context, text string) error
}

// run executes kind k against inj. It is only called through the guard.
func run(ctx context.Context, k Kind, p Params, inj Injector) error {
	switch k {
	case KindRepeatKeys:
		reps := max(p.int(KeyRepetitions, 1), 1)
		keys := p.list(KeyKeysArray)
		for i := 0; i < reps; i++ {
			if err := ctx.Err(); err != nil {
				return nil
			}
			if err := inj.KeySequence(ctx, keys); err != nil {
				return external(ctx, err, "repeat keys %d/%d", i+1, reps)
			}
		}
		return nil
	case KindMouseClick:
		times := max(p.int(KeyTimes, 1), 1)
		rate := millis(p.int(KeyRate, 110))
		return external(ctx, inj.MouseClick(ctx, times, rate), "mouse click")
	case KindMouseMove:
		rate := millis(p.int(KeyRate, 10))
		return external(ctx, inj.MouseMove(ctx, p.int(KeySensitivity, 1), max(p.int(KeyTimes, 10), 0), rate), "mouse move")
	case KindEnterText:
		return external(ctx, inj.Text(ctx, p.text(KeyText)), "enter text")
	case KindUnset:
		return nil
	default:
		return errdef.New(errdef.CodeValidation, "unknown action kind %d", int(k))
	}
}

// external wraps an injector failure. Cancellation is not a failure.
func external(ctx context.Context, err error, format string, args ...any) error {
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return errdef.Wrap(errdef.CodeExternal, err, format, args...)
}

func millis(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	return time.Duration(n) * time.Millisecond
}
