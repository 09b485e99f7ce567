package keycombo

import (
	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

type entry[T any] struct {
	id    string
	combo Combo
	value T
}

// Table holds registered identifiers in registration order and answers which
// of them an event fires.
//
// When several entries match one event only those with the most modifiers
// are returned, so "Shift_KeyA" shadows a plain "KeyA" while Shift is held.
// Entries of equal specificity are returned in registration order.
type Table[T any] struct {
	entries []entry[T]
}

// Add registers id with value v. A malformed id or an id that is already
// registered is rejected with a validation error and the table is unchanged.
func (t *Table[T]) Add(id string, v T) error {
	c, err := Parse(id)
	if err != nil {
		return err
	}
	canonical := c.String()
	for _, e := range t.entries {
		if e.id == canonical {
			return errdef.New(errdef.CodeValidation, "key combination %q is already bound", canonical)
		}
	}
	t.entries = append(t.entries, entry[T]{id: canonical, combo: c, value: v})
	return nil
}

// Match returns the values fired by ev.
func (t *Table[T]) Match(ev Event) []T {
	best := -1
	var out []T
	for _, e := range t.entries {
		if !e.combo.Matches(ev) {
			continue
		}
		s := e.combo.Specificity()
		switch {
		case s > best:
			best = s
			out = append(out[:0], e.value)
		case s == best:
			out = append(out, e.value)
		}
	}
	return out
}

// Get returns the value registered under id.
func (t *Table[T]) Get(id string) (T, bool) {
	var zero T
	c, err := Parse(id)
	if err != nil {
		return zero, false
	}
	canonical := c.String()
	for _, e := range t.entries {
		if e.id == canonical {
			return e.value, true
		}
	}
	return zero, false
}

// IDs returns the registered identifiers in registration order.
func (t *Table[T]) IDs() []string {
	ids := make([]string, len(t.entries))
	for i, e := range t.entries {
		ids[i] = e.id
	}
	return ids
}

// Len returns the number of entries.
func (t *Table[T]) Len() int {
	return len(t.entries)
}

// Reset removes every entry.
func (t *Table[T]) Reset() {
	t.entries = nil
}
