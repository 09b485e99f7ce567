package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// ParamType is the editor widget a parameter is edited with. The string
// values are part of the persisted format.
type ParamType string

const (
	TypeNumber    ParamType = "number"
	TypeText      ParamType = "text"
	TypeKeysArray ParamType = "keysArray" // ordered key sequence
	TypeKeyDown   ParamType = "keyDown"   // single captured key combination
)

type valueKind uint8

const (
	valueNone valueKind = iota
	valueNumber
	valueText
	valueList
	valueForeign // JSON of a shape no action reads, kept verbatim
)

// Value holds a parameter value: a number, a string or a list of strings.
// The zero Value is empty and marshals to null. Any other JSON (an object, a
// bool, a mixed list) decodes as a foreign value that no action accepts.
type Value struct {
	kind valueKind
	num  float64
	text string
	list []string
	raw  json.RawMessage
}

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: valueNumber, num: n} }

// Text returns a string value.
func Text(s string) Value { return Value{kind: valueText, text: s} }

// List returns a string-list value. The slice is copied.
func List(items ...string) Value {
	return Value{kind: valueList, list: slices.Clone(nonNil(items))}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// IsNumber, IsText and IsList report the stored variant.
func (v Value) IsNumber() bool { return v.kind == valueNumber }
func (v Value) IsText() bool   { return v.kind == valueText }
func (v Value) IsList() bool   { return v.kind == valueList }

// Foreign reports whether v holds JSON of an unsupported shape.
func (v Value) Foreign() bool { return v.kind == valueForeign }

// Num returns the number and whether v holds one.
func (v Value) Num() (float64, bool) { return v.num, v.kind == valueNumber }

// Str returns the string and whether v holds one.
func (v Value) Str() (string, bool) { return v.text, v.kind == valueText }

// Strings returns a copy of the list and whether v holds one.
func (v Value) Strings() ([]string, bool) {
	if v.kind != valueList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// Int returns the number truncated to an int, or def when v is not a number.
func (v Value) Int(def int) int {
	if v.kind != valueNumber {
		return def
	}
	return int(v.num)
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := v
	if v.list != nil {
		out.list = slices.Clone(v.list)
	}
	if v.raw != nil {
		out.raw = slices.Clone(v.raw)
	}
	return out
}

// Equal reports whether two values hold the same variant and content.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.num == o.num && v.text == o.text &&
		slices.Equal(v.list, o.list) && bytes.Equal(v.raw, o.raw)
}

func (v Value) String() string {
	switch v.kind {
	case valueNumber:
		return fmt.Sprintf("%g", v.num)
	case valueText:
		return v.text
	case valueList:
		return fmt.Sprintf("%v", v.list)
	case valueForeign:
		return string(v.raw)
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueNumber:
		return json.Marshal(v.num)
	case valueText:
		return json.Marshal(v.text)
	case valueList:
		return json.Marshal(nonNil(v.list))
	case valueForeign:
		return slices.Clone(v.raw), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON never rejects well-formed JSON: a value of the wrong shape
// must not make the whole document unreadable.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	var (
		s     string
		items []string
		n     float64
	)
	switch {
	case data[0] == '"' && json.Unmarshal(data, &s) == nil:
		*v = Text(s)
	case data[0] == '[' && json.Unmarshal(data, &items) == nil:
		*v = List(items...)
	case json.Unmarshal(data, &n) == nil:
		*v = Number(n)
	default:
		*v = Value{kind: valueForeign, raw: slices.Clone(json.RawMessage(data))}
	}
	return nil
}

// Parameter is one configurable input of an action. Key identifies the
// parameter to the action's run function; Name is its display label.
type Parameter struct {
	Name  string    `json:"name"`
	Key   string    `json:"key"`
	Type  ParamType `json:"type"`
	Value Value     `json:"value"`
}

// CloneParams deep-copies a parameter list, preserving order.
func CloneParams(params []Parameter) []Parameter {
	if params == nil {
		return nil
	}
	out := make([]Parameter, len(params))
	for i, p := range params {
		out[i] = p
		out[i].Value = p.Value.Clone()
	}
	return out
}

// Params is a parameter list indexed by key, as seen by a run function.
type Params map[string]Value

// Bind indexes params by key. A later parameter with the same key wins.
func Bind(params []Parameter) Params {
	out := make(Params, len(params))
	for _, p := range params {
		out[p.Key] = p.Value.Clone()
	}
	return out
}

func (p Params) int(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	return v.Int(def)
}

func (p Params) text(key string) string {
	s, _ := p[key].Str()
	return s
}

func (p Params) list(key string) []string {
	if items, ok := p[key].Strings(); ok {
		return items
	}
	if s, ok := p[key].Str(); ok && s != "" {
		return []string{s}
	}
	return nil
}
