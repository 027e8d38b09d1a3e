package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is one submitted answer: a scalar string or, for checkbox fields, a set of strings.
type Value struct {
	scalar string
	items  []string
	isList bool
}

// Answers maps field ids to submitted values.
type Answers map[string]Value

// Text builds a scalar value.
func Text(s string) Value { return Value{scalar: s} }

// List builds a multi-valued answer.
func List(items ...string) Value {
	return Value{items: append([]string{}, items...), isList: true}
}

// IsList reports whether the value holds a set of strings.
func (v Value) IsList() bool { return v.isList }

// Items returns the selected entries of a list value.
func (v Value) Items() []string { return append([]string{}, v.items...) }

// String stringifies the value; list entries are joined with ",".
func (v Value) String() string {
	if v.isList {
		return strings.Join(v.items, ",")
	}
	return v.scalar
}

// Blank reports whether the stringified value is empty after trimming.
func (v Value) Blank() bool {
	return strings.TrimSpace(v.String()) == ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.isList {
		items := v.items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(v.scalar)
}

// UnmarshalJSON accepts strings, string arrays and loosely typed scalars.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Value{}
		return nil
	case data[0] == '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			s, err := scalarString(r)
			if err != nil {
				return err
			}
			items = append(items, s)
		}
		*v = Value{items: items, isList: true}
		return nil
	default:
		s, err := scalarString(data)
		if err != nil {
			return err
		}
		*v = Value{scalar: s}
		return nil
	}
}

func scalarString(data json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return n.String(), nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		return strconv.FormatBool(b), nil
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return "", nil
	}
	return "", fmt.Errorf("unsupported answer value %s", string(data))
}
