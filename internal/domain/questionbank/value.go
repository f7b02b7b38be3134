package questionbank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags which field of Value is populated.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueString
	ValueList
	ValueNumber
)

// Value is a raw answer: a string, a list of strings or a number.
type Value struct {
	kind ValueKind
	str  string
	list []string
	num  float64
}

func StringValue(s string) Value {
	return Value{kind: ValueString, str: s}
}

func ListValue(l ...string) Value {
	return Value{kind: ValueList, list: append([]string(nil), l...)}
}

func NumberValue(n float64) Value {
	return Value{kind: ValueNumber, num: n}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsZero() bool { return v.kind == ValueNone }

// Strings returns the selected option values: the list itself, or the
// string (or formatted number) as a single element.
func (v Value) Strings() []string {
	switch v.kind {
	case ValueString:
		return []string{v.str}
	case ValueList:
		return v.list
	case ValueNumber:
		return []string{strconv.FormatFloat(v.num, 'f', -1, 64)}
	}
	return nil
}

// Number returns the numeric reading of the value. Strings are parsed,
// lists are never numeric.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case ValueNumber:
		return v.num, true
	case ValueString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueList:
		return strings.Join(v.list, ", ")
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case ValueNumber:
		return json.Marshal(v.num)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '[':
		var l []string
		if err := json.Unmarshal(data, &l); err != nil {
			return fmt.Errorf("answer list must contain strings: %w", err)
		}
		*v = ListValue(l...)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("answer must be a string, list of strings or number: %w", err)
		}
		*v = NumberValue(n)
	}
	return nil
}
