// pkg/core/number.go
package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a numeric input field that may be left empty.
// In JSON it accepts a number, a numeric string, "" or null; the last two mean empty.
// Unparseable strings are treated as empty rather than failing the whole document.
type Number struct {
	Value float64
	Set   bool
}

// Num returns a filled-in Number.
func Num(v float64) Number {
	return Number{Value: v, Set: true}
}

// Get returns the value and whether it was filled in.
func (n Number) Get() (float64, bool) {
	return n.Value, n.Set
}

// Or returns the value, or def when the field is empty.
func (n Number) Or(def float64) float64 {
	if !n.Set {
		return def
	}
	return n.Value
}

// MarshalJSON writes empty fields as "" so presets stay compatible with form exports.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte(`""`), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	*n = Num(v)
	return nil
}

// ParseNumber parses raw field text. Empty, invalid or non-finite text ("NaN", "inf")
// yields an empty Number.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Num(v)
}

// Index is a 1-based entity index. JSON accepts a number or a numeric string.
type Index int

// UnmarshalJSON implements json.Unmarshaler.
func (i *Index) UnmarshalJSON(data []byte) error {
	n := Number{}
	if err := n.UnmarshalJSON(data); err != nil {
		return err
	}
	*i = Index(int(n.Or(1)))
	return nil
}
