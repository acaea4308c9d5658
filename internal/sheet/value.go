package sheet

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a cell.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return "empty"
	}
}

// Value is a single cell: text, number or empty. The zero Value is empty.
type Value struct {
	kind Kind
	text string
	num  float64
}

// Empty returns the empty cell.
func Empty() Value { return Value{} }

// Text returns a text cell. An empty string yields the empty cell.
func Text(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

// Number returns a numeric cell.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

var numericPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Parse trims s and turns numeric-looking text into a number.
func Parse(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}
	if numericPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) {
			return Number(f)
		}
	}
	return Text(s)
}

// ValueOf converts a decoded JSON or spreadsheet cell into a Value.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{}
	case Value:
		return x
	case string:
		return Parse(x)
	case float64:
		return numberOrEmpty(x)
	case float32:
		return numberOrEmpty(float64(x))
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case json.Number:
		return Parse(x.String())
	case bool:
		return Text(strconv.FormatBool(x))
	default:
		return Parse(fmt.Sprint(x))
	}
}

func numberOrEmpty(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Number(f)
}

// Kind reports the cell's kind.
func (v Value) Kind() Kind { return v.kind }

// IsEmpty reports whether the cell holds nothing.
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// IsNumber reports whether the cell is numeric.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// Float returns the numeric value and whether the cell is numeric.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the cell the way a grid shows it.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Any returns the cell as float64, string or "" for JSON-facing payloads.
func (v Value) Any() any {
	if v.kind == KindNumber {
		return v.num
	}
	return v.String()
}

// Equal reports whether two cells hold the same kind and content.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.text == o.text && v.num == o.num
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.String())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}
	*v = ValueOf(raw)
	return nil
}

// FormatNumber renders integers without a fraction and everything else with
// the shortest exact representation.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Round2 rounds to two decimals, the precision derived columns are stored at.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
