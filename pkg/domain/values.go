package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Flag is a boolean persisted with the dataset's 0/1 sentinels.
type Flag bool

// MarshalJSON encodes the flag as 0 or 1.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON accepts 0/1, true/false, and their quoted forms.
func (f *Flag) UnmarshalJSON(data []byte) error {
	v, err := ParseFlag(strings.Trim(string(bytes.TrimSpace(data)), `"`))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// ParseFlag parses a sentinel value.
func ParseFlag(raw string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0", "false", "", "null":
		return false, nil
	case "1", "true":
		return true, nil
	default:
		return false, fmt.Errorf("flag must be 0 or 1, got %q", raw)
	}
}

// LocalID identifies a dilution within its developer. The dataset stores
// these as small integers but strings are tolerated.
type LocalID string

// MarshalJSON writes numeric ids as JSON numbers.
func (id LocalID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts numbers and strings.
func (id *LocalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = LocalID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("dilution id: %w", err)
	}
	*id = LocalID(normalizeNumber(n.String()))
	return nil
}

// NewLocalID returns a pointer to id, for optional references.
func NewLocalID(id string) *LocalID {
	v := LocalID(id)
	return &v
}

// TextOrNumber holds a value the dataset stores either as free text or as a
// number, preserving which form it came in.
type TextOrNumber struct {
	Value   string
	Numeric bool
}

// Text returns a TextOrNumber wrapping free text.
func Text(s string) *TextOrNumber { return &TextOrNumber{Value: s} }

func (t TextOrNumber) String() string { return t.Value }

// MarshalJSON preserves the original representation.
func (t TextOrNumber) MarshalJSON() ([]byte, error) {
	if t.Numeric {
		return []byte(t.Value), nil
	}
	return json.Marshal(t.Value)
}

// UnmarshalJSON accepts a string or number.
func (t *TextOrNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TextOrNumber{Value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("text or number: %w", err)
	}
	*t = TextOrNumber{Value: n.String(), Numeric: true}
	return nil
}

// StringList decodes either a list of strings or a single string.
type StringList []string

// UnmarshalJSON accepts ["a","b"], "a", or null.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s == "" {
			*l = nil
		} else {
			*l = StringList{s}
		}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

func normalizeNumber(s string) string {
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
