// Package records decodes and validates the JSON song-metadata and event-log
// files that feed the warehouse.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedRecord is matched by every *MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError describes a record that does not have the expected shape.
type MalformedRecordError struct {
	Path   string
	Line   int    // 1-based line in the file, 0 when not applicable
	Field  string // offending JSON key, empty for syntax errors
	Reason string
}

func (e *MalformedRecordError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed record")
	if e.Path != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Path)
		if e.Line > 0 {
			sb.WriteString(":" + strconv.Itoa(e.Line))
		}
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, ": field %q", e.Field)
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	return sb.String()
}

// Is reports whether target is ErrMalformedRecord.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Field is a JSON value that remembers whether its key was present and
// whether it held null.
type Field[T any] struct {
	Value   T
	Present bool
	Null    bool
}

// UnmarshalJSON implements json.Unmarshaler. It is called for null values too.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Present = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.Null = true
		return nil
	}
	return json.Unmarshal(b, &f.Value)
}

// Valid reports whether the key was present with a non-null value.
func (f Field[T]) Valid() bool {
	return f.Present && !f.Null
}

// Ptr returns a pointer to the value, or nil when absent or null.
func (f Field[T]) Ptr() *T {
	if !f.Valid() {
		return nil
	}
	v := f.Value
	return &v
}

// IntString is an integer that may be encoded as a JSON number or as a
// JSON string ("39"). The empty string decodes to an unset value.
type IntString struct {
	Value int64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *IntString) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	if s == "" {
		return nil
	}
	v, err := parseIntegral(s)
	if err != nil {
		return err
	}
	n.Value = v
	n.Set = true
	return nil
}

// parseIntegral parses an integer, also accepting a float with no
// fractional part ("39.0").
func parseIntegral(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int64(f), nil
}

// missing returns a MalformedRecordError for an absent or null key.
func missing(path string, line int, field string) *MalformedRecordError {
	return &MalformedRecordError{Path: path, Line: line, Field: field, Reason: "missing required field"}
}
