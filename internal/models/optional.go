package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MissingValueMarker is the placeholder legacy records use for an unknown field.
const MissingValueMarker = "N/A"

// Optional is a metadata value that may be unknown. Blank strings and the
// legacy "N/A" marker both decode to the unknown state, and unknown values
// encode as JSON null.
type Optional struct {
	value string
	known bool
}

// Known wraps a raw value, mapping blanks and the missing marker to unknown.
func Known(raw string) Optional {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, MissingValueMarker) {
		return Optional{}
	}
	return Optional{value: trimmed, known: true}
}

// Unknown returns the unknown value.
func Unknown() Optional {
	return Optional{}
}

// Get returns the value and whether it is known.
func (o Optional) Get() (string, bool) {
	return o.value, o.known
}

// IsKnown reports whether a value is present.
func (o Optional) IsKnown() bool {
	return o.known
}

// String returns the value or an empty string.
func (o Optional) String() string {
	return o.value
}

// Or returns the value or fallback when unknown.
func (o Optional) Or(fallback string) string {
	if o.known {
		return o.value
	}
	return fallback
}

// MarshalJSON implements json.Marshaler.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.known {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*o = Known(raw)
		return nil
	}
	// numeric grade levels (9, 10, ...) are kept as their literal text
	var number json.Number
	if err := json.Unmarshal(data, &number); err == nil {
		*o = Known(number.String())
		return nil
	}
	*o = Optional{}
	return nil
}
