package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Product is a single catalog record as published by the store feed.
type Product struct {
	Alias     string       `json:"alias"`
	Name      string       `json:"name"`
	Available Availability `json:"available"`
}

// Availability is the feed's stock indicator. Stores publish it as a quantity,
// a boolean or occasionally a string; the raw JSON text is kept for display.
type Availability struct {
	raw string
}

func (a *Availability) UnmarshalJSON(b []byte) error {
	a.raw = string(bytes.TrimSpace(b))
	return nil
}

func (a Availability) MarshalJSON() ([]byte, error) {
	if a.raw == "" {
		return []byte("null"), nil
	}
	return []byte(a.raw), nil
}

// Quantity returns the indicator as shown to users ("5", "0", "true", "null").
func (a Availability) Quantity() string {
	if a.raw == "" {
		return "null"
	}
	if s, err := strconv.Unquote(a.raw); err == nil {
		return s
	}
	return a.raw
}

// InStock reports whether the indicator is truthy: a non-zero number, true,
// or a non-empty string other than "0"/"false".
func (a Availability) InStock() bool {
	switch a.raw {
	case "", "null", "false", "0", `""`:
		return false
	case "true":
		return true
	}
	if f, err := strconv.ParseFloat(a.raw, 64); err == nil {
		return f != 0
	}
	var s string
	if err := json.Unmarshal([]byte(a.raw), &s); err == nil {
		s = strings.TrimSpace(strings.ToLower(s))
		return s != "" && s != "0" && s != "false"
	}
	// Objects/arrays: treat non-empty as present.
	return a.raw != "{}" && a.raw != "[]"
}

// Qty builds an Availability from a quantity. Intended for tests and fixtures.
func Qty(n int) Availability { return Availability{raw: strconv.Itoa(n)} }
