package srs

import (
	"encoding"
	"encoding/json"
	"fmt"
	"strings"
)

// Outcome is the learner's self-assessment after reviewing an item.
type Outcome int

const (
	Again Outcome = iota + 1 // Not recalled; review again soon.
	Good                     // Recalled; lengthen the interval.
)

var outcomeNames = [...]string{Again: "again", Good: "good"}

var (
	_ fmt.Stringer             = Outcome(0)
	_ json.Marshaler           = Outcome(0)
	_ json.Unmarshaler         = (*Outcome)(nil)
	_ encoding.TextMarshaler   = Outcome(0)
	_ encoding.TextUnmarshaler = (*Outcome)(nil)
)

// String returns "again" or "good", or "Outcome(n)" for invalid values.
func (o Outcome) String() string {
	if o.IsValid() {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// IsValid reports whether o is Again or Good.
func (o Outcome) IsValid() bool {
	return o == Again || o == Good
}

// ParseOutcome parses an outcome name, case-insensitively.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "again":
		return Again, nil
	case "good":
		return Good, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if !o.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(o))
	}
	return []byte(outcomeNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MarshalJSON implements json.Marshaler. Outcomes serialize as strings.
func (o Outcome) MarshalJSON() ([]byte, error) {
	text, err := o.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text)) //nolint:wrapcheck
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidOutcome, data)
	}
	return o.UnmarshalText([]byte(s))
}
