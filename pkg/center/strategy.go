package center

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStrategy is returned when decoding or setting a strategy outside
// the two supported ones
var ErrUnknownStrategy = errors.New("unknown center of rotation strategy")

// Strategy selects how the center of rotation is obtained
type Strategy uint8

const (
	// Automatic registers the 0 and 180 degree projections with an Estimator
	Automatic Strategy = iota
	// Manual uses the value entered by the user
	Manual
)

func (s Strategy) String() string {
	switch s {
	case Automatic:
		return "automatic"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the declared strategies
func (s Strategy) Valid() bool {
	return s == Automatic || s == Manual
}

// ParseStrategy accepts the current names as well as "tomopy" and
// "user defined", which older session files use.
func ParseStrategy(text string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "automatic", "auto", "tomopy":
		return Automatic, nil
	case "manual", "user", "user defined":
		return Manual, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, text)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
