package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Rating is an ordinal level on one of the amenity scales.
type Rating uint8

// Scale describes a fixed, ordered set of rating levels.
type Scale struct {
	Name   string
	Min    Rating
	Max    Rating
	Symbol string
	None   string // label for level 0, when the scale has one
}

var (
	CoffeeScale = Scale{Name: "coffee", Min: 1, Max: 5, Symbol: "☕"}
	WifiScale   = Scale{Name: "wifi", Min: 0, Max: 5, Symbol: "💪", None: "✘"}
	PowerScale  = Scale{Name: "power", Min: 0, Max: 5, Symbol: "🔌", None: "✘"}
)

// Option is a single selectable level, used to build form choices.
type Option struct {
	Value string
	Label string
}

// Contains reports whether r is a level of the scale.
func (s Scale) Contains(r Rating) bool {
	return r >= s.Min && r <= s.Max
}

// Label returns the display form of r, e.g. "☕☕☕".
func (s Scale) Label(r Rating) string {
	if !s.Contains(r) {
		return "?"
	}
	if r == 0 {
		return s.None
	}
	return strings.Repeat(s.Symbol, int(r))
}

// Parse converts a submitted level into a Rating on this scale.
func (s Scale) Parse(raw string) (Rating, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s rating %q: %w", s.Name, raw, err)
	}
	r := Rating(n)
	if !s.Contains(r) {
		return 0, fmt.Errorf("%s rating %d out of range %d..%d", s.Name, r, s.Min, s.Max)
	}
	return r, nil
}

// Options lists every level of the scale in ascending order.
func (s Scale) Options() []Option {
	opts := make([]Option, 0, int(s.Max-s.Min)+1)
	for r := s.Min; r <= s.Max; r++ {
		opts = append(opts, Option{Value: strconv.Itoa(int(r)), Label: s.Label(r)})
	}
	return opts
}
