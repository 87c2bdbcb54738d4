package rollout

import "strings"

// StickinessKind identifies where the stickiness identifier comes from.
type StickinessKind int

const (
	// StickinessDefault uses userId, then sessionId, then a random token.
	StickinessDefault StickinessKind = iota
	// StickinessRandom uses a fresh random token on every evaluation.
	StickinessRandom
	// StickinessCustom reads a named context property.
	StickinessCustom
)

const (
	stickinessDefaultName = "default"
	stickinessRandomName  = "random"
)

// Stickiness is the parsed form of the "stickiness" strategy parameter.
// It is resolved once when parameters are parsed, not on every evaluation.
type Stickiness struct {
	Kind     StickinessKind
	Property string // only set for StickinessCustom
}

// DefaultStickiness returns the userId/sessionId/random fallback chain.
func DefaultStickiness() Stickiness { return Stickiness{Kind: StickinessDefault} }

// RandomStickiness returns a stickiness that is never sticky.
func RandomStickiness() Stickiness { return Stickiness{Kind: StickinessRandom} }

// CustomStickiness returns a stickiness reading the given context property.
func CustomStickiness(property string) Stickiness {
	return Stickiness{Kind: StickinessCustom, Property: property}
}

// ParseStickiness converts the raw parameter value. Empty means "default".
func ParseStickiness(raw string) Stickiness {
	switch s := strings.TrimSpace(raw); s {
	case "", stickinessDefaultName:
		return DefaultStickiness()
	case stickinessRandomName:
		return RandomStickiness()
	default:
		return CustomStickiness(s)
	}
}

// String returns the parameter value this stickiness was parsed from.
func (s Stickiness) String() string {
	switch s.Kind {
	case StickinessRandom:
		return stickinessRandomName
	case StickinessCustom:
		return s.Property
	default:
		return stickinessDefaultName
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Stickiness) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stickiness) UnmarshalText(text []byte) error {
	*s = ParseStickiness(string(text))
	return nil
}

// MetricLabel returns a low-cardinality name for the stickiness kind.
// Custom property names are collapsed to "custom".
func (s Stickiness) MetricLabel() string {
	if s.Kind == StickinessCustom {
		return "custom"
	}
	return s.String()
}
