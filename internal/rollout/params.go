package rollout

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Parameter names as persisted on a flexible rollout strategy.
const (
	ParamGroupID    = "groupId"
	ParamRollout    = "rollout"
	ParamStickiness = "stickiness"
)

// Parameters configure one gradual rollout.
type Parameters struct {
	GroupID    string     `json:"groupId,omitempty"`
	Rollout    float64    `json:"rollout"`
	Stickiness Stickiness `json:"stickiness"`
}

// Context is the per-evaluation input.
// Empty strings mean the value is absent.
type Context struct {
	UserID        string            `json:"userId,omitempty"`
	SessionID     string            `json:"sessionId,omitempty"`
	FeatureToggle string            `json:"featureToggle,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
}

// ParseParameters converts raw strategy parameters, as they arrive from storage or JSON,
// into Parameters. Rollout may be a number or a numeric string; anything unparsable
// (including NaN) becomes 0 so that bad configuration never enables a feature.
func ParseParameters(raw map[string]any) Parameters {
	return Parameters{
		GroupID:    strings.TrimSpace(stringParam(raw, ParamGroupID)),
		Rollout:    parsePercentage(raw[ParamRollout]),
		Stickiness: ParseStickiness(stringParam(raw, ParamStickiness)),
	}
}

func stringParam(raw map[string]any, name string) string {
	v, ok := raw[name]
	if !ok || v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

func parsePercentage(v any) float64 {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	pct, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(pct) {
		return 0
	}
	return pct
}
