// Package rollout provides deterministic user bucketing for gradual rollouts.
// It hashes a stickiness identifier together with a group ID into one of 100 slots.
// This ensures:
//   - Same identifier always gets the same result for a group (deterministic)
//   - Even distribution across slots (murmur3 by default, xxHash optionally)
//   - Consistency with other SDKs that normalize with murmur3
//   - Safe progressive rollouts (increasing from 10% to 20% only adds users, never removes)
//
// The "random" stickiness, and "default" stickiness without a userId or sessionId,
// deliberately give up determinism: every call draws a fresh token.
package rollout

import "strings"

// Property names that address the standard context fields from a custom stickiness.
const (
	propertyUserID    = "userId"
	propertySessionID = "sessionId"
)

// Result explains one evaluation.
type Result struct {
	Enabled      bool    `json:"enabled"`
	GroupID      string  `json:"groupId"`
	StickinessID string  `json:"stickinessId,omitempty"`
	Stickiness   string  `json:"stickiness"`
	Normalized   int     `json:"normalized,omitempty"`
	Percentage   float64 `json:"percentage"`
}

// Evaluator decides whether a context falls into the enabled slice of a rollout.
// It is safe for concurrent use as long as its TokenSource is.
type Evaluator struct {
	tokens TokenSource
	hash   HashFunc
}

// NewEvaluator creates an evaluator. A nil tokens uses UUIDTokens, a nil hash uses Murmur3.
func NewEvaluator(tokens TokenSource, hash HashFunc) *Evaluator {
	if tokens == nil {
		tokens = UUIDTokens{}
	}
	if hash == nil {
		hash = Murmur3
	}
	return &Evaluator{tokens: tokens, hash: hash}
}

// IsEnabled reports whether ctx is inside the rollout.
//
// Algorithm:
//  1. groupId = params.GroupID, else ctx.FeatureToggle, else ""
//  2. stickinessId resolved from params.Stickiness (see resolveStickiness)
//  3. normalized = hash(groupId + ":" + stickinessId) % 100 + 1
//  4. enabled when rollout > 0 and normalized <= rollout
//
// Special cases:
//   - rollout <= 0: always false
//   - rollout >= 100: always true when a stickiness identifier exists
//   - no stickiness identifier (missing custom property): always false
func (e *Evaluator) IsEnabled(params Parameters, ctx Context) bool {
	return e.Evaluate(params, ctx).Enabled
}

// Evaluate is IsEnabled with the intermediate values exposed.
func (e *Evaluator) Evaluate(params Parameters, ctx Context) Result {
	res := Result{
		GroupID:    resolveGroupID(params, ctx),
		Stickiness: params.Stickiness.String(),
		Percentage: params.Rollout,
	}

	res.StickinessID = e.resolveStickiness(params.Stickiness, ctx)
	if res.StickinessID == "" {
		return res
	}

	res.Normalized = NormalizeWith(e.hash, res.StickinessID, res.GroupID)
	res.Enabled = res.Percentage > 0 && float64(res.Normalized) <= res.Percentage
	return res
}

func resolveGroupID(params Parameters, ctx Context) string {
	if g := strings.TrimSpace(params.GroupID); g != "" {
		return g
	}
	return ctx.FeatureToggle
}

// resolveStickiness returns the identifier to hash, or "" when there is none.
func (e *Evaluator) resolveStickiness(s Stickiness, ctx Context) string {
	switch s.Kind {
	case StickinessRandom:
		return e.tokens.Token()
	case StickinessCustom:
		if v, ok := ctx.Properties[s.Property]; ok {
			return v
		}
		switch s.Property {
		case propertyUserID:
			return ctx.UserID
		case propertySessionID:
			return ctx.SessionID
		}
		return ""
	default:
		if ctx.UserID != "" {
			return ctx.UserID
		}
		if ctx.SessionID != "" {
			return ctx.SessionID
		}
		return e.tokens.Token()
	}
}
