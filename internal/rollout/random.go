package rollout

import "github.com/google/uuid"

// TokenSource produces throwaway stickiness identifiers for the random paths.
type TokenSource interface {
	Token() string
}

// UUIDTokens generates a random UUIDv4 per call.
type UUIDTokens struct{}

func (UUIDTokens) Token() string { return uuid.NewString() }

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }
