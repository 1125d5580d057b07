package followgraph

import (
	"context"
	"errors"
	"strings"
)

// Upstream failures. Sources wrap one of these so the engine can classify them.
var (
	ErrNotFound       = errors.New("user not found")
	ErrPrivateAccount = errors.New("private account")
	ErrRateLimited    = errors.New("rate limited")
	ErrTransient      = errors.New("transient upstream error")
)

// Traversal-level failures returned by Engine.Traverse.
var (
	ErrRootFetch       = errors.New("fetch root followers")
	ErrInterrupted     = errors.New("traversal interrupted")
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")
)

// Reason classifies why a node was skipped or why its expansion was curtailed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonCycle
	ReasonDepthExceeded
	ReasonNotFound
	ReasonPrivate
	ReasonRateLimited
	ReasonTransient
	ReasonInterrupted
)

var reasonNames = [...]string{
	ReasonNone:          "none",
	ReasonCycle:         "cycle",
	ReasonDepthExceeded: "depth_exceeded",
	ReasonNotFound:      "not_found",
	ReasonPrivate:       "private_account",
	ReasonRateLimited:   "rate_limited",
	ReasonTransient:     "transient",
	ReasonInterrupted:   "interrupted",
}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return "unknown"
	}
	return reasonNames[r]
}

// MarshalText lets reasons key JSON and YAML maps by name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Classify maps an upstream error onto a Reason. Wrapped sentinels win; errors
// from sources that do not use them fall back to message matching. Anything
// unrecognized is transient.
func Classify(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonInterrupted
	case errors.Is(err, ErrPrivateAccount):
		return ReasonPrivate
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimited
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrTransient):
		return ReasonTransient
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "private") {
		return ReasonPrivate
	}
	for _, needle := range rateLimitNeedles {
		if strings.Contains(msg, needle) {
			return ReasonRateLimited
		}
	}
	return ReasonTransient
}

var rateLimitNeedles = []string{"rate limit", "rate-limit", "ratelimit", "too many requests", "wait"}

// retryable reports whether a failed follower fetch may be attempted again.
func (r Reason) retryable() bool {
	return r == ReasonTransient
}
