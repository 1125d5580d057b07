package followgraph

import "time"

// EventKind identifies a traversal step.
type EventKind int

const (
	EventRunStarted EventKind = iota
	EventRunFinished
	EventNodeVisiting
	EventNodeExpanded
	EventNodeSkipped
	EventExpansionCurtailed
	EventProfileLookupFailed
	EventProfileDegraded
	EventCooldown
	EventRetry
)

var eventNames = [...]string{
	EventRunStarted:          "run_started",
	EventRunFinished:         "run_finished",
	EventNodeVisiting:        "node_visiting",
	EventNodeExpanded:        "node_expanded",
	EventNodeSkipped:         "node_skipped",
	EventExpansionCurtailed:  "expansion_curtailed",
	EventProfileLookupFailed: "profile_lookup_failed",
	EventProfileDegraded:     "profile_degraded",
	EventCooldown:            "cooldown",
	EventRetry:               "retry",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event describes one traversal step. Skip and curtailment reasons live here
// rather than in the result tree.
type Event struct {
	Kind     EventKind
	RunID    string
	UserID   string
	Username string
	Depth    int
	Reason   Reason
	Err      error

	// Children is the number of followers attached to an expanded node.
	Children int

	// Wait is the cooldown or retry backoff duration.
	Wait time.Duration

	// Attempt is the 1-based follower-fetch attempt for EventRetry.
	Attempt int
}

// EventHook receives traversal events synchronously, in traversal order.
type EventHook func(Event)

func (h EventHook) emit(ev Event) {
	if h != nil {
		h(ev)
	}
}
