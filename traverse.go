package followgraph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FollowerSource lists a user's followers upstream. An empty slice is a valid answer.
type FollowerSource interface {
	Followers(ctx context.Context, userID string) ([]Follower, error)
}

// Node is one visited user within one branch, with the followers expanded under it.
type Node struct {
	Profile   Profile `json:"profile" yaml:"profile"`
	Followers []*Node `json:"followers" yaml:"followers"`
}

// Stats summarizes a traversal run.
type Stats struct {
	NodesVisited     int            `json:"nodes_visited" yaml:"nodes_visited"`
	NodesExpanded    int            `json:"nodes_expanded" yaml:"nodes_expanded"`
	Skipped          map[Reason]int `json:"skipped" yaml:"skipped"`
	Curtailed        map[Reason]int `json:"curtailed" yaml:"curtailed"`
	Cooldowns        int            `json:"cooldowns" yaml:"cooldowns"`
	DegradedProfiles int            `json:"degraded_profiles" yaml:"degraded_profiles"`
}

// Result is the outcome of Engine.Traverse: one node per direct follower of
// the root, in traversal order.
type Result struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	RootUserID  string    `json:"root_user_id" yaml:"root_user_id"`
	MaxDepth    int       `json:"max_depth" yaml:"max_depth"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time `json:"finished_at" yaml:"finished_at"`
	Interrupted bool      `json:"interrupted" yaml:"interrupted"`
	Nodes       []*Node   `json:"nodes" yaml:"nodes"`
	Stats       Stats     `json:"stats" yaml:"stats"`
}

// Engine performs depth-first, depth-bounded follower traversals. It holds no
// per-traversal state, so one Engine may run many traversals.
type Engine struct {
	resolver  *Resolver
	followers FollowerSource
	cfg       Config
}

// NewEngine wires a resolver and a follower source into an engine.
func NewEngine(resolver *Resolver, followers FollowerSource, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.defaults()
	return &Engine{resolver: resolver, followers: followers, cfg: cfg}, nil
}

// run is the state owned by a single traversal call.
type run struct {
	id    string
	stats Stats
}

func newRun() *run {
	return &run{
		id: uuid.NewString(),
		stats: Stats{
			Skipped:   make(map[Reason]int),
			Curtailed: make(map[Reason]int),
		},
	}
}

// Run is Traverse with the engine's configured MaxDepth.
func (e *Engine) Run(ctx context.Context, rootUserID string) (*Result, error) {
	return e.Traverse(ctx, rootUserID, e.cfg.MaxDepth)
}

// Traverse expands the followers of rootUserID down to maxDepth. Failing to
// fetch the root's own followers is the only error that aborts the traversal.
// On interrupt the partially built result is returned together with an error
// wrapping ErrInterrupted.
func (e *Engine) Traverse(ctx context.Context, rootUserID string, maxDepth int) (*Result, error) {
	if maxDepth < 0 {
		return nil, ErrInvalidMaxDepth
	}

	r := newRun()
	ctx = withRunID(ctx, r.id)
	ctx, span := e.cfg.Tracer.Start(ctx, "followgraph.Traverse",
		trace.WithAttributes(
			attribute.String("run.id", r.id),
			attribute.String("root.id", rootUserID),
			attribute.Int("max_depth", maxDepth),
		))
	defer span.End()

	res := &Result{
		RunID:      r.id,
		RootUserID: rootUserID,
		MaxDepth:   maxDepth,
		StartedAt:  time.Now(),
		Nodes:      []*Node{},
	}
	log := e.cfg.Logger.With(slog.String("run_id", r.id))
	e.cfg.EventHook.emit(Event{Kind: EventRunStarted, RunID: r.id, UserID: rootUserID, Depth: -1})

	followers, reason, err := e.fetchFollowers(ctx, r, rootUserID, "", -1)
	if err != nil {
		span.RecordError(err)
		if reason == ReasonInterrupted {
			span.SetStatus(codes.Error, "interrupted")
			return e.finish(r, res, true), fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		span.SetStatus(codes.Error, "root follower fetch failed")
		log.Error("root follower fetch failed",
			slog.String("root_id", rootUserID),
			slog.String("reason", reason.String()),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w for %s (%s): %w", ErrRootFetch, rootUserID, reason, err)
	}

	log.Info("traversal started",
		slog.String("root_id", rootUserID),
		slog.Int("followers", len(followers)),
		slog.Int("max_depth", maxDepth))

	// The root is never a node, but it anchors every branch so that meeting
	// it again deeper down counts as a cycle.
	res.Nodes = e.expand(ctx, r, followers, 0, VisitedPath{}.Extend(rootUserID), maxDepth)

	interrupted := ctx.Err() != nil
	e.finish(r, res, interrupted)
	span.SetAttributes(attribute.Int("nodes.visited", res.Stats.NodesVisited))
	log.Info("traversal finished",
		slog.Int("top_level", len(res.Nodes)),
		slog.Int("visited", res.Stats.NodesVisited),
		slog.Bool("interrupted", interrupted),
		slog.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))

	if interrupted {
		span.SetStatus(codes.Error, "interrupted")
		return res, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}
	return res, nil
}

func (e *Engine) finish(r *run, res *Result, interrupted bool) *Result {
	res.FinishedAt = time.Now()
	res.Interrupted = interrupted
	res.Stats = r.stats
	e.cfg.EventHook.emit(Event{Kind: EventRunFinished, RunID: r.id, UserID: res.RootUserID, Depth: -1})
	return res
}

// TraverseNode visits a single user at depth with the given root-to-parent
// path. It returns nil when the user is already on the path, lies beyond
// maxDepth, or the context is done before the visit starts. Otherwise the node
// is always returned; expansion failures only leave its followers empty.
func (e *Engine) TraverseNode(ctx context.Context, userID, username string, depth int, path VisitedPath, maxDepth int) *Node {
	r := newRun()
	return e.visit(withRunID(ctx, r.id), r, userID, username, depth, path, maxDepth)
}

func (e *Engine) visit(ctx context.Context, r *run, userID, username string, depth int, path VisitedPath, maxDepth int) *Node {
	ev := Event{RunID: r.id, UserID: userID, Username: username, Depth: depth}

	switch {
	case path.Contains(userID):
		e.skip(r, ev, ReasonCycle)
		return nil
	case depth > maxDepth:
		e.skip(r, ev, ReasonDepthExceeded)
		return nil
	case ctx.Err() != nil:
		e.skip(r, ev, ReasonInterrupted)
		return nil
	}

	ctx, span := e.cfg.Tracer.Start(ctx, "followgraph.Visit",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("user.name", username),
			attribute.Int("depth", depth),
		))
	defer span.End()

	ev.Kind = EventNodeVisiting
	e.cfg.EventHook.emit(ev)
	e.cfg.Logger.Debug("visiting", slog.String("user_id", userID), slog.String("username", username), slog.Int("depth", depth))

	path = path.Extend(userID)
	profile, degraded := e.resolver.resolve(ctx, userID, username)
	node := &Node{Profile: profile, Followers: []*Node{}}
	r.stats.NodesVisited++
	if degraded {
		r.stats.DegradedProfiles++
	}

	if depth >= maxDepth {
		return node
	}

	followers, reason, err := e.fetchFollowers(ctx, r, userID, username, depth)
	if err != nil {
		span.RecordError(err)
		e.curtail(ctx, r, ev, reason, err)
		return node
	}

	node.Followers = e.expand(ctx, r, followers, depth+1, path, maxDepth)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		e.curtail(ctx, r, ev, ReasonInterrupted, err)
		return node
	}
	r.stats.NodesExpanded++
	span.SetAttributes(attribute.Int("children", len(node.Followers)))

	ev.Kind = EventNodeExpanded
	ev.Children = len(node.Followers)
	e.cfg.EventHook.emit(ev)
	return node
}

// expand visits followers in deterministic order, pacing between siblings.
// It stops early when the context is done and keeps what was already built.
func (e *Engine) expand(ctx context.Context, r *run, followers []Follower, depth int, path VisitedPath, maxDepth int) []*Node {
	ordered := sortFollowers(followers)
	children := make([]*Node, 0, len(ordered))
	for i, f := range ordered {
		if i > 0 {
			if err := e.cfg.Sleep(ctx, e.cfg.PacingDelay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		if child := e.visit(ctx, r, f.UserID, f.Username, depth, path, maxDepth); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// fetchFollowers calls the follower source, retrying transient failures per
// the retry policy.
func (e *Engine) fetchFollowers(ctx context.Context, r *run, userID, username string, depth int) ([]Follower, Reason, error) {
	for attempt := 1; ; attempt++ {
		followers, err := e.followers.Followers(ctx, userID)
		if err == nil {
			return followers, ReasonNone, nil
		}
		reason := Classify(err)
		if !reason.retryable() || attempt >= e.cfg.Retry.MaxAttempts {
			return nil, reason, err
		}

		wait := e.cfg.Retry.Backoff.Duration(attempt)
		e.cfg.Logger.Debug("retrying follower fetch",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.Any("error", err))
		e.cfg.EventHook.emit(Event{
			Kind: EventRetry, RunID: r.id, UserID: userID, Username: username,
			Depth: depth, Reason: reason, Err: err, Wait: wait, Attempt: attempt,
		})
		if serr := e.cfg.Sleep(ctx, wait); serr != nil {
			return nil, ReasonInterrupted, serr
		}
	}
}

func (e *Engine) skip(r *run, ev Event, reason Reason) {
	r.stats.Skipped[reason]++
	e.cfg.Logger.Debug("skipping user",
		slog.String("user_id", ev.UserID),
		slog.String("username", ev.Username),
		slog.Int("depth", ev.Depth),
		slog.String("reason", reason.String()))
	ev.Kind = EventNodeSkipped
	ev.Reason = reason
	e.cfg.EventHook.emit(ev)
}

// curtail handles a failed expansion. The node keeps its profile and gets no
// followers; a rate limit additionally costs a cooldown.
func (e *Engine) curtail(ctx context.Context, r *run, ev Event, reason Reason, err error) {
	r.stats.Curtailed[reason]++
	attrs := []any{
		slog.String("user_id", ev.UserID),
		slog.String("username", ev.Username),
		slog.Int("depth", ev.Depth),
	}

	ev.Kind = EventExpansionCurtailed
	ev.Reason = reason
	ev.Err = err
	e.cfg.EventHook.emit(ev)

	switch reason {
	case ReasonPrivate:
		e.cfg.Logger.Info("private account, followers not expanded", attrs...)
	case ReasonInterrupted:
		e.cfg.Logger.Debug("expansion interrupted", attrs...)
	case ReasonRateLimited:
		wait := e.cfg.RateLimitCooldown
		e.cfg.Logger.Warn("rate limited, cooling down", append(attrs, slog.Duration("cooldown", wait))...)
		r.stats.Cooldowns++
		ev.Kind = EventCooldown
		ev.Wait = wait
		e.cfg.EventHook.emit(ev)
		if serr := e.cfg.Sleep(ctx, wait); serr != nil {
			e.cfg.Logger.Debug("cooldown interrupted", slog.Any("error", serr))
		}
	default:
		e.cfg.Logger.Warn("fetch followers failed", append(attrs,
			slog.String("reason", reason.String()),
			slog.Any("error", err))...)
	}
}

// sortFollowers orders by lower-cased username; ties keep fetch order.
func sortFollowers(followers []Follower) []Follower {
	ordered := slices.Clone(followers)
	slices.SortStableFunc(ordered, func(a, b Follower) int {
		return strings.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
	})
	return ordered
}
