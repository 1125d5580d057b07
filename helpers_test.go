package followgraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeGraph is an in-memory social graph serving both source interfaces.
type fakeGraph struct {
	users       map[string]*UserInfo
	ids         map[string]string
	followers   map[string][]Follower
	followerErr map[string][]error
	profileErr  map[string]error

	profileCalls  []string
	followerCalls []string
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		users:       make(map[string]*UserInfo),
		ids:         make(map[string]string),
		followers:   make(map[string][]Follower),
		followerErr: make(map[string][]error),
		profileErr:  make(map[string]error),
	}
}

// user registers id with the given username and a full profile.
func (g *fakeGraph) user(id, username string) *fakeGraph {
	posts, followers, following := 10, 20, 30
	g.users[id] = &UserInfo{
		UserID:         id,
		Username:       username,
		FullName:       "Full " + username,
		Biography:      "bio of " + username,
		PostsCount:     &posts,
		FollowersCount: &followers,
		FollowingCount: &following,
	}
	g.ids[username] = id
	return g
}

// follows sets the ordered followers of id.
func (g *fakeGraph) follows(id string, followerIDs ...string) *fakeGraph {
	list := make([]Follower, 0, len(followerIDs))
	for _, fid := range followerIDs {
		name := ""
		if u, ok := g.users[fid]; ok {
			name = u.Username
		}
		list = append(list, Follower{UserID: fid, Username: name})
	}
	g.followers[id] = list
	return g
}

// failFollowers queues errors returned by successive follower fetches of id.
func (g *fakeGraph) failFollowers(id string, errs ...error) *fakeGraph {
	g.followerErr[id] = append(g.followerErr[id], errs...)
	return g
}

func (g *fakeGraph) failProfile(id string, err error) *fakeGraph {
	g.profileErr[id] = err
	return g
}

func (g *fakeGraph) ProfileByUsername(_ context.Context, username string) (*UserInfo, error) {
	g.profileCalls = append(g.profileCalls, "@"+username)
	id, ok := g.ids[username]
	if !ok {
		return nil, fmt.Errorf("lookup %s: %w", username, ErrNotFound)
	}
	return g.profile(id)
}

func (g *fakeGraph) ProfileByID(_ context.Context, userID string) (*UserInfo, error) {
	g.profileCalls = append(g.profileCalls, "#"+userID)
	return g.profile(userID)
}

func (g *fakeGraph) profile(id string) (*UserInfo, error) {
	if err := g.profileErr[id]; err != nil {
		return nil, err
	}
	u, ok := g.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (g *fakeGraph) Followers(ctx context.Context, userID string) ([]Follower, error) {
	g.followerCalls = append(g.followerCalls, userID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errs := g.followerErr[userID]; len(errs) > 0 {
		g.followerErr[userID] = errs[1:]
		return nil, errs[0]
	}
	return g.followers[userID], nil
}

// sleepRecorder replaces real waits and records their durations.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func (s *sleepRecorder) count(d time.Duration) int {
	n := 0
	for _, w := range s.waits {
		if w == d {
			n++
		}
	}
	return n
}

type testEngine struct {
	*Engine
	graph  *fakeGraph
	sleeps *sleepRecorder
	events *[]Event
}

const (
	testPacing   = 10 * time.Millisecond
	testCooldown = 50 * time.Millisecond
)

func newTestEngine(t *testing.T, g *fakeGraph, mutate ...func(*Config)) testEngine {
	t.Helper()
	rec := &sleepRecorder{}
	events := &[]Event{}

	cfg := DefaultConfig()
	cfg.PacingDelay = testPacing
	cfg.RateLimitCooldown = testCooldown
	cfg.Sleep = rec.sleep
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.EventHook = func(ev Event) { *events = append(*events, ev) }
	for _, m := range mutate {
		m(&cfg)
	}

	e, err := NewEngine(NewResolver(g, cfg), g, cfg)
	require.NoError(t, err)
	return testEngine{Engine: e, graph: g, sleeps: rec, events: events}
}

func (te testEngine) eventsOf(kind EventKind) []Event {
	var out []Event
	for _, ev := range *te.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// shape renders a tree as nested usernames for compact assertions.
func shape(nodes []*Node) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		if len(n.Followers) == 0 {
			out = append(out, n.Profile.Username)
			continue
		}
		out = append(out, map[string][]any{n.Profile.Username: shape(n.Followers)})
	}
	return out
}
