package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/anatolykoptev/go-followgraph"
	"github.com/anatolykoptev/go-followgraph/render"
)

// memorySource is a fixed follower graph keyed by user id.
type memorySource struct {
	names     map[string]string
	followers map[string][]string
}

func newMemorySource() *memorySource {
	return &memorySource{
		names:     map[string]string{"0": "root", "1": "alice", "2": "bob", "3": "carol"},
		followers: map[string][]string{"0": {"2", "1"}, "1": {"3"}, "3": {"0"}},
	}
}

func (m *memorySource) info(id string) (*followgraph.UserInfo, error) {
	name, ok := m.names[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, followgraph.ErrNotFound)
	}
	n := len(m.followers[id])
	return &followgraph.UserInfo{UserID: id, Username: name, FullName: strings.ToUpper(name), FollowersCount: &n}, nil
}

func (m *memorySource) ProfileByUsername(ctx context.Context, username string) (*followgraph.UserInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for id, name := range m.names {
		if name == username {
			return m.info(id)
		}
	}
	return nil, fmt.Errorf("@%s: %w", username, followgraph.ErrNotFound)
}

func (m *memorySource) ProfileByID(ctx context.Context, userID string) (*followgraph.UserInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.info(userID)
}

func (m *memorySource) Followers(ctx context.Context, userID string) ([]followgraph.Follower, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []followgraph.Follower
	for _, id := range m.followers[userID] {
		out = append(out, followgraph.Follower{UserID: id, Username: m.names[id]})
	}
	return out, nil
}

func useSource(t *testing.T, src graphSource) {
	t.Helper()
	orig := newSource
	newSource = func(*options, func(string, bool, bool)) (graphSource, error) { return src, nil }
	t.Cleanup(func() { newSource = orig })
}

func testOptions(format render.Format) *options {
	return &options{
		User:     "root",
		MaxDepth: 1,
		Delay:    time.Millisecond,
		Cooldown: time.Millisecond,
		Retries:  1,
		Accounts: "root:pw",
		Format:   format,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type jsonNode struct {
	Profile struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
	} `json:"profile"`
	Followers []jsonNode `json:"followers"`
}

func TestRunTraverse_JSON(t *testing.T) {
	useSource(t, newMemorySource())

	var buf bytes.Buffer
	if err := runTraverse(context.Background(), testOptions(render.FormatJSON), discardLogger(), &buf); err != nil {
		t.Fatalf("runTraverse: %v", err)
	}

	var rep struct {
		Root struct {
			UserID   string `json:"user_id"`
			Username string `json:"username"`
		} `json:"root"`
		Result struct {
			RootUserID string     `json:"root_user_id"`
			Nodes      []jsonNode `json:"nodes"`
		} `json:"result"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("decode output: %v\n%s", err, buf.String())
	}
	if rep.Root.Username != "root" || rep.Result.RootUserID != "0" {
		t.Fatalf("unexpected root: %+v / %s", rep.Root, rep.Result.RootUserID)
	}
	if len(rep.Result.Nodes) != 2 {
		t.Fatalf("expected 2 direct followers, got %d", len(rep.Result.Nodes))
	}
	alice, bob := rep.Result.Nodes[0], rep.Result.Nodes[1]
	if alice.Profile.Username != "alice" || bob.Profile.Username != "bob" {
		t.Fatalf("followers not sorted by username: %s, %s", alice.Profile.Username, bob.Profile.Username)
	}
	if len(alice.Followers) != 1 || alice.Followers[0].Profile.Username != "carol" {
		t.Fatalf("expected carol under alice, got %+v", alice.Followers)
	}
	if len(alice.Followers[0].Followers) != 0 {
		t.Fatal("nodes at max depth must not be expanded")
	}
}

func TestRunTraverse_Text(t *testing.T) {
	useSource(t, newMemorySource())

	opts := testOptions(render.FormatText)
	opts.MaxDepth = 0
	var buf bytes.Buffer
	if err := runTraverse(context.Background(), opts, discardLogger(), &buf); err != nil {
		t.Fatalf("runTraverse: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ROOT PROFILE", "NESTED FOLLOWERS", "alice", "bob"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "carol") {
		t.Error("depth 0 should list direct followers only")
	}
}

func TestRunTraverse_UnknownRoot(t *testing.T) {
	useSource(t, newMemorySource())

	opts := testOptions(render.FormatText)
	opts.User = "nobody"
	var buf bytes.Buffer
	err := runTraverse(context.Background(), opts, discardLogger(), &buf)
	if err == nil || !strings.Contains(err.Error(), "@nobody") {
		t.Fatalf("expected root resolution error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written when the root cannot be resolved")
	}
}

func TestRunTraverse_Interrupted(t *testing.T) {
	useSource(t, newMemorySource())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := testOptions(render.FormatJSON)
	opts.User = ""
	opts.RootID = "0"
	var buf bytes.Buffer
	err := runTraverse(ctx, opts, discardLogger(), &buf)
	if !errors.Is(err, followgraph.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if !strings.Contains(buf.String(), `"interrupted": true`) {
		t.Errorf("partial result not written:\n%s", buf.String())
	}
}

func TestRunTraverse_SourceError(t *testing.T) {
	orig := newSource
	newSource = func(*options, func(string, bool, bool)) (graphSource, error) {
		return nil, errors.New("no usable accounts")
	}
	t.Cleanup(func() { newSource = orig })

	err := runTraverse(context.Background(), testOptions(render.FormatText), discardLogger(), io.Discard)
	if err == nil || !strings.Contains(err.Error(), "no usable accounts") {
		t.Fatalf("expected source error, got %v", err)
	}
}

func parseTraverseFlags(t *testing.T, args ...string) *options {
	t.Helper()
	cmd := NewTraverseCmd()
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	opts, err := buildOptions(cmd)
	if err != nil {
		t.Fatalf("buildOptions: %v", err)
	}
	return opts
}

func TestBuildOptions_Layering(t *testing.T) {
	path := writeConfig(t, `
accounts: "fileuser:pw"
proxy: http://file-proxy
traversal:
  max_depth: 0
  delay: 3s
  retries: 2
`)
	t.Setenv(envAccounts, "")
	t.Setenv(envProxy, "http://env-proxy")

	opts := parseTraverseFlags(t, "--config", path, "--delay", "500ms", "--format", "md")
	if opts.Accounts != "fileuser:pw" {
		t.Errorf("Accounts = %q, want file value", opts.Accounts)
	}
	if opts.Proxy != "http://env-proxy" {
		t.Errorf("Proxy = %q, env should override file", opts.Proxy)
	}
	if opts.MaxDepth != 0 {
		t.Errorf("MaxDepth = %d, want 0 from file", opts.MaxDepth)
	}
	if opts.Delay != 500*time.Millisecond {
		t.Errorf("Delay = %v, flag should override file", opts.Delay)
	}
	if opts.Cooldown != followgraph.DefaultRateLimitCooldown {
		t.Errorf("Cooldown = %v, want default", opts.Cooldown)
	}
	if opts.Retries != 2 {
		t.Errorf("Retries = %d, want 2", opts.Retries)
	}
	if opts.Format != render.FormatMarkdown {
		t.Errorf("Format = %q", opts.Format)
	}
	if opts.User != "fileuser" {
		t.Errorf("User = %q, want first account", opts.User)
	}
}

func TestBuildOptions_EnvAndFlags(t *testing.T) {
	path := writeConfig(t, "accounts: file:pw\n")
	t.Setenv(envAccounts, "envuser:pw,other:pw")
	t.Setenv(envProxy, "")

	opts := parseTraverseFlags(t, "--config", path, "-u", "@jack", "-d", "3", "--proxy", "socks5://flag")
	if opts.Accounts != "envuser:pw,other:pw" {
		t.Errorf("Accounts = %q, env should override file", opts.Accounts)
	}
	if opts.User != "jack" {
		t.Errorf("User = %q, @ should be stripped", opts.User)
	}
	if opts.MaxDepth != 3 || opts.Proxy != "socks5://flag" {
		t.Errorf("flags not applied: depth %d proxy %q", opts.MaxDepth, opts.Proxy)
	}
}

func TestBuildOptions_Errors(t *testing.T) {
	empty := writeConfig(t, "proxy: http://p\n")
	t.Setenv(envAccounts, "")
	t.Setenv(envProxy, "")

	cmd := NewTraverseCmd()
	if err := cmd.ParseFlags([]string{"--config", empty}); err != nil {
		t.Fatal(err)
	}
	if _, err := buildOptions(cmd); !errors.Is(err, errNoAccounts) {
		t.Errorf("no accounts: got %v", err)
	}

	t.Setenv(envAccounts, "me@example.com:pw")
	if _, err := buildOptions(cmd); !errors.Is(err, errNoRoot) {
		t.Errorf("email-only account without --user: got %v", err)
	}

	cmd = NewTraverseCmd()
	if err := cmd.ParseFlags([]string{"--config", empty, "--format", "xml"}); err != nil {
		t.Fatal(err)
	}
	if _, err := buildOptions(cmd); !errors.Is(err, render.ErrUnknownFormat) {
		t.Errorf("bad format: got %v", err)
	}
}

func TestFirstAccount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"alice:pw", "alice"},
		{" bob:pw:tok:ct0 , carol:pw", "bob"},
		{"me@example.com:pw,alice:pw", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := firstAccount(tt.in); got != tt.want {
			t.Errorf("firstAccount(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
