package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	if cmd.Use != "followgraph" {
		t.Errorf("Use = %q, want followgraph", cmd.Use)
	}
	if !cmd.SilenceUsage || !cmd.SilenceErrors {
		t.Error("root command should silence usage and errors")
	}

	want := map[string]bool{"traverse": false, "version": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}

	if cmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("verbose flag missing")
	}
	if cmd.PersistentFlags().ShorthandLookup("v") == nil {
		t.Error("-v shorthand missing")
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	if getVersion() == "" {
		t.Error("getVersion() returned empty string")
	}
	if getCommit() == "" {
		t.Error("getCommit() returned empty string")
	}

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "followgraph version") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestTraverseCmdFlags(t *testing.T) {
	t.Parallel()

	cmd := NewTraverseCmd()
	for _, name := range []string{
		"user", "root-id", "max-depth", "delay", "cooldown", "retries", "max-followers",
		"config", "proxy", "session-dir", "format", "output", "metrics-addr", "trace",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s missing", name)
		}
	}
	if got := cmd.Flags().Lookup("max-depth").DefValue; got != "2" {
		t.Errorf("max-depth default = %s, want 2", got)
	}
	if got := cmd.Flags().Lookup("delay").DefValue; got != "1s" {
		t.Errorf("delay default = %s, want 1s", got)
	}
	if got := cmd.Flags().Lookup("cooldown").DefValue; got != "5s" {
		t.Errorf("cooldown default = %s, want 5s", got)
	}
}

func TestTraverseCmdRejectsArgs(t *testing.T) {
	t.Parallel()

	cmd := NewTraverseCmd()
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for positional argument")
	}
}
