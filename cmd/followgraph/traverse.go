package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-followgraph"
	"github.com/anatolykoptev/go-followgraph/internal/logging"
	"github.com/anatolykoptev/go-followgraph/metrics"
	"github.com/anatolykoptev/go-followgraph/render"
	"github.com/anatolykoptev/go-followgraph/twitter"
)

var (
	errNoRoot     = errors.New("no root user: pass --user or --root-id, or configure an account")
	errNoAccounts = errors.New("no accounts configured: set " + envAccounts + " or accounts in the config file")
)

// options is the merged result of config file, environment and flags.
type options struct {
	User   string
	RootID string

	MaxDepth int
	Delay    time.Duration
	Cooldown time.Duration
	Retries  int

	Accounts     string
	Proxy        string
	SessionDir   string
	MaxFollowers int

	Format      render.Format
	Output      string
	MetricsAddr string
	Trace       bool
	Verbose     bool
	LogJSON     bool
}

// graphSource is what a traversal needs from an upstream.
type graphSource interface {
	followgraph.ProfileSource
	followgraph.FollowerSource
}

// newSource builds the upstream source. Tests replace it.
var newSource = func(opts *options, apiHook func(endpoint string, success, rateLimited bool)) (graphSource, error) {
	client, err := twitter.NewClient(twitter.ClientConfig{
		Accounts:     twitter.ParseAccounts(opts.Accounts),
		DefaultProxy: opts.Proxy,
		SessionDir:   opts.SessionDir,
		MaxFollowers: opts.MaxFollowers,
		MetricsHook:  apiHook,
	})
	if err != nil {
		return nil, err
	}
	return twitter.NewSource(client), nil
}

// NewTraverseCmd creates the traverse command.
func NewTraverseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traverse",
		Short: "Collect nested followers of an account",
		Long: `Traverse lists the followers of the root account, then the followers of each
follower, down to --max-depth. Depth 0 means the root's direct followers only.

Every visited user is profiled. Private accounts, rate limits and failed
lookups never abort the run: the affected user simply gets no followers.
Press Ctrl-C to stop early and print what was collected so far.

Examples:
  # Walk two levels below @jack
  followgraph traverse --user jack --max-depth 1

  # Start from a numeric id and write Markdown to a file
  followgraph traverse --root-id 12 --format markdown --output graph.md

Configuration file (.followgraph.yaml) example:
  accounts: "scraper1:password1,scraper2:password2:auth_token:ct0"
  proxy: socks5://127.0.0.1:1080
  traversal:
    max_depth: 1
    delay: 2s`,
		Args: cobra.NoArgs,
		RunE: runTraverseCmd,
	}

	cmd.Flags().StringP("user", "u", "", "Root account username (default: first configured account)")
	cmd.Flags().String("root-id", "", "Root account numeric id (skips the username lookup)")
	cmd.Flags().IntP("max-depth", "d", followgraph.DefaultMaxDepth, "Deepest level to profile; nodes there are not expanded")
	cmd.Flags().Duration("delay", followgraph.DefaultPacingDelay, "Pause after each profile lookup and between siblings")
	cmd.Flags().Duration("cooldown", followgraph.DefaultRateLimitCooldown, "Pause after a rate-limited follower fetch")
	cmd.Flags().Int("retries", 1, "Attempts per follower fetch on transient failures")
	cmd.Flags().Int("max-followers", twitter.DefaultMaxFollowers, "Maximum followers fetched per user")

	cmd.Flags().StringP("config", "c", "", "Configuration file (default: ./"+defaultConfigFile+" or "+xdgConfigFile()+")")
	cmd.Flags().String("proxy", "", "Proxy URL for accounts without their own (overrides "+envProxy+")")
	cmd.Flags().String("session-dir", "", "Directory for saved login sessions")

	cmd.Flags().StringP("format", "f", string(render.FormatText), "Output format: text, json, yaml, markdown")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().Bool("trace", false, "Print OpenTelemetry spans to stderr")

	return cmd
}

func runTraverseCmd(cmd *cobra.Command, _ []string) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(cmd.ErrOrStderr(), logging.Options{Verbose: opts.Verbose, JSON: opts.LogJSON})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := createOutput(opts.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return runTraverse(ctx, opts, logger, out)
}

// buildOptions merges, lowest first: defaults, config file, environment, flags.
func buildOptions(cmd *cobra.Command) (*options, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	fc, err := resolveConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	opts := &options{
		MaxDepth:     followgraph.DefaultMaxDepth,
		Delay:        followgraph.DefaultPacingDelay,
		Cooldown:     followgraph.DefaultRateLimitCooldown,
		Retries:      1,
		MaxFollowers: twitter.DefaultMaxFollowers,
		Accounts:     fc.Accounts,
		Proxy:        fc.Proxy,
		SessionDir:   fc.SessionDir,
	}
	if fc.MaxFollowers > 0 {
		opts.MaxFollowers = fc.MaxFollowers
	}
	if fc.Traversal.MaxDepth != nil {
		opts.MaxDepth = *fc.Traversal.MaxDepth
	}
	if fc.Traversal.Delay > 0 {
		opts.Delay = fc.Traversal.Delay
	}
	if fc.Traversal.Cooldown > 0 {
		opts.Cooldown = fc.Traversal.Cooldown
	}
	if fc.Traversal.Retries > 0 {
		opts.Retries = fc.Traversal.Retries
	}

	if v := os.Getenv(envAccounts); v != "" {
		opts.Accounts = v
	}
	if v := os.Getenv(envProxy); v != "" {
		opts.Proxy = v
	}

	if flags.Changed("max-depth") {
		opts.MaxDepth, _ = flags.GetInt("max-depth")
	}
	if flags.Changed("delay") {
		opts.Delay, _ = flags.GetDuration("delay")
	}
	if flags.Changed("cooldown") {
		opts.Cooldown, _ = flags.GetDuration("cooldown")
	}
	if flags.Changed("retries") {
		opts.Retries, _ = flags.GetInt("retries")
	}
	if flags.Changed("max-followers") {
		opts.MaxFollowers, _ = flags.GetInt("max-followers")
	}
	if flags.Changed("proxy") {
		opts.Proxy, _ = flags.GetString("proxy")
	}
	if flags.Changed("session-dir") {
		opts.SessionDir, _ = flags.GetString("session-dir")
	}

	opts.User, _ = flags.GetString("user")
	opts.User = strings.TrimPrefix(opts.User, "@")
	opts.RootID, _ = flags.GetString("root-id")
	opts.Output, _ = flags.GetString("output")
	opts.MetricsAddr, _ = flags.GetString("metrics-addr")
	opts.Trace, _ = flags.GetBool("trace")
	opts.Verbose = persistentBool(cmd, "verbose")
	opts.LogJSON = persistentBool(cmd, "log-json")

	format, _ := flags.GetString("format")
	if opts.Format, err = render.ParseFormat(format); err != nil {
		return nil, err
	}

	if opts.Accounts == "" {
		return nil, errNoAccounts
	}
	if opts.User == "" && opts.RootID == "" {
		opts.User = firstAccount(opts.Accounts)
		if opts.User == "" {
			return nil, errNoRoot
		}
	}
	return opts, nil
}

// persistentBool reads a flag from the command or the root's persistent set.
func persistentBool(cmd *cobra.Command, name string) bool {
	if v, err := cmd.Flags().GetBool(name); err == nil {
		return v
	}
	v, _ := cmd.Root().PersistentFlags().GetBool(name)
	return v
}

// firstAccount returns the login name of the first configured account.
func firstAccount(accounts string) string {
	first, _, _ := strings.Cut(accounts, ",")
	name, _, _ := strings.Cut(strings.TrimSpace(first), ":")
	if strings.Contains(name, "@") {
		return ""
	}
	return name
}

func createOutput(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}

// runTraverse resolves the root, walks its followers and renders the report.
// An interrupted run still renders the partial result before returning the
// interrupt error.
func runTraverse(ctx context.Context, opts *options, logger *slog.Logger, out io.Writer) error {
	writer, err := render.New(opts.Format, out)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)
	if opts.MetricsAddr != "" {
		stopMetrics, err := serveMetrics(opts.MetricsAddr, reg)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	if opts.Trace {
		shutdown, err := setupTracing(os.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("trace shutdown", slog.Any("error", err))
			}
		}()
	}

	src, err := newSource(opts, collector.APICallHook())
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	cfg := followgraph.DefaultConfig()
	cfg.MaxDepth = opts.MaxDepth
	cfg.PacingDelay = opts.Delay
	cfg.RateLimitCooldown = opts.Cooldown
	cfg.Retry.MaxAttempts = opts.Retries
	cfg.Logger = logger
	cfg.EventHook = collector.Hook()

	resolver := followgraph.NewResolver(src, cfg)
	engine, err := followgraph.NewEngine(resolver, src, cfg)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	root := resolver.Resolve(ctx, opts.RootID, opts.User)
	rootID := opts.RootID
	if rootID == "" {
		if root.Degraded() {
			return fmt.Errorf("resolve root user @%s: lookup failed", opts.User)
		}
		rootID = root.UserID
	}
	logger.Info("collecting nested followers",
		slog.String("root", root.Username),
		slog.String("root_id", rootID),
		slog.Int("max_depth", cfg.MaxDepth),
		slog.Duration("delay", cfg.PacingDelay))

	res, err := engine.Run(ctx, rootID)
	if res != nil {
		if werr := writer.Write(render.Report{Root: &root, Result: res}); werr != nil {
			return fmt.Errorf("write report: %w", werr)
		}
	}
	if errors.Is(err, followgraph.ErrInterrupted) && res != nil {
		logger.Warn("interrupted, partial result written", slog.Int("visited", res.Stats.NodesVisited))
	}
	return err
}
