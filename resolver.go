package followgraph

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProfileSource looks up user profiles upstream.
type ProfileSource interface {
	ProfileByUsername(ctx context.Context, username string) (*UserInfo, error)
	ProfileByID(ctx context.Context, userID string) (*UserInfo, error)
}

// lookupStrategy is one resolution tier. applies reports whether the inputs
// carry what the tier needs.
type lookupStrategy struct {
	tier    Tier
	applies func(userID, username string) bool
	lookup  func(ctx context.Context, src ProfileSource, userID, username string) (*UserInfo, error)
}

var lookupStrategies = []lookupStrategy{
	{
		tier:    TierUsername,
		applies: func(_, username string) bool { return username != "" },
		lookup: func(ctx context.Context, src ProfileSource, _, username string) (*UserInfo, error) {
			return src.ProfileByUsername(ctx, username)
		},
	},
	{
		tier:    TierUserID,
		applies: func(userID, _ string) bool { return userID != "" },
		lookup: func(ctx context.Context, src ProfileSource, userID, _ string) (*UserInfo, error) {
			return src.ProfileByID(ctx, userID)
		},
	},
}

// Resolver turns a user identifier into a Profile. It never fails: when every
// upstream tier fails it returns a minimal profile built from its inputs.
type Resolver struct {
	src ProfileSource
	cfg Config
}

// NewResolver creates a resolver over src. Only the pacing, sleep, logging,
// event and tracing fields of cfg are used.
func NewResolver(src ProfileSource, cfg Config) *Resolver {
	cfg.defaults()
	return &Resolver{src: src, cfg: cfg}
}

// Resolve looks the user up by username, then by id, then falls back to a
// minimal profile. It waits the pacing delay before returning.
func (r *Resolver) Resolve(ctx context.Context, userID, username string) Profile {
	p, _ := r.resolve(ctx, userID, username)
	return p
}

// resolve is Resolve that also reports whether the profile degraded because
// every upstream tier failed. A lookup cut short by cancellation yields the
// minimal profile without counting as degraded.
func (r *Resolver) resolve(ctx context.Context, userID, username string) (Profile, bool) {
	ctx, span := r.cfg.Tracer.Start(ctx, "followgraph.Resolve",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("user.name", username),
		))
	defer span.End()

	p, degraded := r.lookup(ctx, userID, username)
	span.SetAttributes(attribute.String("profile.tier", string(p.Tier)))

	if err := r.cfg.Sleep(ctx, r.cfg.PacingDelay); err != nil {
		r.cfg.Logger.Debug("pacing interrupted", slog.String("user_id", userID), slog.Any("error", err))
	}
	return p, degraded
}

func (r *Resolver) lookup(ctx context.Context, userID, username string) (Profile, bool) {
	runID := runIDFrom(ctx)
	for _, s := range lookupStrategies {
		if !s.applies(userID, username) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		info, err := s.lookup(ctx, r.src, userID, username)
		if err == nil && info != nil {
			return normalizeProfile(info, userID, username, s.tier), false
		}
		if err == nil {
			err = ErrNotFound
		}
		reason := Classify(err)
		r.cfg.Logger.Debug("profile lookup failed",
			slog.String("user_id", userID),
			slog.String("username", username),
			slog.String("tier", string(s.tier)),
			slog.String("reason", reason.String()),
			slog.Any("error", err))
		r.cfg.EventHook.emit(Event{
			Kind:     EventProfileLookupFailed,
			RunID:    runID,
			UserID:   userID,
			Username: username,
			Reason:   reason,
			Err:      err,
		})
	}

	if err := ctx.Err(); err != nil {
		r.cfg.Logger.Debug("profile lookup interrupted",
			slog.String("user_id", userID),
			slog.String("username", username),
			slog.Any("error", err))
		return minimalProfile(userID, username), false
	}

	r.cfg.Logger.Warn("profile unavailable, using minimal record",
		slog.String("user_id", userID),
		slog.String("username", username))
	r.cfg.EventHook.emit(Event{
		Kind:     EventProfileDegraded,
		RunID:    runID,
		UserID:   userID,
		Username: username,
	})
	return minimalProfile(userID, username), true
}

type runIDKey struct{}

func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
