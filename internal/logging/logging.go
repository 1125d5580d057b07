// Package logging builds the slog loggers used by the followgraph CLI. Every
// logger it returns redacts account credentials before they reach the output.
package logging

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces sensitive attribute values.
const Redacted = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always redacted.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-csrf-token":        true,
	"x-guest-token":       true,
	"ct0":                 true,
	"totp":                true,
	"otp":                 true,
	"accounts":            true,
}

// sensitiveKeywords redact any key containing them.
var sensitiveKeywords = []string{"password", "passwd", "secret", "token", "credential"}

// sensitiveValues redact string values regardless of key.
var sensitiveValues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`^[a-fA-F0-9]{40,}$`),
	regexp.MustCompile(`(^|[;\s])(auth_token|ct0)=[^;\s]+`),
}

// RedactingHandler wraps a slog.Handler and masks credentials in record and
// handler attributes.
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps h. A nil h wraps slog.Default().Handler().
func NewRedactingHandler(h slog.Handler) *RedactingHandler {
	if h == nil {
		h = slog.Default().Handler()
	}
	return &RedactingHandler{handler: h}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redact(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redact(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(clean)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if sensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	if a.Value.Kind() == slog.KindString && sensitiveValue(a.Value.String()) {
		return slog.String(a.Key, Redacted)
	}
	return a
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func sensitiveValue(v string) bool {
	for _, re := range sensitiveValues {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

// Options selects the logger output.
type Options struct {
	Verbose bool
	JSON    bool
}

// New returns a redacting logger writing to w. Verbose enables debug output;
// otherwise only info and above are written.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(w, hopts)
	if opts.JSON {
		h = slog.NewJSONHandler(w, hopts)
	}
	return slog.New(NewRedactingHandler(h))
}
