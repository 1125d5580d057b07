// Package render writes traversal reports in the formats the CLI offers.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/anatolykoptev/go-followgraph"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats in help order.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatMarkdown}

// ErrUnknownFormat is returned for a format name ParseFormat does not know.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat accepts a format name, case-insensitively. "md" and "yml" are aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Report is one traversal as presented to the user: the root account's own
// profile, when it was resolved, and the traversal result.
type Report struct {
	Root   *followgraph.Profile `json:"root,omitempty" yaml:"root,omitempty"`
	Result *followgraph.Result  `json:"result" yaml:"result"`
}

// Writer renders a report.
type Writer interface {
	Write(rep Report) error
}

// New returns the writer for f.
func New(f Format, w io.Writer) (Writer, error) {
	switch f {
	case FormatText:
		return &TextWriter{out: w}, nil
	case FormatJSON:
		return &JSONWriter{out: w}, nil
	case FormatYAML:
		return &YAMLWriter{out: w}, nil
	case FormatMarkdown:
		return &MarkdownWriter{out: w}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// walk visits nodes depth-first in result order. path holds the usernames
// from the top-level follower down to the node.
func walk(nodes []*followgraph.Node, depth int, path []string, fn func(n *followgraph.Node, depth, idx, siblings int, path []string)) {
	for i, n := range nodes {
		p := append(path[:len(path):len(path)], n.Profile.Username)
		fn(n, depth, i, len(nodes), p)
		walk(n.Followers, depth+1, p, fn)
	}
}
