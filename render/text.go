package render

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/anatolykoptev/go-followgraph"
)

const ruleWidth = 60

// TextWriter prints the console layout: the root profile, then every node's
// profile indented by depth.
type TextWriter struct {
	out io.Writer
}

func (w *TextWriter) Write(rep Report) error {
	bw := bufio.NewWriter(w.out)
	heavy := strings.Repeat("=", ruleWidth)

	if rep.Root != nil {
		fmt.Fprintln(bw, heavy)
		fmt.Fprintln(bw, "ROOT PROFILE")
		fmt.Fprintln(bw, heavy)
		writeProfile(bw, rep.Root, "")
		fmt.Fprintln(bw, heavy)
		fmt.Fprintln(bw)
	}

	res := rep.Result
	if res == nil {
		return bw.Flush()
	}

	fmt.Fprintln(bw, heavy)
	fmt.Fprintln(bw, "NESTED FOLLOWERS")
	fmt.Fprintln(bw, heavy)
	fmt.Fprintf(bw, "Max Depth: %d (0 = direct followers only)\n", res.MaxDepth)
	fmt.Fprintln(bw)

	if len(res.Nodes) == 0 {
		fmt.Fprintln(bw, "No followers found.")
	}
	walk(res.Nodes, 0, nil, func(n *followgraph.Node, depth, idx, siblings int, _ []string) {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(bw, "%s%s\n", indent, strings.Repeat("─", ruleWidth-depth*2))
		fmt.Fprintf(bw, "%s[%d/%d] depth %d\n", indent, idx+1, siblings, depth)
		writeProfile(bw, &n.Profile, indent)
	})

	fmt.Fprintln(bw, heavy)
	writeStats(bw, res)
	if res.Interrupted {
		fmt.Fprintln(bw, "Interrupted: the tree above is partial.")
	}
	fmt.Fprintln(bw, heavy)
	return bw.Flush()
}

func writeProfile(w io.Writer, p *followgraph.Profile, indent string) {
	fmt.Fprintf(w, "%sUsername: @%s\n", indent, p.Username)
	fmt.Fprintf(w, "%sFull Name: %s\n", indent, p.FullName)
	fmt.Fprintf(w, "%sUser ID: %s\n", indent, p.UserID)
	fmt.Fprintf(w, "%sBiography: %s\n", indent, oneLine(p.Biography))
	fmt.Fprintf(w, "%sExternal URL: %s\n", indent, p.ExternalURL)
	fmt.Fprintf(w, "%sIs Private: %t\n", indent, p.IsPrivate)
	fmt.Fprintf(w, "%sIs Verified: %t\n", indent, p.IsVerified)
	fmt.Fprintf(w, "%sIs Business Account: %t\n", indent, p.IsBusiness)
	fmt.Fprintf(w, "%sTotal Posts: %s\n", indent, p.PostsCount)
	fmt.Fprintf(w, "%sTotal Followers: %s\n", indent, p.FollowersCount)
	fmt.Fprintf(w, "%sTotal Following: %s\n", indent, p.FollowingCount)
	fmt.Fprintln(w)
}

func writeStats(w io.Writer, res *followgraph.Result) {
	s := res.Stats
	fmt.Fprintf(w, "Direct followers processed: %d\n", len(res.Nodes))
	fmt.Fprintf(w, "Users visited: %d (expanded %d, degraded profiles %d)\n",
		s.NodesVisited, s.NodesExpanded, s.DegradedProfiles)
	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped: %s\n", reasonCounts(s.Skipped))
	}
	if len(s.Curtailed) > 0 {
		fmt.Fprintf(w, "Not expanded: %s\n", reasonCounts(s.Curtailed))
	}
	if s.Cooldowns > 0 {
		fmt.Fprintf(w, "Rate-limit cooldowns: %d\n", s.Cooldowns)
	}
	if !res.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Elapsed: %s\n", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	}
}

// reasonCounts formats counts as "cycle=2, private_account=1" in reason order.
func reasonCounts(m map[followgraph.Reason]int) string {
	parts := make([]string, 0, len(m))
	for _, r := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s=%d", r, m[r]))
	}
	return strings.Join(parts, ", ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
