package render

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/anatolykoptev/go-followgraph"
)

// MarkdownWriter writes the report as a Markdown document with one table row
// per visited user.
type MarkdownWriter struct {
	out io.Writer
}

func (w *MarkdownWriter) Write(rep Report) error {
	md := markdown.NewMarkdown(w.out)
	md.H1("Follower Graph")
	md.PlainText("")

	res := rep.Result
	if res != nil {
		writeRunTable(md, res)
		if res.Interrupted {
			md.Warningf("Traversal was interrupted after %d users; the tree below is partial.", res.Stats.NodesVisited)
			md.PlainText("")
		}
	}

	if rep.Root != nil {
		md.H2("Root Profile")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Field", "Value"},
			Rows:   profileRows(rep.Root),
		})
		md.PlainText("")
	}

	if res != nil {
		writeTree(md, res)
		writeStatsTable(md, res.Stats)
	}

	md.HorizontalRule()
	return md.Build()
}

func writeRunTable(md *markdown.Markdown, res *followgraph.Result) {
	status := "Complete"
	if res.Interrupted {
		status = "Interrupted (partial)"
	}
	rows := [][]string{
		{"Run ID", "`" + res.RunID + "`"},
		{"Root User ID", res.RootUserID},
		{"Max Depth", strconv.Itoa(res.MaxDepth)},
		{"Started", res.StartedAt.Format(time.RFC3339)},
		{"Status", status},
	}
	if !res.FinishedAt.IsZero() {
		rows = append(rows, []string{"Elapsed", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond).String()})
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")
}

func profileRows(p *followgraph.Profile) [][]string {
	return [][]string{
		{"Username", "@" + cell(p.Username)},
		{"Full Name", cell(p.FullName)},
		{"User ID", cell(p.UserID)},
		{"Biography", cell(p.Biography)},
		{"External URL", cell(p.ExternalURL)},
		{"Is Private", strconv.FormatBool(p.IsPrivate)},
		{"Is Verified", strconv.FormatBool(p.IsVerified)},
		{"Is Business Account", strconv.FormatBool(p.IsBusiness)},
		{"Total Posts", p.PostsCount.String()},
		{"Total Followers", p.FollowersCount.String()},
		{"Total Following", p.FollowingCount.String()},
	}
}

func writeTree(md *markdown.Markdown, res *followgraph.Result) {
	md.H2("Followers")
	md.PlainText("")
	if len(res.Nodes) == 0 {
		md.PlainText("No followers found.")
		md.PlainText("")
		return
	}

	var rows [][]string
	walk(res.Nodes, 0, nil, func(n *followgraph.Node, depth, _, _ int, path []string) {
		p := n.Profile
		rows = append(rows, []string{
			strconv.Itoa(depth),
			cell(strings.Join(path, " › ")),
			cell(p.FullName),
			cell(p.UserID),
			p.FollowersCount.String(),
			p.FollowingCount.String(),
			p.PostsCount.String(),
			flag(p.IsPrivate),
			flag(p.IsVerified),
		})
	})
	md.Table(markdown.TableSet{
		Header: []string{"Depth", "Path", "Full Name", "User ID", "Followers", "Following", "Posts", "Private", "Verified"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeStatsTable(md *markdown.Markdown, s followgraph.Stats) {
	md.H2("Stats")
	md.PlainText("")
	rows := [][]string{
		{"Users visited", strconv.Itoa(s.NodesVisited)},
		{"Users expanded", strconv.Itoa(s.NodesExpanded)},
		{"Degraded profiles", strconv.Itoa(s.DegradedProfiles)},
		{"Rate-limit cooldowns", strconv.Itoa(s.Cooldowns)},
	}
	if len(s.Skipped) > 0 {
		rows = append(rows, []string{"Skipped", reasonCounts(s.Skipped)})
	}
	if len(s.Curtailed) > 0 {
		rows = append(rows, []string{"Not expanded", reasonCounts(s.Curtailed)})
	}
	md.Table(markdown.TableSet{Header: []string{"Metric", "Value"}, Rows: rows})
	md.PlainText("")
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r", " ", "\n", " ")

// cell makes s safe inside a table cell.
func cell(s string) string {
	return cellEscaper.Replace(s)
}

func flag(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
