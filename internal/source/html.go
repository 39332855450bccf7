package source

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
)

const (
	testIDTable   = "apps-table"
	testIDRow     = "apps-table-row"
	testIDName    = "apps-table-app-name-field"
	testIDRecords = "apps-table-app-records-count"
	testIDStorage = "apps-table-app-storage-count"
	testIDTasks   = "apps-table-app-tasks-count"
)

// HTMLFile scrapes a saved Knack builder apps page.
type HTMLFile struct {
	path string
}

// NewHTMLFile returns a source for the page at path.
func NewHTMLFile(path string) HTMLFile { return HTMLFile{path: path} }

// Path implements File.
func (f HTMLFile) Path() string { return f.path }

// Snapshot implements File.
func (f HTMLFile) Snapshot(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return model.Snapshot{}, eris.Wrapf(err, "source: open %s", f.path)
	}
	defer fh.Close()
	return ParseHTML(fh)
}

// ParseHTML extracts the apps table from a page.
func ParseHTML(r io.Reader) (model.Snapshot, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return model.Snapshot{}, eris.Wrap(err, "source: parse html")
	}

	table := find(doc, func(n *html.Node) bool { return testID(n) == testIDTable })
	if table == nil {
		return model.Snapshot{}, ErrNoTable
	}

	snap := model.Snapshot{Rows: []model.Row{}}
	if header := headerRow(table); header != nil {
		var labels []string
		for _, c := range findAll(header, hasClass("table-cell")) {
			labels = append(labels, textOf(c))
		}
		snap.Headers = withCost(labels)
	}

	for _, row := range findAll(table, func(n *html.Node) bool { return testID(n) == testIDRow }) {
		snap.Rows = append(snap.Rows, model.Row{
			Name:        fieldText(row, testIDName),
			RecordText:  fieldText(row, testIDRecords),
			StorageText: fieldText(row, testIDStorage),
			TasksText:   fieldText(row, testIDTasks),
		})
	}
	return snap, nil
}

// headerRow is the first .table-row with a cell reading "records".
func headerRow(table *html.Node) *html.Node {
	for _, row := range findAll(table, hasClass("table-row")) {
		for _, c := range findAll(row, hasClass("table-cell")) {
			if strings.EqualFold(textOf(c), "records") {
				return row
			}
		}
	}
	return nil
}

func fieldText(row *html.Node, id string) string {
	n := find(row, func(n *html.Node) bool { return testID(n) == id })
	if n == nil {
		return ""
	}
	return textOf(n)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func testID(n *html.Node) string {
	if n.Type != html.ElementNode {
		return ""
	}
	return attr(n, "data-testid")
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

// find returns the first descendant of n (excluding n) matching pred, in
// document order.
func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			return c
		}
		if m := find(c, pred); m != nil {
			return m
		}
	}
	return nil
}

func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			out = append(out, c)
		}
		out = append(out, findAll(c, pred)...)
	}
	return out
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
