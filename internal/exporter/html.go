// Package exporter writes the bookmark tree as Netscape bookmark HTML
// so other browsers and managers can import it.
package exporter

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jfelder/marksman/internal/model"
)

// DefaultExportPath returns ~/Downloads/bookmarks-export-YYYY-MM-DD.html.
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("bookmarks-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// Export renders the tree in Netscape bookmark HTML format. Each root
// becomes a top-level folder named after the browser's own labels.
func Export(tree *model.Tree) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	for _, key := range model.RootKeys {
		writeFolder(&b, tree.Root(key), 1)
	}

	b.WriteString("</DL><p>\n")
	return b.String()
}

func writeFolder(b *strings.Builder, folder *model.Node, indent int) {
	prefix := strings.Repeat("    ", indent)

	fmt.Fprintf(b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(folder.Name))
	fmt.Fprintf(b, "%s<DL><p>\n", prefix)

	for _, child := range folder.Children {
		if child.IsFolder() {
			writeFolder(b, child, indent+1)
			continue
		}
		fmt.Fprintf(b,
			"%s    <DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
			prefix,
			html.EscapeString(child.URL),
			addDateSeconds(child.DateAdded),
			html.EscapeString(child.Name),
		)
	}

	fmt.Fprintf(b, "%s</DL><p>\n", prefix)
}

// addDateSeconds converts a microsecond date string to Unix seconds,
// the unit the ADD_DATE attribute uses.
func addDateSeconds(micros string) int64 {
	n, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return 0
	}
	return n / 1e6
}
