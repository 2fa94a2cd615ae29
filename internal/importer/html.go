// Package importer parses Netscape bookmark HTML, the export format
// every browser speaks.
package importer

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Entry is one bookmark lifted out of the HTML file. Folder is the
// slash-joined path of the folders enclosing it, relative to wherever
// the caller wants to import.
type Entry struct {
	URL    string
	Title  string
	Folder string
}

// Parse reads Netscape bookmark HTML and returns the bookmarks it
// contains. Folder hierarchy comes from the H3/DL nesting.
func Parse(r io.Reader) ([]Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var entries []Entry

	// Folder names enclosing the current position.
	var stack []string
	var pending string

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				if name := textContent(n); name != "" {
					pending = name
				}
				return

			case "a":
				href := attr(n, "href")
				if href == "" {
					return
				}
				title := textContent(n)
				if title == "" {
					title = href
				}
				entries = append(entries, Entry{
					URL:    href,
					Title:  title,
					Folder: strings.Join(stack, "/"),
				})
				return

			case "dl":
				// A DL opens the contents of the folder the last H3 named.
				pushed := false
				if pending != "" {
					stack = append(stack, pending)
					pending = ""
					pushed = true
				}
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}
				if pushed {
					stack = stack[:len(stack)-1]
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return entries, nil
}

// textContent returns the text content of a node.
func textContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// attr returns the value of an attribute, case-insensitive.
func attr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, a := range n.Attr {
		if strings.ToLower(a.Key) == key {
			return a.Val
		}
	}
	return ""
}
