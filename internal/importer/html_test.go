package importer

import (
	"strings"
	"testing"
)

const sampleHTML = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><A HREF="https://go.dev" ADD_DATE="1700000000">The Go Programming Language</A>
    <DT><H3>Dev</H3>
    <DL><p>
        <DT><A HREF="https://github.com">GitHub</A>
        <DT><H3>Web</H3>
        <DL><p>
            <DT><A HREF="https://reactrouter.com">React Router</A>
        </DL><p>
    </DL><p>
    <DT><A HREF="https://news.ycombinator.com/">Hacker News</A>
</DL><p>
`

func TestParse_Hierarchy(t *testing.T) {
	entries, err := Parse(strings.NewReader(sampleHTML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	byURL := map[string]Entry{}
	for _, e := range entries {
		byURL[e.URL] = e
	}

	if e := byURL["https://go.dev"]; e.Folder != "" || e.Title != "The Go Programming Language" {
		t.Errorf("top-level entry wrong: %+v", e)
	}
	if e := byURL["https://github.com"]; e.Folder != "Dev" {
		t.Errorf("expected GitHub in Dev, got %q", e.Folder)
	}
	if e := byURL["https://reactrouter.com"]; e.Folder != "Dev/Web" {
		t.Errorf("expected nested folder Dev/Web, got %q", e.Folder)
	}
	if e := byURL["https://news.ycombinator.com/"]; e.Folder != "" {
		t.Errorf("entry after a closed folder should be top-level, got %q", e.Folder)
	}
}

func TestParse_TitleFallsBackToURL(t *testing.T) {
	html := `<DL><DT><A HREF="https://example.com"></A></DL>`

	entries, err := Parse(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Title != "https://example.com" {
		t.Errorf("expected URL as title fallback, got %+v", entries)
	}
}

func TestParse_SkipsAnchorsWithoutHref(t *testing.T) {
	html := `<DL><DT><A>No link</A><DT><A HREF="https://a.dev">A</A></DL>`

	entries, err := Parse(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected anchor without href to be skipped, got %d entries", len(entries))
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	entries, err := Parse(strings.NewReader("<html><body></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestParse_CaseInsensitiveAttributes(t *testing.T) {
	html := `<dl><dt><a href="https://a.dev">lower</a></dl>`

	entries, err := Parse(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].URL != "https://a.dev" {
		t.Errorf("lowercase markup should parse, got %+v", entries)
	}
}
