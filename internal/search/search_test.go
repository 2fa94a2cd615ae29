package search

import (
	"strings"
	"testing"

	"github.com/jfelder/marksman/internal/model"
)

func sampleBookmarks() []model.Bookmark {
	return []model.Bookmark{
		{URL: "https://go.dev", Title: "The Go Programming Language", Folder: "bookmark_bar/Dev"},
		{URL: "https://reactrouter.com", Title: "React Router", Folder: "bookmark_bar/Dev/Web"},
		{URL: "https://tanstack.com/router", Title: "TanStack Router", Folder: "bookmark_bar/Dev/Web"},
		{URL: "https://news.ycombinator.com/", Title: "Hacker News", Folder: "other"},
	}
}

func TestKeyword_TitleMatch(t *testing.T) {
	results := Keyword(sampleBookmarks(), nil, "router", nil, 0)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !strings.Contains(r.Bookmark.Title, "Router") {
			t.Errorf("unexpected match: %s", r.Bookmark.Title)
		}
	}
}

func TestKeyword_EmptyQueryNoTags(t *testing.T) {
	if results := Keyword(sampleBookmarks(), nil, "", nil, 0); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestKeyword_FolderOutranksURL(t *testing.T) {
	bookmarks := []model.Bookmark{
		{URL: "https://web.dev", Title: "web.dev", Folder: "other"},
		{URL: "https://example.com", Title: "Example", Folder: "bookmark_bar/Web"},
	}

	results := Keyword(bookmarks, nil, "web", nil, 0)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Title hit on "web.dev" scores above the folder hit.
	if results[0].Bookmark.URL != "https://web.dev" {
		t.Errorf("expected title match first, got %s", results[0].Bookmark.URL)
	}
}

func TestKeyword_UsesSummaryAndTags(t *testing.T) {
	meta := map[string]Meta{
		"https://news.ycombinator.com/": {
			Summary: "Social news focused on startups and technology.",
			Tags:    []string{"news", "tech"},
		},
	}

	results := Keyword(sampleBookmarks(), meta, "startups", nil, 0)
	if len(results) != 1 {
		t.Fatalf("expected summary match, got %d results", len(results))
	}
	if results[0].Bookmark.Title != "Hacker News" {
		t.Errorf("wrong match: %s", results[0].Bookmark.Title)
	}
	if results[0].Summary == "" {
		t.Error("result should carry the stored summary")
	}

	results = Keyword(sampleBookmarks(), meta, "tech", nil, 0)
	if len(results) != 1 {
		t.Fatalf("expected tag match, got %d results", len(results))
	}
}

func TestKeyword_TagFilterRequiresAll(t *testing.T) {
	meta := map[string]Meta{
		"https://go.dev":                {Tags: []string{"go", "programming"}},
		"https://news.ycombinator.com/": {Tags: []string{"news"}},
	}

	results := Keyword(sampleBookmarks(), meta, "", []string{"go", "programming"}, 0)
	if len(results) != 1 || results[0].Bookmark.URL != "https://go.dev" {
		t.Fatalf("expected only the fully-tagged bookmark, got %+v", results)
	}

	results = Keyword(sampleBookmarks(), meta, "", []string{"go", "news"}, 0)
	if len(results) != 0 {
		t.Errorf("no bookmark carries both tags, got %d results", len(results))
	}
}

func TestKeyword_TagFilterCaseInsensitive(t *testing.T) {
	meta := map[string]Meta{
		"https://go.dev": {Tags: []string{"Go"}},
	}

	results := Keyword(sampleBookmarks(), meta, "", []string{"go"}, 0)
	if len(results) != 1 {
		t.Errorf("expected case-insensitive tag filter, got %d results", len(results))
	}
}

func TestKeyword_Limit(t *testing.T) {
	results := Keyword(sampleBookmarks(), nil, "router", nil, 1)
	if len(results) != 1 {
		t.Errorf("expected limit to cap results, got %d", len(results))
	}
}

func TestFuzzy_EmptyQuery(t *testing.T) {
	if results := Fuzzy(sampleBookmarks(), ""); len(results) != 0 {
		t.Errorf("expected 0 results for empty query, got %d", len(results))
	}
}

func TestFuzzy_AbbreviatedMatch(t *testing.T) {
	// "tanrou" should fuzzy match "TanStack Router".
	results := Fuzzy(sampleBookmarks(), "tanrou")

	if len(results) < 1 {
		t.Fatalf("expected at least 1 result for 'tanrou', got %d", len(results))
	}
	if results[0].Bookmark.Title != "TanStack Router" {
		t.Errorf("expected TanStack Router first, got %s", results[0].Bookmark.Title)
	}
}

func TestFuzzy_SortedByScore(t *testing.T) {
	bookmarks := []model.Bookmark{
		{URL: "https://reactrouter.com", Title: "React Router Documentation"},
		{URL: "https://router.example.com", Title: "Router"},
	}

	results := Fuzzy(bookmarks, "router")
	if len(results) < 2 {
		t.Fatalf("expected at least 2 results, got %d", len(results))
	}
	if results[0].Bookmark.Title != "Router" {
		t.Errorf("expected exact title first, got %s", results[0].Bookmark.Title)
	}
}

func TestFuzzy_NoMatch(t *testing.T) {
	if results := Fuzzy(sampleBookmarks(), "xyz123"); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}
