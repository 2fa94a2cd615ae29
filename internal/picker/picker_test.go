package picker

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jfelder/marksman/internal/model"
)

func sampleBookmarks() []model.Bookmark {
	return []model.Bookmark{
		{URL: "https://github.com", Title: "GitHub", Folder: "bookmark_bar/Dev"},
		{URL: "https://gitlab.com", Title: "GitLab", Folder: "bookmark_bar/Dev"},
		{URL: "https://news.ycombinator.com", Title: "Hacker News", Folder: "other"},
	}
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func typeRunes(p Picker, s string) Picker {
	for _, r := range s {
		m, _ := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		p = m.(Picker)
	}
	return p
}

func TestPicker_InitialStateShowsAll(t *testing.T) {
	p := New(sampleBookmarks(), "")

	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
	if len(p.results) != 3 {
		t.Errorf("expected all bookmarks visible, got %d", len(p.results))
	}
}

func TestPicker_SeedQueryFilters(t *testing.T) {
	p := New(sampleBookmarks(), "hacker")

	if len(p.results) != 1 {
		t.Fatalf("expected 1 result for seed query, got %d", len(p.results))
	}
	if p.results[0].Bookmark.Title != "Hacker News" {
		t.Errorf("wrong result: %s", p.results[0].Bookmark.Title)
	}
}

func TestPicker_TypingFilters(t *testing.T) {
	p := New(sampleBookmarks(), "")
	p = typeRunes(p, "git")

	if len(p.results) != 2 {
		t.Fatalf("expected 2 results after typing 'git', got %d", len(p.results))
	}
}

func TestPicker_CursorResetsWhenFilterShrinks(t *testing.T) {
	p := New(sampleBookmarks(), "")
	p.cursor = 2

	p = typeRunes(p, "github")
	if p.cursor != 0 {
		t.Errorf("cursor should reset when it falls off the list, got %d", p.cursor)
	}
}

func TestPicker_Navigation(t *testing.T) {
	p := New(sampleBookmarks(), "")

	m, _ := p.Update(key(tea.KeyDown))
	p = m.(Picker)
	if p.cursor != 1 {
		t.Errorf("expected cursor 1 after down, got %d", p.cursor)
	}

	m, _ = p.Update(key(tea.KeyUp))
	p = m.(Picker)
	if p.cursor != 0 {
		t.Errorf("expected cursor 0 after up, got %d", p.cursor)
	}

	// Up at the top stays put.
	m, _ = p.Update(key(tea.KeyUp))
	p = m.(Picker)
	if p.cursor != 0 {
		t.Errorf("cursor moved past the top: %d", p.cursor)
	}
}

func TestPicker_SelectReturnsBookmark(t *testing.T) {
	p := New(sampleBookmarks(), "")

	m, _ := p.Update(key(tea.KeyDown))
	p = m.(Picker)
	m, cmd := p.Update(key(tea.KeyEnter))
	p = m.(Picker)

	if cmd == nil {
		t.Error("expected quit command after selection")
	}
	got := p.Selected()
	if got == nil || got.URL != "https://gitlab.com" {
		t.Errorf("expected GitLab selected, got %+v", got)
	}
}

func TestPicker_EnterOnEmptyResultsDoesNothing(t *testing.T) {
	p := New(sampleBookmarks(), "zzzzz")

	m, cmd := p.Update(key(tea.KeyEnter))
	p = m.(Picker)

	if cmd != nil {
		t.Error("enter with no results should not quit")
	}
	if p.Selected() != nil {
		t.Error("nothing should be selected")
	}
}

func TestPicker_Cancel(t *testing.T) {
	p := New(sampleBookmarks(), "")

	m, cmd := p.Update(key(tea.KeyEsc))
	p = m.(Picker)

	if !p.Cancelled() {
		t.Error("expected cancelled after Esc")
	}
	if cmd == nil {
		t.Error("expected quit command after cancel")
	}
	if p.Selected() != nil {
		t.Error("cancelled picker must not report a selection")
	}
}

func TestPicker_CopyDoesNotSelect(t *testing.T) {
	p := New(sampleBookmarks(), "")

	m, cmd := p.Update(key(tea.KeyCtrlY))
	p = m.(Picker)

	if cmd != nil {
		t.Error("copy should not quit the picker")
	}
	if p.selected || p.cancelled {
		t.Error("copy should leave selection state untouched")
	}
	if p.status == "" {
		t.Error("copy should report a status line")
	}
}

func TestPicker_ViewListsResults(t *testing.T) {
	p := New(sampleBookmarks(), "")

	view := p.View()
	for _, want := range []string{"GitHub", "https://gitlab.com", "bookmark_bar/Dev"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
