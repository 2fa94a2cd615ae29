package store_test

import (
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/jfelder/marksman/internal/importer"
	"github.com/jfelder/marksman/internal/model"
	"github.com/jfelder/marksman/internal/store"
)

func TestImport_CreatesFoldersAndBookmarks(t *testing.T) {
	s := store.NewFileStore(filepath.Join(t.TempDir(), "Bookmarks"))

	entries := []importer.Entry{
		{URL: "https://go.dev", Title: "Go", Folder: ""},
		{URL: "https://github.com", Title: "GitHub", Folder: "Dev"},
		{URL: "https://reactrouter.com", Title: "React Router", Folder: "Dev/Web"},
	}

	added, skipped, err := s.Import(entries, "other/Imported")
	assert.NilError(t, err)
	assert.Equal(t, added, 3)
	assert.Equal(t, skipped, 0)

	tree, err := s.Load()
	assert.NilError(t, err)

	_, err = tree.FolderByPath("other/Imported/Dev/Web")
	assert.NilError(t, err)

	_, _, folder, ok := tree.FindByURL("https://reactrouter.com")
	assert.Assert(t, ok)
	assert.Equal(t, folder, "other/Imported/Dev/Web")

	_, _, folder, ok = tree.FindByURL("https://go.dev")
	assert.Assert(t, ok)
	assert.Equal(t, folder, "other/Imported")
}

func TestImport_SkipsDuplicates(t *testing.T) {
	s, _ := newStoreWithTree(t)

	entries := []importer.Entry{
		{URL: "https://go.dev/blog", Title: "Go Blog Again"},
		{URL: "https://fresh.dev", Title: "Fresh"},
	}

	added, skipped, err := s.Import(entries, "other")
	assert.NilError(t, err)
	assert.Equal(t, added, 1)
	assert.Equal(t, skipped, 1)

	// The existing copy keeps its place and title.
	tree, _ := s.Load()
	node, _, folder, ok := tree.FindByURL("https://go.dev/blog")
	assert.Assert(t, ok)
	assert.Equal(t, folder, "bookmark_bar")
	assert.Equal(t, node.Name, "Go Blog")
}

func TestImport_DuplicateDetectionToleratesTrailingSlash(t *testing.T) {
	s, _ := newStoreWithTree(t)

	added, skipped, err := s.Import([]importer.Entry{
		{URL: "https://go.dev/blog/", Title: "Go Blog Slash"},
	}, "other")
	assert.NilError(t, err)
	assert.Equal(t, added, 0)
	assert.Equal(t, skipped, 1)
}

func TestImport_NothingAddedWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Bookmarks")
	s := store.NewFileStore(path)

	added, skipped, err := s.Import(nil, "other")
	assert.NilError(t, err)
	assert.Equal(t, added, 0)
	assert.Equal(t, skipped, 0)

	// No entries means the missing file stays missing.
	_, err = s.Load()
	assert.ErrorIs(t, err, store.ErrMissingFile)
}

func TestImport_UnknownRoot(t *testing.T) {
	s := store.NewFileStore(filepath.Join(t.TempDir(), "Bookmarks"))

	_, _, err := s.Import([]importer.Entry{{URL: "https://a.dev", Title: "A"}}, "desktop/Imported")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
