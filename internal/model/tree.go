package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a folder path or bookmark URL cannot be
// resolved in the tree.
var ErrNotFound = errors.New("not found")

// RootKeys lists the three fixed roots of a Chrome bookmark tree, in the
// order Chrome writes them.
var RootKeys = []string{"bookmark_bar", "other", "synced"}

// Roots holds the three top-level folders of the tree.
type Roots struct {
	BookmarkBar Node `json:"bookmark_bar"`
	Other       Node `json:"other"`
	Synced      Node `json:"synced"`
}

// Tree is the in-memory form of a Chrome Bookmarks file.
type Tree struct {
	Checksum string `json:"checksum,omitempty"`
	Roots    Roots  `json:"roots"`
	Version  int    `json:"version"`
}

// Bookmark is a flat, read-only view of a single bookmark. Folder is the
// full path from a root key (e.g. "bookmark_bar/Dev/Go").
type Bookmark struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Folder string `json:"folder"`
}

// FolderInfo summarizes one folder for structure listings.
type FolderInfo struct {
	Path       string `json:"path"`
	Bookmarks  int    `json:"bookmarks"`
	Subfolders int    `json:"subfolders"`
}

// NewTree returns an empty tree with the three standard roots present.
func NewTree() *Tree {
	return &Tree{
		Roots: Roots{
			BookmarkBar: Node{DateAdded: "0", ID: "1", Name: "Bookmarks bar", Type: TypeFolder},
			Other:       Node{DateAdded: "0", ID: "2", Name: "Other bookmarks", Type: TypeFolder},
			Synced:      Node{DateAdded: "0", ID: "3", Name: "Mobile bookmarks", Type: TypeFolder},
		},
		Version: 1,
	}
}

// Root returns the root folder for the given key, or nil if the key is not
// one of bookmark_bar/other/synced.
func (t *Tree) Root(key string) *Node {
	switch key {
	case "bookmark_bar":
		return &t.Roots.BookmarkBar
	case "other":
		return &t.Roots.Other
	case "synced":
		return &t.Roots.Synced
	}
	return nil
}

// FolderByPath resolves a folder path like "bookmark_bar/Dev/Go". The first
// segment must name a root; remaining segments are matched against
// folder-typed children only, one level at a time.
func (t *Tree) FolderByPath(path string) (*Node, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty folder path: %w", ErrNotFound)
	}

	current := t.Root(parts[0])
	if current == nil {
		return nil, fmt.Errorf("unknown root %q (expected one of %s): %w",
			parts[0], strings.Join(RootKeys, ", "), ErrNotFound)
	}

	for depth, part := range parts[1:] {
		var next *Node
		for _, child := range current.Children {
			if child.IsFolder() && child.Name == part {
				next = child
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("folder not found at depth %d (%q) in path %q: %w",
				depth+1, part, path, ErrNotFound)
		}
		current = next
	}

	return current, nil
}

// FindByURL searches all roots for a bookmark with exactly the given URL.
// Returns the node, its parent folder and the parent's full path.
func (t *Tree) FindByURL(url string) (node, parent *Node, folderPath string, ok bool) {
	for _, key := range RootKeys {
		root := t.Root(key)
		if n, p, path, found := findByURL(root, key, url); found {
			return n, p, path, true
		}
	}
	return nil, nil, "", false
}

func findByURL(folder *Node, path, url string) (node, parent *Node, folderPath string, ok bool) {
	for _, child := range folder.Children {
		if child.IsBookmark() && child.URL == url {
			return child, folder, path, true
		}
		if child.IsFolder() {
			if n, p, fp, found := findByURL(child, path+"/"+child.Name, url); found {
				return n, p, fp, true
			}
		}
	}
	return nil, nil, "", false
}

// Bookmarks returns a flat snapshot of every bookmark in the tree, in
// traversal order. Folder paths are prefixed with the root key.
func (t *Tree) Bookmarks() []Bookmark {
	var all []Bookmark
	for _, key := range RootKeys {
		collectBookmarks(t.Root(key), key, &all)
	}
	return all
}

func collectBookmarks(folder *Node, path string, out *[]Bookmark) {
	for _, child := range folder.Children {
		switch {
		case child.IsBookmark():
			*out = append(*out, Bookmark{
				ID:     child.ID,
				URL:    child.URL,
				Title:  child.Name,
				Folder: path,
			})
		case child.IsFolder():
			collectBookmarks(child, path+"/"+child.Name, out)
		}
	}
}

// FolderStructure lists every folder with its direct bookmark and subfolder
// counts, roots included, in traversal order.
func (t *Tree) FolderStructure() []FolderInfo {
	var infos []FolderInfo
	for _, key := range RootKeys {
		collectFolders(t.Root(key), key, &infos)
	}
	return infos
}

func collectFolders(folder *Node, path string, out *[]FolderInfo) {
	info := FolderInfo{Path: path}
	for _, child := range folder.Children {
		switch {
		case child.IsBookmark():
			info.Bookmarks++
		case child.IsFolder():
			info.Subfolders++
		}
	}
	*out = append(*out, info)

	for _, child := range folder.Children {
		if child.IsFolder() {
			collectFolders(child, path+"/"+child.Name, out)
		}
	}
}

// ToggleTrailingSlash adds a trailing slash if absent, or strips it if
// present. Used to compensate for backends that normalize URLs.
func ToggleTrailingSlash(url string) string {
	if strings.HasSuffix(url, "/") {
		return strings.TrimSuffix(url, "/")
	}
	return url + "/"
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
