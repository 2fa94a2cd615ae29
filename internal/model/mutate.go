package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Move describes one requested bookmark move.
type Move struct {
	URL          string `json:"url"`
	TargetFolder string `json:"target_folder"`
}

// AppliedMove records a move that actually happened, with the folder the
// bookmark came from so the move can be reverted.
type AppliedMove struct {
	URL            string `json:"url"`
	OriginalFolder string `json:"original_folder"`
	TargetFolder   string `json:"target_folder"`
}

// Removed summarizes a deleted bookmark.
type Removed struct {
	Title  string
	Folder string
}

// AddBookmark appends a new bookmark node to the folder at folderPath.
func (t *Tree) AddBookmark(url, title, folderPath string) (*Node, error) {
	folder, err := t.FolderByPath(folderPath)
	if err != nil {
		return nil, err
	}

	node := &Node{
		DateAdded:    nowMicros(),
		DateLastUsed: "0",
		ID:           newID(),
		Name:         title,
		Type:         TypeURL,
		URL:          url,
	}
	folder.Children = append(folder.Children, node)
	return node, nil
}

// CreateFolder appends a new empty folder under parentPath and returns the
// node together with its full path.
func (t *Tree) CreateFolder(name, parentPath string) (*Node, string, error) {
	parent, err := t.FolderByPath(parentPath)
	if err != nil {
		return nil, "", err
	}

	node := &Node{
		DateAdded:    nowMicros(),
		DateLastUsed: "0",
		DateModified: nowMicros(),
		ID:           newID(),
		Name:         name,
		Type:         TypeFolder,
	}
	parent.Children = append(parent.Children, node)
	return node, parentPath + "/" + name, nil
}

// EnsureFolder returns the folder at path, creating any missing
// segments along the way. The first segment must name an existing root.
func (t *Tree) EnsureFolder(path string) (*Node, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty folder path: %w", ErrNotFound)
	}

	current := t.Root(parts[0])
	if current == nil {
		return nil, fmt.Errorf("unknown root %q (expected one of %s): %w",
			parts[0], strings.Join(RootKeys, ", "), ErrNotFound)
	}

	for _, part := range parts[1:] {
		var next *Node
		for _, child := range current.Children {
			if child.IsFolder() && child.Name == part {
				next = child
				break
			}
		}
		if next == nil {
			next = &Node{
				DateAdded:    nowMicros(),
				DateLastUsed: "0",
				DateModified: nowMicros(),
				ID:           newID(),
				Name:         part,
				Type:         TypeFolder,
			}
			current.Children = append(current.Children, next)
		}
		current = next
	}
	return current, nil
}

// MoveBookmark moves the bookmark with the given URL into targetPath and
// returns the folder it came from.
func (t *Tree) MoveBookmark(url, targetPath string) (string, error) {
	node, parent, fromFolder, ok := t.findBookmark(url)
	if !ok {
		return "", fmt.Errorf("bookmark not found: %s: %w", url, ErrNotFound)
	}

	target, err := t.FolderByPath(targetPath)
	if err != nil {
		return "", err
	}

	detach(parent, node)
	target.Children = append(target.Children, node)
	return fromFolder, nil
}

// RenameBookmark changes the title of the bookmark with the given URL and
// returns the previous title.
func (t *Tree) RenameBookmark(url, newTitle string) (string, error) {
	node, _, _, ok := t.findBookmark(url)
	if !ok {
		return "", fmt.Errorf("bookmark not found: %s: %w", url, ErrNotFound)
	}

	oldTitle := node.Name
	node.Name = newTitle
	return oldTitle, nil
}

// DeleteBookmark removes the bookmark with the given URL from the tree.
func (t *Tree) DeleteBookmark(url string) (Removed, error) {
	node, parent, folder, ok := t.findBookmark(url)
	if !ok {
		return Removed{}, fmt.Errorf("bookmark not found: %s: %w", url, ErrNotFound)
	}

	detach(parent, node)
	return Removed{Title: node.Name, Folder: folder}, nil
}

// BulkMove applies each move in order, skipping entries whose URL or target
// folder cannot be resolved. Returns the moves that were applied.
func (t *Tree) BulkMove(moves []Move) []AppliedMove {
	var applied []AppliedMove
	for _, m := range moves {
		if m.URL == "" || m.TargetFolder == "" {
			continue
		}
		from, err := t.MoveBookmark(m.URL, m.TargetFolder)
		if err != nil {
			continue
		}
		applied = append(applied, AppliedMove{
			URL:            m.URL,
			OriginalFolder: from,
			TargetFolder:   m.TargetFolder,
		})
	}
	return applied
}

// findBookmark looks up a bookmark by URL, retrying once with the trailing
// slash toggled if the exact URL is not present.
func (t *Tree) findBookmark(url string) (node, parent *Node, folderPath string, ok bool) {
	if n, p, fp, found := t.FindByURL(url); found {
		return n, p, fp, true
	}
	return t.FindByURL(ToggleTrailingSlash(url))
}

func detach(parent, node *Node) {
	for i, child := range parent.Children {
		if child == node {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}

// nowMicros returns the current time in microseconds as a string, matching
// the numeric-string format Chrome uses for date fields.
func nowMicros() string {
	return strconv.FormatInt(time.Now().UnixMicro(), 10)
}

var idCounter int64

// newID generates a node ID. Chrome uses incrementing integers stored as
// strings; timestamp-based IDs avoid colliding with them.
func newID() string {
	idCounter++
	return strconv.FormatInt(time.Now().UnixMicro()+idCounter, 10)
}
