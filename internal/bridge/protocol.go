package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jfelder/marksman/internal/model"
)

// TreeNode is a node as reported by the extension (chrome.bookmarks
// shape). Folders are nodes without a URL.
type TreeNode struct {
	ID       string      `json:"id"`
	ParentID string      `json:"parentId,omitempty"`
	Title    string      `json:"title"`
	URL      string      `json:"url,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n *TreeNode) IsFolder() bool {
	return n.URL == ""
}

// CreateResult is the response payload of a create command.
type CreateResult struct {
	ID   string `json:"id"`
	Path string `json:"path,omitempty"`
}

// MoveResult is the response payload of a move command. From is the folder
// path the bookmark left, so the move can be recorded and reverted.
type MoveResult struct {
	URL  string `json:"url"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// UpdateResult is the response payload of an update (rename) command.
type UpdateResult struct {
	URL      string `json:"url"`
	OldTitle string `json:"oldTitle,omitempty"`
	Title    string `json:"title,omitempty"`
}

// RemoveResult is the response payload of a remove command.
type RemoveResult struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Folder string `json:"folder,omitempty"`
}

// rootTitles maps the fixed root keys to the titles different extension
// versions report for the browser's top-level folders.
var rootTitles = map[string][]string{
	"bookmark_bar": {"Bookmarks bar", "Bookmarks Bar"},
	"other":        {"Other bookmarks", "Other Bookmarks"},
	"synced":       {"Mobile bookmarks", "Mobile Bookmarks"},
}

// Client speaks the command protocol over a Transport.
type Client struct {
	t *Transport
}

// NewClient wraps a transport in a protocol client.
func NewClient(t *Transport) *Client {
	return &Client{t: t}
}

// Available reports whether the live backend can take commands right now.
func (c *Client) Available() bool {
	return c.t.IsAvailable()
}

// GetTree fetches the full bookmark tree from the extension. The returned
// node is the synthetic root whose children are the browser's top folders.
func (c *Client) GetTree() (*TreeNode, error) {
	result, err := c.t.Send("getTree", map[string]any{})
	if err != nil {
		return nil, err
	}
	var root TreeNode
	if err := json.Unmarshal(result, &root); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return &root, nil
}

// Search asks the extension for bookmarks matching the exact URL.
func (c *Client) Search(url string) ([]TreeNode, error) {
	result, err := c.t.Send("search", map[string]any{"url": url})
	if err != nil {
		return nil, err
	}
	var nodes []TreeNode
	if err := json.Unmarshal(result, &nodes); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	return nodes, nil
}

// ResolveURL finds a bookmark by URL, retrying once with the trailing
// slash toggled to compensate for the browser's own URL normalization.
func (c *Client) ResolveURL(url string) (TreeNode, error) {
	nodes, err := c.Search(url)
	if err != nil {
		return TreeNode{}, err
	}
	if len(nodes) == 0 {
		nodes, err = c.Search(model.ToggleTrailingSlash(url))
		if err != nil {
			return TreeNode{}, err
		}
	}
	if len(nodes) == 0 {
		return TreeNode{}, fmt.Errorf("bookmark not found: %s: %w", url, model.ErrNotFound)
	}
	return nodes[0], nil
}

// ResolveFolder walks a folder path against the extension's live tree.
// The first segment selects a root by the fixed name mapping; remaining
// segments match folder-typed children by exact title.
func (c *Client) ResolveFolder(path string) (*TreeNode, error) {
	root, err := c.GetTree()
	if err != nil {
		return nil, err
	}
	return resolveFolderPath(root, path)
}

func resolveFolderPath(root *TreeNode, path string) (*TreeNode, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("empty folder path: %w", model.ErrNotFound)
	}

	titles, ok := rootTitles[parts[0]]
	if !ok {
		return nil, fmt.Errorf("unknown root %q: %w", parts[0], model.ErrNotFound)
	}

	var current *TreeNode
	for _, child := range root.Children {
		for _, title := range titles {
			if strings.EqualFold(child.Title, title) {
				current = child
				break
			}
		}
		if current != nil {
			break
		}
	}
	if current == nil {
		return nil, fmt.Errorf("root folder %q not present in live tree: %w", parts[0], model.ErrNotFound)
	}

	for depth, part := range parts[1:] {
		var next *TreeNode
		for _, child := range current.Children {
			if child.IsFolder() && child.Title == part {
				next = child
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("folder not found at depth %d (%q) in path %q: %w",
				depth+1, part, path, model.ErrNotFound)
		}
		current = next
	}

	return current, nil
}

// rootKeyForTitle maps a live root folder title back to its fixed key.
// Unrecognized titles pass through unchanged.
func rootKeyForTitle(title string) string {
	for key, titles := range rootTitles {
		for _, t := range titles {
			if strings.EqualFold(title, t) {
				return key
			}
		}
	}
	return title
}

// FolderStructure flattens a live tree into the same folder summaries
// the file store produces, so callers render both identically. The
// browser's top-level folders are addressed by their fixed root keys.
func FolderStructure(root *TreeNode) []model.FolderInfo {
	var infos []model.FolderInfo
	for _, child := range root.Children {
		if child.IsFolder() {
			collectLiveFolders(child, rootKeyForTitle(child.Title), &infos)
		}
	}
	return infos
}

func collectLiveFolders(folder *TreeNode, path string, out *[]model.FolderInfo) {
	info := model.FolderInfo{Path: path}
	for _, child := range folder.Children {
		if child.IsFolder() {
			info.Subfolders++
		} else {
			info.Bookmarks++
		}
	}
	*out = append(*out, info)

	for _, child := range folder.Children {
		if child.IsFolder() {
			collectLiveFolders(child, path+"/"+child.Title, out)
		}
	}
}

// CreateBookmark creates a bookmark via the browser API. The target
// folder is resolved against the live tree first so a bad path fails
// with a descriptive NotFound instead of an opaque extension error. Two
// identical creates produce two nodes; dedup is the caller's
// responsibility.
func (c *Client) CreateBookmark(url, title, folderPath string) (CreateResult, error) {
	if _, err := c.ResolveFolder(folderPath); err != nil {
		return CreateResult{}, err
	}

	result, err := c.t.Send("create", map[string]any{
		"url":        url,
		"title":      title,
		"folderPath": folderPath,
	})
	if err != nil {
		return CreateResult{}, err
	}
	var out CreateResult
	if err := json.Unmarshal(result, &out); err != nil {
		return CreateResult{}, fmt.Errorf("decode create result: %w", err)
	}
	return out, nil
}

// CreateFolder creates a folder via the browser API. A create without a
// URL is a folder create. The parent is resolved against the live tree
// first, like CreateBookmark.
func (c *Client) CreateFolder(name, parentPath string) (CreateResult, error) {
	if _, err := c.ResolveFolder(parentPath); err != nil {
		return CreateResult{}, err
	}

	result, err := c.t.Send("create", map[string]any{
		"title":      name,
		"folderPath": parentPath,
	})
	if err != nil {
		return CreateResult{}, err
	}
	var out CreateResult
	if err := json.Unmarshal(result, &out); err != nil {
		return CreateResult{}, fmt.Errorf("decode create result: %w", err)
	}
	return out, nil
}

// MoveBookmark moves a bookmark to targetFolder. The URL is resolved first
// so a trailing-slash mismatch does not turn into a remote not-found.
func (c *Client) MoveBookmark(url, targetFolder string) (MoveResult, error) {
	node, err := c.ResolveURL(url)
	if err != nil {
		return MoveResult{}, err
	}

	result, err := c.t.Send("move", map[string]any{
		"url":          node.URL,
		"targetFolder": targetFolder,
	})
	if err != nil {
		return MoveResult{}, err
	}
	var out MoveResult
	if err := json.Unmarshal(result, &out); err != nil {
		return MoveResult{}, fmt.Errorf("decode move result: %w", err)
	}
	if out.URL == "" {
		out.URL = node.URL
	}
	if out.To == "" {
		out.To = targetFolder
	}
	return out, nil
}

// RenameBookmark changes a bookmark's title.
func (c *Client) RenameBookmark(url, newTitle string) (UpdateResult, error) {
	node, err := c.ResolveURL(url)
	if err != nil {
		return UpdateResult{}, err
	}

	result, err := c.t.Send("update", map[string]any{
		"url":   node.URL,
		"title": newTitle,
	})
	if err != nil {
		return UpdateResult{}, err
	}
	var out UpdateResult
	if err := json.Unmarshal(result, &out); err != nil {
		return UpdateResult{}, fmt.Errorf("decode update result: %w", err)
	}
	if out.OldTitle == "" {
		out.OldTitle = node.Title
	}
	if out.URL == "" {
		out.URL = node.URL
	}
	return out, nil
}

// DeleteBookmark removes a bookmark.
func (c *Client) DeleteBookmark(url string) (RemoveResult, error) {
	node, err := c.ResolveURL(url)
	if err != nil {
		return RemoveResult{}, err
	}

	result, err := c.t.Send("remove", map[string]any{"url": node.URL})
	if err != nil {
		return RemoveResult{}, err
	}
	var out RemoveResult
	if err := json.Unmarshal(result, &out); err != nil {
		return RemoveResult{}, fmt.Errorf("decode remove result: %w", err)
	}
	if out.Title == "" {
		out.Title = node.Title
	}
	if out.URL == "" {
		out.URL = node.URL
	}
	return out, nil
}

// BulkMove moves several bookmarks, one command per move. Failed moves are
// logged and skipped; the applied moves are returned for the ledger.
func (c *Client) BulkMove(moves []model.Move) []model.AppliedMove {
	var applied []model.AppliedMove
	for _, m := range moves {
		res, err := c.MoveBookmark(m.URL, m.TargetFolder)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[bridge] failed to move %s: %v\n", m.URL, err)
			continue
		}
		applied = append(applied, model.AppliedMove{
			URL:            res.URL,
			OriginalFolder: res.From,
			TargetFolder:   res.To,
		})
	}
	return applied
}
