package model

// Node types as stored in Chrome's Bookmarks file.
const (
	TypeURL    = "url"
	TypeFolder = "folder"
)

// Node is a single entry in the bookmark tree: a bookmark ("url") or a
// folder. Field order mirrors Chrome's alphabetical key order so that
// serialization stays stable across load/save cycles.
type Node struct {
	Children     []*Node `json:"children,omitempty"`
	DateAdded    string  `json:"date_added,omitempty"`
	DateLastUsed string  `json:"date_last_used,omitempty"`
	DateModified string  `json:"date_modified,omitempty"`
	GUID         string  `json:"guid,omitempty"`
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	URL          string  `json:"url,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Type == TypeFolder
}

// IsBookmark reports whether the node is a bookmark.
func (n *Node) IsBookmark() bool {
	return n.Type == TypeURL
}
