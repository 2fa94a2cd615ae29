// Package store reads and writes the Chrome Bookmarks file. Writes go
// through a .bak sibling copy and an atomic rename so a crash at any point
// leaves either the previous file or the new one, never a partial write.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/jfelder/marksman/internal/model"
)

var (
	// ErrMissingFile signals that the bookmarks file does not exist yet.
	// Load still returns a usable empty tree alongside it.
	ErrMissingFile = errors.New("bookmarks file not found")

	// ErrCorruptFile signals that the bookmarks file could not be parsed.
	// Load still returns a usable empty tree alongside it.
	ErrCorruptFile = errors.New("bookmarks file is corrupt")
)

// FileStore owns the on-disk bookmarks file and its backup. Mutations are
// serialized within the process; cross-process safety relies on the atomic
// rename only.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore for the given bookmarks file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the bookmarks file path.
func (s *FileStore) Path() string {
	return s.path
}

// ChromePath returns the platform path of the Bookmarks file for the given
// Chrome profile. On Linux it falls back to Chromium if the Chrome profile
// directory does not exist.
func ChromePath(profile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data", profile, "Bookmarks"), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", profile, "Bookmarks"), nil
	default:
		path := filepath.Join(home, ".config", "google-chrome", profile, "Bookmarks")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return filepath.Join(home, ".config", "chromium", profile, "Bookmarks"), nil
	}
}

// Load parses the bookmarks file. A missing file yields an empty tree and
// ErrMissingFile; malformed JSON yields an empty tree and ErrCorruptFile.
// The returned tree is always usable; the error is advisory.
func (s *FileStore) Load() (*model.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() (*model.Tree, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewTree(), fmt.Errorf("%w: %s", ErrMissingFile, s.path)
		}
		return model.NewTree(), fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	var tree model.Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return model.NewTree(), fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}

	return &tree, nil
}

// loadForMutation is load for the mutation path. A corrupt file refuses
// the mutation: rebuilding from an empty tree would overwrite the user's
// data with only one .bak generation between them and the loss. A
// missing file still starts from an empty tree.
func (s *FileStore) loadForMutation() (*model.Tree, error) {
	tree, err := s.load()
	if err != nil && errors.Is(err, ErrCorruptFile) {
		return nil, fmt.Errorf("refusing to modify: %w", err)
	}
	return tree, nil
}

// Save writes the tree to disk. The current file (if any) is first copied
// to a sibling .bak path, then the new content is written to a temp file in
// the same directory and renamed over the target.
func (s *FileStore) Save(tree *model.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(tree)
}

func (s *FileStore) save(tree *model.Tree) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create bookmarks directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		if err := copyFile(s.path, s.path+".bak"); err != nil {
			return fmt.Errorf("backup bookmarks file: %w", err)
		}
	}

	data, err := json.MarshalIndent(tree, "", "   ")
	if err != nil {
		return fmt.Errorf("encode bookmarks: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace bookmarks file: %w", err)
	}

	return nil
}

// ResolveFolder looks up a folder by path in the current tree.
func (s *FileStore) ResolveFolder(path string) (*model.Node, error) {
	tree, _ := s.Load()
	return tree.FolderByPath(path)
}

// ResolveByURL looks up a bookmark by URL, tolerating a single trailing
// slash difference between the stored and the requested URL.
func (s *FileStore) ResolveByURL(url string) (model.Bookmark, error) {
	tree, _ := s.Load()

	node, _, folder, ok := tree.FindByURL(url)
	if !ok {
		node, _, folder, ok = tree.FindByURL(model.ToggleTrailingSlash(url))
	}
	if !ok {
		return model.Bookmark{}, fmt.Errorf("bookmark not found: %s: %w", url, model.ErrNotFound)
	}

	return model.Bookmark{ID: node.ID, URL: node.URL, Title: node.Name, Folder: folder}, nil
}

// Bookmarks returns a flat snapshot of all bookmarks in the file.
func (s *FileStore) Bookmarks() []model.Bookmark {
	tree, _ := s.Load()
	return tree.Bookmarks()
}

// FolderStructure returns every folder with bookmark and subfolder counts.
func (s *FileStore) FolderStructure() []model.FolderInfo {
	tree, _ := s.Load()
	return tree.FolderStructure()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
