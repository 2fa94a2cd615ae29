package store

import (
	"github.com/jfelder/marksman/internal/importer"
	"github.com/jfelder/marksman/internal/model"
)

// Each mutation primitive loads the tree, applies the change in memory and
// saves, all under the store mutex. Resolution failures and a corrupt file
// return before any byte is written; only a successful mutation touches
// the file.

// AddBookmark creates a bookmark in the folder at folderPath.
func (s *FileStore) AddBookmark(url, title, folderPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadForMutation()
	if err != nil {
		return err
	}
	if _, err := tree.AddBookmark(url, title, folderPath); err != nil {
		return err
	}
	return s.save(tree)
}

// CreateFolder creates an empty folder under parentPath and returns the new
// folder's full path.
func (s *FileStore) CreateFolder(name, parentPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadForMutation()
	if err != nil {
		return "", err
	}
	_, fullPath, err := tree.CreateFolder(name, parentPath)
	if err != nil {
		return "", err
	}
	return fullPath, s.save(tree)
}

// MoveBookmark moves the bookmark with the given URL to targetFolder and
// returns the folder it came from.
func (s *FileStore) MoveBookmark(url, targetFolder string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadForMutation()
	if err != nil {
		return "", err
	}
	from, err := tree.MoveBookmark(url, targetFolder)
	if err != nil {
		return "", err
	}
	return from, s.save(tree)
}

// RenameBookmark retitles the bookmark with the given URL and returns the
// previous title.
func (s *FileStore) RenameBookmark(url, newTitle string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadForMutation()
	if err != nil {
		return "", err
	}
	old, err := tree.RenameBookmark(url, newTitle)
	if err != nil {
		return "", err
	}
	return old, s.save(tree)
}

// DeleteBookmark removes the bookmark with the given URL and returns its
// prior title and folder so the deletion can be reverted.
func (s *FileStore) DeleteBookmark(url string) (model.Removed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadForMutation()
	if err != nil {
		return model.Removed{}, err
	}
	removed, err := tree.DeleteBookmark(url)
	if err != nil {
		return model.Removed{}, err
	}
	return removed, s.save(tree)
}

// Import merges parsed bookmark entries under parentPath in one
// load/save cycle. Folders named by the entries are created as needed;
// URLs already present anywhere in the tree are skipped.
func (s *FileStore) Import(entries []importer.Entry, parentPath string) (added, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadForMutation()
	if err != nil {
		return 0, 0, err
	}
	if _, err := tree.EnsureFolder(parentPath); err != nil {
		return 0, 0, err
	}

	for _, e := range entries {
		_, _, _, ok := tree.FindByURL(e.URL)
		if !ok {
			_, _, _, ok = tree.FindByURL(model.ToggleTrailingSlash(e.URL))
		}
		if ok {
			skipped++
			continue
		}

		folder := parentPath
		if e.Folder != "" {
			folder = parentPath + "/" + e.Folder
		}
		if _, err := tree.EnsureFolder(folder); err != nil {
			return added, skipped, err
		}
		if _, err := tree.AddBookmark(e.URL, e.Title, folder); err != nil {
			return added, skipped, err
		}
		added++
	}

	if added == 0 {
		return 0, skipped, nil
	}
	return added, skipped, s.save(tree)
}

// BulkMove applies the given moves in one load/save cycle, skipping moves
// that do not resolve. Nothing is written when no move applies.
func (s *FileStore) BulkMove(moves []model.Move) ([]model.AppliedMove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.loadForMutation()
	if err != nil {
		return nil, err
	}
	applied := tree.BulkMove(moves)
	if len(applied) == 0 {
		return nil, nil
	}
	return applied, s.save(tree)
}
