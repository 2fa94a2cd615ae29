package dispatch

import (
	"github.com/jfelder/marksman/internal/bridge"
	"github.com/jfelder/marksman/internal/ledger"
	"github.com/jfelder/marksman/internal/model"
	"github.com/jfelder/marksman/internal/store"
)

// Backend is one of the two write paths for bookmark mutations. Every
// method returns the before/after detail the ledger needs to record and
// later invert the change.
type Backend interface {
	Name() ledger.Backend
	Available() bool

	AddBookmark(url, title, folderPath string) (ledger.Details, error)
	CreateFolder(name, parentPath string) (ledger.Details, error)
	MoveBookmark(url, targetFolder string) (ledger.Details, error)
	RenameBookmark(url, newTitle string) (ledger.Details, error)
	DeleteBookmark(url string) (ledger.Details, error)
	BulkMove(moves []model.Move) (ledger.Details, error)
}

// FileBackend applies mutations directly to the bookmarks file.
type FileBackend struct {
	store *store.FileStore
}

// NewFileBackend wraps a file store in the backend interface.
func NewFileBackend(fs *store.FileStore) *FileBackend {
	return &FileBackend{store: fs}
}

func (b *FileBackend) Name() ledger.Backend {
	return ledger.BackendFile
}

// Available always reports true: the file path needs no live peer.
func (b *FileBackend) Available() bool {
	return true
}

func (b *FileBackend) AddBookmark(url, title, folderPath string) (ledger.Details, error) {
	if err := b.store.AddBookmark(url, title, folderPath); err != nil {
		return ledger.Details{}, err
	}
	return ledger.Details{Title: title, Folder: folderPath}, nil
}

func (b *FileBackend) CreateFolder(name, parentPath string) (ledger.Details, error) {
	fullPath, err := b.store.CreateFolder(name, parentPath)
	if err != nil {
		return ledger.Details{}, err
	}
	return ledger.Details{FolderName: name, ParentFolder: parentPath, FullPath: fullPath}, nil
}

func (b *FileBackend) MoveBookmark(url, targetFolder string) (ledger.Details, error) {
	from, err := b.store.MoveBookmark(url, targetFolder)
	if err != nil {
		return ledger.Details{}, err
	}
	return ledger.Details{FromFolder: from, ToFolder: targetFolder}, nil
}

func (b *FileBackend) RenameBookmark(url, newTitle string) (ledger.Details, error) {
	oldTitle, err := b.store.RenameBookmark(url, newTitle)
	if err != nil {
		return ledger.Details{}, err
	}
	return ledger.Details{OldTitle: oldTitle, NewTitle: newTitle}, nil
}

func (b *FileBackend) DeleteBookmark(url string) (ledger.Details, error) {
	removed, err := b.store.DeleteBookmark(url)
	if err != nil {
		return ledger.Details{}, err
	}
	return ledger.Details{Title: removed.Title, Folder: removed.Folder}, nil
}

func (b *FileBackend) BulkMove(moves []model.Move) (ledger.Details, error) {
	applied, err := b.store.BulkMove(moves)
	if err != nil {
		return ledger.Details{}, err
	}
	return ledger.Details{
		Moves:        applied,
		SuccessCount: len(applied),
		Requested:    len(moves),
	}, nil
}

// BridgeBackend applies mutations through the live browser extension.
type BridgeBackend struct {
	client *bridge.Client
}

// NewBridgeBackend wraps a protocol client in the backend interface.
func NewBridgeBackend(c *bridge.Client) *BridgeBackend {
	return &BridgeBackend{client: c}
}

func (b *BridgeBackend) Name() ledger.Backend {
	return ledger.BackendBridge
}

func (b *BridgeBackend) Available() bool {
	return b.client.Available()
}

func (b *BridgeBackend) AddBookmark(url, title, folderPath string) (ledger.Details, error) {
	if _, err := b.client.CreateBookmark(url, title, folderPath); err != nil {
		return ledger.Details{}, err
	}
	return ledger.Details{Title: title, Folder: folderPath}, nil
}

func (b *BridgeBackend) CreateFolder(name, parentPath string) (ledger.Details, error) {
	res, err := b.client.CreateFolder(name, parentPath)
	if err != nil {
		return ledger.Details{}, err
	}
	fullPath := res.Path
	if fullPath == "" {
		fullPath = parentPath + "/" + name
	}
	return ledger.Details{FolderName: name, ParentFolder: parentPath, FullPath: fullPath}, nil
}

func (b *BridgeBackend) MoveBookmark(url, targetFolder string) (ledger.Details, error) {
	res, err := b.client.MoveBookmark(url, targetFolder)
	if err != nil {
		return ledger.Details{}, err
	}
	return ledger.Details{FromFolder: res.From, ToFolder: res.To}, nil
}

func (b *BridgeBackend) RenameBookmark(url, newTitle string) (ledger.Details, error) {
	res, err := b.client.RenameBookmark(url, newTitle)
	if err != nil {
		return ledger.Details{}, err
	}
	return ledger.Details{OldTitle: res.OldTitle, NewTitle: newTitle}, nil
}

func (b *BridgeBackend) DeleteBookmark(url string) (ledger.Details, error) {
	res, err := b.client.DeleteBookmark(url)
	if err != nil {
		return ledger.Details{}, err
	}
	return ledger.Details{Title: res.Title, Folder: res.Folder}, nil
}

func (b *BridgeBackend) BulkMove(moves []model.Move) (ledger.Details, error) {
	applied := b.client.BulkMove(moves)
	return ledger.Details{
		Moves:        applied,
		SuccessCount: len(applied),
		Requested:    len(moves),
	}, nil
}
