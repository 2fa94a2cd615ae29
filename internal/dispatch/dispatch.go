// Package dispatch routes bookmark mutations to the live browser bridge
// when it is connected, falls back to the bookmarks file when the bridge
// cannot serve the request, and records every executed change in the
// ledger.
package dispatch

import (
	"errors"
	"fmt"
	"os"

	"github.com/jfelder/marksman/internal/ledger"
	"github.com/jfelder/marksman/internal/model"
)

// ErrNotRevertable marks changes that have no safe inverse.
var ErrNotRevertable = errors.New("change cannot be reverted")

// Outcome describes one executed mutation.
type Outcome struct {
	Action   ledger.Action
	URL      string
	Details  ledger.Details
	Backend  ledger.Backend
	ChangeID int64
}

// Revert describes one undone change.
type Revert struct {
	// Change is the ledger entry that was undone.
	Change ledger.Change

	// Outcome is the inverse mutation, nil when the revert was skipped.
	Outcome *Outcome

	// Skipped is set for folder creations, which are marked reverted
	// without removing the folder.
	Skipped bool
}

// Dispatcher picks a backend per mutation and keeps the ledger current.
type Dispatcher struct {
	bridge Backend
	file   Backend
	ledger *ledger.Ledger
}

// New builds a dispatcher. The bridge backend may be nil when no live
// connection is configured; the file backend is required.
func New(bridgeBackend, fileBackend Backend, l *ledger.Ledger) *Dispatcher {
	return &Dispatcher{bridge: bridgeBackend, file: fileBackend, ledger: l}
}

// ActiveBackend reports which write path the next mutation starts on.
func (d *Dispatcher) ActiveBackend() ledger.Backend {
	return d.backend().Name()
}

// backend returns the bridge when it is connected, the file store
// otherwise.
func (d *Dispatcher) backend() Backend {
	if d.bridge != nil && d.bridge.Available() {
		return d.bridge
	}
	return d.file
}

// execute runs one mutation bridge-first. A bridge failure falls back
// silently to the file store, except a NotFound from resolving the url
// or folder, which the file path could not satisfy either and which the
// caller needs to see. Exactly one backend ends up executing the
// mutation; when both paths fail, the file store's error propagates.
func (d *Dispatcher) execute(run func(Backend) (ledger.Details, error)) (ledger.Details, ledger.Backend, error) {
	if d.bridge != nil && d.bridge.Available() {
		details, err := run(d.bridge)
		if err == nil {
			return details, d.bridge.Name(), nil
		}
		if errors.Is(err, model.ErrNotFound) {
			return ledger.Details{}, d.bridge.Name(), err
		}
		fmt.Fprintf(os.Stderr, "[dispatch] bridge failed, using the file instead: %v\n", err)
	}

	details, err := run(d.file)
	return details, d.file.Name(), err
}

// record appends the change to the ledger. A ledger failure does not
// undo the mutation: the bookmark change already happened, so we warn
// and report success without a change id.
func (d *Dispatcher) record(action ledger.Action, url string, details ledger.Details, backend ledger.Backend) int64 {
	id, err := d.ledger.Record(action, url, details, backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: change applied but not recorded: %v\n", err)
		return 0
	}
	return id
}

// AddBookmark creates a bookmark in the folder at folderPath.
func (d *Dispatcher) AddBookmark(url, title, folderPath string) (Outcome, error) {
	details, backend, err := d.execute(func(b Backend) (ledger.Details, error) {
		return b.AddBookmark(url, title, folderPath)
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:   ledger.ActionCreate,
		URL:      url,
		Details:  details,
		Backend:  backend,
		ChangeID: d.record(ledger.ActionCreate, url, details, backend),
	}, nil
}

// CreateFolder creates a folder under parentPath.
func (d *Dispatcher) CreateFolder(name, parentPath string) (Outcome, error) {
	details, backend, err := d.execute(func(b Backend) (ledger.Details, error) {
		return b.CreateFolder(name, parentPath)
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:   ledger.ActionCreateFolder,
		Details:  details,
		Backend:  backend,
		ChangeID: d.record(ledger.ActionCreateFolder, "", details, backend),
	}, nil
}

// MoveBookmark moves the bookmark with the given URL to targetFolder.
func (d *Dispatcher) MoveBookmark(url, targetFolder string) (Outcome, error) {
	details, backend, err := d.execute(func(b Backend) (ledger.Details, error) {
		return b.MoveBookmark(url, targetFolder)
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:   ledger.ActionMove,
		URL:      url,
		Details:  details,
		Backend:  backend,
		ChangeID: d.record(ledger.ActionMove, url, details, backend),
	}, nil
}

// RenameBookmark retitles the bookmark with the given URL.
func (d *Dispatcher) RenameBookmark(url, newTitle string) (Outcome, error) {
	details, backend, err := d.execute(func(b Backend) (ledger.Details, error) {
		return b.RenameBookmark(url, newTitle)
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:   ledger.ActionRename,
		URL:      url,
		Details:  details,
		Backend:  backend,
		ChangeID: d.record(ledger.ActionRename, url, details, backend),
	}, nil
}

// DeleteBookmark removes the bookmark with the given URL.
func (d *Dispatcher) DeleteBookmark(url string) (Outcome, error) {
	details, backend, err := d.execute(func(b Backend) (ledger.Details, error) {
		return b.DeleteBookmark(url)
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:   ledger.ActionDelete,
		URL:      url,
		Details:  details,
		Backend:  backend,
		ChangeID: d.record(ledger.ActionDelete, url, details, backend),
	}, nil
}

// BulkMove moves several bookmarks to their target folders. Moves that
// fail are skipped; the recorded change lists only the applied ones.
func (d *Dispatcher) BulkMove(moves []model.Move) (Outcome, error) {
	details, backend, err := d.execute(func(b Backend) (ledger.Details, error) {
		return b.BulkMove(moves)
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:   ledger.ActionBulkMove,
		Details:  details,
		Backend:  backend,
		ChangeID: d.record(ledger.ActionBulkMove, "", details, backend),
	}, nil
}

// History returns recent changes, newest first.
func (d *Dispatcher) History(limit int) ([]ledger.Change, error) {
	return d.ledger.History(limit)
}

// RevertLast undoes the most recent change that has not been reverted.
// It returns (nil, nil) when nothing is left to revert. The inverse
// runs as a regular mutation, so it lands in the ledger itself and the
// backend is chosen fresh.
func (d *Dispatcher) RevertLast() (*Revert, error) {
	change, err := d.ledger.LastRevertable()
	if err != nil {
		return nil, err
	}
	if change == nil {
		return nil, nil
	}

	switch change.Action {
	case ledger.ActionCreate:
		// Deleting a bookmark the user just added is more surprising
		// than helpful; deleting it on purpose is one command away.
		return nil, fmt.Errorf("create of %s: %w", change.URL, ErrNotRevertable)

	case ledger.ActionCreateFolder:
		// The folder may have gained content since. Leave it in place
		// but retire the change as an undo target.
		if _, err := d.ledger.MarkReverted(change.ID); err != nil {
			return nil, err
		}
		return &Revert{Change: *change, Skipped: true}, nil

	case ledger.ActionMove:
		outcome, err := d.MoveBookmark(change.URL, change.Details.FromFolder)
		if err != nil {
			return nil, fmt.Errorf("revert move: %w", err)
		}
		return d.finishRevert(change, outcome)

	case ledger.ActionRename:
		outcome, err := d.RenameBookmark(change.URL, change.Details.OldTitle)
		if err != nil {
			return nil, fmt.Errorf("revert rename: %w", err)
		}
		return d.finishRevert(change, outcome)

	case ledger.ActionDelete:
		outcome, err := d.AddBookmark(change.URL, change.Details.Title, change.Details.Folder)
		if err != nil {
			return nil, fmt.Errorf("revert delete: %w", err)
		}
		return d.finishRevert(change, outcome)

	case ledger.ActionBulkMove:
		inverse := make([]model.Move, 0, len(change.Details.Moves))
		for _, m := range change.Details.Moves {
			inverse = append(inverse, model.Move{URL: m.URL, TargetFolder: m.OriginalFolder})
		}
		outcome, err := d.BulkMove(inverse)
		if err != nil {
			return nil, fmt.Errorf("revert bulk move: %w", err)
		}
		return d.finishRevert(change, outcome)

	default:
		return nil, fmt.Errorf("unknown action %q: %w", change.Action, ErrNotRevertable)
	}
}

// finishRevert retires the undone change and its inverse as undo
// targets. The inverse stays visible in history but marking it reverted
// keeps repeated undo walking backwards instead of ping-ponging.
func (d *Dispatcher) finishRevert(change *ledger.Change, outcome Outcome) (*Revert, error) {
	if _, err := d.ledger.MarkReverted(change.ID); err != nil {
		return nil, err
	}
	if outcome.ChangeID != 0 {
		if _, err := d.ledger.MarkReverted(outcome.ChangeID); err != nil {
			return nil, err
		}
	}
	return &Revert{Change: *change, Outcome: &outcome}, nil
}
