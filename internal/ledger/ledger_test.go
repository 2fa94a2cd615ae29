package ledger_test

import (
	"path/filepath"
	"testing"

	"github.com/jfelder/marksman/internal/ledger"
	"github.com/jfelder/marksman/internal/model"
)

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "marksman.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndHistory(t *testing.T) {
	l := openLedger(t)

	id1, err := l.Record(ledger.ActionMove, "https://a.dev", ledger.Details{
		FromFolder: "bookmark_bar", ToFolder: "other",
	}, ledger.BackendFile)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	id2, err := l.Record(ledger.ActionRename, "https://b.dev", ledger.Details{
		OldTitle: "Old", NewTitle: "New",
	}, ledger.BackendBridge)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("ids must be monotonic: %d then %d", id1, id2)
	}

	history, err := l.History(10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(history))
	}

	// Newest first.
	if history[0].ID != id2 {
		t.Errorf("expected newest change first, got id %d", history[0].ID)
	}
	if history[0].Action != ledger.ActionRename {
		t.Errorf("expected rename, got %s", history[0].Action)
	}
	if history[0].Backend != ledger.BackendBridge {
		t.Errorf("expected bridge backend, got %s", history[0].Backend)
	}
	if history[0].Details.OldTitle != "Old" {
		t.Errorf("details lost: %+v", history[0].Details)
	}
	if history[1].Details.FromFolder != "bookmark_bar" {
		t.Errorf("details lost: %+v", history[1].Details)
	}
	if history[0].Timestamp.IsZero() {
		t.Error("timestamp not recorded")
	}
}

func TestHistory_Limit(t *testing.T) {
	l := openLedger(t)

	for i := 0; i < 5; i++ {
		if _, err := l.Record(ledger.ActionDelete, "https://a.dev", ledger.Details{}, ledger.BackendFile); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	history, err := l.History(3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("expected 3 changes, got %d", len(history))
	}
}

func TestHistory_IncludesReverted(t *testing.T) {
	l := openLedger(t)

	id, _ := l.Record(ledger.ActionMove, "https://a.dev", ledger.Details{}, ledger.BackendFile)
	if _, err := l.MarkReverted(id); err != nil {
		t.Fatalf("mark reverted: %v", err)
	}

	history, err := l.History(10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("reverted changes must stay visible in history")
	}
	if !history[0].Reverted {
		t.Error("change should be flagged reverted")
	}
}

func TestLastRevertable(t *testing.T) {
	l := openLedger(t)

	if c, err := l.LastRevertable(); err != nil || c != nil {
		t.Fatalf("empty ledger: expected nil, nil; got %v, %v", c, err)
	}

	id1, _ := l.Record(ledger.ActionMove, "https://a.dev", ledger.Details{}, ledger.BackendFile)
	id2, _ := l.Record(ledger.ActionRename, "https://b.dev", ledger.Details{}, ledger.BackendFile)

	c, err := l.LastRevertable()
	if err != nil {
		t.Fatalf("last revertable: %v", err)
	}
	if c == nil || c.ID != id2 {
		t.Fatalf("expected newest change %d, got %+v", id2, c)
	}

	if _, err := l.MarkReverted(id2); err != nil {
		t.Fatal(err)
	}

	c, err = l.LastRevertable()
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.ID != id1 {
		t.Fatalf("expected older change %d after revert, got %+v", id1, c)
	}

	if _, err := l.MarkReverted(id1); err != nil {
		t.Fatal(err)
	}
	c, err = l.LastRevertable()
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("expected nothing revertable, got %+v", c)
	}
}

func TestMarkReverted_UnknownID(t *testing.T) {
	l := openLedger(t)

	ok, err := l.MarkReverted(999)
	if err != nil {
		t.Fatalf("mark reverted: %v", err)
	}
	if ok {
		t.Error("expected false for unknown id")
	}
}

func TestBulkMoveDetailsRoundTrip(t *testing.T) {
	l := openLedger(t)

	moves := []model.AppliedMove{
		{URL: "https://a.dev", OriginalFolder: "bookmark_bar", TargetFolder: "other"},
		{URL: "https://b.dev", OriginalFolder: "bookmark_bar/Tech", TargetFolder: "other"},
	}
	if _, err := l.Record(ledger.ActionBulkMove, "", ledger.Details{
		Moves: moves, SuccessCount: 2, Requested: 3,
	}, ledger.BackendFile); err != nil {
		t.Fatalf("record: %v", err)
	}

	history, err := l.History(1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	got := history[0].Details
	if len(got.Moves) != 2 {
		t.Fatalf("expected 2 moves, got %d", len(got.Moves))
	}
	if got.Moves[1].OriginalFolder != "bookmark_bar/Tech" {
		t.Errorf("move detail lost: %+v", got.Moves[1])
	}
	if got.SuccessCount != 2 || got.Requested != 3 {
		t.Errorf("counts lost: %+v", got)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marksman.db")

	l, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id, _ := l.Record(ledger.ActionDelete, "https://a.dev", ledger.Details{Title: "A"}, ledger.BackendFile)
	l.Close()

	l, err = ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()

	c, err := l.LastRevertable()
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.ID != id || c.Details.Title != "A" {
		t.Errorf("change not persisted across reopen: %+v", c)
	}
}
