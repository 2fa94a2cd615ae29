package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jfelder/marksman/internal/bridge"
	"github.com/jfelder/marksman/internal/config"
	"github.com/jfelder/marksman/internal/culler"
	"github.com/jfelder/marksman/internal/dispatch"
	"github.com/jfelder/marksman/internal/enrich"
	"github.com/jfelder/marksman/internal/exporter"
	"github.com/jfelder/marksman/internal/importer"
	"github.com/jfelder/marksman/internal/ledger"
	"github.com/jfelder/marksman/internal/metadata"
	"github.com/jfelder/marksman/internal/model"
	"github.com/jfelder/marksman/internal/picker"
	"github.com/jfelder/marksman/internal/search"
	"github.com/jfelder/marksman/internal/store"
)

// bridgeWait is how long mutations wait for the extension to connect
// before falling back to the bookmarks file.
const bridgeWait = 2 * time.Second

func main() {
	if len(os.Args) < 2 {
		runPick("")
		return
	}

	switch os.Args[1] {
	case "help", "--help", "-h":
		printHelp()
	case "list":
		runList(os.Args[2:])
	case "tree":
		runTree()
	case "search":
		runSearch(os.Args[2:])
	case "add":
		runAdd(os.Args[2:])
	case "mkdir":
		runMkdir(os.Args[2:])
	case "move":
		runMove(os.Args[2:])
	case "rename":
		runRename(os.Args[2:])
	case "delete":
		runDelete(os.Args[2:])
	case "bulk-move":
		runBulkMove(os.Args[2:])
	case "import":
		runImport(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "check":
		runCheck()
	case "history":
		runHistory(os.Args[2:])
	case "undo":
		runUndo()
	case "enrich":
		runEnrich()
	case "health":
		runHealth()
	default:
		// Anything else is a quick pick query.
		runPick(strings.Join(os.Args[1:], " "))
	}
}

func printHelp() {
	help := `marksman - browser bookmark manager

Usage:
  marksman                       Pick a bookmark and open it
  marksman <query>               Pick from fuzzy matches and open
  marksman list [folder]         List bookmarks, optionally one folder
  marksman tree                  Show the folder structure
  marksman search <query> [-t tag]...
                                 Keyword search over titles, URLs, and
                                 stored summaries and tags
  marksman add <url> <title> <folder>
  marksman mkdir <name> <parent-folder>
  marksman move <url> <folder>
  marksman rename <url> <new-title>
  marksman delete <url>
  marksman bulk-move <moves.json>
  marksman bulk-move <folder> <url>...
  marksman import <file> [folder]
                                 Import Netscape bookmark HTML
                                 (default folder: other/Imported)
  marksman export [path]         Export the tree as bookmark HTML
  marksman check                 Report dead or unreachable links
  marksman history [n]           Show recent changes
  marksman undo                  Revert the last change
  marksman enrich                Fetch summaries for stale bookmarks
  marksman health                Check backends and stores

Folder paths start at a root: bookmark_bar, other, or synced.
Mutations go through the browser extension when it is connected and
fall back to editing the bookmarks file directly.
`
	fmt.Print(help)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatal("%v", err)
	}
	return cfg
}

// openStore opens the bookmarks file. Missing or corrupt files are
// reported but still yield a usable empty tree.
func openStore(cfg *config.Config) *store.FileStore {
	path := cfg.BookmarksFile
	if path == "" {
		var err error
		path, err = store.ChromePath(cfg.ChromeProfile)
		if err != nil {
			fatal("locating bookmarks file: %v", err)
		}
	}

	fs := store.NewFileStore(path)
	if _, err := fs.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return fs
}

// connectBridge starts the transport and gives the extension a moment
// to show up. A dispatcher built on the returned client falls back to
// the file when the wait runs out.
func connectBridge(cfg *config.Config) (*bridge.Transport, *bridge.Client) {
	t := bridge.NewTransport(bridge.Options{URL: cfg.BridgeURL()})
	t.Start()
	t.WaitAvailable(bridgeWait)
	return t, bridge.NewClient(t)
}

// newDispatcher wires both backends and the ledger. The caller must
// invoke the returned cleanup.
func newDispatcher(cfg *config.Config) (*dispatch.Dispatcher, func()) {
	fs := openStore(cfg)

	l, err := ledger.Open(cfg.DatabasePath)
	if err != nil {
		fatal("opening ledger: %v", err)
	}

	t, client := connectBridge(cfg)

	d := dispatch.New(
		dispatch.NewBridgeBackend(client),
		dispatch.NewFileBackend(fs),
		l,
	)
	return d, func() {
		t.Close()
		l.Close()
	}
}

func runList(args []string) {
	cfg := loadConfig()
	fs := openStore(cfg)

	bookmarks := fs.Bookmarks()
	var folder string
	if len(args) > 0 {
		folder = args[0]
	}

	count := 0
	for _, b := range bookmarks {
		if folder != "" && b.Folder != folder && !strings.HasPrefix(b.Folder, folder+"/") {
			continue
		}
		fmt.Printf("%s\n    %s  [%s]\n", b.Title, b.URL, b.Folder)
		count++
	}
	if count == 0 {
		fmt.Println("No bookmarks found.")
	}
}

// runTree shows the folder structure from the live browser when the
// extension is connected, since the browser may hold changes the file
// has not seen yet, and from the bookmarks file otherwise.
func runTree() {
	cfg := loadConfig()

	t, client := connectBridge(cfg)
	defer t.Close()
	if client.Available() {
		root, err := client.GetTree()
		if err == nil {
			printFolders(bridge.FolderStructure(root))
			return
		}
		fmt.Fprintf(os.Stderr, "warning: live tree unavailable: %v\n", err)
	}

	fs := openStore(cfg)
	printFolders(fs.FolderStructure())
}

func printFolders(folders []model.FolderInfo) {
	for _, f := range folders {
		depth := strings.Count(f.Path, "/")
		indent := strings.Repeat("  ", depth)
		name := f.Path
		if i := strings.LastIndex(f.Path, "/"); i >= 0 {
			name = f.Path[i+1:]
		}
		fmt.Printf("%s%s/  (%d bookmarks, %d folders)\n", indent, name, f.Bookmarks, f.Subfolders)
	}
}

func runSearch(args []string) {
	var tags []string
	var terms []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-t" || args[i] == "--tag" {
			if i+1 >= len(args) {
				fatal("%s needs a value", args[i])
			}
			tags = append(tags, args[i+1])
			i++
			continue
		}
		terms = append(terms, args[i])
	}
	query := strings.Join(terms, " ")
	if query == "" && len(tags) == 0 {
		fatal("usage: marksman search <query> [-t tag]...")
	}

	cfg := loadConfig()
	fs := openStore(cfg)

	meta := map[string]search.Meta{}
	if ms, err := metadata.Open(cfg.DatabasePath); err == nil {
		if entries, err := ms.ByURL(); err == nil {
			for url, e := range entries {
				meta[url] = search.Meta{Summary: e.Summary, Tags: e.Tags}
			}
		}
		ms.Close()
	}

	results := search.Keyword(fs.Bookmarks(), meta, query, tags, 25)
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range results {
		fmt.Printf("%s\n    %s  [%s]\n", r.Bookmark.Title, r.Bookmark.URL, r.Bookmark.Folder)
		if len(r.Tags) > 0 {
			fmt.Printf("    tags: %s\n", strings.Join(r.Tags, ", "))
		}
	}
}

func runPick(query string) {
	cfg := loadConfig()
	fs := openStore(cfg)

	bookmarks := fs.Bookmarks()
	if len(bookmarks) == 0 {
		fmt.Println("No bookmarks.")
		return
	}

	p := picker.New(bookmarks, query)
	program := tea.NewProgram(p)
	finalModel, err := program.Run()
	if err != nil {
		fatal("running picker: %v", err)
	}

	final := finalModel.(picker.Picker)
	if final.Cancelled() {
		return
	}
	if selected := final.Selected(); selected != nil {
		fmt.Printf("Opening: %s\n", selected.Title)
		openURL(selected.URL)
	}
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}

func runAdd(args []string) {
	if len(args) != 3 {
		fatal("usage: marksman add <url> <title> <folder>")
	}
	cfg := loadConfig()
	d, cleanup := newDispatcher(cfg)
	defer cleanup()

	out, err := d.AddBookmark(args[0], args[1], args[2])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Added %q to %s (via %s)\n", args[1], args[2], out.Backend)
}

func runMkdir(args []string) {
	if len(args) != 2 {
		fatal("usage: marksman mkdir <name> <parent-folder>")
	}
	cfg := loadConfig()
	d, cleanup := newDispatcher(cfg)
	defer cleanup()

	out, err := d.CreateFolder(args[0], args[1])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Created %s (via %s)\n", out.Details.FullPath, out.Backend)
}

func runMove(args []string) {
	if len(args) != 2 {
		fatal("usage: marksman move <url> <folder>")
	}
	cfg := loadConfig()
	d, cleanup := newDispatcher(cfg)
	defer cleanup()

	out, err := d.MoveBookmark(args[0], args[1])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Moved %s: %s -> %s (via %s)\n", args[0], out.Details.FromFolder, out.Details.ToFolder, out.Backend)
}

func runRename(args []string) {
	if len(args) != 2 {
		fatal("usage: marksman rename <url> <new-title>")
	}
	cfg := loadConfig()
	d, cleanup := newDispatcher(cfg)
	defer cleanup()

	out, err := d.RenameBookmark(args[0], args[1])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Renamed %q -> %q (via %s)\n", out.Details.OldTitle, out.Details.NewTitle, out.Backend)
}

func runDelete(args []string) {
	if len(args) != 1 {
		fatal("usage: marksman delete <url>")
	}
	cfg := loadConfig()
	d, cleanup := newDispatcher(cfg)
	defer cleanup()

	out, err := d.DeleteBookmark(args[0])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Deleted %q from %s (via %s)\n", out.Details.Title, out.Details.Folder, out.Backend)
}

// parseMoves reads bulk-move arguments. A single argument names a JSON
// file of {"url", "target_folder"} pairs; more arguments are a target
// folder followed by URLs. The returned target is empty for the file
// form, where every move carries its own.
func parseMoves(args []string) ([]model.Move, string, error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, "", fmt.Errorf("reading moves file: %w", err)
		}
		var moves []model.Move
		if err := json.Unmarshal(data, &moves); err != nil {
			return nil, "", fmt.Errorf("parsing moves file: %w", err)
		}
		return moves, "", nil
	}

	target := args[0]
	moves := make([]model.Move, 0, len(args)-1)
	for _, url := range args[1:] {
		moves = append(moves, model.Move{URL: url, TargetFolder: target})
	}
	return moves, target, nil
}

func runBulkMove(args []string) {
	if len(args) < 1 {
		fatal("usage: marksman bulk-move <moves.json> | marksman bulk-move <folder> <url>...")
	}

	moves, target, err := parseMoves(args)
	if err != nil {
		fatal("%v", err)
	}
	if len(moves) == 0 {
		fatal("no moves given")
	}

	cfg := loadConfig()
	d, cleanup := newDispatcher(cfg)
	defer cleanup()

	out, err := d.BulkMove(moves)
	if err != nil {
		fatal("%v", err)
	}
	if target == "" {
		fmt.Printf("Moved %d of %d bookmarks (via %s)\n",
			out.Details.SuccessCount, out.Details.Requested, out.Backend)
	} else {
		fmt.Printf("Moved %d of %d bookmarks to %s (via %s)\n",
			out.Details.SuccessCount, out.Details.Requested, target, out.Backend)
	}
}

func runImport(args []string) {
	if len(args) < 1 {
		fatal("usage: marksman import <file.html> [folder]")
	}
	parent := "other/Imported"
	if len(args) >= 2 {
		parent = args[1]
	}

	file, err := os.Open(args[0])
	if err != nil {
		fatal("opening file: %v", err)
	}
	defer file.Close()

	entries, err := importer.Parse(file)
	if err != nil {
		fatal("parsing HTML: %v", err)
	}

	cfg := loadConfig()
	fs := openStore(cfg)

	added, skipped, err := fs.Import(entries, parent)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Imported %d bookmarks into %s", added, parent)
	if skipped > 0 {
		fmt.Printf(" (%d duplicates skipped)", skipped)
	}
	fmt.Println()
}

func runExport(args []string) {
	outputPath := ""
	if len(args) > 0 {
		outputPath = args[0]
	}
	if outputPath == "" {
		var err error
		outputPath, err = exporter.DefaultExportPath()
		if err != nil {
			fatal("resolving export path: %v", err)
		}
	}

	cfg := loadConfig()
	fs := openStore(cfg)
	tree, _ := fs.Load()

	if err := os.WriteFile(outputPath, []byte(exporter.Export(tree)), 0644); err != nil {
		fatal("writing file: %v", err)
	}
	fmt.Printf("Exported %d bookmarks to %s\n", len(fs.Bookmarks()), outputPath)
}

func runCheck() {
	cfg := loadConfig()
	fs := openStore(cfg)

	bookmarks := fs.Bookmarks()
	if len(bookmarks) == 0 {
		fmt.Println("No bookmarks to check.")
		return
	}

	fmt.Printf("Checking %d bookmarks...\n", len(bookmarks))
	results := culler.CheckURLs(bookmarks, 8, 10*time.Second, nil, func(completed, total int) {
		fmt.Fprintf(os.Stderr, "\r%d/%d", completed, total)
	})
	fmt.Fprintln(os.Stderr)

	dead, unreachable := 0, 0
	for _, r := range results {
		switch r.Status {
		case culler.Dead:
			dead++
			fmt.Printf("DEAD (%d): %s\n    %s  [%s]\n", r.StatusCode, r.Bookmark.Title, r.Bookmark.URL, r.Bookmark.Folder)
		case culler.Unreachable:
			unreachable++
			fmt.Printf("UNREACHABLE (%s): %s\n    %s\n", r.Error, r.Bookmark.Title, r.Bookmark.URL)
		}
	}
	fmt.Printf("%d healthy, %d dead, %d unreachable\n", len(results)-dead-unreachable, dead, unreachable)
}

func runHistory(args []string) {
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fatal("invalid history limit %q", args[0])
		}
		limit = n
	}

	cfg := loadConfig()
	l, err := ledger.Open(cfg.DatabasePath)
	if err != nil {
		fatal("opening ledger: %v", err)
	}
	defer l.Close()

	changes, err := l.History(limit)
	if err != nil {
		fatal("%v", err)
	}
	if len(changes) == 0 {
		fmt.Println("No changes recorded.")
		return
	}
	for _, c := range changes {
		fmt.Print(formatChange(c))
	}
}

func formatChange(c ledger.Change) string {
	var b strings.Builder
	flag := " "
	if c.Reverted {
		flag = "R"
	}
	fmt.Fprintf(&b, "%s #%d %s %s", flag, c.ID, c.Timestamp.Local().Format("2006-01-02 15:04"), c.Action)
	if c.URL != "" {
		fmt.Fprintf(&b, " %s", c.URL)
	}
	b.WriteString("\n")

	d := c.Details
	switch c.Action {
	case ledger.ActionMove:
		fmt.Fprintf(&b, "      %s -> %s\n", d.FromFolder, d.ToFolder)
	case ledger.ActionRename:
		fmt.Fprintf(&b, "      %q -> %q\n", d.OldTitle, d.NewTitle)
	case ledger.ActionDelete, ledger.ActionCreate:
		fmt.Fprintf(&b, "      %q in %s\n", d.Title, d.Folder)
	case ledger.ActionCreateFolder:
		fmt.Fprintf(&b, "      %s\n", d.FullPath)
	case ledger.ActionBulkMove:
		fmt.Fprintf(&b, "      %d of %d moved\n", d.SuccessCount, d.Requested)
	}
	return b.String()
}

func runUndo() {
	cfg := loadConfig()
	d, cleanup := newDispatcher(cfg)
	defer cleanup()

	rev, err := d.RevertLast()
	if err != nil {
		if errors.Is(err, dispatch.ErrNotRevertable) {
			fatal("%v", err)
		}
		fatal("undo failed: %v", err)
	}
	if rev == nil {
		fmt.Println("Nothing to revert.")
		return
	}
	if rev.Skipped {
		fmt.Printf("Skipped revert of folder creation %s; the folder stays in place.\n",
			rev.Change.Details.FullPath)
		return
	}
	fmt.Printf("Reverted %s #%d (via %s)\n", rev.Change.Action, rev.Change.ID, rev.Outcome.Backend)
}

func runEnrich() {
	cfg := loadConfig()
	fs := openStore(cfg)

	ms, err := metadata.Open(cfg.DatabasePath)
	if err != nil {
		fatal("opening metadata store: %v", err)
	}
	defer ms.Close()

	var urls []string
	for _, b := range fs.Bookmarks() {
		urls = append(urls, b.URL)
	}

	stale, err := ms.NeedingEnrichment(urls, cfg.EnrichMaxAge)
	if err != nil {
		fatal("%v", err)
	}
	if len(stale) == 0 {
		fmt.Println("All bookmarks are up to date.")
		return
	}

	fetcher := enrich.NewFetcher(cfg.EnrichTimeout)
	updated := 0
	for _, url := range stale {
		page, err := fetcher.Fetch(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", url, err)
			continue
		}
		err = ms.Upsert(metadata.Entry{
			URL:         url,
			Title:       page.Title,
			Summary:     page.Summary,
			ContentHash: page.ContentHash,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", url, err)
			continue
		}
		updated++
	}
	fmt.Printf("Enriched %d of %d stale bookmarks.\n", updated, len(stale))
}

func runHealth() {
	cfg := loadConfig()

	path := cfg.BookmarksFile
	if path == "" {
		var err error
		path, err = store.ChromePath(cfg.ChromeProfile)
		if err != nil {
			fatal("locating bookmarks file: %v", err)
		}
	}
	fs := store.NewFileStore(path)
	if _, err := fs.Load(); err != nil {
		fmt.Printf("bookmarks file: %s (%v)\n", path, err)
	} else {
		fmt.Printf("bookmarks file: %s (%d bookmarks)\n", path, len(fs.Bookmarks()))
	}

	if l, err := ledger.Open(cfg.DatabasePath); err != nil {
		fmt.Printf("ledger:         %s (%v)\n", cfg.DatabasePath, err)
	} else {
		changes, _ := l.History(1)
		fmt.Printf("ledger:         %s (%d recent change(s) shown with 'history')\n", cfg.DatabasePath, len(changes))
		l.Close()
	}

	t, _ := connectBridge(cfg)
	defer t.Close()
	if t.IsAvailable() {
		fmt.Printf("bridge:         connected on %s\n", cfg.BridgeURL())
	} else {
		fmt.Printf("bridge:         not connected (%s); mutations fall back to the file\n", cfg.BridgeURL())
	}
}
