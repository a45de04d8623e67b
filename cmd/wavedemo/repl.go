package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/wavecollab/wave/pkg/chron"
	"github.com/wavecollab/wave/pkg/chronmarkup"
	"github.com/wavecollab/wave/pkg/snapshot"
	"github.com/wavecollab/wave/pkg/textmodel"
	"github.com/wavecollab/wave/pkg/waveapp"
	"github.com/wavecollab/wave/pkg/world"
)

// REPL is the interactive command loop: it holds the live App and the
// single Text document the demo exercises, following the shape of the
// teacher's pkg/cli.REPL (a struct wrapping a line editor plus a
// dispatch-by-first-word Run loop) generalized from SQL statements to
// WAVE document commands.
type REPL struct {
	reg  *waveapp.Registry
	app  *waveapp.App
	text *textmodel.Text

	snapshotPath  string
	lastRange     chron.Range
	haveLastRange bool

	liner *liner.State
}

// newREPL opens a fresh document, or restores one from snapshotPath if
// it names an existing file.
func newREPL(snapshotPath string) (*REPL, error) {
	reg := newRegistry()

	r := &REPL{reg: reg, snapshotPath: snapshotPath}

	if snapshotPath != "" {
		if _, err := os.Stat(snapshotPath); err == nil {
			root, err := snapshot.Load(snapshotPath, reg)
			if err != nil {
				return nil, fmt.Errorf("loading snapshot: %w", err)
			}
			r.app = waveapp.NewApp(root, reg)
			ref, ok := firstTextRef(root)
			if !ok {
				return nil, fmt.Errorf("snapshot %s has no Text document", snapshotPath)
			}
			r.text = textmodel.Bind(r.app, ref)
			return r, nil
		}
	}

	r.app = waveapp.NewApp(world.NewRoot(), reg)
	text, err := textmodel.New(r.app)
	if err != nil {
		return nil, err
	}
	r.text = text
	return r, nil
}

// firstTextRef finds the Ref of the first Text-classed Model a
// restored World holds. The demo only ever keeps one document, so
// "first" is unambiguous in practice.
func firstTextRef(w *world.World) (world.Ref, bool) {
	for _, snap := range w.Snapshot() {
		if snap.ClassName == textmodel.ClassName {
			return snap.Ref, true
		}
	}
	return world.Ref{}, false
}

// Close releases the line editor. It does not implicitly save a
// snapshot; use "snapshot save" for that.
func (r *REPL) Close() error {
	if r.liner != nil {
		return r.liner.Close()
	}
	return nil
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wavedemo_history")
}

// Run starts the REPL loop, reading and dispatching commands until
// EOF or "exit".
func (r *REPL) Run() {
	r.liner = liner.NewLiner()
	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Println("wavedemo - WAVE document engine REPL")
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("wave> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		if cmd == "exit" || cmd == "quit" || cmd == "q" {
			fmt.Println("Bye!")
			break
		}

		r.dispatch(cmd, args)
	}

	r.saveHistory()
}

func (r *REPL) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		r.liner.WriteHistory(f)
		f.Close()
	}
}

func (r *REPL) completer(line string) []string {
	commands := []string{
		"insert", "mark", "unmark", "rangeof", "delete",
		"show", "enumerate", "undo", "redo",
		"snapshot", "help", "exit", "quit", "q",
	}
	var completions []string
	lower := strings.ToLower(line)
	for _, c := range commands {
		if strings.HasPrefix(c, lower) {
			completions = append(completions, c)
		}
	}
	return completions
}

func (r *REPL) dispatch(cmd string, args []string) {
	switch cmd {
	case "help", "?":
		r.printHelp()
	case "insert":
		r.cmdInsert(args)
	case "mark":
		r.cmdMark(args)
	case "unmark":
		r.cmdUnmark(args)
	case "rangeof":
		r.cmdRangeOf(args)
	case "delete":
		r.cmdDelete(args)
	case "show":
		r.cmdShow()
	case "enumerate":
		r.cmdEnumerate()
	case "undo":
		r.cmdUndo()
	case "redo":
		r.cmdRedo()
	case "snapshot":
		r.cmdSnapshot(args)
	default:
		fmt.Printf("unknown command: %s (type 'help' for commands)\n", cmd)
	}
}

func (r *REPL) printHelp() {
	fmt.Println(`Commands:
  insert <text>             Insert text at the document's current tail
  mark <name>                Mark the most recent insert's range as <name>
  unmark <name>               Remove the <name> marker
  rangeof <name>              Show the live range and substring <name> covers
  delete <name>                Delete the range currently marked <name>
  show                         Print the document's current text
  enumerate                    Sweep every marker, printing add/delete/covered events
  undo                         Undo the last wave
  redo                         Redo the last undone wave
  snapshot save [path]         Save the document (defaults to the --snapshot path)
  snapshot load [path]         Load a document, replacing the current one
  help                         Show this help
  exit / quit / q              Exit`)
}

func (r *REPL) cmdInsert(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: insert <text>")
		return
	}
	text := strings.Join(args, " ")
	tail, err := r.text.Tail()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	rng, err := r.text.Insert(tail, text, waveapp.WaveOptions{Tag: "typing:id", ID: "repl", Rate: 1})
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	r.lastRange = rng
	r.haveLastRange = true
	fmt.Printf("inserted %d codepoints\n", len([]rune(text)))
}

func (r *REPL) cmdMark(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: mark <name>")
		return
	}
	if !r.haveLastRange {
		fmt.Println("no insert yet to mark; run 'insert' first")
		return
	}
	if err := r.text.Mark(r.lastRange, args[0]); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("marked %q over the last inserted range\n", args[0])
}

func (r *REPL) cmdUnmark(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: unmark <name>")
		return
	}
	if err := r.text.Unmark(args[0]); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("unmarked %q\n", args[0])
}

func (r *REPL) cmdRangeOf(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: rangeof <name>")
		return
	}
	rng, ok, err := r.text.RangeOf(args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if !ok {
		fmt.Println("(not marked)")
		return
	}
	fmt.Printf("range: %v\n", rng)
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: delete <name>")
		return
	}
	rng, ok, err := r.text.RangeOf(args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if !ok {
		fmt.Println("(not marked)")
		return
	}
	if err := r.text.DeleteRange(rng, waveapp.WaveOptions{}); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("deleted the range marked %q\n", args[0])
}

func (r *REPL) cmdShow() {
	s, err := r.text.Codepoints()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%q\n", s)
}

// replMarkerSet prints each boundary event as it fires, the same
// reporting shape pkg/textmodel's tests use internally.
type replMarkerSet struct {
	chronmarkup.NopMarkerSet[string]
}

func (replMarkerSet) Add(data string, _ chron.Cursor)    { fmt.Printf("  add:     %s\n", data) }
func (replMarkerSet) Delete(data string, _ chron.Cursor) { fmt.Printf("  delete:  %s\n", data) }
func (replMarkerSet) Covered(data string, _ chron.Range) { fmt.Printf("  covered: %s\n", data) }

func (r *REPL) cmdEnumerate() {
	enum, err := r.text.Enumerate(replMarkerSet{}, nil)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("events:")
	for range enum {
	}
}

func (r *REPL) cmdUndo() {
	if err := r.app.Undo(); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("undone")
}

func (r *REPL) cmdRedo() {
	if err := r.app.Redo(); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("redone")
}

func (r *REPL) cmdSnapshot(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: snapshot save|load [path]")
		return
	}
	path := r.snapshotPath
	if len(args) >= 2 {
		path = args[1]
	}
	if path == "" {
		fmt.Println("no snapshot path: pass one or start wavedemo with --snapshot")
		return
	}

	switch strings.ToLower(args[0]) {
	case "save":
		if err := snapshot.Save(path, r.app.Top()); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("saved to %s\n", path)
	case "load":
		root, err := snapshot.Load(path, r.reg)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		ref, ok := firstTextRef(root)
		if !ok {
			fmt.Printf("snapshot %s has no Text document\n", path)
			return
		}
		r.app = waveapp.NewApp(root, r.reg)
		r.text = textmodel.Bind(r.app, ref)
		r.haveLastRange = false
		fmt.Printf("loaded from %s\n", path)
	default:
		fmt.Printf("unknown snapshot subcommand: %s\n", args[0])
	}
}
