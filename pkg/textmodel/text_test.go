package textmodel

import (
	"testing"

	"github.com/wavecollab/wave/pkg/chron"
	"github.com/wavecollab/wave/pkg/chronmarkup"
	"github.com/wavecollab/wave/pkg/waveapp"
	"github.com/wavecollab/wave/pkg/world"
)

func newApp(t *testing.T) *waveapp.App {
	t.Helper()
	reg := waveapp.NewRegistry()
	Register(reg)
	return waveapp.NewApp(world.NewRoot(), reg)
}

type recordingSet struct {
	chronmarkup.NopMarkerSet[string]
	events []string
}

func (r *recordingSet) Add(data string, _ chron.Cursor) {
	r.events = append(r.events, "add:"+data)
}

func (r *recordingSet) Delete(data string, _ chron.Cursor) {
	r.events = append(r.events, "del:"+data)
}

func (r *recordingSet) Covered(data string, _ chron.Range) {
	r.events = append(r.events, "cov:"+data)
}

// TestHelloWorldScenario is spec.md's S1.
func TestHelloWorldScenario(t *testing.T) {
	app := newApp(t)
	text, err := New(app)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tail, err := text.Tail()
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if _, err := text.Insert(tail, "Hello, ", waveapp.WaveOptions{}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	tail, err = text.Tail()
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	r, err := text.Insert(tail, "world", waveapp.WaveOptions{})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	tail, err = text.Tail()
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if _, err := text.Insert(tail, "!", waveapp.WaveOptions{}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := text.Mark(r, "bold"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	got, err := text.Codepoints()
	if err != nil {
		t.Fatalf("Codepoints: %v", err)
	}
	if got != "Hello, world!" {
		t.Fatalf("Codepoints = %q, want %q", got, "Hello, world!")
	}

	set := &recordingSet{}
	enum, err := text.Enumerate(set, nil)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	for range enum {
	}
	if len(set.events) != 2 || set.events[0] != "add:bold" || set.events[1] != "del:bold" {
		t.Fatalf("events = %v, want [add:bold del:bold]", set.events)
	}
}

// TestTypingCoalescesIntoOneUndoFrame is spec.md's S2.
func TestTypingCoalescesIntoOneUndoFrame(t *testing.T) {
	app := newApp(t)
	text, err := New(app)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	before := app.Depth()

	cur, err := text.Tail()
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	for i, r := range "typed" {
		next, err := text.Insert(cur, string(r), waveapp.WaveOptions{Tag: "typing:id", ID: "cursor-1", Rate: float64(i + 1)})
		if err != nil {
			t.Fatalf("Insert #%d: %v", i, err)
		}
		cur = next.Tail
	}

	if app.Depth() != before+1 {
		t.Fatalf("Depth after coalesced typing = %d, want %d", app.Depth(), before+1)
	}

	got, _ := text.Codepoints()
	if got != "typed" {
		t.Fatalf("Codepoints before undo = %q, want %q", got, "typed")
	}

	if err := app.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	got, _ = text.Codepoints()
	if got != "" {
		t.Fatalf("Codepoints after undo = %q, want empty", got)
	}

	if err := app.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	got, _ = text.Codepoints()
	if got != "typed" {
		t.Fatalf("Codepoints after redo = %q, want %q", got, "typed")
	}
}

// TestDeletionPreservesMarkupEndpoints is spec.md's S3.
func TestDeletionPreservesMarkupEndpoints(t *testing.T) {
	app := newApp(t)
	text, err := New(app)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tail, _ := text.Tail()
	_, _ = text.Insert(tail, "abc", waveapp.WaveOptions{})
	tail, _ = text.Tail()
	marked, _ := text.Insert(tail, "bold", waveapp.WaveOptions{})
	tail, _ = text.Tail()
	_, _ = text.Insert(tail, "def", waveapp.WaveOptions{})

	if err := text.Mark(marked, "bold"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	if err := text.DeleteRange(marked, waveapp.WaveOptions{}); err != nil {
		t.Fatalf("DeleteRange: %v", err)
	}

	got, _ := text.Codepoints()
	if got != "abcdef" {
		t.Fatalf("Codepoints after delete = %q, want %q", got, "abcdef")
	}

	r, ok, err := text.RangeOf("bold")
	if err != nil || !ok {
		t.Fatalf("RangeOf(bold) = %v, %v, %v, want a resolvable range", r, ok, err)
	}

	// The marker's head boundary is still anchored to the live 'c' and
	// its tail boundary to the now-tombstoned last char of "bold". Both
	// cursors still resolve, so the sweep still fires the pair; nothing
	// but tombstones get yielded in between.
	set := &recordingSet{}
	enum, err := text.Enumerate(set, nil)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	for range enum {
	}
	want := []string{"add:bold", "del:bold"}
	if !equalStrings(set.events, want) {
		t.Fatalf("events after deleting the whole marked range = %v, want %v", set.events, want)
	}

	if _, err := text.Insert(marked.Head, "X", waveapp.WaveOptions{}); err != nil {
		t.Fatalf("Insert at former head: %v", err)
	}
	got, _ = text.Codepoints()
	if got != "abcXdef" {
		t.Fatalf("Codepoints after reinsert = %q, want %q", got, "abcXdef")
	}

	r2, ok, err := text.RangeOf("bold")
	if err != nil || !ok {
		t.Fatalf("RangeOf(bold) after reinsert = %v, %v, %v, want a resolvable range", r2, ok, err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
