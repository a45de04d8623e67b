package snapshot

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wavecollab/wave/pkg/chron"
	"github.com/wavecollab/wave/pkg/model"
	"github.com/wavecollab/wave/pkg/textmodel"
	"github.com/wavecollab/wave/pkg/waveapp"
	"github.com/wavecollab/wave/pkg/world"
)

func pointRegistry() *waveapp.Registry {
	reg := waveapp.NewRegistry()
	model.NewClass("Point").
		Slot("x", model.IsInt).
		Slot("y", model.IsInt).
		Slot("label", model.IsString).
		Register(reg)
	model.RegisterCoder("Point")

	model.NewClass("Link").
		Slot("to", model.IsRef).
		Register(reg)
	model.RegisterCoder("Link")
	return reg
}

func TestSaveThenLoadRoundTripsModels(t *testing.T) {
	reg := pointRegistry()
	def, _ := reg.Lookup("Point")

	root := world.NewRoot()
	m, err := root.Create(def.Schema)
	require.NoError(t, err)
	require.NoError(t, m.WriteSlot(0, int64(3)))
	require.NoError(t, m.WriteSlot(1, int64(4)))
	require.NoError(t, m.WriteSlot(2, "origin"))

	path := filepath.Join(t.TempDir(), "snap.bin")
	require.NoError(t, Save(path, root))

	restored, err := Load(path, reg)
	require.NoError(t, err)

	rm, err := restored.Bind(m.Ref)
	require.NoError(t, err)
	x, err := rm.ReadSlot(0)
	require.NoError(t, err)
	y, err := rm.ReadSlot(1)
	require.NoError(t, err)
	label, err := rm.ReadSlot(2)
	require.NoError(t, err)

	require.Equal(t, int64(3), x)
	require.Equal(t, int64(4), y)
	require.Equal(t, "origin", label)
}

func TestSaveThenLoadPreservesRefIdentity(t *testing.T) {
	reg := pointRegistry()
	pointDef, _ := reg.Lookup("Point")
	linkDef, _ := reg.Lookup("Link")

	root := world.NewRoot()
	target, err := root.Create(pointDef.Schema)
	require.NoError(t, err)
	link, err := root.Create(linkDef.Schema)
	require.NoError(t, err)
	require.NoError(t, link.WriteSlot(0, target.Ref))

	path := filepath.Join(t.TempDir(), "snap.bin")
	require.NoError(t, Save(path, root))

	restored, err := Load(path, reg)
	require.NoError(t, err)

	rlink, err := restored.Bind(link.Ref)
	require.NoError(t, err)
	to, err := rlink.ReadSlot(0)
	require.NoError(t, err)

	ref, ok := to.(world.Ref)
	require.True(t, ok, "restored slot type = %T, want world.Ref", to)
	require.Equal(t, target.Ref.String(), ref.String())
}

func TestLoadUnknownClassFails(t *testing.T) {
	savingReg := pointRegistry()
	def, _ := savingReg.Lookup("Point")

	root := world.NewRoot()
	_, err := root.Create(def.Schema)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snap.bin")
	require.NoError(t, Save(path, root))

	emptyReg := waveapp.NewRegistry()
	_, err = Load(path, emptyReg)
	require.Error(t, err)
}

func TestLoadMissingFileFails(t *testing.T) {
	reg := pointRegistry()
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"), reg)
	require.Error(t, err)
}

func textRegistry() *waveapp.Registry {
	reg := waveapp.NewRegistry()
	textmodel.Register(reg)
	model.RegisterCoder(textmodel.ClassName)
	return reg
}

func firstTextRef(w *world.World) (world.Ref, bool) {
	for _, snap := range w.Snapshot() {
		if snap.ClassName == textmodel.ClassName {
			return snap.Ref, true
		}
	}
	return world.Ref{}, false
}

// TestSaveThenLoadRoundTripsText is spec.md §8's S4: a Text with a
// Chron of 1000 inserts, 200 deletes, and 50 markers, saved and
// reloaded intact. Each of the 50 chunks inserted below is itself 20
// runes, each rune its own chron.Insert call, so the underlying Chron
// ends up with exactly 1000 entries; deleting the first 10 chunks
// tombstones exactly 200 of them.
func TestSaveThenLoadRoundTripsText(t *testing.T) {
	const chunks = 50
	const chunkLen = 20

	reg := textRegistry()
	app := waveapp.NewApp(world.NewRoot(), reg)
	text, err := textmodel.New(app)
	require.NoError(t, err)

	ranges := make([]chron.Range, chunks)
	for i := 0; i < chunks; i++ {
		tail, err := text.Tail()
		require.NoError(t, err)
		chunk := strings.Repeat(string(rune('a'+i%26)), chunkLen)
		rng, err := text.Insert(tail, chunk, waveapp.WaveOptions{})
		require.NoError(t, err)
		ranges[i] = rng
		require.NoError(t, text.Mark(rng, fmt.Sprintf("marker-%d", i)))
	}

	for i := 0; i < 10; i++ {
		require.NoError(t, text.DeleteRange(ranges[i], waveapp.WaveOptions{}))
	}

	wantCodepoints, err := text.Codepoints()
	require.NoError(t, err)

	wantRanges := make(map[string]chron.Range, chunks)
	for i := 0; i < chunks; i++ {
		name := fmt.Sprintf("marker-%d", i)
		rng, ok, err := text.RangeOf(name)
		require.NoError(t, err)
		require.True(t, ok)
		wantRanges[name] = rng
	}

	path := filepath.Join(t.TempDir(), "text.bin")
	require.NoError(t, Save(path, app.Top()))

	restored, err := Load(path, reg)
	require.NoError(t, err)

	ref, ok := firstTextRef(restored)
	require.True(t, ok)
	loadedApp := waveapp.NewApp(restored, reg)
	loaded := textmodel.Bind(loadedApp, ref)

	gotCodepoints, err := loaded.Codepoints()
	require.NoError(t, err)
	require.Equal(t, wantCodepoints, gotCodepoints)

	for name, want := range wantRanges {
		got, ok, err := loaded.RangeOf(name)
		require.NoError(t, err)
		require.True(t, ok)
		// Decoded cursors carry only their key and offset, not the
		// entryIndex fast path, so compare them with Cursor.Equal.
		require.True(t, want.Head.Equal(got.Head), "%s head = %+v, want %+v", name, got.Head, want.Head)
		require.True(t, want.Tail.Equal(got.Tail), "%s tail = %+v, want %+v", name, got.Tail, want.Tail)
	}
}
