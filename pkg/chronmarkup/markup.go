// Package chronmarkup implements ChronMarkup: a set of typed marker
// ranges anchored to cursors of a single Chron, with a boundary-sweep
// enumeration that replays add/delete/covered events against a live
// Chron walk. This generalizes the teacher's MVCC version chains
// (pkg/mvcc/version.go, also the grounding for pkg/chron) one level
// up: where Chron tracks one global chain of atoms, ChronMarkup tracks
// many independent, possibly-overlapping spans over that chain.
package chronmarkup

import (
	"github.com/juju/loggo"

	"github.com/wavecollab/wave/pkg/chron"
	"github.com/wavecollab/wave/pkg/trie"
)

var logger = loggo.GetLogger("wave.chronmarkup")

// compactionThreshold is the number of NONE-range (unmarked) entries
// the marker vector tolerates before the next mark rebuilds it
// compactly. It is a var rather than a const so pkg/config can
// override it at startup (SetCompactionThreshold); the default
// matches the "16" spec.md §4.3 names.
var compactionThreshold = 16

// SetCompactionThreshold overrides the tombstone count that triggers
// marker-vector compaction on the next Mark. It is meant to be called
// once, at startup, before any Markup is created.
func SetCompactionThreshold(n int) {
	compactionThreshold = n
}

// markEntry is one slot of the marker vector. A slot with present
// false is a tombstone left behind by unmark, counted toward
// compactionThreshold.
type markEntry[D comparable] struct {
	data    D
	rng     chron.Range
	present bool
}

// Markup holds a persistent collection of marker ranges keyed by a
// comparable identity type D, anchored to cursors of a Chron[T].
type Markup[D comparable, T any] struct {
	markers   *trie.Vector[markEntry[D]]
	byData    map[D]int
	noneCount int
}

// New returns an empty Markup.
func New[D comparable, T any]() *Markup[D, T] {
	return &Markup[D, T]{
		markers: trie.Empty[markEntry[D]](),
		byData:  map[D]int{},
	}
}

func cloneIndex[D comparable](m map[D]int) map[D]int {
	out := make(map[D]int, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Mark records data as covering rng, replacing any existing range for
// the same data. It triggers compaction first if enough prior unmarks
// have accumulated.
func (m *Markup[D, T]) Mark(data D, rng chron.Range) *Markup[D, T] {
	base := m
	if base.noneCount > compactionThreshold {
		base = base.compact()
	}

	entry := markEntry[D]{data: data, rng: rng, present: true}
	if idx, ok := base.byData[data]; ok {
		noneCount := base.noneCount
		if old, ok := base.markers.Get(idx); ok && !old.present {
			noneCount--
		}
		return &Markup[D, T]{
			markers:   base.markers.Set(idx, entry),
			byData:    base.byData,
			noneCount: noneCount,
		}
	}

	idx := base.markers.Length()
	byData := cloneIndex(base.byData)
	byData[data] = idx
	return &Markup[D, T]{
		markers:   base.markers.Append(entry),
		byData:    byData,
		noneCount: base.noneCount,
	}
}

// Unmark removes data's range, if any. It is a no-op if data was never
// marked or is already unmarked.
func (m *Markup[D, T]) Unmark(data D) *Markup[D, T] {
	idx, ok := m.byData[data]
	if !ok {
		return m
	}
	old, ok := m.markers.Get(idx)
	if !ok || !old.present {
		return m
	}
	tombstone := markEntry[D]{data: data, present: false}
	return &Markup[D, T]{
		markers:   m.markers.Set(idx, tombstone),
		byData:    m.byData,
		noneCount: m.noneCount + 1,
	}
}

// RangeOf returns the range currently marked for data, if any.
func (m *Markup[D, T]) RangeOf(data D) (chron.Range, bool) {
	idx, ok := m.byData[data]
	if !ok {
		return chron.Range{}, false
	}
	e, ok := m.markers.Get(idx)
	if !ok || !e.present {
		return chron.Range{}, false
	}
	return e.rng, true
}

// compact drops every tombstoned slot and rebuilds the index, keeping
// the relative order of surviving markers.
func (m *Markup[D, T]) compact() *Markup[D, T] {
	logger.Tracef("compacting markup: %d tombstones", m.noneCount)
	markers := trie.Empty[markEntry[D]]()
	byData := map[D]int{}
	for _, e := range m.markers.All() {
		if !e.present {
			continue
		}
		byData[e.data] = markers.Length()
		markers = markers.Append(e)
	}
	return &Markup[D, T]{markers: markers, byData: byData, noneCount: 0}
}
